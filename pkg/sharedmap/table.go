package sharedmap

// Table is the in-process shared map layer: stats + config + steer table
// bundled behind the four operations spec §4.1 names. It backs the pure-Go
// classifier and is also the shape pkg/dataplane's eBPF-backed maps mirror.
type Table struct {
	Stats *Stats
	Cfg   *ConfigSlot
	Steer *SteerTable
}

// New creates a Table pre-loaded with the given configuration.
func New(initial Config) *Table {
	return &Table{
		Stats: &Stats{},
		Cfg:   NewConfigSlot(initial),
		Steer: NewSteerTable(),
	}
}

func (t *Table) StatsRead(idx StatIndex) uint64        { return t.Stats.Read(idx) }
func (t *Table) StatsAdd(idx StatIndex, delta uint64)  { t.Stats.Add(idx, delta) }
func (t *Table) ConfigLoad() Config                    { return t.Cfg.Load() }
func (t *Table) ConfigStore(cfg Config)                { t.Cfg.Store(cfg) }
func (t *Table) SteerSet(queueID uint32, handle any)   { t.Steer.Set(queueID, handle) }
func (t *Table) SteerUnset(queueID uint32)             { t.Steer.Unset(queueID) }

package dataplane

import "github.com/cilium/ebpf"

// xdpclassifierObjects mirrors the struct bpf2go generates from
// bpf/xdp/xdp_classifier.c (xdpclassifier_bpfel.go, produced by `go
// generate` — not committed, same as the teacher's bpfrxXdpMainObjects
// and friends in its own loader_ebpf.go). Field names follow bpf2go's
// convention of exporting each SEC("maps")/SEC("xdp") symbol by its
// CamelCase name.
type xdpclassifierObjects struct {
	XdpClassify *ebpf.Program `ebpf:"xdp_classify"`

	StatsMap          *ebpf.Map `ebpf:"stats_map"`
	ConfigMap         *ebpf.Map `ebpf:"config_map"`
	SampleCounterMap  *ebpf.Map `ebpf:"sample_counter_map"`
	XsksMap           *ebpf.Map `ebpf:"xsks_map"`
}

func (o *xdpclassifierObjects) Close() error {
	closers := []interface {
		Close() error
	}{o.XdpClassify, o.StatsMap, o.ConfigMap, o.SampleCounterMap, o.XsksMap}
	var first error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// loadXdpclassifierObjects loads the generated CollectionSpec and assigns
// its programs/maps into obj. The actual loadXdpclassifier() CollectionSpec
// loader (embedding the compiled ELF via go:embed) is produced alongside
// xdpclassifierObjects by bpf2go; declared here as the seam this file's
// loader.go calls through.
func loadXdpclassifierObjects(obj *xdpclassifierObjects, opts *ebpf.CollectionOptions) error {
	spec, err := loadXdpclassifier()
	if err != nil {
		return err
	}
	return spec.LoadAndAssign(obj, opts)
}

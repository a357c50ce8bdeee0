// Package config is the ambient typed configuration layer every component
// reads: the recognized knob set of spec §4.5, independent of how it was
// sourced (CLI flags in cmd/xdppreprocd, or a future YAML surface, which
// stays out of scope per spec §1 — only the typed struct and its
// validation live here).
package config

import (
	"time"

	"github.com/xdpfeat/preprocessor/pkg/sharedmap"
)

// Mode selects the reference CLI's operating mode (spec §6).
type Mode string

const (
	ModeClassify Mode = "classify"
	ModeAnomaly  Mode = "anomaly"
	ModeSecurity Mode = "security"
)

// ParseMode validates a mode string against the recognized set.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeClassify, ModeAnomaly, ModeSecurity:
		return Mode(s), true
	default:
		return "", false
	}
}

// Config is the complete recognized knob set from spec §4.5, plus the CLI
// surface's process-level settings (interface, mode, duration, verbose).
type Config struct {
	sharedmap.Config

	Interface string
	Mode      Mode
	QueueIDs  []uint32
	Duration  time.Duration
	Verbose   bool
}

// Default returns a Config with the shared-map defaults plus a
// single-queue classify-mode setup.
func Default(iface string) Config {
	return Config{
		Config:    sharedmap.DefaultConfig(),
		Interface: iface,
		Mode:      ModeClassify,
		QueueIDs:  []uint32{0},
		Duration:  0,
	}
}

// Validate checks the full knob set, including the CLI-level fields
// sharedmap.Config.Validate doesn't know about.
func (c Config) Validate() error {
	if c.Interface == "" {
		return ValidationError("interface name is required")
	}
	if _, ok := ParseMode(string(c.Mode)); !ok {
		return ValidationError("mode must be one of classify, anomaly, security")
	}
	if len(c.QueueIDs) == 0 {
		return ValidationError("at least one queue id is required")
	}
	return c.Config.Validate()
}

// ValidationError is a plain string error for configuration problems
// detected before an Engine is constructed.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

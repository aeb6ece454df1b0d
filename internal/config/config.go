// Package config defines daemon configuration and its loading chain.
//
// Conventions follow the rest of the repo: defaults come from New,
// file and environment layers override them, and external errors are
// wrapped through this package's sentinels.
package config

import "github.com/cadencelab/tempolink/internal/domain/tempo"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ListenHost and ListenPort are the UDP bind parameters for
	// inbound OSC traffic.
	ListenHost string `koanf:"listen_host"`
	ListenPort int    `koanf:"listen_port"`

	// MetricsAddr is the Prometheus exposition listen address.
	MetricsAddr string `koanf:"metrics_addr"`

	// PhaseSync enables phase-drift correction; with it off only
	// frequency changes trigger updates.
	PhaseSync bool `koanf:"phase_sync"`

	// PhaseTolerance is the drift, in cycles, tolerated before a
	// realignment is pushed.
	PhaseTolerance float64 `koanf:"phase_tolerance"`

	// PhaseLeadCycles shifts incoming phase to absorb constant
	// scheduling latency between the rhythm engine and rendering.
	PhaseLeadCycles float64 `koanf:"phase_lead_cycles"`

	// RendererAddr is the downstream UDP endpoint tempo updates are
	// forwarded to. Empty means updates are accepted locally and not
	// forwarded.
	RendererAddr string `koanf:"renderer_addr"`

	// Debug toggles verbose per-packet and per-decision logging.
	Debug bool `koanf:"debug"`
}

// Settings converts the phase-related fields into the immutable
// snapshot the decision engine consumes.
func (c *Config) Settings() tempo.Settings {
	return tempo.Settings{
		PhaseSync:      c.PhaseSync,
		PhaseTolerance: c.PhaseTolerance,
		LeadCycles:     c.PhaseLeadCycles,
	}
}

// New returns the built-in defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		ListenHost:      "127.0.0.1",
		ListenPort:      57121,
		MetricsAddr:     ":9091",
		PhaseSync:       true,
		PhaseTolerance:  tempo.DefaultPhaseTolerance,
		PhaseLeadCycles: 0,
		RendererAddr:    "",
		Debug:           false,
	}
}

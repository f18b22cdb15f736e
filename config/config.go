// Package config loads the optional YAML overlay both binaries accept via
// -config, following the site-config pattern used elsewhere in the corpus:
// a missing file is not an error, and every field is a pointer so the
// overlay can distinguish "unset" from "set to the zero value".
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/udpftp/udpftp/sender"
)

// Overlay holds the subset of tunables an operator may override. Flags
// always win over these values; these values always win over the built-in
// defaults in Defaults(). MSS, InitialCwnd and EOFGraceMs are carried into
// Resolved but not applied by either binary.
type Overlay struct {
	MSS           *int    `yaml:"mss"`
	InitialCwnd   *int    `yaml:"initial_cwnd"`
	SWS           *int    `yaml:"sws"`
	RTOMinMillis  *int    `yaml:"rto_min_ms"`
	RTOMaxMillis  *int    `yaml:"rto_max_ms"`
	RTOInitMillis *int    `yaml:"rto_init_ms"`
	IdleTimeoutMs *int    `yaml:"idle_timeout_ms"`
	EOFGraceMs    *int    `yaml:"eof_grace_ms"`
	MetricsAddr   *string `yaml:"metrics_addr"`
}

// Resolved is the fully materialized configuration, defaults-then-overlay
// applied, ready for consumption by the sender/receiver constructors.
type Resolved struct {
	MSS         int
	InitialCwnd int
	SWS         int
	RTOMin      time.Duration
	RTOMax      time.Duration
	RTOInit     time.Duration
	IdleTimeout time.Duration
	EOFGrace    time.Duration
	MetricsAddr string
}

// Defaults returns the constant table from the wire/protocol spec before any
// overlay or flag is applied.
func Defaults() Resolved {
	return Resolved{
		MSS:         1180,
		InitialCwnd: 1180,
		SWS:         64 * 1180,
		RTOMin:      200 * time.Millisecond,
		RTOMax:      60 * time.Second,
		RTOInit:     1 * time.Second,
		IdleTimeout: 5 * time.Second,
		EOFGrace:    10 * time.Second,
		MetricsAddr: "",
	}
}

// RTOBoundsForVariant returns the default [min, max] RTO clamp for the given
// sender variant: variant A's fixed window keeps the tight [0.1s, 2s] bound
// the original implementation uses, while variant B's Reno congestion
// control backs off exponentially up to a 60s ceiling. Callers apply these
// to a Resolved's RTOMin/RTOMax before overlaying file/flag values, so an
// explicit override still wins over the variant default.
func RTOBoundsForVariant(variant sender.Variant) (min, max time.Duration) {
	if variant == sender.VariantA {
		return 100 * time.Millisecond, 2 * time.Second
	}
	return 200 * time.Millisecond, 60 * time.Second
}

// Load reads path, if non-empty, and returns the overlay it describes. A
// missing path (empty string, or a file that does not exist) yields a zero
// Overlay rather than an error.
func Load(path string) (Overlay, error) {
	if path == "" {
		return Overlay{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Overlay{}, nil
		}
		return Overlay{}, errors.Wrapf(err, "udpftp: reading config %s", path)
	}

	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Overlay{}, errors.Wrapf(err, "udpftp: parsing config %s", path)
	}
	return o, nil
}

// Apply overlays o onto defaults, returning the resolved configuration.
func Apply(defaults Resolved, o Overlay) Resolved {
	r := defaults
	if o.MSS != nil {
		r.MSS = *o.MSS
	}
	if o.InitialCwnd != nil {
		r.InitialCwnd = *o.InitialCwnd
	}
	if o.SWS != nil {
		r.SWS = *o.SWS
	}
	if o.RTOMinMillis != nil {
		r.RTOMin = time.Duration(*o.RTOMinMillis) * time.Millisecond
	}
	if o.RTOMaxMillis != nil {
		r.RTOMax = time.Duration(*o.RTOMaxMillis) * time.Millisecond
	}
	if o.RTOInitMillis != nil {
		r.RTOInit = time.Duration(*o.RTOInitMillis) * time.Millisecond
	}
	if o.IdleTimeoutMs != nil {
		r.IdleTimeout = time.Duration(*o.IdleTimeoutMs) * time.Millisecond
	}
	if o.EOFGraceMs != nil {
		r.EOFGrace = time.Duration(*o.EOFGraceMs) * time.Millisecond
	}
	if o.MetricsAddr != nil {
		r.MetricsAddr = *o.MetricsAddr
	}
	return r
}

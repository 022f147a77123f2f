// Package mode resolves the controller's operating mode (spec.md §4.8).
package mode

import "github.com/wejdeneh/cntrl/internal/config"

// Mode is one of BOOTSTRAP, APPLY, or TEARDOWN (spec.md §3).
type Mode string

const (
	// Bootstrap observes traffic and grows the observed edge set but
	// never reconciles the cluster.
	Bootstrap Mode = "BOOTSTRAP"
	// Apply reconciles the cluster to the frozen edge set.
	Apply Mode = "APPLY"
	// Teardown is entered only when the namespace carries a deletion
	// timestamp; it is not reachable from configuration and tells the
	// policy generator to return an empty desired set.
	Teardown Mode = "TEARDOWN"
)

// Resolve implements the resolution order of spec.md §4.8:
//  1. cfg.ModeOverride (CONTROLLER_MODE / MODE env var), if valid.
//  2. The namespace annotation trirematics.io/controller-mode, if valid.
//  3. Default Bootstrap.
//
// deleting must be true when the namespace object carries a deletion
// timestamp; Resolve then unconditionally returns Teardown regardless
// of configuration, since TEARDOWN is an internal signal derived from
// cluster state, not a configurable mode (spec.md §4.8).
func Resolve(cfg config.Config, namespaceAnnotations map[string]string, deleting bool) Mode {
	if deleting {
		return Teardown
	}
	if cfg.ModeOverride == string(Bootstrap) || cfg.ModeOverride == string(Apply) {
		return Mode(cfg.ModeOverride)
	}
	if ann := namespaceAnnotations[config.ModeAnnotation]; ann == string(Bootstrap) || ann == string(Apply) {
		return Mode(ann)
	}
	return Bootstrap
}

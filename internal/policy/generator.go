package policy

import (
	"github.com/wejdeneh/cntrl/internal/config"
	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/mode"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

// DesiredPolicies builds the full desired policy set for a namespace:
// the opt-in infra and safety families plus one role policy per edge
// in roleEdges. In TEARDOWN mode it unconditionally returns an empty
// slice, regardless of configuration (spec.md §4.4).
func DesiredPolicies(ns string, m mode.Mode, cfg config.Config, roleEdges []edgestore.RoleEdge) []*v2.NetworkPolicy {
	if m == mode.Teardown {
		return nil
	}

	var out []*v2.NetworkPolicy
	if cfg.ManageInfra {
		out = append(out, GenerateInfra(ns)...)
	}
	if cfg.EnableSafety {
		out = append(out, GenerateSafety(ns)...)
	}
	out = append(out, GenerateRolePolicies(ns, roleEdges, m)...)
	return out
}

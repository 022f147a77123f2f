// Package policy generates the three families of CiliumNetworkPolicy
// documents cntrl manages: infra, safety, and role (spec.md §4.4).
package policy

import (
	"github.com/wejdeneh/cntrl/internal/mode"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

// Label keys and values of the management/ownership contract
// (spec.md §6's "Label contract (bit-exact)").
const (
	LabelManaged   = "trirematics.io/managed"
	LabelManagedBy = "trirematics.io/managed-by"
	LabelType      = "trirematics.io/type"
	LabelMode      = "trirematics.io/mode"
	LabelSrc       = "trirematics.io/src"
	LabelDst       = "trirematics.io/dst"
	LabelInfra     = "trirematics.io/infra"

	ManagedValue   = "true"
	ManagedByValue = "controller"

	TypeInfra  = "infra"
	TypeSafety = "safety"
	TypeRole   = "role"
)

// RoleLabel is the well-known label key naming a role's "active"
// marker on a pod (spec.md §4.4, §6).
func RoleLabel(role string) string {
	return "roles.athena.t9s.io/" + role
}

// managementLabels returns the ownership labels every controller-owned
// policy must carry (spec.md §3's ownership marker).
func managementLabels(policyType string) map[string]string {
	return map[string]string{
		LabelManaged:   ManagedValue,
		LabelManagedBy: ManagedByValue,
		LabelType:      policyType,
	}
}

// newPolicy builds a policy document with the base management labels
// for policyType set, ready for the caller to add type-specific labels
// and a spec.
func newPolicy(ns, name, policyType string) *v2.NetworkPolicy {
	p := v2.New(ns, name)
	p.Metadata.Labels = managementLabels(policyType)
	return p
}

// IsOwnedByController reports whether a policy carries both labels of
// the ownership marker (spec.md §3): it is the sole gate the reconciler
// consults before deleting an actual policy that is not in the desired
// set (spec.md §4.6, §8 invariant 2).
func IsOwnedByController(p *v2.NetworkPolicy) bool {
	labels := p.Metadata.Labels
	return labels[LabelManaged] == ManagedValue && labels[LabelManagedBy] == ManagedByValue
}

// modeLabelValue renders a mode.Mode as the string the role-policy
// label contract expects.
func modeLabelValue(m mode.Mode) string {
	return string(m)
}

// Package reconcile diffs a desired CiliumNetworkPolicy set against
// the cluster's actual state and drives create/patch/delete calls,
// deleting only policies the controller owns (spec.md §4.6).
package reconcile

import v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"

// PolicyID identifies a policy document independent of its spec, the
// key diffing is keyed on.
type PolicyID struct {
	Namespace string
	Kind      string
	Name      string
}

// ID returns the identity of a policy for diffing purposes.
func ID(p *v2.NetworkPolicy) PolicyID {
	return PolicyID{Namespace: p.Metadata.Namespace, Kind: p.Kind, Name: p.Metadata.Name}
}

// normalize strips the fields that the apiserver fills in and that
// therefore never meaningfully appear on a policy this package itself
// constructs: status, and the metadata bookkeeping fields
// creationTimestamp/resourceVersion/uid/generation/managedFields
// (spec.md §4.6). It operates on a copy; the argument is not mutated.
func normalize(p *v2.NetworkPolicy) *v2.NetworkPolicy {
	out := p.DeepCopy()
	out.Extra = nil
	out.Metadata.CreationTimestamp = ""
	out.Metadata.ResourceVersion = ""
	out.Metadata.UID = ""
	out.Metadata.Generation = 0
	out.Metadata.ManagedFields = nil
	return out
}

// sanitizePolicy renders the policy's name and label values through
// sanitizeName/sanitizeLabelValue and normalizes it, so the result is
// comparable to a value read back from the cluster after a create.
func sanitizePolicy(p *v2.NetworkPolicy) *v2.NetworkPolicy {
	out := normalize(p)
	out.Metadata.Name = sanitizeName(out.Metadata.Name)
	if len(out.Metadata.Labels) > 0 {
		labels := make(map[string]string, len(out.Metadata.Labels))
		for k, v := range out.Metadata.Labels {
			labels[k] = sanitizeLabelValue(v)
		}
		out.Metadata.Labels = labels
	}
	return out
}

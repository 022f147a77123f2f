// Package v2 models the subset of the Cilium CiliumNetworkPolicy (CNP)
// CRD (group cilium.io, version v2) that cntrl produces and reconciles.
//
// The CRD and its admission controller are out of scope for cntrl
// (spec.md §1); this package exists only so the rest of the controller
// can work with a typed, tagged record instead of an untyped map
// (spec.md §9's design note). Top-level keys cntrl never emits but might
// encounter on an actual cluster (most commonly status) are preserved
// through round-trips via Extra. Unrecognized keys inside metadata or
// spec are not preserved: they are dropped when a document is decoded.
package v2

import "encoding/json"

// GroupVersion identifies the CNP API this package models.
const (
	Group   = "cilium.io"
	Version = "v2"
	Kind    = "CiliumNetworkPolicy"
	Plural  = "ciliumnetworkpolicies"
)

// ObjectMeta is the subset of Kubernetes object metadata cntrl reads or
// writes. Metadata fields not listed here (annotations, ownerReferences,
// ...) are dropped when a document is decoded; Extra on the enclosing
// NetworkPolicy holds only unmodeled top-level keys.
type ObjectMeta struct {
	Name              string            `json:"name,omitempty"`
	Namespace         string            `json:"namespace,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	CreationTimestamp string            `json:"creationTimestamp,omitempty"`
	ResourceVersion   string            `json:"resourceVersion,omitempty"`
	UID               string            `json:"uid,omitempty"`
	Generation        int64             `json:"generation,omitempty"`
	ManagedFields     json.RawMessage   `json:"managedFields,omitempty"`
}

// Requirement is a single matchExpressions entry of a label selector.
type Requirement struct {
	Key      string   `json:"key"`
	Operator string   `json:"operator"`
	Values   []string `json:"values,omitempty"`
}

// Selector is a Cilium/Kubernetes-style label selector: matchLabels plus
// matchExpressions. The zero value selects every pod in the namespace.
type Selector struct {
	MatchLabels      map[string]string `json:"matchLabels,omitempty"`
	MatchExpressions []Requirement     `json:"matchExpressions,omitempty"`
}

// IsEmpty reports whether the selector has neither matchLabels nor
// matchExpressions, i.e. it selects every pod (spec.md §4.5 rule 2).
func (s Selector) IsEmpty() bool {
	return len(s.MatchLabels) == 0 && len(s.MatchExpressions) == 0
}

// PortProtocol is a single (port, protocol) pair as Cilium represents it:
// port is a string (Cilium allows named/ranged ports), protocol is the
// upper-case L4 protocol name.
type PortProtocol struct {
	Port     string `json:"port"`
	Protocol string `json:"protocol"`
}

// PortRule restricts a from/to rule to a set of destination ports.
type PortRule struct {
	Ports []PortProtocol `json:"ports,omitempty"`
}

// IngressRule allows traffic from a set of endpoints or entities to the
// ports named in ToPorts. An empty ToPorts allows all ports from the
// matched sources.
type IngressRule struct {
	FromEndpoints []Selector `json:"fromEndpoints,omitempty"`
	FromEntities  []string   `json:"fromEntities,omitempty"`
	ToPorts       []PortRule `json:"toPorts,omitempty"`
}

// EgressRule allows traffic to a set of endpoints or entities on the
// ports named in ToPorts.
type EgressRule struct {
	ToEndpoints []Selector `json:"toEndpoints,omitempty"`
	ToEntities  []string   `json:"toEntities,omitempty"`
	ToPorts     []PortRule `json:"toPorts,omitempty"`
}

// Spec is the CiliumNetworkPolicy spec cntrl generates: an endpoint
// selector plus optional ingress/egress rule lists.
type Spec struct {
	EndpointSelector Selector      `json:"endpointSelector"`
	Ingress          []IngressRule `json:"ingress,omitempty"`
	Egress           []EgressRule  `json:"egress,omitempty"`
}

// NetworkPolicy is a CiliumNetworkPolicy document. Extra carries any
// top-level keys (most commonly "status", on documents read back from
// the cluster) that this package does not model explicitly, so that
// round-tripping through UnmarshalJSON/MarshalJSON keeps them. Unmodeled
// keys nested inside metadata or spec are not kept.
type NetworkPolicy struct {
	APIVersion string     `json:"apiVersion"`
	Kind       string     `json:"kind"`
	Metadata   ObjectMeta `json:"metadata"`
	Spec       Spec       `json:"spec"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownTopLevelKeys = map[string]bool{
	"apiVersion": true,
	"kind":       true,
	"metadata":   true,
	"spec":       true,
}

// New builds an empty, correctly-typed CiliumNetworkPolicy for the
// given namespace and name.
func New(namespace, name string) *NetworkPolicy {
	return &NetworkPolicy{
		APIVersion: Group + "/" + Version,
		Kind:       Kind,
		Metadata: ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{},
		},
	}
}

// UnmarshalJSON decodes a NetworkPolicy, stashing any top-level key this
// package does not model into Extra.
func (n *NetworkPolicy) UnmarshalJSON(data []byte) error {
	type alias NetworkPolicy
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*n = NetworkPolicy(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Extra = nil
	for k, v := range raw {
		if knownTopLevelKeys[k] {
			continue
		}
		if n.Extra == nil {
			n.Extra = map[string]json.RawMessage{}
		}
		n.Extra[k] = v
	}
	return nil
}

// MarshalJSON encodes a NetworkPolicy, merging Extra back in alongside
// the modeled fields. Modeled fields always win on key collision.
func (n NetworkPolicy) MarshalJSON() ([]byte, error) {
	type alias NetworkPolicy
	base, err := json.Marshal(alias(n))
	if err != nil {
		return nil, err
	}
	if len(n.Extra) == 0 {
		return base, nil
	}

	merged := map[string]json.RawMessage{}
	for k, v := range n.Extra {
		merged[k] = v
	}
	var baseMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, err
	}
	for k, v := range baseMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// DeepCopy returns an independent copy of the policy.
func (n *NetworkPolicy) DeepCopy() *NetworkPolicy {
	if n == nil {
		return nil
	}
	data, err := json.Marshal(n)
	if err != nil {
		// n was built in-process by this package's own constructors and
		// generators, which never produce values that fail to marshal.
		panic(err)
	}
	out := &NetworkPolicy{}
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

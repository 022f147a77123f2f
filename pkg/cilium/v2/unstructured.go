package v2

import (
	"encoding/json"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ToUnstructured converts a NetworkPolicy into the form the
// k8s.io/client-go/dynamic client expects, round-tripping through JSON
// so Extra fields and the typed fields are merged identically to
// MarshalJSON.
func (n *NetworkPolicy) ToUnstructured() (*unstructured.Unstructured, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, errors.Wrap(err, "marshal network policy")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal network policy into unstructured content")
	}
	return &unstructured.Unstructured{Object: m}, nil
}

// FromUnstructured converts a dynamic-client object into a typed
// NetworkPolicy, preserving unrecognized fields (most commonly
// "status") in Extra.
func FromUnstructured(u *unstructured.Unstructured) (*NetworkPolicy, error) {
	data, err := json.Marshal(u.Object)
	if err != nil {
		return nil, errors.Wrap(err, "marshal unstructured content")
	}
	n := &NetworkPolicy{}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, errors.Wrap(err, "unmarshal unstructured content into network policy")
	}
	return n, nil
}

package reconcile

import (
	"context"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

// erroringClient fails every create/patch/delete call whose policy name
// is in failNames, and succeeds (recording the call) otherwise.
type erroringClient struct {
	actual    []*v2.NetworkPolicy
	failNames map[string]bool
	created   []string
	patched   []string
	deleted   []string
}

func (c *erroringClient) ListCNP(ctx context.Context, namespace string) ([]*v2.NetworkPolicy, error) {
	return c.actual, nil
}

func (c *erroringClient) CreateCNP(ctx context.Context, namespace string, p *v2.NetworkPolicy) error {
	if c.failNames[p.Metadata.Name] {
		return errors.New("create failed")
	}
	c.created = append(c.created, p.Metadata.Name)
	return nil
}

func (c *erroringClient) PatchCNP(ctx context.Context, namespace, name string, p *v2.NetworkPolicy) error {
	if c.failNames[name] {
		return errors.New("patch failed")
	}
	c.patched = append(c.patched, name)
	return nil
}

func (c *erroringClient) DeleteCNP(ctx context.Context, namespace, name string) error {
	if c.failNames[name] {
		return errors.New("delete failed")
	}
	c.deleted = append(c.deleted, name)
	return nil
}

func TestSanitizeNameLowercasesAndCollapses(t *testing.T) {
	assert.Equal(t, "role-gnb-to-upf", sanitizeName("Role_GNB..to---UPF"))
	assert.Equal(t, "cnp", sanitizeName("***"))
}

func TestSanitizeNameIdempotent(t *testing.T) {
	n := sanitizeName("Role_GNB..to---UPF!!!")
	assert.Equal(t, n, sanitizeName(n))
}

func TestSanitizeLabelValueTruncatesLongValues(t *testing.T) {
	long := strings.Repeat("a", 80)
	v := sanitizeLabelValue(long)
	assert.LessOrEqual(t, len(v), 63)
	assert.True(t, strings.HasPrefix(v, strings.Repeat("a", 56)))
}

func TestSanitizeLabelValueEmptyFallsBack(t *testing.T) {
	assert.Equal(t, "value", sanitizeLabelValue("***"))
}

// TestDiffDeleteScopeOnlyOwned is spec.md scenario S6.
func TestDiffDeleteScopeOnlyOwned(t *testing.T) {
	owned := v2.New("trirematics", "a")
	owned.Metadata.Labels = map[string]string{
		"trirematics.io/managed":    "true",
		"trirematics.io/managed-by": "controller",
	}
	unowned := v2.New("trirematics", "b")

	plan := Diff([]*v2.NetworkPolicy{owned, unowned}, nil)
	assert.Len(t, plan.Deletes, 1)
	assert.Equal(t, "a", plan.Deletes[0].Name)
}

func TestDiffCreatesMissing(t *testing.T) {
	desired := v2.New("trirematics", "new-policy")
	plan := Diff(nil, []*v2.NetworkPolicy{desired})
	assert.Len(t, plan.Creates, 1)
	assert.Empty(t, plan.Patches)
	assert.Empty(t, plan.Deletes)
}

func TestDiffPatchesChanged(t *testing.T) {
	actual := v2.New("trirematics", "p")
	actual.Spec = v2.Spec{EndpointSelector: v2.Selector{MatchLabels: map[string]string{"a": "1"}}}
	desired := v2.New("trirematics", "p")
	desired.Spec = v2.Spec{EndpointSelector: v2.Selector{MatchLabels: map[string]string{"a": "2"}}}

	plan := Diff([]*v2.NetworkPolicy{actual}, []*v2.NetworkPolicy{desired})
	assert.Empty(t, plan.Creates)
	assert.Len(t, plan.Patches, 1)
	assert.Empty(t, plan.Deletes)
}

func TestDiffNoOpWhenEqual(t *testing.T) {
	p := v2.New("trirematics", "p")
	plan := Diff([]*v2.NetworkPolicy{p}, []*v2.NetworkPolicy{p})
	assert.Empty(t, plan.Creates)
	assert.Empty(t, plan.Patches)
	assert.Empty(t, plan.Deletes)
}

func TestNormalizeStripsBookkeepingFields(t *testing.T) {
	p := v2.New("trirematics", "p")
	p.Metadata.ResourceVersion = "123"
	p.Metadata.UID = "abc"
	p.Metadata.Generation = 4
	p.Metadata.CreationTimestamp = "2021-01-01T00:00:00Z"

	n := normalize(p)
	assert.Empty(t, n.Metadata.ResourceVersion)
	assert.Empty(t, n.Metadata.UID)
	assert.Zero(t, n.Metadata.Generation)
	assert.Empty(t, n.Metadata.CreationTimestamp)
}

// TestReconcilePerPolicyErrorsDoNotAbortTick exercises spec.md §4.6's
// failure semantics: a per-policy API error is logged and the remaining
// creates/patches/deletes in the plan still run, instead of Reconcile
// bailing out on the first failure.
func TestReconcilePerPolicyErrorsDoNotAbortTick(t *testing.T) {
	deleteMe := v2.New("trirematics", "stale")
	deleteMe.Metadata.Labels = map[string]string{
		"trirematics.io/managed":    "true",
		"trirematics.io/managed-by": "controller",
	}
	deleteMeToo := v2.New("trirematics", "stale-2")
	deleteMeToo.Metadata.Labels = map[string]string{
		"trirematics.io/managed":    "true",
		"trirematics.io/managed-by": "controller",
	}

	client := &erroringClient{
		actual:    []*v2.NetworkPolicy{deleteMe, deleteMeToo},
		failNames: map[string]bool{"new-policy-1": true, "stale": true},
	}

	desired := []*v2.NetworkPolicy{
		v2.New("trirematics", "new-policy-1"),
		v2.New("trirematics", "new-policy-2"),
	}

	plan, err := Reconcile(context.Background(), client, log.NewNopLogger(), "trirematics", desired)
	require.NoError(t, err)
	assert.Len(t, plan.Creates, 2)
	assert.Len(t, plan.Deletes, 2)

	// The failing create/delete did not stop the others from running.
	assert.Equal(t, []string{"new-policy-2"}, client.created)
	assert.Equal(t, []string{"stale-2"}, client.deleted)
}

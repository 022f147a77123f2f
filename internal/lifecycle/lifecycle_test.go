package lifecycle

import (
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/wejdeneh/cntrl/internal/config"
	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/k8sclient"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

type fakeClusterClient struct {
	ns               *corev1.Namespace
	pods             []k8sclient.PodView
	finalizerEnsured bool
	finalizerRemoved bool
	actual           []*v2.NetworkPolicy
	created          []*v2.NetworkPolicy
}

func (f *fakeClusterClient) GetNamespace(ctx context.Context, name string) (*corev1.Namespace, error) {
	return f.ns, nil
}

func (f *fakeClusterClient) EnsureFinalizer(ctx context.Context, name, finalizer string) error {
	f.finalizerEnsured = true
	return nil
}

func (f *fakeClusterClient) RemoveFinalizer(ctx context.Context, name, finalizer string) error {
	f.finalizerRemoved = true
	return nil
}

func (f *fakeClusterClient) ListPodViews(ctx context.Context, namespace string) ([]k8sclient.PodView, error) {
	return f.pods, nil
}

func (f *fakeClusterClient) ListServiceViews(ctx context.Context, namespace string) ([]k8sclient.ServiceView, error) {
	return nil, nil
}

func (f *fakeClusterClient) ListEndpointsViews(ctx context.Context, namespace string) ([]k8sclient.EndpointsView, error) {
	return nil, nil
}

func (f *fakeClusterClient) ListCNP(ctx context.Context, namespace string) ([]*v2.NetworkPolicy, error) {
	return f.actual, nil
}

func (f *fakeClusterClient) CreateCNP(ctx context.Context, namespace string, p *v2.NetworkPolicy) error {
	f.created = append(f.created, p)
	return nil
}

func (f *fakeClusterClient) PatchCNP(ctx context.Context, namespace, name string, p *v2.NetworkPolicy) error {
	return nil
}

func (f *fakeClusterClient) DeleteCNP(ctx context.Context, namespace, name string) error {
	return nil
}

func TestTickBootstrapSkipsReconcile(t *testing.T) {
	client := &fakeClusterClient{ns: &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "trirematics"}}}
	o := &Orchestrator{
		Config: config.Config{Namespace: "trirematics"},
		Client: client,
		Store:  edgestore.New(t.TempDir()),
		Logger: log.NewNopLogger(),
	}

	require.NoError(t, o.tick(context.Background()))
	assert.True(t, client.finalizerEnsured)
	assert.Empty(t, client.created)
}

func TestTickApplyReconciles(t *testing.T) {
	client := &fakeClusterClient{
		ns:   &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "trirematics"}},
		pods: []k8sclient.PodView{{Namespace: "trirematics", Name: "amf-1", Labels: map[string]string{
			"roles.athena.t9s.io/amf":      "active",
			"control-plane":                "controller-manager",
			"operation-plane.t9s.io/level": "base-operator",
			"olm.managed":                  "true",
			"olm.catalogSource":            "athena-operators-plane",
		}}},
	}
	o := &Orchestrator{
		Config: config.Config{Namespace: "trirematics", ModeOverride: "APPLY", ManageInfra: true},
		Client: client,
		Store:  edgestore.New(t.TempDir()),
		Logger: log.NewNopLogger(),
	}

	require.NoError(t, o.tick(context.Background()))
	assert.Len(t, client.created, 10)
}

func TestTickRemovesFinalizerOnDeletion(t *testing.T) {
	now := metav1.Now()
	client := &fakeClusterClient{
		ns: &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
			Name:              "trirematics",
			DeletionTimestamp: &now,
			Finalizers:        []string{config.Finalizer},
		}},
	}
	o := &Orchestrator{
		Config: config.Config{Namespace: "trirematics"},
		Client: client,
		Store:  edgestore.New(t.TempDir()),
		Logger: log.NewNopLogger(),
	}

	require.NoError(t, o.tick(context.Background()))
	assert.False(t, client.finalizerEnsured)
	assert.True(t, client.finalizerRemoved)
}

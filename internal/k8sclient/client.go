package k8sclient

import (
	"context"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/wejdeneh/cntrl/internal/edgestore"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

// cnpResource names the CiliumNetworkPolicy custom resource the
// dynamic client operates on (spec.md §1: the CRD itself is out of
// scope, only the client calls against it are ours to make).
var cnpResource = schema.GroupVersionResource{Group: v2.Group, Version: v2.Version, Resource: v2.Plural}

// Client is the real cluster collaborator: a typed clientset for
// Pods/Services/Endpoints/Namespaces plus a dynamic client for the
// CiliumNetworkPolicy CRD.
type Client struct {
	typed   kubernetes.Interface
	dynamic dynamic.Interface
}

// New wraps an already-constructed typed and dynamic clientset. Both
// are built once at startup from in-cluster or local kubeconfig
// (spec.md §1's "Kubernetes transport ... consumed, not
// reimplemented").
func New(typed kubernetes.Interface, dyn dynamic.Interface) *Client {
	return &Client{typed: typed, dynamic: dyn}
}

// GetNamespace reads the namespace object.
func (c *Client) GetNamespace(ctx context.Context, name string) (*corev1.Namespace, error) {
	ns, err := c.typed.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get namespace %s", name)
	}
	return ns, nil
}

// EnsureFinalizer adds finalizer to the namespace if absent.
func (c *Client) EnsureFinalizer(ctx context.Context, name, finalizer string) error {
	ns, err := c.GetNamespace(ctx, name)
	if err != nil {
		return err
	}
	for _, f := range ns.Finalizers {
		if f == finalizer {
			return nil
		}
	}
	ns = ns.DeepCopy()
	ns.Finalizers = append(ns.Finalizers, finalizer)
	_, err = c.typed.CoreV1().Namespaces().Update(ctx, ns, metav1.UpdateOptions{})
	return errors.Wrapf(err, "add finalizer to namespace %s", name)
}

// RemoveFinalizer strips finalizer from the namespace if present.
func (c *Client) RemoveFinalizer(ctx context.Context, name, finalizer string) error {
	ns, err := c.GetNamespace(ctx, name)
	if err != nil {
		return err
	}
	kept := ns.Finalizers[:0]
	found := false
	for _, f := range ns.Finalizers {
		if f == finalizer {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	if !found {
		return nil
	}
	ns = ns.DeepCopy()
	ns.Finalizers = kept
	_, err = c.typed.CoreV1().Namespaces().Update(ctx, ns, metav1.UpdateOptions{})
	return errors.Wrapf(err, "remove finalizer from namespace %s", name)
}

// ListPodViews lists every pod in namespace as a PodView.
func (c *Client) ListPodViews(ctx context.Context, namespace string) ([]PodView, error) {
	pods, err := c.typed.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "list pods in %s", namespace)
	}
	out := make([]PodView, 0, len(pods.Items))
	for _, p := range pods.Items {
		ports := map[PortProto]struct{}{}
		for _, cont := range p.Spec.Containers {
			for _, cp := range cont.Ports {
				ports[PortProto{Proto: protoOf(cp.Protocol), Port: int(cp.ContainerPort)}] = struct{}{}
			}
		}
		out = append(out, PodView{
			Namespace:      p.Namespace,
			Name:           p.Name,
			Labels:         p.Labels,
			PodIP:          p.Status.PodIP,
			ContainerPorts: ports,
		})
	}
	return out, nil
}

// ListServiceViews lists every service in namespace as a ServiceView.
func (c *Client) ListServiceViews(ctx context.Context, namespace string) ([]ServiceView, error) {
	svcs, err := c.typed.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "list services in %s", namespace)
	}
	out := make([]ServiceView, 0, len(svcs.Items))
	for _, s := range svcs.Items {
		ports := map[PortProto]struct{}{}
		for _, p := range s.Spec.Ports {
			ports[PortProto{Proto: protoOf(p.Protocol), Port: int(p.Port)}] = struct{}{}
		}
		out = append(out, ServiceView{
			Namespace: s.Namespace,
			Name:      s.Name,
			Selector:  s.Spec.Selector,
			Ports:     ports,
		})
	}
	return out, nil
}

// ListEndpointsViews lists every Endpoints object in namespace.
func (c *Client) ListEndpointsViews(ctx context.Context, namespace string) ([]EndpointsView, error) {
	epsList, err := c.typed.CoreV1().Endpoints(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "list endpoints in %s", namespace)
	}
	out := make([]EndpointsView, 0, len(epsList.Items))
	for _, e := range epsList.Items {
		ips := map[string]struct{}{}
		for _, sub := range e.Subsets {
			for _, addr := range sub.Addresses {
				ips[addr.IP] = struct{}{}
			}
		}
		out = append(out, EndpointsView{Namespace: e.Namespace, Name: e.Name, IPs: ips})
	}
	return out, nil
}

func protoOf(p corev1.Protocol) edgestore.Protocol {
	if p == "" {
		return edgestore.TCP
	}
	return edgestore.Protocol(p)
}

// ListCNP lists every CiliumNetworkPolicy in namespace, converted to
// the typed model.
func (c *Client) ListCNP(ctx context.Context, namespace string) ([]*v2.NetworkPolicy, error) {
	list, err := c.dynamic.Resource(cnpResource).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "list cilium network policies in %s", namespace)
	}
	out := make([]*v2.NetworkPolicy, 0, len(list.Items))
	for i := range list.Items {
		p, err := v2.FromUnstructured(&list.Items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CreateCNP creates p on the cluster.
func (c *Client) CreateCNP(ctx context.Context, namespace string, p *v2.NetworkPolicy) error {
	u, err := p.ToUnstructured()
	if err != nil {
		return err
	}
	_, err = c.dynamic.Resource(cnpResource).Namespace(namespace).Create(ctx, u, metav1.CreateOptions{})
	return errors.Wrapf(err, "create cilium network policy %s", p.Metadata.Name)
}

// PatchCNP replaces the spec and labels of the named policy with p's.
func (c *Client) PatchCNP(ctx context.Context, namespace, name string, p *v2.NetworkPolicy) error {
	u, err := p.ToUnstructured()
	if err != nil {
		return err
	}
	_, err = c.dynamic.Resource(cnpResource).Namespace(namespace).Update(ctx, u, metav1.UpdateOptions{})
	if apierrors.IsNotFound(err) {
		_, err = c.dynamic.Resource(cnpResource).Namespace(namespace).Create(ctx, u, metav1.CreateOptions{})
	}
	return errors.Wrapf(err, "patch cilium network policy %s", name)
}

// DeleteCNP deletes the named policy.
func (c *Client) DeleteCNP(ctx context.Context, namespace, name string) error {
	err := c.dynamic.Resource(cnpResource).Namespace(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	return errors.Wrapf(err, "delete cilium network policy %s", name)
}

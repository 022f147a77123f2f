package policy

import v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"

// operatorSelector picks the base-operator controller-manager pods.
var operatorSelector = v2.Selector{
	MatchLabels: map[string]string{
		"control-plane":                 "controller-manager",
		"operation-plane.t9s.io/level": "base-operator",
	},
}

// controllerManagerSelector picks any controller-manager pod in the
// namespace, which also covers secondary controllers such as
// odin-controller-manager.
var controllerManagerSelector = v2.Selector{
	MatchExpressions: []v2.Requirement{
		{Key: "control-plane", Operator: "In", Values: []string{"controller-manager"}},
	},
}

// operatorsPlaneSelector picks the OLM-managed operators-plane pods
// that OLM's packageserver and catalog-operator talk to.
var operatorsPlaneSelector = v2.Selector{
	MatchExpressions: []v2.Requirement{
		{Key: "olm.managed", Operator: "In", Values: []string{"true"}},
		{Key: "olm.catalogSource", Operator: "In", Values: []string{"athena-operators-plane", "odin-operators-plane"}},
	},
}

func infraPolicy(ns, name, infraKind string) *v2.NetworkPolicy {
	p := newPolicy(ns, name, TypeInfra)
	p.Metadata.Labels[LabelInfra] = infraKind
	return p
}

func portRule(port, proto string) []v2.PortRule {
	return []v2.PortRule{{Ports: []v2.PortProtocol{{Port: port, Protocol: proto}}}}
}

// dnsPolicy allows every pod to reach CoreDNS in kube-system on 53/udp
// and 53/tcp. toEndpoints with the kube-system namespace label is used
// instead of toEntities: ["cluster"], which is broader than needed and
// has been unreliable for DNS specifically.
func dnsPolicy(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-dns-egress", "dns")
	p.Spec = v2.Spec{
		EndpointSelector: v2.Selector{},
		Egress: []v2.EgressRule{
			{
				ToEndpoints: []v2.Selector{
					{MatchLabels: map[string]string{"k8s:io.kubernetes.pod.namespace": "kube-system"}},
				},
				ToPorts: []v2.PortRule{
					{Ports: []v2.PortProtocol{
						{Port: "53", Protocol: "UDP"},
						{Port: "53", Protocol: "TCP"},
					}},
				},
			},
		},
	}
	return p
}

// kubeapiPolicy allows every pod to reach kube-apiserver on 6443/tcp.
func kubeapiPolicy(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-kubeapi-egress", "kubeapi")
	p.Spec = v2.Spec{
		EndpointSelector: v2.Selector{},
		Egress: []v2.EgressRule{
			{ToEntities: []string{"kube-apiserver"}, ToPorts: portRule("6443", "TCP")},
		},
	}
	return p
}

// operatorWebhookIngress lets kube-apiserver reach the operator's
// validating webhook service backing pods on 443 and 8443. A second
// rule admits the same ports from host/remote-node, since some CNI
// configurations report the source of kube-apiserver traffic that way.
func operatorWebhookIngress(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-operator-webhook", "webhook")
	ports := []v2.PortProtocol{{Port: "443", Protocol: "TCP"}, {Port: "8443", Protocol: "TCP"}}
	p.Spec = v2.Spec{
		EndpointSelector: operatorSelector,
		Ingress: []v2.IngressRule{
			{FromEntities: []string{"kube-apiserver"}, ToPorts: []v2.PortRule{{Ports: ports}}},
			{FromEntities: []string{"host", "remote-node"}, ToPorts: []v2.PortRule{{Ports: ports}}},
		},
	}
	return p
}

// controllerMetricsIngress lets the tobs namespace's Prometheus scrape
// controller-manager pods on 8443. Matching the scraper by source
// namespace is more reliable across clusters than matching it by a
// specific Prometheus label.
func controllerMetricsIngress(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-controller-metrics", "metrics")
	p.Spec = v2.Spec{
		EndpointSelector: controllerManagerSelector,
		Ingress: []v2.IngressRule{
			{
				FromEndpoints: []v2.Selector{
					{MatchLabels: map[string]string{"k8s:io.kubernetes.pod.namespace": "tobs"}},
				},
				ToPorts: portRule("8443", "TCP"),
			},
		},
	}
	return p
}

// operatorNTPEgress lets the operator reach NTP on the internet over
// UDP/123, avoiding webhook timeouts caused by clock-sync checks.
func operatorNTPEgress(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-operator-ntp", "ntp")
	p.Spec = v2.Spec{
		EndpointSelector: operatorSelector,
		Egress: []v2.EgressRule{
			{ToEntities: []string{"world"}, ToPorts: portRule("123", "UDP")},
		},
	}
	return p
}

// operatorDBPolicy lets the operator reach the mdb role on 3306/tcp.
func operatorDBPolicy(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-operator-db-3306", "operator-db")
	p.Spec = v2.Spec{
		EndpointSelector: operatorSelector,
		Egress: []v2.EgressRule{
			{
				ToEndpoints: []v2.Selector{{MatchLabels: map[string]string{RoleLabel("mdb"): "active"}}},
				ToPorts:     portRule("3306", "TCP"),
			},
		},
	}
	return p
}

// operatorGRPC5553Ingress lets the roles known to call the operator's
// gRPC service (gnb, amf, smf, spgwu, and the python xApp monitor)
// reach it on 5553/tcp.
func operatorGRPC5553Ingress(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-operator-grpc-5553", "operator-grpc")
	p.Spec = v2.Spec{
		EndpointSelector: operatorSelector,
		Ingress: []v2.IngressRule{
			{
				FromEndpoints: []v2.Selector{
					{MatchLabels: map[string]string{RoleLabel("gnb"): "active"}},
					{MatchLabels: map[string]string{RoleLabel("amf"): "active"}},
					{MatchLabels: map[string]string{RoleLabel("smf"): "active"}},
					{MatchLabels: map[string]string{RoleLabel("spgwu"): "active"}},
					{MatchLabels: map[string]string{"app": "python-xapp-mon"}},
				},
				ToPorts: portRule("5553", "TCP"),
			},
		},
	}
	return p
}

// operatorDNS5553UDPIngress lets the roles observed talking to the
// operator's UDP/5553 listener (declared port name "dns" on the
// athena-base-operator pod spec) reach it, with a namespace-wide
// fallback so unlabeled pods are not broken mid-rollout.
func operatorDNS5553UDPIngress(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-operator-udp-5553", "operator-udp-5553")
	p.Spec = v2.Spec{
		EndpointSelector: operatorSelector,
		Ingress: []v2.IngressRule{
			{
				FromEndpoints: []v2.Selector{
					{MatchLabels: map[string]string{RoleLabel("gnb"): "active"}},
					{MatchLabels: map[string]string{RoleLabel("amf"): "active"}},
					{MatchLabels: map[string]string{RoleLabel("smf"): "active"}},
					{MatchLabels: map[string]string{RoleLabel("upf"): "active"}},
					{MatchLabels: map[string]string{RoleLabel("nr-rfsim"): "active"}},
					{MatchLabels: map[string]string{RoleLabel("monitoring"): "active"}},
					{MatchLabels: map[string]string{"k8s:io.kubernetes.pod.namespace": ns}},
				},
				ToPorts: portRule("5553", "UDP"),
			},
		},
	}
	return p
}

// olmGRPCIngress lets OLM's packageserver and catalog-operator reach
// the operators-plane pods on 50051/tcp.
func olmGRPCIngress(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-olm-grpc-50051", "olm")
	p.Spec = v2.Spec{
		EndpointSelector: operatorsPlaneSelector,
		Ingress: []v2.IngressRule{
			{
				FromEndpoints: []v2.Selector{
					{MatchLabels: map[string]string{"k8s:io.kubernetes.pod.namespace": "olm", "app": "packageserver"}},
					{MatchLabels: map[string]string{"k8s:io.kubernetes.pod.namespace": "olm", "app": "catalog-operator"}},
				},
				ToPorts: portRule("50051", "TCP"),
			},
		},
	}
	return p
}

// operatorOLMGRPC50051Ingress lets any pod in the olm namespace reach
// the operator itself on 50051/tcp.
func operatorOLMGRPC50051Ingress(ns string) *v2.NetworkPolicy {
	p := infraPolicy(ns, "infra-allow-operator-from-olm-50051", "olm-grpc")
	p.Spec = v2.Spec{
		EndpointSelector: operatorSelector,
		Ingress: []v2.IngressRule{
			{
				FromEndpoints: []v2.Selector{
					{MatchLabels: map[string]string{"k8s:io.kubernetes.pod.namespace": "olm"}},
				},
				ToPorts: portRule("50051", "TCP"),
			},
		},
	}
	return p
}

// GenerateInfra returns the ten standing infra policies every
// namespace carries regardless of observed traffic.
func GenerateInfra(ns string) []*v2.NetworkPolicy {
	return []*v2.NetworkPolicy{
		dnsPolicy(ns),
		kubeapiPolicy(ns),
		operatorDBPolicy(ns),
		operatorWebhookIngress(ns),
		controllerMetricsIngress(ns),
		olmGRPCIngress(ns),
		operatorGRPC5553Ingress(ns),
		operatorDNS5553UDPIngress(ns),
		operatorNTPEgress(ns),
		operatorOLMGRPC50051Ingress(ns),
	}
}

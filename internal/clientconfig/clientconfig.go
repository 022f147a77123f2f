// Package clientconfig builds a *rest.Config the same way across every
// cntrl binary (the controller and the cntrl-render/cntrl-plan CLI
// tools), so kubeconfig discovery isn't reimplemented per command.
package clientconfig

import (
	"path/filepath"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// DefaultKubeconfigPath returns ~/.kube/config, or "" if home can't be
// determined.
func DefaultKubeconfigPath() string {
	if home := homedir.HomeDir(); home != "" {
		return filepath.Join(home, ".kube", "config")
	}
	return ""
}

// RestConfig prefers in-cluster config, falling back to a kubeconfig so
// every cntrl binary works both deployed and run by hand.
func RestConfig(apiserverURL, kubeconfig string) (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	return clientcmd.BuildConfigFromFlags(apiserverURL, kubeconfig)
}

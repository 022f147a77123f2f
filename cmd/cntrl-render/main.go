// Command cntrl-render prints the desired CiliumNetworkPolicy set for a
// namespace without touching the cluster's actual policies, so an
// operator can review what the controller would produce before it runs.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/yaml"

	"github.com/wejdeneh/cntrl/internal/clientconfig"
	"github.com/wejdeneh/cntrl/internal/config"
	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/k8sclient"
	"github.com/wejdeneh/cntrl/internal/mode"
	"github.com/wejdeneh/cntrl/internal/policy"
	"github.com/wejdeneh/cntrl/internal/ports"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

func main() {
	var (
		kubeconfig   string
		apiserverURL string
		namespace    string
		modeFlag     string
		bundleDir    string
		manageInfra  bool
		enableSafety bool
		derivePorts  bool
		output       string
	)

	root := &cobra.Command{
		Use:   "cntrl-render",
		Short: "Render the desired CiliumNetworkPolicy set for a namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := mode.Mode(modeFlag)
			if m != mode.Bootstrap && m != mode.Apply && m != mode.Teardown {
				return fmt.Errorf("invalid --mode %q: must be BOOTSTRAP, APPLY, or TEARDOWN", modeFlag)
			}

			cfg := config.Config{
				Namespace:    namespace,
				ManageInfra:  manageInfra,
				EnableSafety: enableSafety,
				DerivePorts:  derivePorts,
				BundleDir:    bundleDir,
			}

			restConfig, err := clientconfig.RestConfig(apiserverURL, kubeconfig)
			if err != nil {
				return fmt.Errorf("build kubeconfig: %w", err)
			}
			typed, err := kubernetes.NewForConfig(restConfig)
			if err != nil {
				return fmt.Errorf("build typed clientset: %w", err)
			}
			dyn, err := dynamic.NewForConfig(restConfig)
			if err != nil {
				return fmt.Errorf("build dynamic clientset: %w", err)
			}
			client := k8sclient.New(typed, dyn)

			ctx := cmd.Context()
			pods, err := client.ListPodViews(ctx, namespace)
			if err != nil {
				return fmt.Errorf("list pods: %w", err)
			}

			store := edgestore.New(bundleDir)
			var podEdges edgestore.Set
			if m == mode.Apply {
				podEdges = store.ReadFrozen()
			} else {
				podEdges = store.ReadObserved()
			}

			var derived []ports.StableEdge
			if cfg.DerivePorts {
				svcs, err := client.ListServiceViews(ctx, namespace)
				if err != nil {
					return fmt.Errorf("list services: %w", err)
				}
				eps, err := client.ListEndpointsViews(ctx, namespace)
				if err != nil {
					return fmt.Errorf("list endpoints: %w", err)
				}
				derived = ports.DeriveStablePorts(namespace, pods, svcs, eps)
			}
			roleEdges := ports.AggregateRoleEdges(namespace, podEdges, derived).Slice()

			desired := policy.DesiredPolicies(namespace, m, cfg, roleEdges)
			return printPolicies(desired, output)
		},
	}

	flags := root.Flags()
	flags.StringVar(&kubeconfig, "kubeconfig", clientconfig.DefaultKubeconfigPath(), "absolute path to the kubeconfig file")
	flags.StringVar(&apiserverURL, "apiserver", "", "URL to the Kubernetes API server")
	flags.StringVar(&namespace, "namespace", config.DefaultNamespace, "namespace to render policies for")
	flags.StringVar(&modeFlag, "mode", string(mode.Bootstrap), "mode to render as: BOOTSTRAP, APPLY, or TEARDOWN")
	flags.StringVar(&bundleDir, "bundle-dir", "policyBundle", "edge store bundle directory")
	flags.BoolVar(&manageInfra, "manage-infra", false, "include the infra policy family")
	flags.BoolVar(&enableSafety, "enable-safety", false, "include the safety policy family")
	flags.BoolVar(&derivePorts, "derive-ports", true, "derive stable ports from Services/Endpoints")
	flags.StringVar(&output, "output", "yaml", "output format: yaml or json")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printPolicies(policies []*v2.NetworkPolicy, output string) error {
	data, err := json.Marshal(policies)
	if err != nil {
		return fmt.Errorf("marshal policies: %w", err)
	}

	switch output {
	case "json":
		var pretty []byte
		pretty, err = json.MarshalIndent(policies, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal policies: %w", err)
		}
		fmt.Println(string(pretty))
	case "yaml":
		out, err := yaml.JSONToYAML(data)
		if err != nil {
			return fmt.Errorf("convert to yaml: %w", err)
		}
		fmt.Print(string(out))
	default:
		return fmt.Errorf("unknown --output %q: must be yaml or json", output)
	}
	return nil
}

// Command cntrl-plan computes the reconcile plan (creates, patches,
// deletes) between the cluster's actual CiliumNetworkPolicy set and the
// desired set for a namespace, without applying it. It is the read-only
// counterpart of the controller's tick loop, for operators who want to
// see what the next reconcile would do.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/wejdeneh/cntrl/internal/clientconfig"
	"github.com/wejdeneh/cntrl/internal/config"
	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/gate"
	"github.com/wejdeneh/cntrl/internal/k8sclient"
	"github.com/wejdeneh/cntrl/internal/mode"
	"github.com/wejdeneh/cntrl/internal/policy"
	"github.com/wejdeneh/cntrl/internal/ports"
	"github.com/wejdeneh/cntrl/internal/reconcile"
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
	)

	root := &cobra.Command{
		Use:   "cntrl-plan",
		Short: "Show the reconcile plan for a namespace without applying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := mode.Mode(modeFlag)
			if m != mode.Bootstrap && m != mode.Apply {
				return fmt.Errorf("invalid --mode %q: must be BOOTSTRAP or APPLY", modeFlag)
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

			if m == mode.Apply {
				result := gate.Validate(namespace, pods, desired)
				for _, w := range result.Warnings {
					fmt.Printf("gate warning: %s\n", w)
				}
				if !result.OK {
					for _, e := range result.Errors {
						fmt.Printf("gate error: %s\n", e)
					}
					return fmt.Errorf("safety gate would refuse to reconcile; not computing a plan")
				}
			}

			actual, err := client.ListCNP(ctx, namespace)
			if err != nil {
				return fmt.Errorf("list cilium network policies: %w", err)
			}

			plan := reconcile.Diff(actual, desired)
			printPlan(plan)
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVar(&kubeconfig, "kubeconfig", clientconfig.DefaultKubeconfigPath(), "absolute path to the kubeconfig file")
	flags.StringVar(&apiserverURL, "apiserver", "", "URL to the Kubernetes API server")
	flags.StringVar(&namespace, "namespace", config.DefaultNamespace, "namespace to plan for")
	flags.StringVar(&modeFlag, "mode", string(mode.Bootstrap), "mode to plan as: BOOTSTRAP or APPLY")
	flags.StringVar(&bundleDir, "bundle-dir", "policyBundle", "edge store bundle directory")
	flags.BoolVar(&manageInfra, "manage-infra", false, "include the infra policy family")
	flags.BoolVar(&enableSafety, "enable-safety", false, "include the safety policy family")
	flags.BoolVar(&derivePorts, "derive-ports", true, "derive stable ports from Services/Endpoints")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printPlan(plan reconcile.Plan) {
	fmt.Printf("creates (%d):\n", len(plan.Creates))
	for _, p := range plan.Creates {
		fmt.Printf("  + %s\n", p.Metadata.Name)
	}
	fmt.Printf("patches (%d):\n", len(plan.Patches))
	for _, p := range plan.Patches {
		fmt.Printf("  ~ %s\n", p.Metadata.Name)
	}
	fmt.Printf("deletes (%d):\n", len(plan.Deletes))
	for _, id := range plan.Deletes {
		fmt.Printf("  - %s\n", id.Name)
	}
}

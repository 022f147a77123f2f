package reconcile

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/wejdeneh/cntrl/internal/policy"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

// Client is the cluster-facing boundary the reconciler drives. An
// implementation lives in internal/k8sclient, backed by
// k8s.io/client-go's dynamic client against the CiliumNetworkPolicy
// CRD.
type Client interface {
	ListCNP(ctx context.Context, namespace string) ([]*v2.NetworkPolicy, error)
	CreateCNP(ctx context.Context, namespace string, p *v2.NetworkPolicy) error
	PatchCNP(ctx context.Context, namespace, name string, p *v2.NetworkPolicy) error
	DeleteCNP(ctx context.Context, namespace, name string) error
}

// Plan is the set of actions Reconcile will take, computed ahead of
// time so callers can log or dry-run it.
type Plan struct {
	Creates []*v2.NetworkPolicy
	Patches []*v2.NetworkPolicy
	Deletes []PolicyID
}

// Diff computes the plan to move the cluster's actual policy set to
// desired: create what's missing, patch what differs after
// normalization, and delete only controller-owned actual policies that
// are no longer desired (spec.md §4.6, invariant 2).
func Diff(actual, desired []*v2.NetworkPolicy) Plan {
	desiredSanitized := make(map[PolicyID]*v2.NetworkPolicy, len(desired))
	for _, d := range desired {
		s := sanitizePolicy(d)
		desiredSanitized[ID(s)] = s
	}

	actualNormalized := make(map[PolicyID]*v2.NetworkPolicy, len(actual))
	for _, a := range actual {
		actualNormalized[ID(a)] = normalize(a)
	}

	var plan Plan
	for id, d := range desiredSanitized {
		a, exists := actualNormalized[id]
		if !exists {
			plan.Creates = append(plan.Creates, d)
			continue
		}
		if !cmp.Equal(a, d) {
			plan.Patches = append(plan.Patches, d)
		}
	}
	for id, a := range actualNormalized {
		if _, stillDesired := desiredSanitized[id]; stillDesired {
			continue
		}
		if policy.IsOwnedByController(a) {
			plan.Deletes = append(plan.Deletes, id)
		}
	}
	return plan
}

// Reconcile lists the namespace's actual CiliumNetworkPolicy set,
// diffs it against desired, and applies the resulting plan: creates
// and patches are applied before deletes, so a policy rename never
// opens a window with no matching policy in place (spec.md §8
// invariant 4).
//
// Only a list-time failure aborts the tick (returned as err). A
// per-policy create/patch/delete error is logged via logger and does
// not stop the remaining actions in the plan; the next tick re-attempts
// whatever failed, since Diff will recompute the same action against
// the still-undesired state (spec.md §4.6's failure semantics).
func Reconcile(ctx context.Context, client Client, logger log.Logger, namespace string, desired []*v2.NetworkPolicy) (Plan, error) {
	actual, err := client.ListCNP(ctx, namespace)
	if err != nil {
		return Plan{}, errors.Wrap(err, "list cilium network policies")
	}

	plan := Diff(actual, desired)

	for _, p := range plan.Creates {
		if err := client.CreateCNP(ctx, namespace, p); err != nil {
			level.Error(logger).Log("msg", "create policy failed", "policy", p.Metadata.Name, "err", err)
		}
	}
	for _, p := range plan.Patches {
		if err := client.PatchCNP(ctx, namespace, p.Metadata.Name, p); err != nil {
			level.Error(logger).Log("msg", "patch policy failed", "policy", p.Metadata.Name, "err", err)
		}
	}
	for _, id := range plan.Deletes {
		if err := client.DeleteCNP(ctx, namespace, id.Name); err != nil {
			level.Error(logger).Log("msg", "delete policy failed", "policy", id.Name, "err", err)
		}
	}
	return plan, nil
}

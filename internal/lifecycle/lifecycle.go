// Package lifecycle wires the tick loop and the flow observer into a
// single process via an oklog/run.Group, so either actor's exit tears
// the other down cleanly (spec.md §4.7).
package lifecycle

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	corev1 "k8s.io/api/core/v1"

	"github.com/wejdeneh/cntrl/internal/config"
	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/gate"
	"github.com/wejdeneh/cntrl/internal/k8sclient"
	"github.com/wejdeneh/cntrl/internal/mode"
	"github.com/wejdeneh/cntrl/internal/policy"
	"github.com/wejdeneh/cntrl/internal/ports"
	"github.com/wejdeneh/cntrl/internal/reconcile"
)

// ClusterClient is every cluster operation the tick loop performs,
// satisfied by *k8sclient.Client.
type ClusterClient interface {
	reconcile.Client
	GetNamespace(ctx context.Context, name string) (*corev1.Namespace, error)
	EnsureFinalizer(ctx context.Context, name, finalizer string) error
	RemoveFinalizer(ctx context.Context, name, finalizer string) error
	ListPodViews(ctx context.Context, namespace string) ([]k8sclient.PodView, error)
	ListServiceViews(ctx context.Context, namespace string) ([]k8sclient.ServiceView, error)
	ListEndpointsViews(ctx context.Context, namespace string) ([]k8sclient.EndpointsView, error)
}

// Observer is the long-running flow stream actor.
type Observer interface {
	Run(ctx context.Context) error
}

// Orchestrator runs the tick loop and the flow observer as two actors
// of a run.Group, sharing one cancellation signal (spec.md §4.7).
type Orchestrator struct {
	Config   config.Config
	Client   ClusterClient
	Store    *edgestore.Store
	Observer Observer
	Logger   log.Logger
	Metrics  Counters

	lastMode mode.Mode
	seen     bool
}

// Counters is the subset of internal/metrics.Metrics the tick loop
// increments.
type Counters interface {
	IncReconcileAction(verb string)
	IncGateFailure()
	AddGateWarnings(n int)
}

// Run blocks until ctx is canceled or either actor fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	var g run.Group

	tickCtx, cancelTick := context.WithCancel(ctx)
	g.Add(func() error {
		return o.runTickLoop(tickCtx)
	}, func(error) {
		cancelTick()
	})

	obsCtx, cancelObs := context.WithCancel(ctx)
	g.Add(func() error {
		return o.Observer.Run(obsCtx)
	}, func(error) {
		cancelObs()
	})

	return g.Run()
}

func (o *Orchestrator) runTickLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.Config.LoopInterval)
	defer ticker.Stop()

	for {
		if err := o.tick(ctx); err != nil {
			level.Error(o.Logger).Log("msg", "tick failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick implements one iteration of spec.md §4.7's lifecycle: read the
// namespace, manage the finalizer, list pods, compute mode, generate
// the desired policy set, and reconcile when in APPLY mode.
func (o *Orchestrator) tick(ctx context.Context) error {
	ns, err := o.Client.GetNamespace(ctx, o.Config.Namespace)
	if err != nil {
		return err
	}
	deleting := ns.DeletionTimestamp != nil

	if !deleting {
		if err := o.Client.EnsureFinalizer(ctx, o.Config.Namespace, config.Finalizer); err != nil {
			return err
		}
	}

	pods, err := o.Client.ListPodViews(ctx, o.Config.Namespace)
	if err != nil {
		return err
	}

	m := mode.Resolve(o.Config, ns.Annotations, deleting)
	if !o.seen || m != o.lastMode {
		level.Info(o.Logger).Log("msg", "mode", "mode", m)
		o.lastMode = m
		o.seen = true
	}

	roleEdges, err := o.roleEdgesFor(ctx, m, pods)
	if err != nil {
		return err
	}

	desired := policy.DesiredPolicies(o.Config.Namespace, m, o.Config, roleEdges)

	if m == mode.Apply {
		result := gate.Validate(o.Config.Namespace, pods, desired)
		for _, w := range result.Warnings {
			level.Warn(o.Logger).Log("msg", "gate warning", "warning", w)
		}
		if o.Metrics != nil {
			o.Metrics.AddGateWarnings(len(result.Warnings))
		}
		if !result.OK {
			level.Error(o.Logger).Log("msg", "APPLY gate failed; refusing to reconcile to avoid outage")
			for _, e := range result.Errors {
				level.Error(o.Logger).Log("msg", "gate error", "error", e)
			}
			if o.Metrics != nil {
				o.Metrics.IncGateFailure()
			}
		} else {
			plan, err := reconcile.Reconcile(ctx, o.Client, o.Logger, o.Config.Namespace, desired)
			if err != nil {
				return err
			}
			if o.Metrics != nil {
				for range plan.Creates {
					o.Metrics.IncReconcileAction("create")
				}
				for range plan.Patches {
					o.Metrics.IncReconcileAction("patch")
				}
				for range plan.Deletes {
					o.Metrics.IncReconcileAction("delete")
				}
			}
		}
	} else if o.Config.HubbleDebug {
		level.Debug(o.Logger).Log("msg", "skip reconcile", "mode", m)
	}

	if deleting {
		if err := o.Client.RemoveFinalizer(ctx, o.Config.Namespace, config.Finalizer); err != nil {
			return err
		}
	}
	return nil
}

// roleEdgesFor reads the frozen edge set in APPLY mode (observed in
// BOOTSTRAP), derives stable service/endpoint ports, and aggregates
// pod edges into role edges (spec.md §4.2-4.3). In TEARDOWN it returns
// no edges without reading the store or calling the port deriver;
// DesiredPolicies returns an empty set for TEARDOWN regardless of edges.
func (o *Orchestrator) roleEdgesFor(ctx context.Context, m mode.Mode, pods []k8sclient.PodView) ([]edgestore.RoleEdge, error) {
	if m == mode.Teardown {
		return nil, nil
	}

	var podEdges edgestore.Set
	if m == mode.Apply {
		podEdges = o.Store.ReadFrozen()
	} else {
		podEdges = o.Store.ReadObserved()
	}

	var derived []ports.StableEdge
	if o.Config.DerivePorts {
		svcs, err := o.Client.ListServiceViews(ctx, o.Config.Namespace)
		if err != nil {
			return nil, err
		}
		eps, err := o.Client.ListEndpointsViews(ctx, o.Config.Namespace)
		if err != nil {
			return nil, err
		}
		derived = ports.DeriveStablePorts(o.Config.Namespace, pods, svcs, eps)
	}

	return ports.AggregateRoleEdges(o.Config.Namespace, podEdges, derived).Slice(), nil
}

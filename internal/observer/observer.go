// Package observer consumes the Hubble flow stream and distills it
// into pod-level edges recorded in the edge store (spec.md §4.1). It
// never mutates the cluster; its only effect is appending to the edge
// store.
package observer

import (
	"context"
	"io"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	observerpb "github.com/cilium/cilium/api/v1/observer"
	flowpb "github.com/cilium/cilium/api/v1/flow"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wejdeneh/cntrl/internal/edgestore"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Recorder is the subset of edgestore.Store the observer needs.
type Recorder interface {
	RecordObserved(edge edgestore.PodEdge) error
}

// Counters is the subset of internal/metrics.Metrics the observer
// increments.
type Counters interface {
	IncEdgesRecorded()
	IncObserverReconnect()
}

// Observer streams Hubble flows and records the edges it extracts.
type Observer struct {
	Addr            string
	TargetNamespace string
	Store           Recorder
	Logger          log.Logger
	Debug           bool
	Metrics         Counters

	dialer func(ctx context.Context, addr string) (observerpb.ObserverClient, func() error, error)
}

// New builds an Observer dialing addr, scoped to targetNamespace (empty
// means no scope filter).
func New(addr, targetNamespace string, store Recorder, logger log.Logger, debug bool, counters Counters) *Observer {
	return &Observer{
		Addr:            addr,
		TargetNamespace: targetNamespace,
		Store:           store,
		Logger:          logger,
		Debug:           debug,
		Metrics:         counters,
	}
}

func defaultDial(ctx context.Context, addr string) (observerpb.ObserverClient, func() error, error) {
	conn, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithBlock())
	if err != nil {
		return nil, nil, err
	}
	return observerpb.NewObserverClient(conn), conn.Close, nil
}

// Run streams flows until ctx is canceled. It never returns except on
// cancellation; transport and stream errors are logged and retried
// with exponential backoff starting at 1s, doubling per attempt,
// capped at 30s. A graceful stream end resets the backoff to 1s
// (spec.md §4.1).
func (o *Observer) Run(ctx context.Context) error {
	dial := o.dialer
	if dial == nil {
		dial = defaultDial
	}

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := o.runOnce(ctx, dial)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			backoff = initialBackoff
			continue
		}

		level.Error(o.Logger).Log("msg", "hubble stream error", "err", err, "retry_in", backoff)
		if o.Metrics != nil {
			o.Metrics.IncObserverReconnect()
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (o *Observer) runOnce(ctx context.Context, dial func(context.Context, string) (observerpb.ObserverClient, func() error, error)) error {
	client, closeConn, err := dial(ctx, o.Addr)
	if err != nil {
		return err
	}
	defer closeConn()

	if o.Debug {
		level.Debug(o.Logger).Log("msg", "connecting to hubble", "addr", o.Addr)
	}

	stream, err := client.GetFlows(ctx, &observerpb.GetFlowsRequest{Follow: true, Number: 0})
	if err != nil {
		return err
	}

	first := true
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		flow := resp.GetFlow()
		if flow == nil {
			continue
		}
		if first && o.Debug {
			level.Debug(o.Logger).Log("msg", "first flow received")
			first = false
		}
		o.processFlow(flow)
	}
}

func (o *Observer) processFlow(f *flowpb.Flow) {
	srcID := podIdentity(f.GetSource())
	dstID := podIdentity(f.GetDestination())
	if srcID == "" || dstID == "" {
		return
	}

	if o.TargetNamespace != "" {
		if f.GetSource().GetNamespace() != o.TargetNamespace || f.GetDestination().GetNamespace() != o.TargetNamespace {
			return
		}
	}

	proto, port, ok := extractL4(f.GetL4())
	if !ok {
		return
	}

	if o.Debug {
		level.Debug(o.Logger).Log("msg", "edge observed", "src", srcID, "dst", dstID, "proto", proto, "port", port)
	}

	edge := edgestore.PodEdge{Src: srcID, Dst: dstID, Port: port, Proto: edgestore.Protocol(proto)}
	if err := o.Store.RecordObserved(edge); err != nil {
		level.Error(o.Logger).Log("msg", "record edge", "err", err)
		return
	}
	if o.Metrics != nil {
		o.Metrics.IncEdgesRecorded()
	}
}

func podIdentity(ep *flowpb.Endpoint) string {
	if ep == nil || ep.GetNamespace() == "" || ep.GetPodName() == "" {
		return ""
	}
	return ep.GetNamespace() + "/" + ep.GetPodName()
}

// extractL4 reproduces spec.md §4.1's extraction order. The typed
// flow.Layer4 message models protocol/port as a oneof over
// TCP/UDP/SCTP submessages rather than a generic top-level field, so
// rule 1 (top-level protocol+port) has no typed equivalent to probe;
// the oneof variant itself is the faithful translation of rules 2-3.
func extractL4(l4 *flowpb.Layer4) (proto string, port int, ok bool) {
	if l4 == nil {
		return "", 0, false
	}
	if tcp := l4.GetTCP(); tcp != nil {
		if p := preferDestThenSource(tcp.GetDestinationPort(), tcp.GetSourcePort()); p != 0 {
			return "TCP", int(p), true
		}
	}
	if udp := l4.GetUDP(); udp != nil {
		if p := preferDestThenSource(udp.GetDestinationPort(), udp.GetSourcePort()); p != 0 {
			return "UDP", int(p), true
		}
	}
	if sctp := l4.GetSCTP(); sctp != nil {
		if p := preferDestThenSource(sctp.GetDestinationPort(), sctp.GetSourcePort()); p != 0 {
			return "SCTP", int(p), true
		}
	}
	return "", 0, false
}

func preferDestThenSource(dest, src uint32) uint32 {
	if dest != 0 {
		return dest
	}
	return src
}

package observer

import (
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"

	flowpb "github.com/cilium/cilium/api/v1/flow"

	"github.com/wejdeneh/cntrl/internal/edgestore"
)

type fakeRecorder struct {
	edges []edgestore.PodEdge
}

func (f *fakeRecorder) RecordObserved(e edgestore.PodEdge) error {
	f.edges = append(f.edges, e)
	return nil
}

func TestExtractL4PrefersTCPThenDestinationPort(t *testing.T) {
	l4 := &flowpb.Layer4{
		Protocol: &flowpb.Layer4_TCP{TCP: &flowpb.TCP{SourcePort: 4000, DestinationPort: 443}},
	}
	proto, port, ok := extractL4(l4)
	assert.True(t, ok)
	assert.Equal(t, "TCP", proto)
	assert.Equal(t, 443, port)
}

func TestExtractL4FallsBackToSourcePort(t *testing.T) {
	l4 := &flowpb.Layer4{
		Protocol: &flowpb.Layer4_UDP{UDP: &flowpb.UDP{SourcePort: 5353, DestinationPort: 0}},
	}
	proto, port, ok := extractL4(l4)
	assert.True(t, ok)
	assert.Equal(t, "UDP", proto)
	assert.Equal(t, 5353, port)
}

func TestExtractL4NilDropsRecord(t *testing.T) {
	_, _, ok := extractL4(nil)
	assert.False(t, ok)
}

func TestProcessFlowDropsMissingPodIdentity(t *testing.T) {
	rec := &fakeRecorder{}
	o := &Observer{Store: rec, Logger: log.NewNopLogger()}
	o.processFlow(&flowpb.Flow{
		Source:      &flowpb.Endpoint{Namespace: "trirematics"},
		Destination: &flowpb.Endpoint{Namespace: "trirematics", PodName: "upf-1"},
		L4:          &flowpb.Layer4{Protocol: &flowpb.Layer4_UDP{UDP: &flowpb.UDP{DestinationPort: 2152}}},
	})
	assert.Empty(t, rec.edges)
}

func TestProcessFlowDropsOutOfScopeNamespace(t *testing.T) {
	rec := &fakeRecorder{}
	o := &Observer{Store: rec, Logger: log.NewNopLogger(), TargetNamespace: "trirematics"}
	o.processFlow(&flowpb.Flow{
		Source:      &flowpb.Endpoint{Namespace: "other", PodName: "gnb-1"},
		Destination: &flowpb.Endpoint{Namespace: "trirematics", PodName: "upf-1"},
		L4:          &flowpb.Layer4{Protocol: &flowpb.Layer4_UDP{UDP: &flowpb.UDP{DestinationPort: 2152}}},
	})
	assert.Empty(t, rec.edges)
}

func TestProcessFlowRecordsAcceptedEdge(t *testing.T) {
	rec := &fakeRecorder{}
	o := &Observer{Store: rec, Logger: log.NewNopLogger(), TargetNamespace: "trirematics"}
	o.processFlow(&flowpb.Flow{
		Source:      &flowpb.Endpoint{Namespace: "trirematics", PodName: "gnb-1"},
		Destination: &flowpb.Endpoint{Namespace: "trirematics", PodName: "upf-1"},
		L4:          &flowpb.Layer4{Protocol: &flowpb.Layer4_UDP{UDP: &flowpb.UDP{DestinationPort: 2152}}},
	})
	assert.Equal(t, []edgestore.PodEdge{
		{Src: "trirematics/gnb-1", Dst: "trirematics/upf-1", Port: 2152, Proto: edgestore.UDP},
	}, rec.edges)
}

package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wejdeneh/cntrl/internal/edgestore"
)

// TestAggregateRoleEdgesByKnownPair is spec.md scenario S5.
func TestAggregateRoleEdgesByKnownPair(t *testing.T) {
	ns := "trirematics"
	podEdges := edgestore.NewSet(
		edgestore.PodEdge{Src: ns + "/oai-gnb-1", Dst: ns + "/upf-1", Port: 2152, Proto: edgestore.UDP},
		edgestore.PodEdge{Src: ns + "/oai-gnb-1", Dst: ns + "/upf-1", Port: 9999, Proto: edgestore.UDP},
	)

	roleEdges := AggregateRoleEdges(ns, podEdges, nil)

	assert.Contains(t, roleEdges, edgestore.RoleEdge{SrcRole: "gnb", DstRole: "upf", Port: 2152, Proto: edgestore.UDP})
	assert.NotContains(t, roleEdges, edgestore.RoleEdge{SrcRole: "gnb", DstRole: "upf", Port: 9999, Proto: edgestore.UDP})
}

func TestAggregateRoleEdgesDropsCrossNamespace(t *testing.T) {
	podEdges := edgestore.NewSet(
		edgestore.PodEdge{Src: "trirematics/oai-gnb-1", Dst: "other/upf-1", Port: 2152, Proto: edgestore.UDP},
	)
	roleEdges := AggregateRoleEdges("trirematics", podEdges, nil)
	assert.Empty(t, roleEdges)
}

func TestAggregateRoleEdgesDeduplicates(t *testing.T) {
	ns := "trirematics"
	podEdges := edgestore.NewSet(
		edgestore.PodEdge{Src: ns + "/oai-gnb-1", Dst: ns + "/upf-1", Port: 2152, Proto: edgestore.UDP},
		edgestore.PodEdge{Src: ns + "/oai-gnb-2", Dst: ns + "/upf-2", Port: 2152, Proto: edgestore.UDP},
	)
	roleEdges := AggregateRoleEdges(ns, podEdges, nil)
	assert.Len(t, roleEdges, 1)
}

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wejdeneh/cntrl/internal/config"
	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/mode"
)

func TestGenerateInfraReturnsTenPolicies(t *testing.T) {
	policies := GenerateInfra("trirematics")
	assert.Len(t, policies, 10)
	for _, p := range policies {
		assert.True(t, IsOwnedByController(p))
		assert.Equal(t, TypeInfra, p.Metadata.Labels[LabelType])
		assert.NotEmpty(t, p.Metadata.Labels[LabelInfra])
	}
}

func TestGenerateSafetyReturnsTwoPolicies(t *testing.T) {
	policies := GenerateSafety("trirematics")
	assert.Len(t, policies, 2)
	for _, p := range policies {
		assert.Equal(t, TypeSafety, p.Metadata.Labels[LabelType])
	}
}

func TestRolePolicyShape(t *testing.T) {
	edge := edgestore.RoleEdge{SrcRole: "gnb", DstRole: "upf", Port: 2152, Proto: edgestore.UDP}
	p := RolePolicy("trirematics", edge, mode.Apply)

	assert.Equal(t, "role-gnb-to-upf-2152-udp", p.Metadata.Name)
	assert.Equal(t, TypeRole, p.Metadata.Labels[LabelType])
	assert.Equal(t, "APPLY", p.Metadata.Labels[LabelMode])
	assert.Equal(t, map[string]string{RoleLabel("upf"): "active"}, p.Spec.EndpointSelector.MatchLabels)
	require := p.Spec.Ingress
	assert.Len(t, require, 1)
	assert.Equal(t, map[string]string{RoleLabel("gnb"): "active"}, require[0].FromEndpoints[0].MatchLabels)
	assert.Equal(t, "2152", require[0].ToPorts[0].Ports[0].Port)
	assert.Equal(t, "UDP", require[0].ToPorts[0].Ports[0].Protocol)
}

func TestDesiredPoliciesTeardownIsEmpty(t *testing.T) {
	cfg := config.Config{ManageInfra: true, EnableSafety: true}
	edges := []edgestore.RoleEdge{{SrcRole: "gnb", DstRole: "upf", Port: 2152, Proto: edgestore.UDP}}
	assert.Empty(t, DesiredPolicies("trirematics", mode.Teardown, cfg, edges))
}

func TestDesiredPoliciesRespectsFlags(t *testing.T) {
	edges := []edgestore.RoleEdge{{SrcRole: "gnb", DstRole: "upf", Port: 2152, Proto: edgestore.UDP}}

	none := DesiredPolicies("trirematics", mode.Apply, config.Config{}, edges)
	assert.Len(t, none, 1) // role policies always generated

	all := DesiredPolicies("trirematics", mode.Apply, config.Config{ManageInfra: true, EnableSafety: true}, edges)
	assert.Len(t, all, 10+2+1)
}

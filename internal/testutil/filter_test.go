package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	t.Parallel()

	leaf := storedObject{class: "fabricNode", attributes: map[string]string{"role": "leaf", "name": "leaf-101"}}
	controller := storedObject{class: "fabricNode", attributes: map[string]string{"role": "controller", "name": "apic1"}}
	tenant := storedObject{class: "fvTenant", attributes: map[string]string{"name": "T1"}}

	tests := []struct {
		name   string
		filter string
		obj    storedObject
		want   bool
	}{
		{name: "empty matches", filter: "", obj: tenant, want: true},
		{name: "eq match", filter: `eq(fvTenant.name,"T1")`, obj: tenant, want: true},
		{name: "eq miss", filter: `eq(fvTenant.name,"T2")`, obj: tenant, want: false},
		{name: "eq other class", filter: `eq(fvTenant.name,"T1")`, obj: leaf, want: false},
		{name: "and ne controller on leaf", filter: `and(ne(fabricNode.role,"controller"))`, obj: leaf, want: true},
		{name: "and ne controller on controller", filter: `and(ne(fabricNode.role,"controller"))`, obj: controller, want: false},
		{name: "or", filter: `or(eq(fabricNode.role,"spine"),eq(fabricNode.role,"leaf"))`, obj: leaf, want: true},
		{name: "wcard", filter: `wcard(fabricNode.name,"101")`, obj: leaf, want: true},
		{name: "comma inside value", filter: `eq(fvTenant.name,"a,b")`, obj: tenant, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			expr, err := parseFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.match(tt.obj))
		})
	}
}

func TestParseFilterRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"fvTenant.name", `eq(fvTenant.name)`, `eq(fvTenant.name,T1)`, `gt(fvTenant.name,"1")`} {
		_, err := parseFilter(raw)
		assert.Error(t, err, raw)
	}
}

func TestIsDirectChild(t *testing.T) {
	t.Parallel()

	assert.True(t, isDirectChild("topology/pod-1", "topology/pod-1/node-101"))
	assert.True(t, isDirectChild("uni/infra", "uni/infra/vlanns-[P1]-static"))
	assert.True(t, isDirectChild("uni/infra", "uni/infra/vlanns-[a/b]-static"))
	assert.False(t, isDirectChild("topology/pod-1", "topology/pod-1/node-101/sys/phys-[eth1/1]"))
	assert.False(t, isDirectChild("topology/pod-1", "topology/pod-1"))
	assert.False(t, isDirectChild("uni/tn-T1", "uni/tn-T10/ap-x"))
}

package middleware

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tenant object",
			input:    "/api/node/mo/uni/tn-T1.json",
			expected: "/api/node/mo/:dn.json",
		},
		{
			name:     "nested object",
			input:    "/api/node/mo/uni/tn-T1/ap-web/epg-frontend.json",
			expected: "/api/node/mo/:dn.json",
		},
		{
			name:     "VLAN range with brackets",
			input:    "/api/node/mo/uni/infra/vlanns-[P1]-static/from-[vlan-100]-to-[vlan-200].json",
			expected: "/api/node/mo/:dn.json",
		},
		{
			name:     "short mo path",
			input:    "/api/mo/uni/infra.json",
			expected: "/api/mo/:dn.json",
		},
		{
			name:     "class under switch DN",
			input:    "/api/node/class/topology/pod-1/node-101/l1PhysIf.json",
			expected: "/api/node/class/:dn/l1PhysIf.json",
		},
		{
			name:     "plain class query",
			input:    "/api/node/class/fvTenant.json",
			expected: "/api/node/class/fvTenant.json",
		},
		{
			name:     "login",
			input:    "/api/aaaLogin.json",
			expected: "/api/aaaLogin.json",
		},
		{
			name:     "empty path",
			input:    "",
			expected: "",
		},
		{
			name:     "root path",
			input:    "/",
			expected: "/",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, normalizePath(testCase.input))
		})
	}
}

func TestNormalizePathCollapsesProvisioningRun(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := range 1000 {
		seen[normalizePath(fmt.Sprintf("/api/node/mo/uni/tn-T%d/ap-app%d/epg-web%d.json", i, i, i))] = struct{}{}
		seen[normalizePath(fmt.Sprintf("/api/node/class/topology/pod-1/node-%d/l1PhysIf.json", 100+i))] = struct{}{}
	}

	assert.Equal(t, map[string]struct{}{
		"/api/node/mo/:dn.json":             {},
		"/api/node/class/:dn/l1PhysIf.json": {},
	}, seen)
}

func BenchmarkNormalizePath(b *testing.B) {
	paths := []string{
		"/api/node/mo/uni/tn-T1/ap-web.json",
		"/api/node/class/topology/pod-1/node-101/l1PhysIf.json",
		"/api/node/class/fvTenant.json",
		"/api/aaaLogin.json",
	}

	b.ResetTimer()
	for b.Loop() {
		for _, path := range paths {
			_ = normalizePath(path)
		}
	}
}

package fabric

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	moPrefix    = "/api/node/mo/"
	classPrefix = "/api/node/class/"
)

// Eq renders the controller filter eq(prop,"value").
func Eq(property, value string) string {
	return fmt.Sprintf(`eq(%s,"%s")`, property, value)
}

// Ne renders the controller filter ne(prop,"value").
func Ne(property, value string) string {
	return fmt.Sprintf(`ne(%s,"%s")`, property, value)
}

// And combines filters with the controller's and() operator.
func And(filters ...string) string {
	return "and(" + strings.Join(filters, ",") + ")"
}

// Or combines filters with the controller's or() operator.
func Or(filters ...string) string {
	return "or(" + strings.Join(filters, ",") + ")"
}

func moPath(dn string) string {
	return moPrefix + dn + ".json"
}

func classPath(class string) string {
	return classPrefix + class + ".json"
}

// buildQuery appends the fixed parameters and, when non-empty, the
// query-target-filter to base. The filter is percent-encoded only where a
// query cannot carry the byte as is; the controller syntax stays readable.
func buildQuery(base string, params []string, filter string) string {
	if filter != "" {
		params = append(params[:len(params):len(params)], "query-target-filter="+escapeQueryValue(filter))
	}
	if len(params) == 0 {
		return base
	}
	return base + "?" + strings.Join(params, "&")
}

func escapeQueryValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	for i := range len(value) {
		ch := value[i]
		if shouldEscapeQuery(ch) {
			fmt.Fprintf(&b, "%%%02X", ch)
			continue
		}
		b.WriteByte(ch)
	}

	return b.String()
}

// shouldEscapeQuery covers control bytes, space, non-ASCII, the query
// delimiters and '+', which servers decode as a space.
func shouldEscapeQuery(ch byte) bool {
	if ch <= ' ' || ch >= 0x7f {
		return true
	}

	switch ch {
	case '%', '&', '#', '+', '<', '>', '\\', '^', '`', '{', '}':
		return true
	default:
		return false
	}
}

func (c *APIClient) query(ctx context.Context, path string) ([]ManagedObject, error) {
	envelope, err := c.Call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return envelope.Objects(), nil
}

// ListPods returns every fabricPod.
func (c *APIClient) ListPods(ctx context.Context) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(classPath("fabricPod"), nil, ""))
}

func switchesQuery(podDN, filter string) string {
	return buildQuery(moPath(podDN), []string{
		"query-target=children",
		"target-subtree-class=fabricNode",
	}, filter)
}

// ListSwitches returns the fabric nodes of a pod that are not controllers.
func (c *APIClient) ListSwitches(ctx context.Context, podDN string) ([]ManagedObject, error) {
	return c.query(ctx, switchesQuery(podDN, And(Ne("fabricNode.role", "controller"))))
}

// ListLeafs returns the leaf switches of a pod.
func (c *APIClient) ListLeafs(ctx context.Context, podDN string) ([]ManagedObject, error) {
	return c.query(ctx, switchesQuery(podDN, And(Eq("fabricNode.role", "leaf"))))
}

// ListSpines returns the spine switches of a pod.
func (c *APIClient) ListSpines(ctx context.Context, podDN string) ([]ManagedObject, error) {
	return c.query(ctx, switchesQuery(podDN, And(Eq("fabricNode.role", "spine"))))
}

// ListInterfaces returns the physical interfaces (l1PhysIf) of a switch,
// each with its ethpmPhysIf operational child, ordered by interface id.
func (c *APIClient) ListInterfaces(ctx context.Context, switchDN string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(classPrefix+switchDN+"/l1PhysIf.json", []string{
		"rsp-subtree=children",
		"rsp-subtree-class=ethpmPhysIf",
		"order-by=l1PhysIf.id",
	}, ""))
}

// ListTenants returns tenants ordered by name. An empty filter matches all.
func (c *APIClient) ListTenants(ctx context.Context, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(classPath("fvTenant"), []string{
		"order-by=fvTenant.name|asc",
	}, filter))
}

// ListAppProfiles returns the application profiles of a tenant.
func (c *APIClient) ListAppProfiles(ctx context.Context, tenantDN, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(moPath(tenantDN), []string{
		"order-by=fvAp.name|asc",
		"query-target=subtree",
		"target-subtree-class=fvAp",
	}, filter))
}

// ListEPGs returns the endpoint groups of an application profile.
func (c *APIClient) ListEPGs(ctx context.Context, apDN, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(moPath(apDN), []string{
		"query-target=children",
		"target-subtree-class=fvAEPg",
		"order-by=fvAEPg.name",
	}, filter))
}

// ListVRFs returns the VRFs (fvCtx) of a tenant.
func (c *APIClient) ListVRFs(ctx context.Context, tenantDN, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(moPath(tenantDN), []string{
		"query-target=children",
		"target-subtree-class=fvCtx",
		"order-by=fvCtx.name|asc",
	}, filter))
}

// ListBridgeDomains returns the bridge domains of a tenant.
func (c *APIClient) ListBridgeDomains(ctx context.Context, tenantDN, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(moPath(tenantDN), []string{
		"query-target=children",
		"target-subtree-class=fvBD",
		"order-by=fvBD.name|asc",
	}, filter))
}

// ListVLANPools returns the VLAN pools under uni/infra.
func (c *APIClient) ListVLANPools(ctx context.Context, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(moPath(infraDN), []string{
		"query-target=children",
		"target-subtree-class=fvnsVlanInstP",
	}, filter))
}

// ListPhysicalDomains returns every physical domain.
func (c *APIClient) ListPhysicalDomains(ctx context.Context, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(classPath("physDomP"), nil, filter))
}

// ListAttachEntityProfiles returns the attachable entity profiles under uni/infra.
func (c *APIClient) ListAttachEntityProfiles(ctx context.Context, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(moPath(infraDN), []string{
		"query-target=children",
		"target-subtree-class=infraAttEntityP",
	}, filter))
}

// ListAccessInterfacePolicyGroups returns every access interface policy group.
func (c *APIClient) ListAccessInterfacePolicyGroups(ctx context.Context, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(classPath("infraAccBaseGrp"), nil, filter))
}

// ListAccessInterfaceProfiles returns the access and FEX interface profiles.
func (c *APIClient) ListAccessInterfaceProfiles(ctx context.Context, filter string) ([]ManagedObject, error) {
	return c.query(ctx, buildQuery(moPath(infraDN), []string{
		"target-subtree-class=infraFexP,infraAccPortP",
		"query-target=subtree",
	}, filter))
}

package fabric

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-apic/internal/payload"
)

const (
	minVLAN = 1
	maxVLAN = 4094

	defaultPod            = "1"
	defaultAllocationMode = "static"
	defaultLACPMode       = "active"
	defaultBindingMode    = "regular"
	defaultUnknownUnicast = "flood"
)

var (
	allocationModes = map[string]bool{"static": true, "dynamic": true}
	lacpModes       = map[string]bool{
		"active":            true,
		"passive":           true,
		"off":               true,
		"mac-pin":           true,
		"mac-pin-nicload":   true,
		"explicit-failover": true,
	}
	bindingModes = map[string]bool{"regular": true, "native": true, "untagged": true}
)

func required(field, value string) error {
	if value == "" {
		return errors.Wrapf(ErrInvalidArgument, "%s is required", field)
	}
	return validText(field, value)
}

// validText rejects invalid UTF-8: the payload would carry U+FFFD while the
// DN in the request path kept the raw bytes.
func validText(field, value string) error {
	if !utf8.ValidString(value) {
		return errors.Wrapf(ErrInvalidArgument, "%s is not valid UTF-8", field)
	}
	return nil
}

// firstError returns the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func validVLAN(field string, vlan int) error {
	if vlan < minVLAN || vlan > maxVLAN {
		return errors.Wrapf(ErrInvalidArgument, "%s %d outside %d..%d", field, vlan, minVLAN, maxVLAN)
	}
	return nil
}

// post renders a template and POSTs it to the object path of dn. It
// returns the rendered body and whether the controller reported a
// duplicate that the duplicate policy turned into success.
func (c *APIClient) post(
	ctx context.Context, dn, template string, params map[string]string, opts []CallOption,
) ([]byte, bool, error) {
	body, err := c.renderer.Render(template, params)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to render %s", template)
	}

	_, duplicate, err := c.call(ctx, http.MethodPost, moPath(dn), body, opts...)
	if err != nil {
		return nil, false, err
	}

	return body, duplicate, nil
}

// createAndFetch POSTs the rendered template and then reads the object back
// with fetch. A swallowed duplicate skips the read and yields no objects.
func (c *APIClient) createAndFetch(
	ctx context.Context, dn, template string, params map[string]string, opts []CallOption,
	fetch func(context.Context) ([]ManagedObject, error),
) ([]ManagedObject, error) {
	_, duplicate, err := c.post(ctx, dn, template, params, opts)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return []ManagedObject{}, nil
	}

	return fetch(ctx)
}

// createAndEcho POSTs the rendered template and returns the payload it sent,
// decoded. The result reflects the request, not the controller's state.
func (c *APIClient) createAndEcho(
	ctx context.Context, dn, template string, params map[string]string, opts []CallOption,
) ([]ManagedObject, error) {
	body, duplicate, err := c.post(ctx, dn, template, params, opts)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return []ManagedObject{}, nil
	}

	var object ManagedObject
	if err := json.Unmarshal(body, &object); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s payload", template)
	}

	return []ManagedObject{object}, nil
}

// CreateTenant creates uni/tn-<name> and returns the stored tenant.
func (c *APIClient) CreateTenant(ctx context.Context, name string, opts ...CallOption) ([]ManagedObject, error) {
	if err := required("tenant name", name); err != nil {
		return nil, err
	}

	return c.createAndFetch(ctx, TenantDN(name), payload.AddTenant,
		map[string]string{"name": name}, opts,
		func(ctx context.Context) ([]ManagedObject, error) {
			return c.ListTenants(ctx, Eq("fvTenant.name", name))
		})
}

// CreateAppProfile creates an application profile in a tenant.
func (c *APIClient) CreateAppProfile(
	ctx context.Context, tenantDN, name string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(required("tenant DN", tenantDN), required("application profile name", name)); err != nil {
		return nil, err
	}

	return c.createAndFetch(ctx, AppProfileDN(tenantDN, name), payload.AddAppProfile,
		map[string]string{"tenant_dn": tenantDN, "name": name}, opts,
		func(ctx context.Context) ([]ManagedObject, error) {
			return c.ListAppProfiles(ctx, tenantDN, Eq("fvAp.name", name))
		})
}

// CreateEPG creates an endpoint group bound to bridge domain bdName.
func (c *APIClient) CreateEPG(
	ctx context.Context, apDN, bdName, name string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(
		required("application profile DN", apDN),
		required("bridge domain name", bdName),
		required("EPG name", name),
	); err != nil {
		return nil, err
	}

	return c.createAndFetch(ctx, EPGDN(apDN, name), payload.AddEPG,
		map[string]string{"ap_dn": apDN, "name": name, "bridge_domain_name": bdName}, opts,
		func(ctx context.Context) ([]ManagedObject, error) {
			return c.ListEPGs(ctx, apDN, Eq("fvAEPg.name", name))
		})
}

// CreateVRF creates a VRF (fvCtx) in a tenant.
func (c *APIClient) CreateVRF(ctx context.Context, tenantDN, name string, opts ...CallOption) ([]ManagedObject, error) {
	if err := firstError(required("tenant DN", tenantDN), required("VRF name", name)); err != nil {
		return nil, err
	}

	return c.createAndFetch(ctx, VRFDN(tenantDN, name), payload.AddVRF,
		map[string]string{"tenant_dn": tenantDN, "name": name}, opts,
		func(ctx context.Context) ([]ManagedObject, error) {
			return c.ListVRFs(ctx, tenantDN, Eq("fvCtx.name", name))
		})
}

// CreateBridgeDomain creates a bridge domain in a tenant, bound to bd.VRF.
// Unknown unicast defaults to flood and ARP flooding to on.
func (c *APIClient) CreateBridgeDomain(
	ctx context.Context, tenantDN string, bd BridgeDomain, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(
		required("tenant DN", tenantDN),
		required("bridge domain name", bd.Name),
		required("VRF name", bd.VRF),
		validText("unknown unicast action", bd.UnknownUnicastAction),
	); err != nil {
		return nil, err
	}

	unknownUnicast := bd.UnknownUnicastAction
	if unknownUnicast == "" {
		unknownUnicast = defaultUnknownUnicast
	}
	arpFlood := true
	if bd.ARPFlood != nil {
		arpFlood = *bd.ARPFlood
	}

	params := map[string]string{
		"tenant_dn":         tenantDN,
		"name":              bd.Name,
		"unk_mac_ucast_act": unknownUnicast,
		"arp_flood":         strconv.FormatBool(arpFlood),
		"vrf_name":          bd.VRF,
	}

	return c.createAndFetch(ctx, BridgeDomainDN(tenantDN, bd.Name), payload.AddBridgeDomain, params, opts,
		func(ctx context.Context) ([]ManagedObject, error) {
			return c.ListBridgeDomains(ctx, tenantDN, Eq("fvBD.name", bd.Name))
		})
}

func allocationMode(mode string) (string, error) {
	if mode == "" {
		return defaultAllocationMode, nil
	}
	if !allocationModes[mode] {
		return "", errors.Wrapf(ErrInvalidArgument, "allocation mode %q", mode)
	}
	return mode, nil
}

// CreateVLANPool creates a VLAN pool. An empty mode means static.
func (c *APIClient) CreateVLANPool(ctx context.Context, name, mode string, opts ...CallOption) ([]ManagedObject, error) {
	if err := required("VLAN pool name", name); err != nil {
		return nil, err
	}
	mode, err := allocationMode(mode)
	if err != nil {
		return nil, err
	}

	return c.createAndFetch(ctx, VLANPoolDN(name, mode), payload.AddVLANPool,
		map[string]string{"name": name, "allocation_mode": mode}, opts,
		func(ctx context.Context) ([]ManagedObject, error) {
			return c.ListVLANPools(ctx, Eq("fvnsVlanInstP.name", name))
		})
}

// AddVLANRange adds an encap block from..to to a VLAN pool.
func (c *APIClient) AddVLANRange(ctx context.Context, r VLANRange, opts ...CallOption) ([]ManagedObject, error) {
	if err := required("VLAN pool name", r.Pool); err != nil {
		return nil, err
	}
	if err := firstError(validVLAN("from VLAN", r.From), validVLAN("to VLAN", r.To)); err != nil {
		return nil, err
	}
	if r.From > r.To {
		return nil, errors.Wrapf(ErrInvalidArgument, "VLAN range %d-%d is reversed", r.From, r.To)
	}
	mode, err := allocationMode(r.AllocationMode)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"pool_name":       r.Pool,
		"allocation_mode": mode,
		"from_vlan":       strconv.Itoa(r.From),
		"to_vlan":         strconv.Itoa(r.To),
	}

	return c.createAndEcho(ctx, VLANRangeDN(VLANPoolDN(r.Pool, mode), r.From, r.To), payload.AddVLANsToPool, params, opts)
}

// CreatePhysicalDomain creates a physical domain using a VLAN pool.
func (c *APIClient) CreatePhysicalDomain(
	ctx context.Context, name, vlanPoolDN string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(required("physical domain name", name), required("VLAN pool DN", vlanPoolDN)); err != nil {
		return nil, err
	}

	return c.createAndFetch(ctx, PhysicalDomainDN(name), payload.AddPhysicalDomain,
		map[string]string{"name": name, "vlan_pool_dn": vlanPoolDN}, opts,
		func(ctx context.Context) ([]ManagedObject, error) {
			return c.ListPhysicalDomains(ctx, Eq("physDomP.name", name))
		})
}

// CreateAttachEntityProfile creates an attachable entity profile tied to a
// physical domain.
func (c *APIClient) CreateAttachEntityProfile(
	ctx context.Context, name, physDomainDN string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(required("AEP name", name), required("physical domain DN", physDomainDN)); err != nil {
		return nil, err
	}

	return c.createAndFetch(ctx, infraDN, payload.AddAttachEntityProfile,
		map[string]string{"name": name, "phys_domain_dn": physDomainDN}, opts,
		func(ctx context.Context) ([]ManagedObject, error) {
			return c.ListAttachEntityProfiles(ctx, Eq("infraAttEntityP.name", name))
		})
}

// CreateAccessInterfacePolicyGroup creates an access port policy group
// attached to an AEP.
func (c *APIClient) CreateAccessInterfacePolicyGroup(
	ctx context.Context, name, aepDN string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(required("policy group name", name), required("AEP DN", aepDN)); err != nil {
		return nil, err
	}

	return c.createAndEcho(ctx, AccessPolicyGroupDN(name), payload.AddAccessInterfacePolicyGroup,
		map[string]string{"name": name, "aep_dn": aepDN}, opts)
}

// CreateAccessInterfaceProfile creates an empty access interface profile.
func (c *APIClient) CreateAccessInterfaceProfile(
	ctx context.Context, name string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := required("interface profile name", name); err != nil {
		return nil, err
	}

	return c.createAndEcho(ctx, AccessInterfaceProfileDN(name), payload.AddAccessInterfaceProfile,
		map[string]string{"name": name}, opts)
}

// CreateInterfaceSelector adds a port-range selector to an interface profile.
func (c *APIClient) CreateInterfaceSelector(
	ctx context.Context, sel InterfaceSelector, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(
		required("interface profile DN", sel.ProfileDN),
		required("selector name", sel.Name),
		required("policy group DN", sel.PolicyGroupDN),
	); err != nil {
		return nil, err
	}

	card := sel.Card
	if card == 0 {
		card = 1
	}
	if card < 0 || sel.FromPort < 1 || sel.ToPort < sel.FromPort {
		return nil, errors.Wrapf(ErrInvalidArgument, "port range %d/%d-%d", card, sel.FromPort, sel.ToPort)
	}

	params := map[string]string{
		"profile_dn":      sel.ProfileDN,
		"name":            sel.Name,
		"card":            strconv.Itoa(card),
		"from_port":       strconv.Itoa(sel.FromPort),
		"to_port":         strconv.Itoa(sel.ToPort),
		"policy_group_dn": sel.PolicyGroupDN,
	}

	return c.createAndEcho(ctx, InterfaceSelectorDN(sel.ProfileDN, sel.Name), payload.AddInterfaceSelector, params, opts)
}

// CreateSwitchProfile creates a leaf switch profile selecting leafID.
func (c *APIClient) CreateSwitchProfile(
	ctx context.Context, name, leafID string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(required("switch profile name", name), required("leaf id", leafID)); err != nil {
		return nil, err
	}

	return c.createAndEcho(ctx, SwitchProfileDN(name, leafID), payload.AddSwitchProfile,
		map[string]string{"name": name, "leaf_id": leafID}, opts)
}

// AssociateInterfaceProfile links an interface profile to a switch profile.
func (c *APIClient) AssociateInterfaceProfile(
	ctx context.Context, switchProfileDN, interfaceProfileDN string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(
		required("switch profile DN", switchProfileDN),
		required("interface profile DN", interfaceProfileDN),
	); err != nil {
		return nil, err
	}

	return c.createAndEcho(ctx, switchProfileDN, payload.AssociateInterfaceProfile,
		map[string]string{"interface_profile_dn": interfaceProfileDN}, opts)
}

func bindingParams(pod, leafID string, vlan int, mode string) (map[string]string, error) {
	if err := firstError(required("leaf id", leafID), validText("pod", pod), validVLAN("VLAN", vlan)); err != nil {
		return nil, err
	}
	if pod == "" {
		pod = defaultPod
	}
	if mode == "" {
		mode = defaultBindingMode
	}
	if !bindingModes[mode] {
		return nil, errors.Wrapf(ErrInvalidArgument, "binding mode %q", mode)
	}

	return map[string]string{
		"pod":     pod,
		"leaf_id": leafID,
		"vlan":    strconv.Itoa(vlan),
		"mode":    mode,
	}, nil
}

// AddStaticPortToEPG binds an access port to an EPG on a VLAN.
func (c *APIClient) AddStaticPortToEPG(
	ctx context.Context, epgDN string, port StaticPort, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(required("EPG DN", epgDN), required("port", port.Port)); err != nil {
		return nil, err
	}
	params, err := bindingParams(port.Pod, port.LeafID, port.VLAN, port.Mode)
	if err != nil {
		return nil, err
	}
	params["port"] = port.Port

	return c.createAndEcho(ctx, epgDN, payload.AddStaticPort, params, opts)
}

// CreateLACPProfile creates a LACP policy. An empty mode means active.
func (c *APIClient) CreateLACPProfile(
	ctx context.Context, name, mode string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := required("LACP profile name", name); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = defaultLACPMode
	}
	if !lacpModes[mode] {
		return nil, errors.Wrapf(ErrInvalidArgument, "LACP mode %q", mode)
	}

	return c.createAndEcho(ctx, LACPProfileDN(name), payload.AddLACPProfile,
		map[string]string{"name": name, "mode": mode}, opts)
}

// CreatePortChannelPolicyGroup creates a port-channel policy group using an
// AEP and a LACP policy.
func (c *APIClient) CreatePortChannelPolicyGroup(
	ctx context.Context, name, aepDN, lacpName string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(
		required("policy group name", name),
		required("AEP DN", aepDN),
		required("LACP profile name", lacpName),
	); err != nil {
		return nil, err
	}

	return c.createAndEcho(ctx, PortChannelPolicyGroupDN(name), payload.AddPortChannelPolicyGroup,
		map[string]string{"name": name, "aep_dn": aepDN, "lacp_name": lacpName}, opts)
}

// CreatePortChannelInterfaceProfile creates an interface profile for
// port-channel members.
func (c *APIClient) CreatePortChannelInterfaceProfile(
	ctx context.Context, name string, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := required("interface profile name", name); err != nil {
		return nil, err
	}

	return c.createAndEcho(ctx, AccessInterfaceProfileDN(name), payload.AddPortChannelInterfaceProfile,
		map[string]string{"name": name}, opts)
}

// AddStaticPortChannelToEPG binds a port-channel to an EPG on a VLAN.
func (c *APIClient) AddStaticPortChannelToEPG(
	ctx context.Context, epgDN string, pc StaticPortChannel, opts ...CallOption,
) ([]ManagedObject, error) {
	if err := firstError(required("EPG DN", epgDN), required("policy group name", pc.PolicyGroupName)); err != nil {
		return nil, err
	}
	params, err := bindingParams(pc.Pod, pc.LeafID, pc.VLAN, pc.Mode)
	if err != nil {
		return nil, err
	}
	params["policy_group_name"] = pc.PolicyGroupName

	return c.createAndEcho(ctx, epgDN, payload.AddStaticPortChannel, params, opts)
}

// EditInterfaceNameDescription sets the name and description of a physical
// interface through a host path selector uni/infra/hpaths-<name>.
// interfaceDN must be an interface DN as accepted by ParseInterfaceDN.
func (c *APIClient) EditInterfaceNameDescription(
	ctx context.Context, interfaceDN, name, description string, opts ...CallOption,
) ([]ManagedObject, error) {
	iface, err := ParseInterfaceDN(interfaceDN)
	if err != nil {
		return nil, err
	}
	if err := firstError(required("interface name", name), validText("description", description)); err != nil {
		return nil, err
	}

	params := map[string]string{
		"name":        name,
		"description": description,
		"pod":         iface.Pod,
		"node":        iface.Node,
		"interface":   iface.Interface,
	}

	return c.createAndEcho(ctx, HostPathSelectorDN(name), payload.EditInterfaceNameDescription, params, opts)
}

package fabric

import (
	"fmt"
	"regexp"

	"github.com/cockroachdb/errors"
)

const infraDN = "uni/infra"

// TenantDN returns uni/tn-<name>.
func TenantDN(name string) string { return "uni/tn-" + name }

// AppProfileDN returns <tenantDN>/ap-<name>.
func AppProfileDN(tenantDN, name string) string { return tenantDN + "/ap-" + name }

// EPGDN returns <apDN>/epg-<name>.
func EPGDN(apDN, name string) string { return apDN + "/epg-" + name }

// VRFDN returns <tenantDN>/ctx-<name>.
func VRFDN(tenantDN, name string) string { return tenantDN + "/ctx-" + name }

// BridgeDomainDN returns <tenantDN>/BD-<name>.
func BridgeDomainDN(tenantDN, name string) string { return tenantDN + "/BD-" + name }

// VLANPoolDN returns uni/infra/vlanns-[<name>]-<mode>.
func VLANPoolDN(name, allocationMode string) string {
	return fmt.Sprintf("%s/vlanns-[%s]-%s", infraDN, name, allocationMode)
}

// VLANRangeDN returns the DN of an encap block inside a VLAN pool.
func VLANRangeDN(poolDN string, from, to int) string {
	return fmt.Sprintf("%s/from-[vlan-%d]-to-[vlan-%d]", poolDN, from, to)
}

// PhysicalDomainDN returns uni/phys-<name>.
func PhysicalDomainDN(name string) string { return "uni/phys-" + name }

// AttachEntityProfileDN returns uni/infra/attentp-<name>.
func AttachEntityProfileDN(name string) string { return infraDN + "/attentp-" + name }

// AccessPolicyGroupDN returns uni/infra/funcprof/accportgrp-<name>.
func AccessPolicyGroupDN(name string) string { return infraDN + "/funcprof/accportgrp-" + name }

// AccessInterfaceProfileDN returns uni/infra/accportprof-<name>.
func AccessInterfaceProfileDN(name string) string { return infraDN + "/accportprof-" + name }

// InterfaceSelectorDN returns <profileDN>/hports-<name>-typ-range.
func InterfaceSelectorDN(profileDN, name string) string {
	return profileDN + "/hports-" + name + "-typ-range"
}

// SwitchProfileDN returns uni/infra/nprof-<name>-<leafID>.
func SwitchProfileDN(name, leafID string) string {
	return infraDN + "/nprof-" + name + "-" + leafID
}

// LACPProfileDN returns uni/infra/lacplagp-<name>.
func LACPProfileDN(name string) string { return infraDN + "/lacplagp-" + name }

// PortChannelPolicyGroupDN returns uni/infra/funcprof/accbundle-<name>.
func PortChannelPolicyGroupDN(name string) string { return infraDN + "/funcprof/accbundle-" + name }

// HostPathSelectorDN returns uni/infra/hpaths-<name>.
func HostPathSelectorDN(name string) string { return infraDN + "/hpaths-" + name }

// PathDN returns topology/pod-<pod>/paths-<node>/pathep-[<endpoint>], the
// target of static bindings. endpoint is a port such as eth1/1 or a
// port-channel policy group name.
func PathDN(pod, node, endpoint string) string {
	return fmt.Sprintf("topology/pod-%s/paths-%s/pathep-[%s]", pod, node, endpoint)
}

var interfaceDNPattern = regexp.MustCompile(`^topology/pod-(\d+)/node-(\d+)/.*\[([^\[\]]+)\]$`)

// ParseInterfaceDN splits an interface DN such as
// topology/pod-1/node-101/sys/phys-[eth1/1] into pod, node and interface.
func ParseInterfaceDN(dn string) (InterfaceDN, error) {
	match := interfaceDNPattern.FindStringSubmatch(dn)
	if match == nil {
		return InterfaceDN{}, errors.Wrapf(ErrMalformedDN, "%q", dn)
	}

	return InterfaceDN{Pod: match[1], Node: match[2], Interface: match[3]}, nil
}

// PathDN returns the static path DN of the interface.
func (i InterfaceDN) PathDN() string {
	return PathDN(i.Pod, i.Node, i.Interface)
}

func (i InterfaceDN) String() string {
	return fmt.Sprintf("topology/pod-%s/node-%s/sys/phys-[%s]", i.Pod, i.Node, i.Interface)
}

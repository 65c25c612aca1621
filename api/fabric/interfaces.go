package fabric

import "context"

// FabricAPIClient defines the operations of APIClient.
// This interface enables consumers to create mock implementations for testing.
//
// Example usage with testify/mock:
//
//	type MockClient struct {
//	    mock.Mock
//	}
//
//	func (m *MockClient) ListTenants(ctx context.Context, filter string) ([]fabric.ManagedObject, error) {
//	    args := m.Called(ctx, filter)
//	    return args.Get(0).([]fabric.ManagedObject), args.Error(1)
//	}
//
//nolint:revive // FabricAPIClient is intentionally explicit to avoid confusion with the APIClient struct
type FabricAPIClient interface {
	// Session

	Login(ctx context.Context, username, password string) (string, error)
	RefreshSession(ctx context.Context) (string, error)
	Session() Session

	// Call issues a raw GET or POST against the controller.
	Call(ctx context.Context, method, path string, body []byte, opts ...CallOption) (*Envelope, error)

	// Fabric topology

	ListPods(ctx context.Context) ([]ManagedObject, error)
	ListSwitches(ctx context.Context, podDN string) ([]ManagedObject, error)
	ListLeafs(ctx context.Context, podDN string) ([]ManagedObject, error)
	ListSpines(ctx context.Context, podDN string) ([]ManagedObject, error)
	ListInterfaces(ctx context.Context, switchDN string) ([]ManagedObject, error)

	// Tenant policy

	ListTenants(ctx context.Context, filter string) ([]ManagedObject, error)
	ListAppProfiles(ctx context.Context, tenantDN, filter string) ([]ManagedObject, error)
	ListEPGs(ctx context.Context, apDN, filter string) ([]ManagedObject, error)
	ListVRFs(ctx context.Context, tenantDN, filter string) ([]ManagedObject, error)
	ListBridgeDomains(ctx context.Context, tenantDN, filter string) ([]ManagedObject, error)

	CreateTenant(ctx context.Context, name string, opts ...CallOption) ([]ManagedObject, error)
	CreateAppProfile(ctx context.Context, tenantDN, name string, opts ...CallOption) ([]ManagedObject, error)
	CreateEPG(ctx context.Context, apDN, bdName, name string, opts ...CallOption) ([]ManagedObject, error)
	CreateVRF(ctx context.Context, tenantDN, name string, opts ...CallOption) ([]ManagedObject, error)
	CreateBridgeDomain(ctx context.Context, tenantDN string, bd BridgeDomain, opts ...CallOption) ([]ManagedObject, error)
	AddStaticPortToEPG(ctx context.Context, epgDN string, port StaticPort, opts ...CallOption) ([]ManagedObject, error)
	AddStaticPortChannelToEPG(
		ctx context.Context, epgDN string, pc StaticPortChannel, opts ...CallOption,
	) ([]ManagedObject, error)

	// Access policy

	ListVLANPools(ctx context.Context, filter string) ([]ManagedObject, error)
	ListPhysicalDomains(ctx context.Context, filter string) ([]ManagedObject, error)
	ListAttachEntityProfiles(ctx context.Context, filter string) ([]ManagedObject, error)
	ListAccessInterfacePolicyGroups(ctx context.Context, filter string) ([]ManagedObject, error)
	ListAccessInterfaceProfiles(ctx context.Context, filter string) ([]ManagedObject, error)

	CreateVLANPool(ctx context.Context, name, mode string, opts ...CallOption) ([]ManagedObject, error)
	AddVLANRange(ctx context.Context, r VLANRange, opts ...CallOption) ([]ManagedObject, error)
	CreatePhysicalDomain(ctx context.Context, name, vlanPoolDN string, opts ...CallOption) ([]ManagedObject, error)
	CreateAttachEntityProfile(ctx context.Context, name, physDomainDN string, opts ...CallOption) ([]ManagedObject, error)
	CreateAccessInterfacePolicyGroup(ctx context.Context, name, aepDN string, opts ...CallOption) ([]ManagedObject, error)
	CreateAccessInterfaceProfile(ctx context.Context, name string, opts ...CallOption) ([]ManagedObject, error)
	CreateInterfaceSelector(ctx context.Context, sel InterfaceSelector, opts ...CallOption) ([]ManagedObject, error)
	CreateSwitchProfile(ctx context.Context, name, leafID string, opts ...CallOption) ([]ManagedObject, error)
	AssociateInterfaceProfile(
		ctx context.Context, switchProfileDN, interfaceProfileDN string, opts ...CallOption,
	) ([]ManagedObject, error)
	CreateLACPProfile(ctx context.Context, name, mode string, opts ...CallOption) ([]ManagedObject, error)
	CreatePortChannelPolicyGroup(
		ctx context.Context, name, aepDN, lacpName string, opts ...CallOption,
	) ([]ManagedObject, error)
	CreatePortChannelInterfaceProfile(ctx context.Context, name string, opts ...CallOption) ([]ManagedObject, error)
	EditInterfaceNameDescription(
		ctx context.Context, interfaceDN, name, description string, opts ...CallOption,
	) ([]ManagedObject, error)
}

package domain

// Role of an authenticated actor. Authentication itself happens outside
// this service; the role arrives with the request.
type Role string

const (
	RolePlatformAdmin Role = "platform_admin"
	RoleAdmin         Role = "admin"
	RoleManager       Role = "manager"
	RoleTechnician    Role = "technician"
	RoleVendor        Role = "vendor"
	RoleRequester     Role = "requester"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID       string
	Role     Role
	TenantID string
}

// TenantContext is the resolved tenancy of a call. CrossTenant is only
// granted to platform administrators and disables tenant filtering.
type TenantContext struct {
	TenantID    string
	CrossTenant bool
}

// Visible reports whether a work order in the given tenant can be seen
// under this context.
func (tc TenantContext) Visible(tenantID string) bool {
	return tc.CrossTenant || tc.TenantID == tenantID
}

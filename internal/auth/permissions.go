package auth

import (
	"sort"

	"github.com/clarotec/orders-api/internal/domain"
)

// Permission is a capability checked per endpoint
type Permission string

const (
	// PermissionQuotesManage covers quote editing, order detail and the sales work queues
	PermissionQuotesManage Permission = "quotes:manage"
	// PermissionPaymentsManage covers payment confirmation and rejection
	PermissionPaymentsManage Permission = "payments:manage"
	// PermissionDispatchManage covers the dispatch queue and marking orders dispatched
	PermissionDispatchManage Permission = "dispatch:manage"
	// PermissionReportsView covers the BI endpoints
	PermissionReportsView Permission = "reports:view"
	// PermissionStaffAccess is held by every internal staff role
	PermissionStaffAccess Permission = "staff:access"
	// PermissionOrdersOwn lets a registered customer list their own orders
	PermissionOrdersOwn Permission = "orders:own"
)

var rolePermissions = map[domain.UserRole]map[Permission]struct{}{
	domain.RoleSales: set(
		PermissionQuotesManage,
		PermissionStaffAccess,
	),
	domain.RoleAdmin: set(
		PermissionPaymentsManage,
		PermissionStaffAccess,
	),
	domain.RoleDispatcher: set(
		PermissionDispatchManage,
		PermissionStaffAccess,
	),
	domain.RoleManagement: set(
		PermissionQuotesManage,
		PermissionPaymentsManage,
		PermissionDispatchManage,
		PermissionReportsView,
		PermissionStaffAccess,
	),
	domain.RoleCustomer: set(
		PermissionOrdersOwn,
	),
}

func set(perms ...Permission) map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return m
}

// RoleHasPermission reports whether role grants permission. Unknown roles grant nothing.
func RoleHasPermission(role domain.UserRole, permission Permission) bool {
	_, ok := rolePermissions[role][permission]
	return ok
}

// PermissionsForRole returns the role's permissions sorted by name
func PermissionsForRole(role domain.UserRole) []string {
	perms := make([]string, 0, len(rolePermissions[role]))
	for p := range rolePermissions[role] {
		perms = append(perms, string(p))
	}
	sort.Strings(perms)
	return perms
}

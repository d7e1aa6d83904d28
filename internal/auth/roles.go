package auth

import "github.com/spec-kit/auth-service/internal/domain"

// Permission names granted per role. The map is built once at process
// start and is read-only afterwards, so unsynchronized concurrent reads
// are safe.
var defaultRolePermissions = map[domain.Role][]string{
	domain.RoleAdmin: {
		"createPassword",
		"createUser",
		"getUsers",
		"getUser",
		"updateUser",
		"deleteUser",
		"changeStatus",
		"getCompanies",
		"getCompany",
		"updateCompany",
		"deleteCompany",
		"createPlan",
		"updatePlan",
		"deletePlan",
		"createSubscription",
		"getSubscriptions",
		"getSubscription",
		"updateSubscription",
		"deleteSubscription",
		"getPaymentRequests",
		"updatePaymentRequest",
		"confirmPaymentRequest",
	},
	domain.RolePartner: {
		"createPassword",
		"createUser",
		"getUsers",
		"getUser",
		"updateUser",
		"deleteUser",
		"createCompany",
		"getCompanies",
		"getCompany",
		"updateCompany",
		"deleteCompany",
		"createPaymentRequest",
		"createDailyRecord",
		"getDailyRecords",
		"getDailyRecord",
		"updateDailyRecord",
		"deleteDailyRecord",
		"barChart",
	},
}

// PermissionResolver answers role→permission queries against an
// immutable mapping.
type PermissionResolver struct {
	grants map[domain.Role]map[string]struct{}
}

// NewPermissionResolver builds a resolver from the default role map.
func NewPermissionResolver() *PermissionResolver {
	return NewPermissionResolverWith(defaultRolePermissions)
}

// NewPermissionResolverWith builds a resolver from an explicit mapping.
// The input is copied; callers cannot mutate the resolver afterwards.
func NewPermissionResolverWith(rolePermissions map[domain.Role][]string) *PermissionResolver {
	grants := make(map[domain.Role]map[string]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	return &PermissionResolver{grants: grants}
}

// HasPermission reports whether the role grants the named permission.
func (r *PermissionResolver) HasPermission(role domain.Role, permission string) bool {
	set, ok := r.grants[role]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

// Roles returns the known role tags.
func (r *PermissionResolver) Roles() []domain.Role {
	roles := make([]domain.Role, 0, len(r.grants))
	for role := range r.grants {
		roles = append(roles, role)
	}
	return roles
}

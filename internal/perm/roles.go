package perm

// Role names a permission template used as the starting value for new
// users. Assigning a role copies its value; the template itself never
// changes at runtime.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleTechnicalManager Role = "technical_manager"
	RoleProjectManager   Role = "project_manager"
	RoleTeamMember       Role = "team_member"
	RoleClient           Role = "client"
	RoleAccountant       Role = "accountant"
)

// roleFlags documents each template as an explicit flag list. Template
// values are derived from these lists, never written as literals, so the
// stored constant can not drift from the documented intent.
var roleFlags = map[Role][]Flag{
	RoleAdmin: Catalog(),
	RoleTechnicalManager: {
		CreateProjects, EditProjects, ViewAllProjects, ManageAllProjects,
		ViewFinancialData, ExportFinancialReports,
		CreateScopeItems, EditScopeItems, DeleteScopeItems, ApproveScopeChanges,
		EditMaterialSpecs, ApproveMaterialSpecs,
		CreateShopDrawings, EditShopDrawings, ApproveShopDrawings,
		CreateTasks, EditTasks, AssignTasks,
		ExportData,
	},
	RoleProjectManager: {
		CreateProjects, EditProjects, ViewAssignedProjects,
		ViewFinancialData,
		CreateScopeItems, EditScopeItems, ApproveScopeChanges,
		EditMaterialSpecs,
		CreateShopDrawings, EditShopDrawings,
		CreateTasks, EditTasks, AssignTasks,
		ExportData,
	},
	RoleTeamMember: {
		ViewAssignedProjects,
		CreateScopeItems, EditScopeItems,
		CreateShopDrawings, EditShopDrawings,
		CreateTasks, EditTasks,
	},
	RoleClient: {
		ViewAssignedProjects,
		ApproveShopDrawingsClient,
	},
	RoleAccountant: {
		ViewAssignedProjects,
		ViewFinancialData, EditFinancialData, ApproveBudgets, ExportFinancialReports,
		ExportData,
	},
}

// roleOrder fixes the order templates are reported in.
var roleOrder = []Role{
	RoleAdmin,
	RoleTechnicalManager,
	RoleProjectManager,
	RoleTeamMember,
	RoleClient,
	RoleAccountant,
}

// Template returns the permission value for a role. Unknown roles report
// false; callers decide whether that is a validation failure or a
// programming error.
func Template(role Role) (Value, bool) {
	flags, ok := roleFlags[role]
	if !ok {
		return 0, false
	}
	return Combine(flags...), true
}

// Roles returns every defined role in a stable order.
func Roles() []Role {
	roles := make([]Role, len(roleOrder))
	copy(roles, roleOrder)
	return roles
}

// RoleFromValue classifies a stored value against the templates. The
// match is exact equality: any manual tweak to a user's flags makes the
// second return false, so callers must present such users as "custom"
// rather than the nearest role.
func RoleFromValue(v Value) (Role, bool) {
	for _, role := range roleOrder {
		if tpl, _ := Template(role); tpl == v {
			return role, true
		}
	}
	return "", false
}

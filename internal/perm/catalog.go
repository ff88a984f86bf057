// Package perm implements the bitwise permission model. Every capability
// is a single reserved bit; a user's grants are stored as one integer.
// The package is pure: it performs no I/O and holds no state, so callers
// supply relationship facts (ownership, assignment, approver overlay)
// alongside the stored value.
package perm

// Flag is a single capability bit. Bit positions are reserved permanently:
// stored user records persist raw integers, so a bit is only ever appended,
// never reassigned.
type Flag uint64

const (
	// Project management.
	CreateProjects       Flag = 1 << 0
	EditProjects         Flag = 1 << 1
	DeleteProjects       Flag = 1 << 2
	ViewAllProjects      Flag = 1 << 3
	ViewAssignedProjects Flag = 1 << 4
	ManageAllProjects    Flag = 1 << 5

	// Financial.
	ViewFinancialData      Flag = 1 << 6
	EditFinancialData      Flag = 1 << 7
	ApproveBudgets         Flag = 1 << 8
	ExportFinancialReports Flag = 1 << 9

	// Scope items.
	CreateScopeItems    Flag = 1 << 10
	EditScopeItems      Flag = 1 << 11
	DeleteScopeItems    Flag = 1 << 12
	ApproveScopeChanges Flag = 1 << 13

	// Material specs.
	EditMaterialSpecs    Flag = 1 << 14
	ApproveMaterialSpecs Flag = 1 << 15

	// Shop drawings.
	CreateShopDrawings        Flag = 1 << 16
	EditShopDrawings          Flag = 1 << 17
	ApproveShopDrawings       Flag = 1 << 18
	ApproveShopDrawingsClient Flag = 1 << 19

	// User management.
	ManageUsers Flag = 1 << 20
	InviteUsers Flag = 1 << 21

	// Tasks.
	CreateTasks Flag = 1 << 22
	EditTasks   Flag = 1 << 23
	AssignTasks Flag = 1 << 24

	// Data management.
	ExportData Flag = 1 << 25
	ImportData Flag = 1 << 26

	// Admin.
	AccessAdminPanel Flag = 1 << 27
)

// catalogEntry pairs a flag with its diagnostic name.
type catalogEntry struct {
	flag Flag
	name string
}

// catalog lists every defined flag in declaration order. Names follow the
// "<domain>.<action>" convention used across the HTTP surface.
var catalog = []catalogEntry{
	{CreateProjects, "projects.create"},
	{EditProjects, "projects.edit"},
	{DeleteProjects, "projects.delete"},
	{ViewAllProjects, "projects.view_all"},
	{ViewAssignedProjects, "projects.view_assigned"},
	{ManageAllProjects, "projects.manage_all"},
	{ViewFinancialData, "finance.view"},
	{EditFinancialData, "finance.edit"},
	{ApproveBudgets, "finance.approve_budgets"},
	{ExportFinancialReports, "finance.export"},
	{CreateScopeItems, "scope.create"},
	{EditScopeItems, "scope.edit"},
	{DeleteScopeItems, "scope.delete"},
	{ApproveScopeChanges, "scope.approve_changes"},
	{EditMaterialSpecs, "materials.edit"},
	{ApproveMaterialSpecs, "materials.approve"},
	{CreateShopDrawings, "drawings.create"},
	{EditShopDrawings, "drawings.edit"},
	{ApproveShopDrawings, "drawings.approve"},
	{ApproveShopDrawingsClient, "drawings.approve_client"},
	{ManageUsers, "users.manage"},
	{InviteUsers, "users.invite"},
	{CreateTasks, "tasks.create"},
	{EditTasks, "tasks.edit"},
	{AssignTasks, "tasks.assign"},
	{ExportData, "data.export"},
	{ImportData, "data.import"},
	{AccessAdminPanel, "admin.panel"},
}

// AllFlags is the OR of every defined flag. It is the upper bound for
// Valid and the value behind the admin role template.
var AllFlags = func() Value {
	var v Value
	for _, e := range catalog {
		v |= Value(e.flag)
	}
	return v
}()

// Name returns the diagnostic name for a single flag, or "" when the flag
// is not part of the catalog.
func (f Flag) Name() string {
	for _, e := range catalog {
		if e.flag == f {
			return e.name
		}
	}
	return ""
}

// FlagByName resolves a diagnostic name back to its flag. The second
// return is false for unknown names.
func FlagByName(name string) (Flag, bool) {
	for _, e := range catalog {
		if e.name == name {
			return e.flag, true
		}
	}
	return 0, false
}

// Catalog returns every defined flag in declaration order.
func Catalog() []Flag {
	flags := make([]Flag, len(catalog))
	for i, e := range catalog {
		flags[i] = e.flag
	}
	return flags
}

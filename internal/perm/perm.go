package perm

// Value is a user's full set of grants: the OR of the flags they hold,
// persisted as a single integer column. All methods are pure; mutation
// returns a new value and atomic persistence of that value is the
// caller's responsibility.
type Value uint64

// Combine ORs a set of flags into a value.
func Combine(flags ...Flag) Value {
	var v Value
	for _, f := range flags {
		v |= Value(f)
	}
	return v
}

// Has reports whether the flag is held.
func (v Value) Has(f Flag) bool {
	return v&Value(f) != 0
}

// HasAny reports whether at least one of the flags is held.
func (v Value) HasAny(flags ...Flag) bool {
	for _, f := range flags {
		if v.Has(f) {
			return true
		}
	}
	return false
}

// HasAll reports whether every flag is held.
func (v Value) HasAll(flags ...Flag) bool {
	for _, f := range flags {
		if !v.Has(f) {
			return false
		}
	}
	return true
}

// With returns the value with the flag added.
func (v Value) With(f Flag) Value {
	return v | Value(f)
}

// Without returns the value with the flag removed.
func (v Value) Without(f Flag) Value {
	return v &^ Value(f)
}

// Names returns the diagnostic name of every held flag in catalog
// declaration order. Intended for audit and admin display.
func (v Value) Names() []string {
	names := make([]string, 0, len(catalog))
	for _, e := range catalog {
		if v.Has(e.flag) {
			names = append(names, e.name)
		}
	}
	return names
}

// Valid reports whether a raw integer is a possible permission value:
// no bits outside the defined catalog. Callers validate externally
// supplied integers with this before persisting or trusting them; the
// checks below assume a valid value and do not re-validate.
func Valid(raw int64) bool {
	return raw >= 0 && Value(raw) <= AllFlags
}

// ProjectFacts carries the caller-fetched relationship facts a check
// needs. The evaluator never looks these up itself.
type ProjectFacts struct {
	OwnerID    int64
	UserID     int64
	IsAssigned bool
	// IsApprover is the per-project approver overlay fact for the
	// approval type being checked.
	IsApprover bool
}

func (f ProjectFacts) isOwner() bool {
	return f.OwnerID != 0 && f.OwnerID == f.UserID
}

// CanManageProject reports whether the user may administer the project.
// Ownership always wins: an owner keeps management rights over their own
// project even after the global flag is revoked.
func CanManageProject(v Value, facts ProjectFacts) bool {
	return facts.isOwner() || v.Has(ManageAllProjects)
}

// CanAccessProject reports whether the user may see the project at all:
// owner, global view-all, or view-assigned combined with an actual
// assignment.
func CanAccessProject(v Value, facts ProjectFacts) bool {
	if facts.isOwner() || v.Has(ViewAllProjects) {
		return true
	}
	return v.Has(ViewAssignedProjects) && facts.IsAssigned
}

// CanApproveShopDrawings reports whether the user may approve drawings on
// the project. At least one approval flag is mandatory: ownership and the
// approver overlay only substitute for per-project entitlement, never for
// being an approver type at all.
func CanApproveShopDrawings(v Value, facts ProjectFacts) bool {
	if !v.HasAny(ApproveShopDrawings, ApproveShopDrawingsClient) {
		return false
	}
	return facts.isOwner() || v.Has(ManageAllProjects) || facts.IsApprover
}

// CanApproveMaterialSpecs mirrors the shop-drawing rule for material
// specs: the approval flag gates, then owner, manage-all, or the overlay
// grants the specific project.
func CanApproveMaterialSpecs(v Value, facts ProjectFacts) bool {
	if !v.Has(ApproveMaterialSpecs) {
		return false
	}
	return facts.isOwner() || v.Has(ManageAllProjects) || facts.IsApprover
}

// CanApproveScopeChanges gates scope-change approval the same way.
func CanApproveScopeChanges(v Value, facts ProjectFacts) bool {
	if !v.Has(ApproveScopeChanges) {
		return false
	}
	return facts.isOwner() || v.Has(ManageAllProjects) || facts.IsApprover
}

// CanViewCosts reports whether cost fields may be shown. This is a pure
// global-flag decision: costs are company-sensitive, so ownership of a
// project grants nothing here.
func CanViewCosts(v Value) bool {
	return v.Has(ViewFinancialData)
}

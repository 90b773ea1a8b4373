package service

import (
	"citizenone/models"
	"citizenone/repository"
)

// Guard decides what a principal may do with a complaint.
//
// Citizens reach only the complaints they own. Officers and supervisors reach
// only complaints assigned to their own department, so an unassigned complaint
// is out of their reach. Admins reach everything. Inactive and suspended
// accounts never get this far; the auth middleware rejects them.
type Guard struct{}

// CanRead reports whether p may view c
func (Guard) CanRead(p models.Principal, c *models.Complaint) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCitizen:
		return c.CitizenID == p.UserID
	case models.RoleOfficer, models.RoleSupervisor:
		return p.InDepartment(c.DepartmentID)
	}
	return false
}

// CanWrite reports whether p may update c. The rule is the same as for reading;
// individual fields are further restricted by the lifecycle manager.
func (g Guard) CanWrite(p models.Principal, c *models.Complaint) bool {
	return g.CanRead(p, c)
}

// CanAssign reports whether p may change department or officer assignments
func (Guard) CanAssign(p models.Principal) bool {
	return p.Role == models.RoleAdmin || p.Role == models.RoleSupervisor
}

// CanClaim reports whether a supervisor may pull the unassigned complaint c
// into departmentID. It is the only way department staff touch a complaint
// nobody owns yet.
func (Guard) CanClaim(p models.Principal, c *models.Complaint, departmentID *int64) bool {
	return p.Role == models.RoleSupervisor && c.DepartmentID == nil && p.InDepartment(departmentID)
}

// Scope restricts listings and statistics to what p may read
func (Guard) Scope(p models.Principal) repository.Scope {
	switch p.Role {
	case models.RoleAdmin:
		return repository.Scope{}
	case models.RoleCitizen:
		id := p.UserID
		return repository.Scope{CitizenID: &id}
	case models.RoleOfficer, models.RoleSupervisor:
		if p.DepartmentID == nil {
			return repository.Scope{Deny: true}
		}
		dept := *p.DepartmentID
		return repository.Scope{DepartmentID: &dept}
	}
	return repository.Scope{Deny: true}
}

// Package policy holds the authorization decisions of the domain services.
// Every function decides from facts the caller has already loaded.
package policy

import "github.com/yukikurage/employee-admin-api/internal/models"

func IsAdministrator(role models.Role) bool {
	return role == models.RoleAdministrator
}

// CanAccessProject allows administrators and members of the project.
func CanAccessProject(role models.Role, isMember bool) bool {
	return IsAdministrator(role) || isMember
}

// CanActOnTask allows administrators and the task's appointee.
func CanActOnTask(role models.Role, callerID uint64, task models.Task) bool {
	return IsAdministrator(role) || callerID == task.AppointeeEmployeeID
}

// CanModifyUser allows administrators, and employees acting on themselves.
func CanModifyUser(requesterRole models.Role, requesterID, targetID uint64) bool {
	if IsAdministrator(requesterRole) {
		return true
	}
	return requesterRole == models.RoleEmployee && requesterID == targetID
}

func CanBeProjectMember(role models.Role) bool {
	return role == models.RoleEmployee
}

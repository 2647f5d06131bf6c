package services

import "skystore/models"

// CanAccess decides whether a principal may touch a resource with the given
// owner. It is the single access rule for read, write, list and move:
//
//   - admins may touch everything
//   - user-space resources belong to exactly one user
//   - group-space resources are open to members
//   - public-space resources are readable by any active account
//
// The function is pure; callers translate a false result into
// PermissionDenied.
func CanAccess(p models.Principal, owner models.Owner) bool {
	if p.Role == models.RoleAdmin {
		return true
	}

	switch owner.Space {
	case models.SpaceUser:
		return owner.UserID == p.ID
	case models.SpaceGroup:
		return p.Role == models.RoleMember
	case models.SpacePublic:
		return p.IsActive
	default:
		return false
	}
}

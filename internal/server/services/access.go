package services

import "github.com/fleetops/contractd/internal/server/models"

// Operation enumerates the contract operations subject to access policy.
type Operation int

const (
	OpList Operation = iota
	OpGet
	OpCreate
	OpUpdate
	OpDelete
)

// Allowed decides whether an actor may perform op on a record owned by
// ownerIdentity. It is a pure function of its arguments:
//
//	           user (owner)  user (non-owner)  admin
//	list       own records   —                 all records
//	get        allow         deny              allow
//	create     allow         —                 deny
//	update     allow         deny              deny
//	delete     allow         deny              allow
//
// Admins audit and clean up; they never author or edit.
func Allowed(op Operation, role models.Role, actorIdentity, ownerIdentity string) bool {
	isOwner := actorIdentity != "" && actorIdentity == ownerIdentity

	switch op {
	case OpList:
		return true
	case OpGet, OpDelete:
		return role == models.RoleAdmin || isOwner
	case OpCreate:
		return role == models.RoleUser
	case OpUpdate:
		return role == models.RoleUser && isOwner
	default:
		return false
	}
}

// ListScope returns the ownership predicate for listing: the actor's own
// identity for plain users, empty (unrestricted) for admins.
func ListScope(actor *models.User) string {
	if actor.IsAdmin() {
		return ""
	}
	return actor.ExternalID
}

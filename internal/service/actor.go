package service

import (
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	AccountID int64
	ProfileID int64
	Role      models.UserRole
}

// ActorFromClaims maps verified token claims onto an Actor.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{AccountID: claims.AccountID, ProfileID: claims.ProfileID, Role: claims.Role}
}

func (a Actor) accountRef() *int64 {
	if a.AccountID <= 0 {
		return nil
	}
	id := a.AccountID
	return &id
}

// authorizeClass lets admins through and restricts professors to the classes
// they teach.
func authorizeClass(actor Actor, class *models.Class) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleProfessor:
		if class.ProfessorID == actor.ProfileID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "you do not teach this class")
	default:
		return appErrors.ErrForbidden
	}
}

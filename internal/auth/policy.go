package auth

import (
	"fmt"

	"github.com/JonasLeetTheWay/eventreg-go/internal/apperr"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

// Principal is the authenticated caller. Services receive it explicitly.
type Principal struct {
	UserID uint
	Role   models.Role
	Name   string
	Email  string
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err turns a denial into a Forbidden error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden(d.Reason)
}

// RequireRole allows principals holding any of roles.
func RequireRole(p Principal, roles ...models.Role) Decision {
	for _, r := range roles {
		if p.Role == r {
			return allow()
		}
	}
	return deny(fmt.Sprintf("User role %s is not authorized to access this route", p.Role))
}

// CanRegister: organizers and admins never self-register.
func CanRegister(p Principal) Decision {
	if p.Role != models.RoleUser {
		return deny("Only regular users can register for events")
	}
	return allow()
}

// CanManageEvent covers update, delete and participant listing.
func CanManageEvent(p Principal, organizerID uint, action string) Decision {
	if p.IsAdmin() || p.UserID == organizerID {
		return allow()
	}
	return deny(fmt.Sprintf("Not authorized to %s", action))
}

// CanPayRegistration: only the owner marks a registration paid, admins included.
func CanPayRegistration(p Principal, ownerID uint) Decision {
	if p.UserID != ownerID {
		return deny("Not authorized to update this registration")
	}
	return allow()
}

// CanRecordPayment lets the owner or an admin record a payment.
func CanRecordPayment(p Principal, ownerID uint) Decision {
	if p.IsAdmin() || p.UserID == ownerID {
		return allow()
	}
	return deny("Not authorized to pay for this registration")
}

package services

import (
	"errors"

	"github.com/google/uuid"
)

var GuestUserID = uuid.Nil.String()

var ErrIdentityRequired = errors.New("identity required")

type IdentityKind string

const (
	IdentityUnauthenticated IdentityKind = "unauthenticated"
	IdentityGuest           IdentityKind = "guest"
	IdentityAuthenticated   IdentityKind = "authenticated"
)

type Identity struct {
	Kind   IdentityKind
	UserID string
}

func Unauthenticated() Identity {
	return Identity{Kind: IdentityUnauthenticated}
}

func Guest() Identity {
	return Identity{Kind: IdentityGuest, UserID: GuestUserID}
}

func Authenticated(userID string) Identity {
	return Identity{Kind: IdentityAuthenticated, UserID: userID}
}

func (identity Identity) IsAuthenticated() bool {
	return identity.Kind == IdentityAuthenticated && identity.UserID != ""
}

func (identity Identity) IsGuest() bool {
	return identity.Kind == IdentityGuest
}

func (identity Identity) OwnerID() (string, error) {
	switch {
	case identity.IsAuthenticated():
		return identity.UserID, nil
	case identity.IsGuest():
		return GuestUserID, nil
	default:
		return "", ErrIdentityRequired
	}
}

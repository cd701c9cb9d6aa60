package auth

import (
	"github.com/google/uuid"

	"github.com/staypay-jp/core/internal/model"
)

// Identity is the authenticated actor handed to every lifecycle call. The
// core trusts it once verified and only checks ownership and role against
// entity state.
type Identity struct {
	UserID        uuid.UUID
	Username      string
	Role          model.Role
	WalletAddress string
}

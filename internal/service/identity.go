package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/staypay-jp/core/internal/auth"
	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
)

// IdentityService implements registration and login for the identity
// boundary. The lifecycle engine never sees passwords or tokens, only the
// verified Identity.
type IdentityService struct {
	store  repository.Store
	tokens *auth.TokenManager
	log    *zap.Logger
}

func NewIdentityService(store repository.Store, tokens *auth.TokenManager, log *zap.Logger) *IdentityService {
	return &IdentityService{store: store, tokens: tokens, log: log}
}

type RegisterInput struct {
	Username      string
	Password      string
	Role          model.Role
	WalletAddress string
}

// Register creates a user with a bcrypt-hashed password and issues their
// first token. Username and wallet address must both be unused.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	if in.Username == "" || in.Password == "" || in.WalletAddress == "" {
		return nil, "", fmt.Errorf("%w: username, password and walletAddress are required", ErrValidation)
	}
	if !in.Role.Valid() {
		return nil, "", fmt.Errorf("%w: role must be guest, host or operator", ErrValidation)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	var user *model.User
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.UserByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: username is taken", ErrConflict)
		}
		existing, err = tx.UserByWallet(ctx, in.WalletAddress)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: wallet address is already registered", ErrConflict)
		}

		user = &model.User{
			Username:      in.Username,
			Password:      hash,
			Role:          in.Role,
			WalletAddress: in.WalletAddress,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		actorID := user.ID
		return appendAudit(ctx, tx, auditEntry{
			EntityType: model.EntityUser,
			EntityID:   user.ID,
			Action:     model.AuditActionCreated,
			ActorID:    &actorID,
			New: map[string]any{
				"username":      user.Username,
				"role":          user.Role,
				"walletAddress": user.WalletAddress,
			},
		})
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(identityOf(user))
	if err != nil {
		return nil, "", err
	}

	s.log.Info("user registered",
		zap.String("user", user.ID.String()),
		zap.String("role", string(user.Role)))
	return user, token, nil
}

// Login verifies the password and issues a token. Unknown username and wrong
// password are indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	if username == "" || password == "" {
		return nil, "", fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !auth.CheckPassword(user.Password, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(identityOf(user))
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func identityOf(u *model.User) auth.Identity {
	return auth.Identity{
		UserID:        u.ID,
		Username:      u.Username,
		Role:          u.Role,
		WalletAddress: u.WalletAddress,
	}
}

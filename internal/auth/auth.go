package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// DefaultRole is assigned to every account created through signup.
const DefaultRole = "staff"

// TokenGenerator creates and verifies access and refresh tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID int64, email string) (string, error)
	GenerateRefreshToken(userID int64, email string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

// Repository is the persistence the auth service needs. Lookups report a
// missing or deleted user as (nil, nil).
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	FindByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Create(ctx context.Context, user *userDatamodel.User) error
	SetRefreshToken(ctx context.Context, userID int64, digest *string) error
	AssignRole(ctx context.Context, userID int64, role string) error
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

// Account is the public view of a freshly created user.
type Account struct {
	ID    int64   `json:"id"`
	UUID  string  `json:"uuid"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

func toAccount(u *userDatamodel.User) Account {
	return Account{ID: u.ID, UUID: u.UUID, Email: u.Email, Name: u.Name}
}

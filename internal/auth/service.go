package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/permit-management/internal"
	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
)

// Service is the main auth service with dependencies
type Service struct {
	repo           Repository
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

// NewService creates a new auth service
func NewService(repo Repository, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Signup creates an account holding the default role.
func (s *Service) Signup(ctx context.Context, dto SignupDTO) (*Account, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	email := normalizeEmail(dto.Email)

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, internal.ErrEmailTaken
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &userDatamodel.User{
		UUID:         uuid.NewString(),
		Email:        email,
		Name:         dto.Name,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.repo.AssignRole(ctx, user.ID, DefaultRole); err != nil {
		return nil, fmt.Errorf("assign default role: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID, "uuid", user.UUID)
	account := toAccount(user)
	return &account, nil
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	user, err := s.repo.FindByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil {
		return AuthTokens{}, fmt.Errorf("lookup email: %w", err)
	}
	if user == nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(user.PasswordHash, dto.Password); err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// RefreshTokens validates refresh token and returns new tokens. The token
// must be the one most recently issued to the user.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || user.RefreshToken == nil || !digestMatches(*user.RefreshToken, refreshToken) {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	return s.issue(ctx, user)
}

// Logout forgets the user's refresh token so it can no longer be exchanged.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.repo.SetRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", userID)
	return nil
}

// Identify verifies an access token and returns the id of a live user.
func (s *Service) Identify(ctx context.Context, accessToken string) (int64, error) {
	claims, err := s.tokenGenerator.ValidateAccessToken(accessToken)
	if err != nil {
		return 0, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return 0, internal.ErrInvalidToken
	}
	return user.ID, nil
}

func (s *Service) issue(ctx context.Context, user *userDatamodel.User) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return AuthTokens{}, err
	}

	digest := tokenDigest(refreshToken)
	if err := s.repo.SetRefreshToken(ctx, user.ID, &digest); err != nil {
		return AuthTokens{}, fmt.Errorf("store refresh token: %w", err)
	}

	var expiresIn int64
	if g, ok := s.tokenGenerator.(*JWTTokenGenerator); ok {
		expiresIn = int64(g.AccessTokenTTL.Seconds())
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, email string) (string, error) {
	return j.sign(userID, email, tokenTypeAccess, j.AccessTokenTTL, j.AccessTokenSecret)
}

// GenerateRefreshToken creates a new refresh token
func (j *JWTTokenGenerator) GenerateRefreshToken(userID int64, email string) (string, error) {
	return j.sign(userID, email, tokenTypeRefresh, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID int64, email, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(userID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, tokenTypeAccess, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, tokenTypeRefresh, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) validate(tokenString, tokenType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.UserID <= 0 {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// tokenDigest is the form a refresh token takes in users.refresh_token.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func digestMatches(stored, token string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(tokenDigest(token))) == 1
}

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/permit-management/internal"
	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock Repository for testing
type mockRepository struct {
	users       map[int64]*userDatamodel.User
	roles       map[int64][]string
	nextID      int64
	returnError error
}

func newMockRepository() *mockRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
	return &mockRepository{
		users: map[int64]*userDatamodel.User{
			1: {ID: 1, UUID: "u-1", Email: "user@example.com", PasswordHash: string(hashedPassword)},
		},
		roles:  map[int64][]string{},
		nextID: 2,
	}
}

func (m *mockRepository) FindByEmail(_ context.Context, email string) (*userDatamodel.User, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) FindByID(_ context.Context, id int64) (*userDatamodel.User, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	return m.users[id], nil
}

func (m *mockRepository) Create(_ context.Context, user *userDatamodel.User) error {
	if m.returnError != nil {
		return m.returnError
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *mockRepository) SetRefreshToken(_ context.Context, userID int64, digest *string) error {
	if u, ok := m.users[userID]; ok {
		u.RefreshToken = digest
	}
	return nil
}

func (m *mockRepository) AssignRole(_ context.Context, userID int64, role string) error {
	m.roles[userID] = append(m.roles[userID], role)
	return nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		ctx           context.Context
		service       *Service
		mockRepo      *mockRepository
		tokenGen      *JWTTokenGenerator
		accessSecret  string        = "test-access-secret-0123456789abcdef"
		refreshSecret string        = "test-refresh-secret-0123456789abcdef"
		accessTTL     time.Duration = 15 * time.Minute
		refreshTTL    time.Duration = 24 * time.Hour
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockRepository()
		tokenGen = NewJWTTokenGenerator(accessSecret, refreshSecret, accessTTL, refreshTTL)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	ginkgo.Describe("Signup", func() {
		ginkgo.It("should create the user with a uuid, a hash and the default role", func() {
			name := "New Hire"
			account, err := service.Signup(ctx, SignupDTO{Email: " New@Example.com ", Password: "longenough", Name: &name})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(account.Email).To(gomega.Equal("new@example.com"))
			gomega.Expect(account.UUID).To(gomega.HaveLen(36))

			stored := mockRepo.users[account.ID]
			gomega.Expect(VerifyPassword(stored.PasswordHash, "longenough")).To(gomega.Succeed())
			gomega.Expect(mockRepo.roles[account.ID]).To(gomega.Equal([]string{DefaultRole}))
		})

		ginkgo.It("should reject a registered email", func() {
			_, err := service.Signup(ctx, SignupDTO{Email: "user@example.com", Password: "longenough"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrEmailTaken))
		})

		ginkgo.It("should reject a short password", func() {
			_, err := service.Signup(ctx, SignupDTO{Email: "x@example.com", Password: "short"})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return access and refresh tokens", func() {
				// Given
				dto := LoginDTO{Email: "user@example.com", Password: "correct_password"}

				// When
				tokens, err := service.Authenticate(ctx, dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.Equal(tokens.RefreshToken))
				gomega.Expect(tokens.ExpiresIn).To(gomega.Equal(int64(900)))
			})

			ginkgo.It("should store a digest of the refresh token", func() {
				tokens, err := service.Authenticate(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				stored := mockRepo.users[1].RefreshToken
				gomega.Expect(stored).ToNot(gomega.BeNil())
				gomega.Expect(*stored).To(gomega.Equal(tokenDigest(tokens.RefreshToken)))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should return error for unknown email", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "ghost@example.com", Password: "correct_password"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})

			ginkgo.It("should return error for invalid password", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "user@example.com", Password: "wrong"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})

			ginkgo.It("should return validation error for empty email", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Password: "x"})
				_, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
			})
		})

		ginkgo.It("should wrap repository errors", func() {
			mockRepo.returnError = errors.New("database connection failed")
			_, err := service.Authenticate(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("database connection failed")))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		var tokens AuthTokens

		ginkgo.BeforeEach(func() {
			var err error
			tokens, err = service.Authenticate(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("should return a new pair and rotate the stored digest", func() {
			fresh, err := service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(fresh.RefreshToken).ToNot(gomega.Equal(tokens.RefreshToken))

			_, err = service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should refuse an access token", func() {
			_, err := service.RefreshTokens(ctx, tokens.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should refuse after logout", func() {
			gomega.Expect(service.Logout(ctx, 1)).To(gomega.Succeed())
			_, err := service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should return error for malformed token", func() {
			_, err := service.RefreshTokens(ctx, "not.a.token")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("Identify", func() {
		ginkgo.It("should return the user id for a valid access token", func() {
			token, err := tokenGen.GenerateAccessToken(1, "user@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			userID, err := service.Identify(ctx, token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(userID).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("should reject a token for a user that no longer exists", func() {
			token, _ := tokenGen.GenerateAccessToken(99, "gone@example.com")
			_, err := service.Identify(ctx, token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should return error for expired token", func() {
			claims := &Claims{
				UserID:    1,
				TokenType: tokenTypeAccess,
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				},
			}
			expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(accessSecret))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Identify(ctx, expired)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("should reject a token signed with the refresh secret", func() {
			token, _ := tokenGen.GenerateRefreshToken(1, "user@example.com")
			_, err := service.Identify(ctx, token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})
})

var _ = ginkgo.Describe("AuthMiddleware", func() {
	var (
		handler  *Handler
		tokenGen *JWTTokenGenerator
		seen     int64
		next     http.Handler
	)

	ginkgo.BeforeEach(func() {
		tokenGen = NewJWTTokenGenerator("a-secret-0123456789abcdef0123456789", "r-secret-0123456789abcdef0123456789", time.Minute, time.Hour)
		discard := slog.New(slog.NewTextHandler(io.Discard, nil))
		service := NewService(newMockRepository(), tokenGen, bcrypt.MinCost, discard)
		handler = NewHandler(service, discard)
		seen = 0
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = internal.CurrentUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		})
	})

	ginkgo.It("should populate the identity context", func() {
		token, _ := tokenGen.GenerateAccessToken(1, "user@example.com")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/permits", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.AuthMiddleware(next).ServeHTTP(w, req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(seen).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("should answer 401 without a bearer token", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/permits", nil)
		w := httptest.NewRecorder()

		handler.AuthMiddleware(next).ServeHTTP(w, req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(seen).To(gomega.BeZero())
	})

	ginkgo.It("should answer 401 for a tampered token", func() {
		token, _ := tokenGen.GenerateAccessToken(1, "user@example.com")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/permits", nil)
		req.Header.Set("Authorization", "Bearer "+strings.TrimSuffix(token, token[len(token)-2:])+"xx")
		w := httptest.NewRecorder()

		handler.AuthMiddleware(next).ServeHTTP(w, req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
	})
})

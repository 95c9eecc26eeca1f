package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestionviaticos/viaticos/internal"
	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

type mockUserRepository struct {
	byEmail map[string]*userDatamodel.User
	byID    map[string]*userDatamodel.User

	updatedHash       string
	updatedMustChange *bool
}

func newMockUserRepository() *mockUserRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	users := []*userDatamodel.User{
		{ID: "u-prof", Email: "prof@example.com", PasswordHash: string(hash), Role: userDatamodel.RoleProfessional, IsActive: true},
		{ID: "u-admin", Email: "admin@example.com", PasswordHash: string(hash), Role: userDatamodel.RoleAdmin, IsActive: true},
		{ID: "u-gone", Email: "gone@example.com", PasswordHash: string(hash), Role: userDatamodel.RoleProfessional, IsActive: false},
	}

	m := &mockUserRepository{
		byEmail: make(map[string]*userDatamodel.User),
		byID:    make(map[string]*userDatamodel.User),
	}
	for _, u := range users {
		m.byEmail[u.Email] = u
		m.byID[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, mustChange bool) error {
	if _, ok := m.byID[id]; !ok {
		return internal.ErrUserNotFound
	}
	m.updatedHash = passwordHash
	m.updatedMustChange = &mustChange
	return nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		ctx     context.Context
		repo    *mockUserRepository
		service *Service
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		repo = newMockUserRepository()
		tokens := NewJWTTokenGenerator("access-secret", "refresh-secret", time.Minute, time.Hour)
		service = NewService(repo, tokens, bcrypt.MinCost, slog.Default())
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("returns tokens for valid credentials", func() {
			tokens, user, err := service.Authenticate(ctx, LoginDTO{
				Email:    "prof@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).NotTo(gomega.BeEmpty())
			gomega.Expect(tokens.RefreshToken).NotTo(gomega.BeEmpty())
			gomega.Expect(user.ID).To(gomega.Equal("u-prof"))
		})

		ginkgo.It("rejects a wrong password", func() {
			_, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "prof@example.com",
				Password: "wrong",
			})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("rejects an unknown email with the same error as a bad password", func() {
			_, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "nobody@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("rejects an inactive user even with a valid password", func() {
			_, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "gone@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})
	})

	ginkgo.Describe("tokens", func() {
		ginkgo.It("carries the role in the access token claims", func() {
			tokens, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "admin@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("u-admin"))
			gomega.Expect(claims.Role).To(gomega.Equal(userDatamodel.RoleAdmin))
		})

		ginkgo.It("does not accept a refresh token as an access token", func() {
			tokens, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "prof@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(tokens.RefreshToken)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("exchanges a refresh token for a new pair", func() {
			tokens, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "prof@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			renewed, err := service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(renewed.AccessToken).NotTo(gomega.BeEmpty())
		})

		ginkgo.It("refuses to refresh for a deactivated user", func() {
			tokens, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "prof@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			repo.byID["u-prof"].IsActive = false
			_, err = service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("ChangePassword", func() {
		ginkgo.It("replaces the hash and clears the must-change flag", func() {
			err := service.ChangePassword(ctx, "u-prof", ChangePasswordDTO{
				CurrentPassword: "correct_password",
				NewPassword:     "brand-new-password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(repo.updatedHash).NotTo(gomega.BeEmpty())
			gomega.Expect(*repo.updatedMustChange).To(gomega.BeFalse())

			err = bcrypt.CompareHashAndPassword([]byte(repo.updatedHash), []byte("brand-new-password"))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("requires the current password", func() {
			err := service.ChangePassword(ctx, "u-prof", ChangePasswordDTO{
				CurrentPassword: "wrong",
				NewPassword:     "brand-new-password",
			})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})
	})
})

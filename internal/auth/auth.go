package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	userDatamodel "github.com/gestionviaticos/viaticos/internal/core/datamodel/user"
)

// User is the authenticated principal handlers read from the request context.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == userDatamodel.RoleAdmin
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims are the JWT claims carried by both token kinds. Role travels in the
// token so the middleware can gate admin routes without a DB round trip.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates the two token kinds.
type TokenGenerator interface {
	GenerateAccessToken(user *userDatamodel.User) (string, error)
	GenerateRefreshToken(user *userDatamodel.User) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/service-workflow/internal/domain/entity"
)

const actorKey = "actor"

// Claims carries the acting user. The subject is the user id.
type Claims struct {
	Role            string `json:"role"`
	ServiceCenterID string `json:"sc,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// IssueToken signs a token for actor valid for ttl
func (a *Authenticator) IssueToken(actor entity.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:            actor.Role.String(),
		ServiceCenterID: actor.ServiceCenterID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses token and returns the actor it names
func (a *Authenticator) Verify(token string) (entity.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return entity.Actor{}, err
	}

	role := entity.Role(claims.Role)
	if !role.IsValid() {
		return entity.Actor{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	if claims.Subject == "" {
		return entity.Actor{}, errors.New("token has no subject")
	}
	return entity.Actor{
		UserID:          claims.Subject,
		Role:            role,
		ServiceCenterID: claims.ServiceCenterID,
	}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// actor on the context
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "authorization is required",
			})
			return
		}

		actor, err := a.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid or expired token",
			})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{}
}

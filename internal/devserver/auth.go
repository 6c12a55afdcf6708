package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

const (
	defaultTokenTTL = 24 * time.Hour
	ctxUserKey      = "tracker.user"
)

// claims are carried by every issued token.
type claims struct {
	TenantID string       `json:"tenantId,omitempty"`
	Role     tracker.Role `json:"role"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func (ti *tokenIssuer) issue(u tracker.UserProfile) (string, error) {
	now := ti.now()
	c := claims{
		TenantID: u.TenantID,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(ti.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (ti *tokenIssuer) verify(raw string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return ti.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if c.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &c, nil
}

// requireAuth rejects requests without a valid bearer token for an
// existing user and stores that user in the echo context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
		ctx, l := requestLog(c)
		cl, err := s.tokens.verify(raw)
		if err != nil {
			l.Debug(ctx, "rejected token", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}
		user, ok := s.store.User(cl.Subject)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "User no longer exists")
		}
		ctx = logging.WithUserID(ctx, user.ID)
		c.SetRequest(c.Request().WithContext(ctx))
		l.Trace(ctx, "token accepted", zap.String("role", string(user.Role)))
		c.Set(ctxUserKey, user)
		return next(c)
	}
}

func currentUser(c echo.Context) tracker.UserProfile {
	u, _ := c.Get(ctxUserKey).(tracker.UserProfile)
	return u
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if currentUser(c).Role != tracker.RoleTenantAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Only tenant admins can manage team members")
		}
		return next(c)
	}
}

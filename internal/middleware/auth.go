// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"labbook/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const defaultCookieName = "lb_session"

var cfg *config.Config

// InitMiddleware installs the config for auth and rebuilds Logger for the
// configured environment.
func InitMiddleware(c *config.Config) {
	cfg = c
	Logger = NewLogger(c.Env, os.Stdout)
}

// CookieName is the session cookie the API sets and the route guard checks.
func CookieName() string {
	if cfg == nil || cfg.AuthCookieName == "" {
		return defaultCookieName
	}
	return cfg.AuthCookieName
}

var (
	errMissingToken   = errors.New("Authorization header required")
	errInvalidHeader  = errors.New("Invalid authorization header format")
	errInvalidToken   = errors.New("Invalid or expired token")
	errInvalidClaims  = errors.New("Invalid token claims")
	errMissingSubject = errors.New("Invalid token structure - missing subject")
	errInvalidSubject = errors.New("Invalid user ID in token")
	errRevokedToken   = errors.New("Token has been revoked")
)

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errInvalidHeader
		}
		return parts[1], nil
	}
	if cookie := c.Cookies(CookieName()); cookie != "" {
		return cookie, nil
	}
	return "", errMissingToken
}

// Session is the validated content of a session token.
type Session struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker func(ctx context.Context, jti string) bool

var isRevoked RevocationChecker

// SetRevocationChecker installs the logout blacklist lookup. Nil disables it.
func SetRevocationChecker(fn RevocationChecker) {
	isRevoked = fn
}

// ParseSession validates a signed session token.
func ParseSession(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidClaims
	}

	// User ID lives in "sub" (RFC 7519 subject) as a decimal string
	subStr, ok := claims["sub"].(string)
	if !ok || subStr == "" {
		return nil, errMissingSubject
	}

	userIDVal, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil || userIDVal == 0 {
		return nil, errInvalidSubject
	}

	session := &Session{UserID: uint(userIDVal)}
	session.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	return session, nil
}

// ParseUserID validates a signed session token and returns its subject.
func ParseUserID(tokenString string) (uint, error) {
	session, err := ParseSession(tokenString)
	if err != nil {
		return 0, err
	}
	return session.UserID, nil
}

func authenticate(c *fiber.Ctx, tokenString string) (uint, error) {
	session, err := ParseSession(tokenString)
	if err != nil {
		return 0, err
	}
	if session.JTI != "" && isRevoked != nil && isRevoked(c.UserContext(), session.JTI) {
		return 0, errRevokedToken
	}
	return session.UserID, nil
}

// setUser stores the caller in locals and in the request context for logging.
func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

func unauthorized(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, err := TokenFromRequest(c)
	if err != nil {
		return unauthorized(c, err)
	}

	userID, err := authenticate(c, tokenString)
	if err != nil {
		return unauthorized(c, err)
	}

	setUser(c, userID)
	return c.Next()
}

// OptionalAuth sets userID when a valid token is present and never rejects.
func OptionalAuth(c *fiber.Ctx) error {
	if tokenString, err := TokenFromRequest(c); err == nil {
		if userID, err := authenticate(c, tokenString); err == nil {
			setUser(c, userID)
		}
	}
	return c.Next()
}

// WebSocketAuthRequired is middleware that validates JWT tokens from query parameters for WebSocket connections.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket upgrade
	tokenString := c.Query("token")
	if tokenString == "" {
		var err error
		tokenString, err = TokenFromRequest(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token required",
			})
		}
	}

	userID, err := authenticate(c, tokenString)
	if err != nil {
		return unauthorized(c, err)
	}

	setUser(c, userID)
	return c.Next()
}

// ProtectedPagePrefixes are the page routes that need a session.
var ProtectedPagePrefixes = []string{"/profile", "/experiment", "/problem", "/lab"}

// RouteGuard redirects page requests under the given prefixes to the landing
// page when no session cookie is present. The cookie is only checked for
// presence; API routes do full token validation.
func RouteGuard(prefixes ...string) fiber.Handler {
	if len(prefixes) == 0 {
		prefixes = ProtectedPagePrefixes
	}
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if !matchesPrefix(path, prefixes) {
			return c.Next()
		}
		if strings.TrimSpace(c.Cookies(CookieName())) != "" {
			return c.Next()
		}
		return c.Redirect("/?auth=required&next="+url.QueryEscape(path), fiber.StatusFound)
	}
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

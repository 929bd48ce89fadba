package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/skillpath-api/internal/utils"
)

// Locals keys populated by the JWT middlewares.
const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
)

// CareerTokenIssuer marks career handles signed by the career service. They may share the API
// secret but are never accepted as bearer credentials.
const CareerTokenIssuer = "skillpath-career"

var (
	errMissingAuthorization = errors.New("authorization header missing")
	errInvalidAuthorization = errors.New("invalid authorization header")
	errInvalidToken         = errors.New("invalid token")
)

// JWTProtected returns a middleware that requires a valid JWT bearer token.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, secret); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return c.Next()
	}
}

// JWTOptional populates the user locals when a valid bearer token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func JWTOptional(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := authenticate(c, secret)
		if err != nil && !errors.Is(err, errMissingAuthorization) {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return c.Next()
	}
}

func authenticate(c *fiber.Ctx, secret string) error {
	authorization := c.Get("Authorization")
	if authorization == "" {
		// Browsers cannot attach headers to a websocket handshake.
		if token := strings.TrimSpace(c.Query("access_token")); token != "" && strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
			authorization = "Bearer " + token
		}
	}
	if authorization == "" {
		return errMissingAuthorization
	}

	const bearer = "Bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return errInvalidAuthorization
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return errInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errInvalidToken
	}
	if issuer, _ := claims.GetIssuer(); issuer == CareerTokenIssuer {
		return fmt.Errorf("%w: career tokens cannot authenticate", errInvalidToken)
	}

	userID := extractUserIDFromClaims(claims)
	if userID == "" {
		return fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	c.Locals(LocalUserID, userID)
	if email, ok := claims["email"].(string); ok && strings.TrimSpace(email) != "" {
		c.Locals(LocalUserEmail, strings.TrimSpace(email))
	}

	return nil
}

// Subjects issued by the external sign-in provider are opaque strings; numeric ids are accepted too.
func extractUserIDFromClaims(claims jwt.MapClaims) string {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized := normalizeUserID(value); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

func normalizeUserID(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v < 0 || v != float64(int64(v)) {
			return ""
		}
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

// UserID returns the authenticated subject, or an empty string for anonymous requests.
func UserID(c *fiber.Ctx) string {
	if value, ok := c.Locals(LocalUserID).(string); ok {
		return value
	}
	return ""
}

package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JWTAuth validates bearer tokens and scopes the request to a tenant.
// The tenant id comes from the "tenant_id" claim, falling back to "sub"
// for tokens minted per tenant.
func JWTAuth(secret string, log zerolog.Logger) fiber.Handler {
	authLog := log.With().Str("component", "auth").Logger()

	return func(c *fiber.Ctx) error {
		if c.Method() == "OPTIONS" {
			return c.Next()
		}

		var tokenString string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization"})
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unsupported signing method: %v", token.Header["alg"])
			}
			if secret == "" {
				return nil, fmt.Errorf("JWT secret not configured")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			authLog.Warn().Err(err).Str("path", c.Path()).Msg("JWT validation failed")
			return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "invalid claims"})
		}

		if exp, ok := claims["exp"].(float64); ok {
			if time.Now().Unix() > int64(exp) {
				return c.Status(401).JSON(fiber.Map{
					"error": "token expired",
					"code":  "TOKEN_EXPIRED",
				})
			}
		}

		tenantStr, ok := claims["tenant_id"].(string)
		if !ok || tenantStr == "" {
			tenantStr, _ = claims["sub"].(string)
		}
		if tenantStr == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing tenant id in token"})
		}

		tenantID, err := uuid.Parse(tenantStr)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "invalid tenant id format"})
		}

		c.Locals("tenant_id", tenantID)
		c.Locals("claims", claims)

		return c.Next()
	}
}

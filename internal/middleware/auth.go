// Package middleware provides HTTP middleware for the fiber application,
// covering JWT authentication and role checks.
package middleware

import (
	"log"
	"strings"

	"streampay/internal/models"
	"streampay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// Auth validates the bearer token and stores the claims in the request
// context under "claims" and "userID".
func Auth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		log.Printf("token validation error: %v", err)
		return utils.Unauthorized(c, "invalid token")
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// AdminOnly rejects requests whose claims do not carry the admin role.
// It must run after Auth.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if !claims.IsAdmin() {
		return utils.Forbidden(c, "admin access required")
	}
	return c.Next()
}

// ClaimsFromContext returns the authenticated claims, or nil if Auth did
// not run for this request.
func ClaimsFromContext(c *fiber.Ctx) *models.UserClaims {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return nil
	}
	return claims
}

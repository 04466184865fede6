package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/httpx"
)

type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

func parseToken(c *fiber.Ctx) (*Claims, error) {
	authHeader := c.Get("Authorization")
	var tokenString string
	if authHeader != "" {
		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, jwt.ErrTokenMalformed
		}
		tokenString = parts[1]
	} else {
		tokenString = c.Cookies("lc_access")
		// EventSource cannot set headers, so the stream endpoint also
		// accepts the token as a query parameter.
		if tokenString == "" {
			tokenString = c.Query("token")
		}
	}

	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := parseToken(c)
		if err != nil {
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid or missing token")
		}

		c.Locals("userID", claims.UserID)
		c.Locals("role", claims.Role)
		c.Locals("branchID", claims.BranchID)
		return c.Next()
	}
}

// OptionalAuth resolves the user when a token is present but lets
// anonymous requests through. The tracking endpoint uses it so service
// workers can report events after a session expires.
func OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, err := parseToken(c); err == nil {
			c.Locals("userID", claims.UserID)
			c.Locals("role", claims.Role)
			c.Locals("branchID", claims.BranchID)
		}
		return c.Next()
	}
}

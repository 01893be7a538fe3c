package middleware

import (
	"github.com/fixlify/homeservices-api/bookings"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Protected validates the bearer JWT. Token issuance lives outside this
// service; only {user_id, role} claims are consumed here.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// Principal extracts the authenticated caller from the validated token.
func Principal(c *fiber.Ctx) bookings.Principal {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	id, _ := uuid.Parse(claims["user_id"].(string))
	role, _ := claims["role"].(string)
	return bookings.Principal{ID: id, Role: role}
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Principal(c).Role != bookings.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}

func WorkerRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Principal(c).Role != bookings.RoleWorker {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Worker access required",
			})
		}
		return c.Next()
	}
}

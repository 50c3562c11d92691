package emergency

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	app.Post("/api/sos/activate", authMiddleware, func(c *fiber.Ctx) error {
		var req ActivateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "user identity required")
		}
		grant, err := svc.Activate(c.Context(), userID, req.Lat, req.Lng)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(grant)
	})

	// Updates authenticate by token alone so a broadcast survives an
	// expired access token mid-emergency.
	app.Post("/api/sos/update", func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Token == "" {
			return fiber.NewError(fiber.StatusBadRequest, "token required")
		}
		if err := svc.UpdateLocation(c.Context(), req.Token, req.Lat, req.Lng, req.IsStationary); err != nil {
			return tokenError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/api/sos/deactivate", authMiddleware, func(c *fiber.Ctx) error {
		var req DeactivateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Token == "" {
			return fiber.NewError(fiber.StatusBadRequest, "token required")
		}
		if err := svc.Deactivate(c.Context(), req.Token); err != nil {
			return tokenError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Guardian view resolves without authentication: the token itself is
	// the capability.
	app.Get("/guardian/:token", func(c *fiber.Ctx) error {
		snap, err := svc.Status(c.Context(), c.Params("token"))
		if err != nil {
			return tokenError(err)
		}
		return c.JSON(snap)
	})
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "unknown token")
	case errors.Is(err, ErrEnded):
		return fiber.NewError(fiber.StatusGone, "session ended")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

package feedback

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	app.Post("/api/feedback", authMiddleware, func(c *fiber.Ctx) error {
		var req SubmitRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.SegmentID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "segment_id required")
		}
		userID, _ := c.Locals("user_id").(string)
		score, err := svc.Submit(c.Context(), userID, req)
		if err != nil {
			if errors.Is(err, ErrSegmentNotFound) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(SubmitResponse{
			Success:   true,
			SegmentID: req.SegmentID,
			NewScore:  score.Score,
			Message:   scoreMessage(req.SegmentID, score.Score),
		})
	})

	app.Post("/api/feedback/bulk", authMiddleware, func(c *fiber.Ctx) error {
		var req BulkRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		userID, _ := c.Locals("user_id").(string)
		updated, err := svc.SubmitBulk(c.Context(), userID, req)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(BulkResponse{
			Success:         true,
			SegmentsUpdated: updated,
			Message:         fmt.Sprintf("Successfully rated %d roads!", updated),
		})
	})

	app.Get("/api/heatmap", func(c *fiber.Ctx) error {
		payload, err := svc.Heatmap(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set("Content-Type", "application/json")
		return c.Send(payload)
	})

	app.Get("/api/tags", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"negative": NegativeTags,
			"positive": PositiveTags,
		})
	})

	app.Get("/api/health", func(c *fiber.Ctx) error {
		scored, total, err := svc.Counts(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{
			"status":          "ok",
			"scored_segments": scored,
			"total_feedback":  total,
		})
	})
}

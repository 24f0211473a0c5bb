package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/osint-brain/backend/internal/brain"
	"github.com/osint-brain/backend/internal/investigation"
	"github.com/osint-brain/backend/internal/report"
	"github.com/osint-brain/backend/pkg/logger"
)

type InvestigateHandler struct {
	brain *brain.Brain
}

func NewInvestigateHandler(b *brain.Brain) *InvestigateHandler {
	return &InvestigateHandler{brain: b}
}

func (h *InvestigateHandler) HandleInvestigate(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	rep, err := h.brain.Investigate(c.Context(), req.Query)
	if err != nil {
		if errors.Is(err, investigation.ErrMalformedQuery) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No investigable targets found in query",
			})
		}
		logger.Error("Investigation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Investigation failed",
		})
	}

	doc, err := report.Document(rep)
	if err != nil {
		logger.Error("Failed to render report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to render report",
		})
	}

	return c.JSON(doc)
}

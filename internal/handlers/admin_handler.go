package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/mingle-app/mingle-backend/internal/dto"
	"github.com/mingle-app/mingle-backend/internal/models"
)

type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// ListSystemLogs returns the most recent ERROR+ log rows, newest first.
func (h *AdminHandler) ListSystemLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var logs []models.SystemLog
	if err := h.db.WithContext(c.UserContext()).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load system logs",
		})
	}

	return c.JSON(fiber.Map{"logs": logs, "count": len(logs)})
}

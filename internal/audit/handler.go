package audit

import (
	"proptrack-backend/internal/api"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GET /api/audit-logs?entityType=viewing&entityId=1&userId=2&action=update
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Queries()
		page := api.PageFromQuery(q)

		dbq := db.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if uid := api.Uint(q["userId"]); uid != nil {
			dbq = dbq.Where("user_id = ?", *uid)
		}
		if et := q["entityType"]; et != "" {
			dbq = dbq.Where("entity_type = ?", et)
		}
		if eid := api.Uint(q["entityId"]); eid != nil {
			dbq = dbq.Where("entity_id = ?", *eid)
		}
		if action := q["action"]; action != "" {
			dbq = dbq.Where("action = ?", action)
		}

		// Count ve Find aynı koşulları ayrı statement'larla kullanır
		dbq = dbq.Session(&gorm.Session{})

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return err
		}

		logs := make([]models.AuditLog, 0, page.Size)
		if err := dbq.Order("created_at DESC").Offset(page.Offset()).Limit(page.Size).Find(&logs).Error; err != nil {
			return err
		}

		return api.List(c, logs, api.NewPagination(page, total), "totalLogs")
	}
}

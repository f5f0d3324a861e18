package viewing

import (
	"strings"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/database"
	"proptrack-backend/internal/models"

	"gorm.io/gorm"
)

var sortColumns = map[string]string{
	"scheduledAt": "scheduled_at",
	"createdAt":   "created_at",
	"duration":    "duration",
	"priority":    "priority",
}

type Filter struct {
	PropertyID *uint
	ClientID   *uint
	Type       string
	Priority   string
	Statuses   []string
	IsActive   *bool

	From, To *time.Time
	Upcoming bool
	Now      time.Time

	Search string
	Sort   api.Sort
}

func FilterFromQuery(q map[string]string, loc *time.Location, now time.Time) Filter {
	f := Filter{
		PropertyID: api.Uint(q["propertyId"]),
		ClientID:   api.Uint(q["clientId"]),
		Type:       q["type"],
		Priority:   q["priority"],
		Statuses:   api.CSV(q["status"]),
		Now:        now,
		Search:     strings.TrimSpace(q["search"]),
		// takvim görünümü için en yakın randevu önce
		Sort: api.SortFromQuery(q, sortColumns, api.Sort{Column: "scheduled_at"}),
	}
	f.From, f.To = api.DayRange(q["dateFrom"], q["dateTo"], loc)

	if up := api.Bool(q["upcoming"]); up != nil {
		f.Upcoming = *up
	}

	switch v := q["isActive"]; v {
	case "all":
	case "":
		active := true
		f.IsActive = &active
	default:
		f.IsActive = api.Bool(v)
	}

	return f
}

func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	if f.PropertyID != nil {
		db = db.Where("property_id = ?", *f.PropertyID)
	}
	if f.ClientID != nil {
		db = db.Where("client_id = ?", *f.ClientID)
	}
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.Priority != "" {
		db = db.Where("priority = ?", f.Priority)
	}
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", f.Statuses)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.From != nil {
		db = db.Where("scheduled_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("scheduled_at < ?", *f.To)
	}
	if f.Upcoming {
		db = db.Where("scheduled_at >= ? AND status IN ?", f.Now, models.ActiveViewingStatuses)
	}
	if f.Search != "" {
		db = db.Where("agent_notes ILIKE ?", database.Contains(f.Search))
	}
	return db
}

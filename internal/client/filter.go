package client

import (
	"strings"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/database"

	"gorm.io/gorm"
)

var sortColumns = map[string]string{
	"createdAt":      "created_at",
	"name":           "name",
	"priority":       "priority",
	"status":         "status",
	"nextFollowUpAt": "next_follow_up_at",
}

// Filter GET /api/clients query parametreleri.
type Filter struct {
	PropertyID  *uint
	InquiryType string
	Priority    string
	Source      string
	Statuses    []string
	IsActive    *bool // nil ise aktif/pasif hepsi

	MinBudget, MaxBudget *float64
	From, To             *time.Time

	FollowUpDue bool
	Now         time.Time

	Search string
	Sort   api.Sort
}

func FilterFromQuery(q map[string]string, loc *time.Location, now time.Time) Filter {
	f := Filter{
		PropertyID:  api.Uint(q["propertyId"]),
		InquiryType: q["inquiryType"],
		Priority:    q["priority"],
		Source:      q["source"],
		Statuses:    api.CSV(q["status"]),
		MinBudget:   api.Float(q["minBudget"]),
		MaxBudget:   api.Float(q["maxBudget"]),
		Now:         now,
		Search:      strings.TrimSpace(q["search"]),
		Sort:        api.SortFromQuery(q, sortColumns, api.Sort{Column: "created_at", Desc: true}),
	}
	f.From, f.To = api.DayRange(q["dateFrom"], q["dateTo"], loc)

	if due := api.Bool(q["followUpDue"]); due != nil {
		f.FollowUpDue = *due
	}

	// silinen (pasif) kayıtlar varsayılan olarak gizlenir
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
	if f.InquiryType != "" {
		db = db.Where("inquiry_type = ?", f.InquiryType)
	}
	if f.Priority != "" {
		db = db.Where("priority = ?", f.Priority)
	}
	if f.Source != "" {
		db = db.Where("source = ?", f.Source)
	}
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", f.Statuses)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}

	if f.MinBudget != nil {
		db = db.Where("budget_min >= ?", *f.MinBudget)
	}
	if f.MaxBudget != nil {
		db = db.Where("budget_max <= ?", *f.MaxBudget)
	}
	if f.From != nil {
		db = db.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("created_at < ?", *f.To)
	}

	if f.FollowUpDue {
		db = db.Where("next_follow_up_at IS NOT NULL AND next_follow_up_at <= ?", f.Now)
	}

	if f.Search != "" {
		pattern := database.Contains(f.Search)
		db = db.Where("(name ILIKE ? OR email ILIKE ? OR phone ILIKE ? OR message ILIKE ?)",
			pattern, pattern, pattern, pattern)
	}

	return db
}

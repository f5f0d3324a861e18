package property

import (
	"strings"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/database"
	"proptrack-backend/internal/models"

	"gorm.io/gorm"
)

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"price":     "price",
	"area":      "area",
	"bedrooms":  "bedrooms",
	"title":     "title",
}

// Filter GET /api/properties query parametrelerinin çözülmüş hali.
type Filter struct {
	Types       []string
	ListingType string
	Statuses    []string // boş ise durum filtresi yok
	Featured    *bool
	AgentID     *uint

	MinPrice, MaxPrice         *float64
	MinBedrooms, MaxBedrooms   *int
	MinBathrooms, MaxBathrooms *int
	MinArea, MaxArea           *float64

	City, State, Address string
	Amenities            []string
	Search               string

	Sort api.Sort
}

func FilterFromQuery(q map[string]string) Filter {
	f := Filter{
		ListingType:  q["listingType"],
		Featured:     api.Bool(q["featured"]),
		AgentID:      api.Uint(q["agent"]),
		MinPrice:     api.Float(q["minPrice"]),
		MaxPrice:     api.Float(q["maxPrice"]),
		MinBedrooms:  api.Int(q["minBedrooms"]),
		MaxBedrooms:  api.Int(q["maxBedrooms"]),
		MinBathrooms: api.Int(q["minBathrooms"]),
		MaxBathrooms: api.Int(q["maxBathrooms"]),
		MinArea:      api.Float(q["minArea"]),
		MaxArea:      api.Float(q["maxArea"]),
		City:         strings.TrimSpace(q["city"]),
		State:        strings.TrimSpace(q["state"]),
		Address:      strings.TrimSpace(q["address"]),
		Amenities:    api.CSV(strings.ToLower(q["amenities"])),
		Search:       strings.TrimSpace(q["search"]),
		Sort:         api.SortFromQuery(q, sortColumns, api.Sort{Column: "created_at", Desc: true}),
	}

	f.Types = append(api.CSV(q["type"]), api.CSV(q["types"])...)

	// Listeleme varsayılan olarak sadece aktif ilanları gösterir
	switch status := q["status"]; status {
	case "":
		f.Statuses = []string{string(models.PropertyStatusActive)}
	case "all":
		f.Statuses = nil
	default:
		f.Statuses = api.CSV(status)
	}

	return f
}

// Apply filtreyi sorguya uygular. Sıralama ve sayfalama dahil değildir, Count ile paylaşılır.
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	switch len(f.Types) {
	case 0:
	case 1:
		db = db.Where("type = ?", f.Types[0])
	default:
		db = db.Where("type IN ?", f.Types)
	}
	if f.ListingType != "" {
		db = db.Where("listing_type = ?", f.ListingType)
	}
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", f.Statuses)
	}
	if f.Featured != nil {
		db = db.Where("featured = ?", *f.Featured)
	}
	if f.AgentID != nil {
		db = db.Where("agent_id = ?", *f.AgentID)
	}

	db = database.Range(db, "price", f.MinPrice, f.MaxPrice)
	db = database.Range(db, "bedrooms", f.MinBedrooms, f.MaxBedrooms)
	db = database.Range(db, "bathrooms", f.MinBathrooms, f.MaxBathrooms)
	db = database.Range(db, "area", f.MinArea, f.MaxArea)

	if f.City != "" {
		db = db.Where("location_city ILIKE ?", database.Contains(f.City))
	}
	if f.State != "" {
		db = db.Where("location_state ILIKE ?", database.Contains(f.State))
	}
	if f.Address != "" {
		db = db.Where("location_address ILIKE ?", database.Contains(f.Address))
	}

	if len(f.Amenities) > 0 {
		conds := make([]string, 0, len(f.Amenities))
		args := make([]any, 0, len(f.Amenities))
		for _, a := range f.Amenities {
			conds = append(conds, "amenities @> ?::jsonb")
			args = append(args, database.JSONArray(a))
		}
		db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	if f.Search != "" {
		db = db.Where(
			"to_tsvector('english', coalesce(title, '') || ' ' || coalesce(description, '')) @@ plainto_tsquery('english', ?)",
			f.Search,
		)
	}

	return db
}

// CacheParams filtrenin cache anahtarına girecek temsilini döner.
func CacheParams(q map[string]string) map[string]string {
	params := make(map[string]string, len(q))
	for k, v := range q {
		if v != "" {
			params[k] = v
		}
	}
	return params
}

package property

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/audit"
	"proptrack-backend/internal/auth"
	"proptrack-backend/internal/cache"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const cacheNamespace = "properties"

// -------------------------
// Request Types
// -------------------------

type CoordinatesRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type LocationRequest struct {
	Address     string             `json:"address" validate:"required,max=255"`
	City        string             `json:"city" validate:"required,max=100"`
	State       string             `json:"state" validate:"required,max=100"`
	ZipCode     string             `json:"zipCode" validate:"max=20"`
	Coordinates CoordinatesRequest `json:"coordinates"`
}

type CreatePropertyRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required"`
	Price       *float64        `json:"price" validate:"required,gte=0"`
	Location    LocationRequest `json:"location"`
	Type        string          `json:"type" validate:"required,oneof=apartment villa townhouse penthouse studio duplex office shop warehouse land building hotel_apartment other"`
	ListingType string          `json:"listingType" validate:"required,oneof=sale rent"`
	Bedrooms    int             `json:"bedrooms" validate:"gte=0,lte=20"`
	Bathrooms   int             `json:"bathrooms" validate:"gte=0,lte=20"`
	Area        float64         `json:"area" validate:"required,gte=1"`
	Amenities   []string        `json:"amenities" validate:"omitempty,dive,required,max=60"`
	Images      []string        `json:"images" validate:"omitempty,dive,url"`
	Status      string          `json:"status" validate:"omitempty,oneof=active archived sold rented pending"`
	Featured    bool            `json:"featured"`
}

type UpdatePropertyRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,min=1"`
	Price       *float64         `json:"price" validate:"omitempty,gte=0"`
	Location    *LocationRequest `json:"location"`
	Type        *string          `json:"type" validate:"omitempty,oneof=apartment villa townhouse penthouse studio duplex office shop warehouse land building hotel_apartment other"`
	ListingType *string          `json:"listingType" validate:"omitempty,oneof=sale rent"`
	Bedrooms    *int             `json:"bedrooms" validate:"omitempty,gte=0,lte=20"`
	Bathrooms   *int             `json:"bathrooms" validate:"omitempty,gte=0,lte=20"`
	Area        *float64         `json:"area" validate:"omitempty,gte=1"`
	Amenities   []string         `json:"amenities" validate:"omitempty,dive,required,max=60"`
	Images      []string         `json:"images" validate:"omitempty,dive,url"`
	Status      *string          `json:"status" validate:"omitempty,oneof=active archived sold rented pending"`
	Featured    *bool            `json:"featured"`
}

func (l LocationRequest) toModel() models.Location {
	return models.Location{
		Address: strings.TrimSpace(l.Address),
		City:    strings.TrimSpace(l.City),
		State:   strings.TrimSpace(l.State),
		ZipCode: strings.TrimSpace(l.ZipCode),
		Coordinates: models.Coordinates{
			Latitude:  l.Coordinates.Latitude,
			Longitude: l.Coordinates.Longitude,
		},
	}
}

func (r CreatePropertyRequest) toModel(agentID uint) models.Property {
	property := models.Property{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		Location:    r.Location.toModel(),
		Type:        models.PropertyType(r.Type),
		ListingType: models.ListingType(r.ListingType),
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		Area:        r.Area,
		Amenities:   normalizeAmenities(r.Amenities),
		Images:      datatypes.NewJSONSlice(r.Images),
		Status:      models.PropertyStatusActive,
		Featured:    r.Featured,
		AgentID:     agentID,
	}
	if r.Price != nil {
		property.Price = *r.Price
	}
	if r.Status != "" {
		property.Status = models.PropertyStatus(r.Status)
	}
	if property.Images == nil {
		property.Images = datatypes.NewJSONSlice([]string{})
	}
	return property
}

// normalizeAmenities tekrarları ve boşlukları temizler; sıra korunur.
func normalizeAmenities(in []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return datatypes.NewJSONSlice(out)
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid property id")
	}
	return uint(id), nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Property not found")
	}
	return err
}

// loadOwned ilanı getirir ve çağıranın ilan sahibi danışman olduğunu doğrular.
func loadOwned(c *fiber.Ctx, store Store) (*models.Property, auth.Principal, error) {
	p, err := auth.CurrentUser(c)
	if err != nil {
		return nil, p, err
	}
	id, err := parseID(c)
	if err != nil {
		return nil, p, err
	}
	property, err := store.Get(c.UserContext(), id)
	if err != nil {
		return nil, p, notFoundOr(err)
	}
	if property.AgentID != p.ID {
		return nil, p, fiber.NewError(fiber.StatusForbidden, "You are not the agent of this property")
	}
	return property, p, nil
}

func snapshot(p *models.Property) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID,
		"title":       p.Title,
		"price":       p.Price,
		"type":        p.Type,
		"listingType": p.ListingType,
		"status":      p.Status,
		"featured":    p.Featured,
		"city":        p.Location.City,
		"state":       p.Location.State,
	}
}

func invalidate(c *fiber.Ctx, ch cache.Cache) {
	if err := ch.Bump(c.UserContext(), cacheNamespace); err != nil {
		log.Printf("[WARN] property cache geçersiz kılınamadı: %v", err)
	}
}

// -------------------------
// Property CRUD
// -------------------------

// POST /api/properties
func CreatePropertyHandler(store Store, ch cache.Cache, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreatePropertyRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}

		property := body.toModel(p.ID)

		if err := store.Create(c.UserContext(), &property); err != nil {
			return err
		}
		invalidate(c, ch)

		audit.Record(c.UserContext(), aw, audit.LogOptions{
			UserID:      p.ID,
			UserName:    p.Name,
			EntityType:  "property",
			EntityID:    property.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Property created: %s - %.0f AED", property.Title, property.Price),
			After:       snapshot(&property),
		})

		return api.Created(c, property)
	}
}

type listResult struct {
	Data  []models.Property `json:"data"`
	Total int64             `json:"total"`
}

// GET /api/properties
func ListPropertiesHandler(store Store, ch cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Queries()
		filter := FilterFromQuery(q)
		page := api.PageFromQuery(q)

		key := ch.Key(c.UserContext(), cacheNamespace+":list", CacheParams(q))
		var cached listResult
		if hit, err := ch.Get(c.UserContext(), key, &cached); err != nil {
			log.Printf("[WARN] property cache okunamadı: %v", err)
		} else if hit {
			return api.List(c, cached.Data, api.NewPagination(page, cached.Total), "totalProperties")
		}

		properties, total, err := store.List(c.UserContext(), filter, page)
		if err != nil {
			return err
		}

		if err := ch.Set(c.UserContext(), key, listResult{Data: properties, Total: total}); err != nil {
			log.Printf("[WARN] property cache yazılamadı: %v", err)
		}

		return api.List(c, properties, api.NewPagination(page, total), "totalProperties")
	}
}

// GET /api/properties/:id
func GetPropertyHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		property, err := store.Get(c.UserContext(), id)
		if err != nil {
			return notFoundOr(err)
		}
		return api.OK(c, property)
	}
}

// PUT /api/properties/:id
func UpdatePropertyHandler(store Store, ch cache.Cache, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		property, p, err := loadOwned(c, store)
		if err != nil {
			return err
		}

		var body UpdatePropertyRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}

		before := snapshot(property)

		if body.Title != nil {
			property.Title = strings.TrimSpace(*body.Title)
		}
		if body.Description != nil {
			property.Description = strings.TrimSpace(*body.Description)
		}
		if body.Price != nil {
			property.Price = *body.Price
		}
		if body.Location != nil {
			if err := api.Validate(body.Location); err != nil {
				return err
			}
			property.Location = body.Location.toModel()
		}
		if body.Type != nil {
			property.Type = models.PropertyType(*body.Type)
		}
		if body.ListingType != nil {
			property.ListingType = models.ListingType(*body.ListingType)
		}
		if body.Bedrooms != nil {
			property.Bedrooms = *body.Bedrooms
		}
		if body.Bathrooms != nil {
			property.Bathrooms = *body.Bathrooms
		}
		if body.Area != nil {
			property.Area = *body.Area
		}
		if body.Amenities != nil {
			property.Amenities = normalizeAmenities(body.Amenities)
		}
		if body.Images != nil {
			property.Images = datatypes.NewJSONSlice(body.Images)
		}
		// durum geçişleri serbest: enum içindeki her değer atanabilir
		if body.Status != nil {
			property.Status = models.PropertyStatus(*body.Status)
		}
		if body.Featured != nil {
			property.Featured = *body.Featured
		}

		if err := store.Save(c.UserContext(), property); err != nil {
			return err
		}
		invalidate(c, ch)

		audit.Record(c.UserContext(), aw, audit.LogOptions{
			UserID:      p.ID,
			UserName:    p.Name,
			EntityType:  "property",
			EntityID:    property.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Property updated: %s", property.Title),
			Before:      before,
			After:       snapshot(property),
		})

		return api.OK(c, property)
	}
}

// DELETE /api/properties/:id
func DeletePropertyHandler(store Store, ch cache.Cache, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		property, p, err := loadOwned(c, store)
		if err != nil {
			return err
		}

		if err := store.Delete(c.UserContext(), property.ID); err != nil {
			return notFoundOr(err)
		}
		invalidate(c, ch)

		audit.Record(c.UserContext(), aw, audit.LogOptions{
			UserID:      p.ID,
			UserName:    p.Name,
			EntityType:  "property",
			EntityID:    property.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Property deleted: %s", property.Title),
			Before:      snapshot(property),
		})

		return api.Message(c, "Property deleted successfully")
	}
}

// GET /api/properties/:id/similar?limit=N
func SimilarPropertiesHandler(resolver *SimilarResolver, ch cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		limit := c.QueryInt("limit", DefaultSimilarLimit)

		key := ch.Key(c.UserContext(), cacheNamespace+":similar", map[string]string{
			"id":    strconv.FormatUint(uint64(id), 10),
			"limit": strconv.Itoa(limit),
		})
		var cached []models.Property
		if hit, err := ch.Get(c.UserContext(), key, &cached); err != nil {
			log.Printf("[WARN] similar cache okunamadı: %v", err)
		} else if hit {
			return api.OK(c, cached)
		}

		similar, err := resolver.Resolve(c.UserContext(), id, limit)
		if err != nil {
			return notFoundOr(err)
		}

		if err := ch.Set(c.UserContext(), key, similar); err != nil {
			log.Printf("[WARN] similar cache yazılamadı: %v", err)
		}
		return api.OK(c, similar)
	}
}

// GET /api/properties/stats
func PropertyStatsHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := store.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return api.OK(c, stats)
	}
}

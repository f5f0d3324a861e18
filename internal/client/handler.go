package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/audit"
	"proptrack-backend/internal/auth"
	"proptrack-backend/internal/config"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PropertyLookup inquiry'nin bağlandığı ilanın varlığını kontrol eder.
type PropertyLookup interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

type BudgetRequest struct {
	Min *float64 `json:"min" validate:"omitempty,gte=0"`
	Max *float64 `json:"max" validate:"omitempty,gte=0"`
}

type RequirementsRequest struct {
	Bedrooms      *int     `json:"bedrooms" validate:"omitempty,gte=0,lte=20"`
	Bathrooms     *int     `json:"bathrooms" validate:"omitempty,gte=0,lte=20"`
	PropertyTypes []string `json:"propertyTypes" validate:"omitempty,dive,oneof=apartment villa townhouse penthouse studio duplex office shop warehouse land building hotel_apartment other"`
	Locations     []string `json:"locations" validate:"omitempty,dive,required,max=100"`
	MustHave      []string `json:"mustHave" validate:"omitempty,dive,required,max=60"`
}

// CreateClientRequest public inquiry formu.
type CreateClientRequest struct {
	Name         string               `json:"name" validate:"required,max=100"`
	Email        string               `json:"email" validate:"required,email,max=100"`
	Phone        string               `json:"phone" validate:"required,min=7,max=30"`
	Message      string               `json:"message" validate:"max=2000"`
	PropertyID   uint                 `json:"propertyId" validate:"required"`
	InquiryType  string               `json:"inquiryType" validate:"omitempty,oneof=general viewing pricing availability investment"`
	Source       string               `json:"source" validate:"omitempty,oneof=website phone email referral social_media walk_in other"`
	Budget       *BudgetRequest       `json:"budget"`
	Requirements *RequirementsRequest `json:"requirements"`
}

type UpdateClientRequest struct {
	Name           *string              `json:"name" validate:"omitempty,min=1,max=100"`
	Email          *string              `json:"email" validate:"omitempty,email,max=100"`
	Phone          *string              `json:"phone" validate:"omitempty,min=7,max=30"`
	Message        *string              `json:"message" validate:"omitempty,max=2000"`
	InquiryType    *string              `json:"inquiryType" validate:"omitempty,oneof=general viewing pricing availability investment"`
	Status         *string              `json:"status" validate:"omitempty,oneof=new contacted qualified scheduled viewed negotiating closed lost"`
	Priority       *string              `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Source         *string              `json:"source" validate:"omitempty,oneof=website phone email referral social_media walk_in other"`
	Budget         *BudgetRequest       `json:"budget"`
	Requirements   *RequirementsRequest `json:"requirements"`
	NextFollowUpAt *time.Time           `json:"nextFollowUpAt"`
}

type NoteRequest struct {
	Note string `json:"note" validate:"required,max=2000"`
}

func (b *BudgetRequest) check() error {
	if b != nil && b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		return api.NewDetailError(fiber.StatusBadRequest, "Validation failed", "budget.min cannot exceed budget.max")
	}
	return nil
}

func (b *BudgetRequest) toModel() models.Budget {
	if b == nil {
		return models.Budget{}
	}
	return models.Budget{Min: b.Min, Max: b.Max}
}

func (r *RequirementsRequest) toModel() datatypes.JSONType[models.ClientRequirements] {
	if r == nil {
		return datatypes.NewJSONType(models.ClientRequirements{})
	}
	return datatypes.NewJSONType(models.ClientRequirements{
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		PropertyTypes: r.PropertyTypes,
		Locations:     r.Locations,
		MustHave:      r.MustHave,
	})
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid client id")
	}
	return uint(id), nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Client not found")
	}
	return err
}

func snapshot(cl *models.Client) map[string]interface{} {
	return map[string]interface{}{
		"id":          cl.ID,
		"name":        cl.Name,
		"email":       cl.Email,
		"propertyId":  cl.PropertyID,
		"status":      cl.Status,
		"priority":    cl.Priority,
		"inquiryType": cl.InquiryType,
		"isActive":    cl.IsActive,
	}
}

// -------------------------
// Handlers
// -------------------------

// POST /api/clients (public)
func CreateClientHandler(store Store, properties PropertyLookup, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateClientRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}
		if err := body.Budget.check(); err != nil {
			return err
		}

		ok, err := properties.Exists(c.UserContext(), body.PropertyID)
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "Property not found")
		}

		cl := models.Client{
			Name:         strings.TrimSpace(body.Name),
			Email:        strings.ToLower(strings.TrimSpace(body.Email)),
			Phone:        strings.TrimSpace(body.Phone),
			Message:      strings.TrimSpace(body.Message),
			PropertyID:   body.PropertyID,
			InquiryType:  models.InquiryGeneral,
			Status:       models.ClientStatusNew,
			Priority:     models.PriorityMedium,
			Budget:       body.Budget.toModel(),
			Requirements: body.Requirements.toModel(),
			AgentNotes:   datatypes.NewJSONSlice([]models.AgentNote{}),
			Source:       models.SourceWebsite,
			IsActive:     true,
		}
		if body.InquiryType != "" {
			cl.InquiryType = models.InquiryType(body.InquiryType)
		}
		if body.Source != "" {
			cl.Source = models.ClientSource(body.Source)
		}

		if err := store.Create(c.UserContext(), &cl); err != nil {
			return err
		}

		// public istek, kullanıcı bilgisi yok
		audit.Record(c.UserContext(), aw, audit.LogOptions{
			EntityType:  "client",
			EntityID:    cl.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Inquiry received from %s for property #%d", cl.Name, cl.PropertyID),
			After:       snapshot(&cl),
		})

		return api.Created(c, cl)
	}
}

// GET /api/clients
func ListClientsHandler(cfg *config.Config, store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Queries()
		filter := FilterFromQuery(q, cfg.Location, time.Now())
		page := api.PageFromQuery(q)

		clients, total, err := store.List(c.UserContext(), filter, page)
		if err != nil {
			return err
		}
		return api.List(c, clients, api.NewPagination(page, total), "totalClients")
	}
}

// GET /api/clients/:id
func GetClientHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		cl, err := store.Get(c.UserContext(), id)
		if err != nil {
			return notFoundOr(err)
		}
		return api.OK(c, cl)
	}
}

// PUT /api/clients/:id
func UpdateClientHandler(store Store, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		var body UpdateClientRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}
		if err := body.Budget.check(); err != nil {
			return err
		}

		cl, err := store.Get(c.UserContext(), id)
		if err != nil {
			return notFoundOr(err)
		}
		before := snapshot(cl)

		if body.Name != nil {
			cl.Name = strings.TrimSpace(*body.Name)
		}
		if body.Email != nil {
			cl.Email = strings.ToLower(strings.TrimSpace(*body.Email))
		}
		if body.Phone != nil {
			cl.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Message != nil {
			cl.Message = strings.TrimSpace(*body.Message)
		}
		if body.InquiryType != nil {
			cl.InquiryType = models.InquiryType(*body.InquiryType)
		}
		if body.Status != nil {
			next := models.ClientStatus(*body.Status)
			if next == models.ClientStatusContacted && cl.Status != next {
				now := time.Now()
				cl.LastContactedAt = &now
			}
			cl.Status = next
		}
		if body.Priority != nil {
			cl.Priority = models.Priority(*body.Priority)
		}
		if body.Source != nil {
			cl.Source = models.ClientSource(*body.Source)
		}
		if body.Budget != nil {
			cl.Budget = body.Budget.toModel()
		}
		if body.Requirements != nil {
			cl.Requirements = body.Requirements.toModel()
		}
		if body.NextFollowUpAt != nil {
			cl.NextFollowUpAt = body.NextFollowUpAt
		}

		if err := store.Save(c.UserContext(), cl); err != nil {
			return err
		}

		audit.Record(c.UserContext(), aw, audit.LogOptions{
			UserID:      p.ID,
			UserName:    p.Name,
			EntityType:  "client",
			EntityID:    cl.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Client updated: %s", cl.Name),
			Before:      before,
			After:       snapshot(cl),
		})

		return api.OK(c, cl)
	}
}

// POST /api/clients/:id/notes
func AddNoteHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		var body NoteRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}

		note := models.AgentNote{
			Note:      strings.TrimSpace(body.Note),
			AuthorID:  p.ID,
			Author:    p.Name,
			CreatedAt: time.Now(),
		}
		if err := store.AppendNote(c.UserContext(), id, note); err != nil {
			return notFoundOr(err)
		}

		cl, err := store.Get(c.UserContext(), id)
		if err != nil {
			return notFoundOr(err)
		}
		return api.Created(c, cl)
	}
}

// DELETE /api/clients/:id
func DeleteClientHandler(store Store, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		// kayıt silinmez, pasife çekilir
		if err := store.SoftDelete(c.UserContext(), id); err != nil {
			return notFoundOr(err)
		}

		audit.Record(c.UserContext(), aw, audit.LogOptions{
			UserID:      p.ID,
			UserName:    p.Name,
			EntityType:  "client",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Client #%d deactivated", id),
		})

		return api.Message(c, "Client deleted successfully")
	}
}

// GET /api/clients/stats
func ClientStatsHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := store.Stats(c.UserContext(), time.Now())
		if err != nil {
			return err
		}
		return api.OK(c, stats)
	}
}

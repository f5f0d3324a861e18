package viewing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/audit"
	"proptrack-backend/internal/auth"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttendeeRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,max=30"`
	Relationship string `json:"relationship" validate:"omitempty,max=50"`
}

type ReminderRequest struct {
	Type   string    `json:"type" validate:"required,oneof=email sms call"`
	SendAt time.Time `json:"sendAt" validate:"required"`
}

type FeedbackRequest struct {
	Rating     *int   `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment    string `json:"comment" validate:"max=2000"`
	Interested *bool  `json:"interested"`
}

type CreateViewingRequest struct {
	PropertyID    uint              `json:"propertyId" validate:"required"`
	ClientID      uint              `json:"clientId" validate:"required"`
	ScheduledDate string            `json:"scheduledDate" validate:"required"`
	ScheduledTime *TimeOfDay        `json:"scheduledTime" validate:"required"`
	Duration      int               `json:"duration" validate:"omitempty,gte=15,lte=240"`
	Priority      string            `json:"priority" validate:"omitempty,oneof=low medium high"`
	Type          string            `json:"type" validate:"omitempty,oneof=individual group virtual open_house"`
	AgentNotes    string            `json:"agentNotes" validate:"max=2000"`
	Attendees     []AttendeeRequest `json:"attendees" validate:"omitempty,max=20,dive"`
	Reminders     []ReminderRequest `json:"reminders" validate:"omitempty,max=10,dive"`
}

type UpdateViewingRequest struct {
	ScheduledDate  *string           `json:"scheduledDate"`
	ScheduledTime  *TimeOfDay        `json:"scheduledTime"`
	Duration       *int              `json:"duration" validate:"omitempty,gte=15,lte=240"`
	Status         *string           `json:"status" validate:"omitempty,oneof=scheduled confirmed in_progress completed cancelled no_show rescheduled"`
	Priority       *string           `json:"priority" validate:"omitempty,oneof=low medium high"`
	Type           *string           `json:"type" validate:"omitempty,oneof=individual group virtual open_house"`
	AgentNotes     *string           `json:"agentNotes" validate:"omitempty,max=2000"`
	Outcome        *string           `json:"outcome" validate:"omitempty,oneof=interested not_interested offer_made needs_followup"`
	ClientFeedback *FeedbackRequest  `json:"clientFeedback"`
	Attendees      []AttendeeRequest `json:"attendees" validate:"omitempty,max=20,dive"`
	Reminders      []ReminderRequest `json:"reminders" validate:"omitempty,max=10,dive"`
}

type StatusRequest struct {
	Status         string           `json:"status" validate:"required,oneof=scheduled confirmed in_progress completed cancelled no_show rescheduled"`
	Outcome        *string          `json:"outcome" validate:"omitempty,oneof=interested not_interested offer_made needs_followup"`
	ClientFeedback *FeedbackRequest `json:"clientFeedback"`
	AgentNotes     *string          `json:"agentNotes" validate:"omitempty,max=2000"`
}

type AvailabilityRequest struct {
	PropertyID    uint       `json:"propertyId" validate:"required"`
	ScheduledDate string     `json:"scheduledDate" validate:"required"`
	ScheduledTime *TimeOfDay `json:"scheduledTime" validate:"required"`
	Duration      int        `json:"duration" validate:"omitempty,gte=15,lte=240"`
	ViewingID     uint       `json:"viewingId"` // yeniden planlamada kaydın kendisi yok sayılır
}

// Response kaydı API'nin ayrık tarih/saat alanlarıyla birlikte döner.
type Response struct {
	models.Viewing
	ScheduledDate string    `json:"scheduledDate"`
	ScheduledTime TimeOfDay `json:"scheduledTime"`
}

func respond(s *Scheduler, v *models.Viewing) Response {
	date, tod := s.Split(v.ScheduledAt)
	return Response{Viewing: *v, ScheduledDate: date, ScheduledTime: tod}
}

func attendees(in []AttendeeRequest) datatypes.JSONSlice[models.Attendee] {
	out := make([]models.Attendee, 0, len(in))
	for _, a := range in {
		out = append(out, models.Attendee{
			Name:         strings.TrimSpace(a.Name),
			Email:        strings.TrimSpace(a.Email),
			Phone:        strings.TrimSpace(a.Phone),
			Relationship: a.Relationship,
		})
	}
	return datatypes.NewJSONSlice(out)
}

func reminders(in []ReminderRequest) datatypes.JSONSlice[models.Reminder] {
	out := make([]models.Reminder, 0, len(in))
	for _, r := range in {
		out = append(out, models.Reminder{Type: r.Type, SendAt: r.SendAt})
	}
	return datatypes.NewJSONSlice(out)
}

func (f *FeedbackRequest) toModel() datatypes.JSONType[models.ClientFeedback] {
	return datatypes.NewJSONType(models.ClientFeedback{
		Rating:     f.Rating,
		Comment:    strings.TrimSpace(f.Comment),
		Interested: f.Interested,
	})
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid viewing id")
	}
	return uint(id), nil
}

// translate scheduler hatalarını HTTP hatalarına çevirir.
func translate(err error) error {
	switch {
	case errors.Is(err, ErrConflict):
		return api.NewDetailError(fiber.StatusBadRequest, "Scheduling conflict", err.Error())
	case errors.Is(err, ErrInvalid):
		return api.NewDetailError(fiber.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, ErrPropertyNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Property not found")
	case errors.Is(err, ErrClientNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Client not found")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Viewing not found")
	}
	return err
}

func snapshot(v *models.Viewing) map[string]interface{} {
	return map[string]interface{}{
		"id":          v.ID,
		"propertyId":  v.PropertyID,
		"clientId":    v.ClientID,
		"scheduledAt": v.ScheduledAt,
		"duration":    v.Duration,
		"status":      v.Status,
		"outcome":     v.Outcome,
		"isActive":    v.IsActive,
	}
}

func record(c *fiber.Ctx, aw audit.Writer, p auth.Principal, v *models.Viewing, action models.AuditAction, desc string, before map[string]interface{}) {
	opts := audit.LogOptions{
		UserID:      p.ID,
		UserName:    p.Name,
		EntityType:  "viewing",
		EntityID:    v.ID,
		Action:      action,
		Description: desc,
	}
	if before != nil {
		opts.Before = before
	}
	if action != models.AuditActionDelete {
		opts.After = snapshot(v)
	}
	audit.Record(c.UserContext(), aw, opts)
}

// -------------------------
// Handlers
// -------------------------

// POST /api/viewings
func CreateViewingHandler(s *Scheduler, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateViewingRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}

		at, err := s.At(body.ScheduledDate, *body.ScheduledTime)
		if err != nil {
			return translate(err)
		}

		v := models.Viewing{
			PropertyID:     body.PropertyID,
			ClientID:       body.ClientID,
			ScheduledAt:    at,
			Duration:       DefaultDuration,
			Status:         models.ViewingScheduled,
			Priority:       models.PriorityMedium,
			Type:           models.ViewingIndividual,
			AgentNotes:     strings.TrimSpace(body.AgentNotes),
			ClientFeedback: datatypes.NewJSONType(models.ClientFeedback{}),
			Attendees:      attendees(body.Attendees),
			Reminders:      reminders(body.Reminders),
			IsActive:       true,
		}
		if body.Duration != 0 {
			v.Duration = body.Duration
		}
		if body.Priority != "" {
			v.Priority = models.Priority(body.Priority)
		}
		if body.Type != "" {
			v.Type = models.ViewingType(body.Type)
		}

		if err := s.Schedule(c.UserContext(), &v); err != nil {
			return translate(err)
		}

		record(c, aw, p, &v, models.AuditActionCreate,
			fmt.Sprintf("Viewing scheduled for property #%d at %s", v.PropertyID, at.In(s.Location()).Format("2006-01-02 15:04")), nil)

		return api.Created(c, respond(s, &v))
	}
}

// GET /api/viewings
func ListViewingsHandler(s *Scheduler, store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Queries()
		filter := FilterFromQuery(q, s.Location(), time.Now())
		page := api.PageFromQuery(q)

		viewings, total, err := store.List(c.UserContext(), filter, page)
		if err != nil {
			return err
		}

		out := make([]Response, 0, len(viewings))
		for i := range viewings {
			out = append(out, respond(s, &viewings[i]))
		}
		return api.List(c, out, api.NewPagination(page, total), "totalViewings")
	}
}

// GET /api/viewings/:id
func GetViewingHandler(s *Scheduler, store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		v, err := store.Get(c.UserContext(), id)
		if err != nil {
			return translate(err)
		}
		return api.OK(c, respond(s, v))
	}
}

// PUT /api/viewings/:id
func UpdateViewingHandler(s *Scheduler, store Store, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		var body UpdateViewingRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}

		v, err := store.Get(c.UserContext(), id)
		if err != nil {
			return translate(err)
		}
		before := *v

		// tarih ve saat birbirinden bağımsız güncellenebilir
		if body.ScheduledDate != nil || body.ScheduledTime != nil {
			date, tod := s.Split(v.ScheduledAt)
			if body.ScheduledDate != nil {
				date = *body.ScheduledDate
			}
			if body.ScheduledTime != nil {
				tod = *body.ScheduledTime
			}
			at, err := s.At(date, tod)
			if err != nil {
				return translate(err)
			}
			v.ScheduledAt = at
		}
		if body.Duration != nil {
			v.Duration = *body.Duration
		}
		if body.Status != nil {
			v.Status = models.ViewingStatus(*body.Status)
		}
		if body.Priority != nil {
			v.Priority = models.Priority(*body.Priority)
		}
		if body.Type != nil {
			v.Type = models.ViewingType(*body.Type)
		}
		if body.AgentNotes != nil {
			v.AgentNotes = strings.TrimSpace(*body.AgentNotes)
		}
		if body.Outcome != nil {
			v.Outcome = models.ViewingOutcome(*body.Outcome)
		}
		if body.ClientFeedback != nil {
			v.ClientFeedback = body.ClientFeedback.toModel()
		}
		if body.Attendees != nil {
			v.Attendees = attendees(body.Attendees)
		}
		if body.Reminders != nil {
			v.Reminders = reminders(body.Reminders)
		}

		if err := s.Reschedule(c.UserContext(), &before, v); err != nil {
			return translate(err)
		}

		record(c, aw, p, v, models.AuditActionUpdate, fmt.Sprintf("Viewing #%d updated", v.ID), snapshot(&before))

		return api.OK(c, respond(s, v))
	}
}

// PATCH /api/viewings/:id/status
func UpdateStatusHandler(s *Scheduler, store Store, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		var body StatusRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}

		v, err := store.Get(c.UserContext(), id)
		if err != nil {
			return translate(err)
		}
		before := *v

		v.Status = models.ViewingStatus(body.Status)
		if body.Outcome != nil {
			v.Outcome = models.ViewingOutcome(*body.Outcome)
		}
		if body.ClientFeedback != nil {
			v.ClientFeedback = body.ClientFeedback.toModel()
		}
		if body.AgentNotes != nil {
			v.AgentNotes = strings.TrimSpace(*body.AgentNotes)
		}

		// iptal edilmiş bir kayıt tekrar aktif duruma alınırsa çakışma yeniden kontrol edilir
		if err := s.Reschedule(c.UserContext(), &before, v); err != nil {
			return translate(err)
		}

		record(c, aw, p, v, models.AuditActionUpdate,
			fmt.Sprintf("Viewing #%d status %s -> %s", v.ID, before.Status, v.Status), snapshot(&before))

		return api.OK(c, respond(s, v))
	}
}

// DELETE /api/viewings/:id
func DeleteViewingHandler(store Store, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		v, err := store.Get(c.UserContext(), id)
		if err != nil {
			return translate(err)
		}
		if err := store.SoftDelete(c.UserContext(), id); err != nil {
			return translate(err)
		}

		record(c, aw, p, v, models.AuditActionDelete, fmt.Sprintf("Viewing #%d deleted", id), snapshot(v))

		return api.Message(c, "Viewing deleted successfully")
	}
}

// POST /api/viewings/availability
func AvailabilityHandler(s *Scheduler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AvailabilityRequest
		if err := api.BindJSON(c, &body); err != nil {
			return err
		}

		result, err := s.CheckAvailability(c.UserContext(), AvailabilityQuery{
			PropertyID: body.PropertyID,
			Date:       body.ScheduledDate,
			Time:       *body.ScheduledTime,
			Duration:   body.Duration,
			ExcludeID:  body.ViewingID,
		})
		if err != nil {
			return translate(err)
		}
		return api.OK(c, result)
	}
}

// GET /api/viewings/stats
func ViewingStatsHandler(s *Scheduler, store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := store.Stats(c.UserContext(), time.Now(), s.Location())
		if err != nil {
			return err
		}
		return api.OK(c, stats)
	}
}

package viewing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/models"
)

const (
	MinDuration     = 15
	MaxDuration     = 240
	DefaultDuration = 60
)

var (
	ErrConflict         = errors.New("viewing time conflicts with an existing viewing")
	ErrInvalid          = errors.New("invalid viewing")
	ErrPropertyNotFound = errors.New("property not found")
	ErrClientNotFound   = errors.New("client not found")
)

// Lookup referans verilen kaydın varlığını kontrol eder (property ve client store'ları).
type Lookup interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

type TimeOfDay struct {
	Hour   int `json:"hour" validate:"gte=0,lte=23"`
	Minute int `json:"minute" validate:"gte=0,lte=59"`
}

// Scheduler görüntüleme yazmalarını çakışma kontrolünden geçirir.
type Scheduler struct {
	store      Store
	properties Lookup
	clients    Lookup
	policy     Policy
	loc        *time.Location
	now        func() time.Time
}

func NewScheduler(store Store, properties, clients Lookup, policy Policy, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		store:      store,
		properties: properties,
		clients:    clients,
		policy:     policy,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *Scheduler) Location() *time.Location { return s.loc }

// At YYYY-MM-DD tarihini ve saat/dakikayı iş saat diliminde tek bir ana çevirir.
func (s *Scheduler) At(date string, t TimeOfDay) (time.Time, error) {
	day, err := api.ParseDate(date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: scheduledDate must be YYYY-MM-DD", ErrInvalid)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return time.Time{}, fmt.Errorf("%w: scheduledTime out of range", ErrInvalid)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, s.loc), nil
}

// Split kaydedilmiş anı API'nin tarih + saat alanlarına ayırır.
func (s *Scheduler) Split(at time.Time) (string, TimeOfDay) {
	local := at.In(s.loc)
	return local.Format(api.DateLayout), TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}
}

func checkDuration(minutes int) error {
	if minutes < MinDuration || minutes > MaxDuration {
		return fmt.Errorf("%w: duration must be between %d and %d minutes", ErrInvalid, MinDuration, MaxDuration)
	}
	return nil
}

func (s *Scheduler) ensureExists(ctx context.Context, l Lookup, id uint, notFound error) error {
	ok, err := l.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}

func occupies(v *models.Viewing) bool {
	return v.IsActive && v.Status.Active()
}

// guardedWrite çakışma kontrolü ve yazmayı ilan kilidi altında tek adımda yapar.
func (s *Scheduler) guardedWrite(ctx context.Context, v *models.Viewing, write func(Repository) error) error {
	return s.store.WithPropertyLock(ctx, v.PropertyID, func(r Repository) error {
		conflict, err := r.FindConflict(ctx, CandidateFor(v), s.policy)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ConflictError{With: conflict, Loc: s.loc}
		}
		return write(r)
	})
}

// Schedule yeni görüntülemeyi çakışma yoksa kaydeder.
func (s *Scheduler) Schedule(ctx context.Context, v *models.Viewing) error {
	if err := checkDuration(v.Duration); err != nil {
		return err
	}
	if v.ScheduledAt.Before(s.now()) {
		return fmt.Errorf("%w: viewing cannot be scheduled in the past", ErrInvalid)
	}
	if err := s.ensureExists(ctx, s.properties, v.PropertyID, ErrPropertyNotFound); err != nil {
		return err
	}
	if err := s.ensureExists(ctx, s.clients, v.ClientID, ErrClientNotFound); err != nil {
		return err
	}

	if !occupies(v) {
		return s.store.Insert(ctx, v)
	}
	return s.guardedWrite(ctx, v, func(r Repository) error {
		return r.Insert(ctx, v)
	})
}

// needsCheck zaman/süre değiştiyse ya da kayıt yeniden takvime girdiyse true döner.
func needsCheck(before, after *models.Viewing) bool {
	if !occupies(after) {
		return false
	}
	if !occupies(before) {
		return true
	}
	return !before.ScheduledAt.Equal(after.ScheduledAt) || before.Duration != after.Duration
}

// Reschedule güncellenmiş kaydı saklar. before kaydın değişiklik öncesi halidir.
func (s *Scheduler) Reschedule(ctx context.Context, before, after *models.Viewing) error {
	if err := checkDuration(after.Duration); err != nil {
		return err
	}
	timing := !before.ScheduledAt.Equal(after.ScheduledAt)
	if timing && after.ScheduledAt.Before(s.now()) {
		return fmt.Errorf("%w: viewing cannot be moved into the past", ErrInvalid)
	}

	if !needsCheck(before, after) {
		return s.store.Update(ctx, after)
	}
	return s.guardedWrite(ctx, after, func(r Repository) error {
		return r.Update(ctx, after)
	})
}

const (
	dayOpenHour    = 9
	dayCloseHour   = 18
	slotStep       = 30 * time.Minute
	maxSuggestions = 5
)

type Slot struct {
	Date     string    `json:"date"`
	Time     TimeOfDay `json:"time"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

type Availability struct {
	Available      bool   `json:"available"`
	Message        string `json:"message"`
	ConflictsWith  *Slot  `json:"conflictsWith,omitempty"`
	SuggestedSlots []Slot `json:"suggestedSlots"`
}

type AvailabilityQuery struct {
	PropertyID uint
	Date       string
	Time       TimeOfDay
	Duration   int
	ExcludeID  uint
}

func (s *Scheduler) slot(start time.Time, minutes int) Slot {
	date, tod := s.Split(start)
	return Slot{Date: date, Time: tod, StartsAt: start, EndsAt: start.Add(time.Duration(minutes) * time.Minute)}
}

// CheckAvailability istenen zamanın boş olup olmadığını söyler. Doluysa aynı gün
// 09:00-18:00 arası 30 dakikalık adımlarla en fazla 5 boş alternatif önerir.
func (s *Scheduler) CheckAvailability(ctx context.Context, q AvailabilityQuery) (*Availability, error) {
	if q.Duration == 0 {
		q.Duration = DefaultDuration
	}
	if err := checkDuration(q.Duration); err != nil {
		return nil, err
	}
	start, err := s.At(q.Date, q.Time)
	if err != nil {
		return nil, err
	}
	if err := s.ensureExists(ctx, s.properties, q.PropertyID, ErrPropertyNotFound); err != nil {
		return nil, err
	}

	length := time.Duration(q.Duration) * time.Minute
	candidate := Candidate{PropertyID: q.PropertyID, Start: start, End: start.Add(length), ExcludeID: q.ExcludeID}

	conflict, err := s.store.FindConflict(ctx, candidate, s.policy)
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return &Availability{
			Available:      true,
			Message:        "Time slot is available",
			SuggestedSlots: []Slot{},
		}, nil
	}

	taken := s.slot(conflict.ScheduledAt, conflict.Duration)
	result := &Availability{
		Available:      false,
		Message:        "Time slot is not available",
		ConflictsWith:  &taken,
		SuggestedSlots: make([]Slot, 0, maxSuggestions),
	}

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc)
	open := day.Add(dayOpenHour * time.Hour)
	closing := day.Add(dayCloseHour * time.Hour)

	for at := open; at.Before(closing) && len(result.SuggestedSlots) < maxSuggestions; at = at.Add(slotStep) {
		c := Candidate{PropertyID: q.PropertyID, Start: at, End: at.Add(length), ExcludeID: q.ExcludeID}
		busy, err := s.store.FindConflict(ctx, c, s.policy)
		if err != nil {
			return nil, err
		}
		if busy == nil {
			result.SuggestedSlots = append(result.SuggestedSlots, s.slot(at, q.Duration))
		}
	}

	return result, nil
}

package viewing

import (
	"fmt"
	"time"

	"proptrack-backend/internal/config"
	"proptrack-backend/internal/models"

	"gorm.io/gorm"
)

type Mode string

const (
	// ModeBuffer mevcut görüntülemenin başlangıcı [start-lookBack, end] aralığındaysa çakışma sayar.
	ModeBuffer Mode = "buffer"
	// ModeStrict yarı açık aralık kesişimi; her iki taraf MinGap kadar genişletilir.
	ModeStrict Mode = "strict"
)

type Policy struct {
	Mode     Mode
	LookBack time.Duration
	MinGap   time.Duration
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		Mode:     Mode(cfg.ViewingConflictMode),
		LookBack: cfg.ViewingLookBack,
		MinGap:   cfg.ViewingMinGap,
	}
}

// Candidate kaydedilmek istenen görüntüleme zaman aralığı.
type Candidate struct {
	PropertyID uint
	Start      time.Time
	End        time.Time
	ExcludeID  uint // güncellemede kaydın kendisi
}

func CandidateFor(v *models.Viewing) Candidate {
	start, end := v.Window()
	return Candidate{PropertyID: v.PropertyID, Start: start, End: end, ExcludeID: v.ID}
}

// Conflicts existing kaydın aday ile çakışıp çakışmadığını bellekte hesaplar.
// Scope ile aynı kuralı uygular.
func (p Policy) Conflicts(c Candidate, existing *models.Viewing) bool {
	if existing.PropertyID != c.PropertyID || !existing.IsActive || !existing.Status.Active() {
		return false
	}
	if c.ExcludeID != 0 && existing.ID == c.ExcludeID {
		return false
	}

	if p.Mode == ModeStrict {
		s, e := existing.Window()
		return s.Before(c.End.Add(p.MinGap)) && e.After(c.Start.Add(-p.MinGap))
	}

	lo := c.Start.Add(-p.LookBack)
	at := existing.ScheduledAt
	return !at.Before(lo) && !at.After(c.End)
}

// Scope aynı kuralı SQL koşulu olarak uygular.
func (p Policy) Scope(db *gorm.DB, c Candidate) *gorm.DB {
	db = db.Where("property_id = ? AND is_active AND status IN ?", c.PropertyID, models.ActiveViewingStatuses)
	if c.ExcludeID != 0 {
		db = db.Where("id <> ?", c.ExcludeID)
	}

	if p.Mode == ModeStrict {
		return db.Where("scheduled_at < ? AND ends_at > ?", c.End.Add(p.MinGap), c.Start.Add(-p.MinGap))
	}
	return db.Where("scheduled_at BETWEEN ? AND ?", c.Start.Add(-p.LookBack), c.End)
}

// ConflictError hangi kayıtla çakışıldığını taşır; errors.Is(err, ErrConflict) true döner.
type ConflictError struct {
	With *models.Viewing
	Loc  *time.Location
}

func (e *ConflictError) Error() string {
	at := e.With.ScheduledAt
	if e.Loc != nil {
		at = at.In(e.Loc)
	}
	return fmt.Sprintf("property already has a viewing on %s at %s (%d min)",
		at.Format("2006-01-02"), at.Format("15:04"), e.With.Duration)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

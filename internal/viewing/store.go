package viewing

import (
	"context"
	"errors"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Repository çakışma kontrolü ve yazma adımları. Kilit içinde transaction'a bağlı örnek kullanılır.
type Repository interface {
	FindConflict(ctx context.Context, c Candidate, p Policy) (*models.Viewing, error)
	Insert(ctx context.Context, v *models.Viewing) error
	Update(ctx context.Context, v *models.Viewing) error
}

type Store interface {
	Repository
	// WithPropertyLock fn'i aynı ilan için diğer yazmalarla sıralı, tek transaction içinde çalıştırır.
	WithPropertyLock(ctx context.Context, propertyID uint, fn func(Repository) error) error
	Get(ctx context.Context, id uint) (*models.Viewing, error)
	List(ctx context.Context, f Filter, page api.Page) ([]models.Viewing, int64, error)
	SoftDelete(ctx context.Context, id uint) error
	Stats(ctx context.Context, now time.Time, loc *time.Location) (*Stats, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithPropertyLock(ctx context.Context, propertyID uint, fn func(Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// transaction bitince kilit otomatik bırakılır
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext('viewings'), ?)", int32(propertyID)).Error; err != nil {
			return err
		}
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) FindConflict(ctx context.Context, c Candidate, p Policy) (*models.Viewing, error) {
	var v models.Viewing
	err := p.Scope(s.db.WithContext(ctx).Model(&models.Viewing{}), c).
		Order("scheduled_at ASC").
		Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *GormStore) Insert(ctx context.Context, v *models.Viewing) error {
	return s.db.WithContext(ctx).Omit("Property", "Client").Create(v).Error
}

// Update Save kullanır; BeforeSave hook'u EndsAt'i yeniden hesaplar.
func (s *GormStore) Update(ctx context.Context, v *models.Viewing) error {
	return s.db.WithContext(ctx).Omit("Property", "Client").Save(v).Error
}

// activeByID silinmiş (is_active=false) görüntülemeyi bulunamadı sayar.
func activeByID(id uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("viewings.is_active").Where("viewings.id = ?", id)
	}
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.Viewing, error) {
	var v models.Viewing
	err := s.db.WithContext(ctx).
		Scopes(activeByID(id)).
		Preload("Property", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "type", "price", "location_address", "location_city", "agent_id")
		}).
		Preload("Client", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "phone")
		}).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *GormStore) List(ctx context.Context, f Filter, page api.Page) ([]models.Viewing, int64, error) {
	var total int64
	if err := f.Apply(s.db.WithContext(ctx).Model(&models.Viewing{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	viewings := make([]models.Viewing, 0, page.Size)
	err := f.Apply(s.db.WithContext(ctx)).
		Preload("Property", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "location_city")
		}).
		Preload("Client", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "phone")
		}).
		Order(f.Sort.Clause()).
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&viewings).Error
	if err != nil {
		return nil, 0, err
	}
	return viewings, total, nil
}

func (s *GormStore) SoftDelete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Viewing{}).
		Where("id = ? AND is_active", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type StatusCount struct {
	Status models.ViewingStatus `json:"status"`
	Count  int64                `json:"count"`
}

type Stats struct {
	Total     int64         `json:"total"`
	Today     int64         `json:"today"`
	Upcoming  int64         `json:"upcoming"`
	Completed int64         `json:"completed"`
	NoShow    int64         `json:"noShow"`
	Offers    int64         `json:"offers"`
	ByStatus  []StatusCount `json:"byStatus"`
}

func (s *GormStore) Stats(ctx context.Context, now time.Time, loc *time.Location) (*Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)

	active := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Viewing{}).Where("is_active")
	}

	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	g.Go(func() error { return active().Count(&st.Total).Error })
	g.Go(func() error {
		return active().
			Where("scheduled_at >= ? AND scheduled_at < ?", dayStart, dayStart.AddDate(0, 0, 1)).
			Count(&st.Today).Error
	})
	g.Go(func() error {
		return active().
			Where("scheduled_at >= ? AND status IN ?", now, models.ActiveViewingStatuses).
			Count(&st.Upcoming).Error
	})
	g.Go(func() error {
		return active().Where("status = ?", models.ViewingCompleted).Count(&st.Completed).Error
	})
	g.Go(func() error {
		return active().Where("status = ?", models.ViewingNoShow).Count(&st.NoShow).Error
	})
	g.Go(func() error {
		return active().Where("outcome = ?", models.OutcomeOfferMade).Count(&st.Offers).Error
	})
	g.Go(func() error {
		return active().
			Select("status, COUNT(*) AS count").
			Group("status").
			Order("count DESC").
			Scan(&st.ByStatus).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

package property

import (
	"context"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Store handler'ların kullandığı property erişimi.
type Store interface {
	SimilarFinder
	Create(ctx context.Context, p *models.Property) error
	Save(ctx context.Context, p *models.Property) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f Filter, page api.Page) ([]models.Property, int64, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, p *models.Property) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) Save(ctx context.Context, p *models.Property) error {
	return s.db.WithContext(ctx).Omit("Agent").Save(p).Error
}

func (s *GormStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Property{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.Property, error) {
	var p models.Property
	if err := s.db.WithContext(ctx).Preload("Agent").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) List(ctx context.Context, f Filter, page api.Page) ([]models.Property, int64, error) {
	var total int64
	if err := f.Apply(s.db.WithContext(ctx).Model(&models.Property{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	properties := make([]models.Property, 0, page.Size)
	err := f.Apply(s.db.WithContext(ctx)).
		Preload("Agent").
		Order(f.Sort.Clause()).
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&properties).Error
	if err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

func (s *GormStore) FindSimilar(ctx context.Context, q SimilarQuery) ([]models.Property, error) {
	dbq := s.db.WithContext(ctx).
		Where("type = ? AND status = ?", q.Type, models.PropertyStatusActive)

	if q.City != nil {
		dbq = dbq.Where("location_city = ?", *q.City)
	}
	if q.State != nil {
		dbq = dbq.Where("location_state = ?", *q.State)
	}
	if q.MinPrice != nil && q.MaxPrice != nil {
		dbq = dbq.Where("price BETWEEN ? AND ?", *q.MinPrice, *q.MaxPrice)
	}
	if len(q.Exclude) > 0 {
		dbq = dbq.Where("id NOT IN ?", q.Exclude)
	}

	var out []models.Property
	err := dbq.Order("created_at DESC").Order("id DESC").Limit(q.Limit).Find(&out).Error
	return out, err
}

type TypeCount struct {
	Type  models.PropertyType `json:"type"`
	Count int64               `json:"count"`
}

type Stats struct {
	Total    int64       `json:"total"`
	Active   int64       `json:"active"`
	Sold     int64       `json:"sold"`
	Rented   int64       `json:"rented"`
	Pending  int64       `json:"pending"`
	Archived int64       `json:"archived"`
	Featured int64       `json:"featured"`
	ByType   []TypeCount `json:"byType"`
}

// Stats bağımsız sayımları eşzamanlı çalıştırır.
func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, where string, args ...any) {
		g.Go(func() error {
			q := s.db.WithContext(ctx).Model(&models.Property{})
			if where != "" {
				q = q.Where(where, args...)
			}
			return q.Count(dst).Error
		})
	}

	count(&st.Total, "")
	count(&st.Active, "status = ?", models.PropertyStatusActive)
	count(&st.Sold, "status = ?", models.PropertyStatusSold)
	count(&st.Rented, "status = ?", models.PropertyStatusRented)
	count(&st.Pending, "status = ?", models.PropertyStatusPending)
	count(&st.Archived, "status = ?", models.PropertyStatusArchived)
	count(&st.Featured, "featured = ? AND status = ?", true, models.PropertyStatusActive)

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Property{}).
			Select("type, COUNT(*) AS count").
			Where("status = ?", models.PropertyStatusActive).
			Group("type").
			Order("count DESC").
			Scan(&st.ByType).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

package client

import (
	"context"
	"encoding/json"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Store inquiry handler'larının kullandığı client erişimi.
type Store interface {
	Create(ctx context.Context, c *models.Client) error
	Get(ctx context.Context, id uint) (*models.Client, error)
	Save(ctx context.Context, c *models.Client) error
	SoftDelete(ctx context.Context, id uint) error
	AppendNote(ctx context.Context, id uint, note models.AgentNote) error
	List(ctx context.Context, f Filter, page api.Page) ([]models.Client, int64, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, c *models.Client) error {
	return s.db.WithContext(ctx).Omit("Property").Create(c).Error
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).
		Preload("Property", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "price", "type", "listing_type", "status",
				"location_city", "location_state", "location_address")
		}).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Exists sadece aktif client'ları sayar; pasif kayda görüntüleme planlanamaz.
func (s *GormStore) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ? AND is_active", id).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) Save(ctx context.Context, c *models.Client) error {
	return s.db.WithContext(ctx).Omit("Property").Save(c).Error
}

func (s *GormStore) SoftDelete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Client{}).
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

// AppendNote notu jsonb dizisinin sonuna tek UPDATE ile ekler; eşzamanlı eklemeler birbirini ezmez.
func (s *GormStore) AppendNote(ctx context.Context, id uint, note models.AgentNote) error {
	payload, err := json.Marshal([]models.AgentNote{note})
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"agent_notes": gorm.Expr("coalesce(agent_notes, '[]'::jsonb) || ?::jsonb", string(payload)),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, f Filter, page api.Page) ([]models.Client, int64, error) {
	var total int64
	if err := f.Apply(s.db.WithContext(ctx).Model(&models.Client{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	clients := make([]models.Client, 0, page.Size)
	err := f.Apply(s.db.WithContext(ctx)).
		Preload("Property", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "price", "type", "location_city")
		}).
		Order(f.Sort.Clause()).
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&clients).Error
	if err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

type GroupCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Stats struct {
	Total       int64        `json:"total"`
	Active      int64        `json:"active"`
	New         int64        `json:"new"`
	ThisWeek    int64        `json:"thisWeek"`
	FollowUpDue int64        `json:"followUpDue"`
	ByStatus    []GroupCount `json:"byStatus"`
	ByPriority  []GroupCount `json:"byPriority"`
	BySource    []GroupCount `json:"bySource"`
}

func (s *GormStore) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)

	active := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Client{}).Where("is_active")
	}

	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.Client{}).Count(&st.Total).Error
	})
	g.Go(func() error { return active().Count(&st.Active).Error })
	g.Go(func() error {
		return active().Where("status = ?", models.ClientStatusNew).Count(&st.New).Error
	})
	g.Go(func() error {
		return active().Where("created_at >= ?", now.AddDate(0, 0, -7)).Count(&st.ThisWeek).Error
	})
	g.Go(func() error {
		return active().Where("next_follow_up_at IS NOT NULL AND next_follow_up_at <= ?", now).
			Count(&st.FollowUpDue).Error
	})

	group := func(dst *[]GroupCount, column string) {
		g.Go(func() error {
			return active().
				Select(column + " AS key, COUNT(*) AS count").
				Group(column).
				Order("count DESC").
				Scan(dst).Error
		})
	}
	group(&st.ByStatus, "status")
	group(&st.ByPriority, "priority")
	group(&st.BySource, "source")

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"proptrack-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Writer audit kaydı yazabilen bileşen. Testlerde sahte implementasyon kullanılır.
type Writer interface {
	WriteLog(ctx context.Context, opts LogOptions) error
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) WriteLog(ctx context.Context, opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}
	return nil
}

// PostgreSQL jsonb için boş değer yerine "null" yazılır
func snapshot(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

// Record audit yazımını dener; hata ana işlemi bozmaz, sadece loglanır.
func Record(ctx context.Context, w Writer, opts LogOptions) {
	if w == nil {
		return
	}
	if err := w.WriteLog(ctx, opts); err != nil {
		log.Printf("[WARN] Audit log yazılamadı (%s #%d): %v", opts.EntityType, opts.EntityID, err)
	}
}

package database

import (
	"fmt"
	"log"

	"proptrack-backend/internal/config"
	"proptrack-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open veritabanı bağlantısını açar ve migration'ları çalıştırır.
// Dönen *gorm.DB store'lara parametre olarak verilir, paket seviyesinde tutulmaz.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("[INFO] Veritabanı bağlantısı başarılı. Migration tamamlandı.")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Client{},
		&models.Viewing{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	// AutoMigrate'in ifade edemediği index ve constraint'ler
	statements := []struct {
		name string
		sql  string
	}{
		{
			name: "properties full-text index",
			sql: `CREATE INDEX IF NOT EXISTS idx_properties_search ON properties
				USING GIN (to_tsvector('english', coalesce(title, '') || ' ' || coalesce(description, '')))`,
		},
		{
			name: "properties amenities index",
			sql:  `CREATE INDEX IF NOT EXISTS idx_properties_amenities ON properties USING GIN (amenities)`,
		},
		{
			name: "properties similar lookup index",
			sql: `CREATE INDEX IF NOT EXISTS idx_properties_similar ON properties (type, status, created_at DESC)
				WHERE status = 'active'`,
		},
		{
			name: "viewings active window index",
			sql: `CREATE INDEX IF NOT EXISTS idx_viewings_active_window ON viewings (property_id, scheduled_at, ends_at)
				WHERE is_active AND status IN ('scheduled', 'confirmed', 'in_progress')`,
		},
		{
			name: "viewings duration check",
			sql: `DO $$ BEGIN
				ALTER TABLE viewings ADD CONSTRAINT chk_viewings_duration CHECK (duration BETWEEN 15 AND 240);
			EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		},
		{
			name: "properties price check",
			sql: `DO $$ BEGIN
				ALTER TABLE properties ADD CONSTRAINT chk_properties_price CHECK (price >= 0);
			EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		},
	}

	for _, st := range statements {
		if err := db.Exec(st.sql).Error; err != nil {
			// index yoksa sorgular yine çalışır, sadece yavaşlar
			log.Printf("[WARN] %s oluşturulamadı: %v", st.name, err)
		}
	}

	return nil
}

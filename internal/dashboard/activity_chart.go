package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/config"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"

	maxBuckets = 60

	// inquiry satırları viewing statülerinden ayırt edilsin diye
	kindInquiry = "inquiry"
)

// Window grafiğin kapsadığı aralık. End hariçtir.
type Window struct {
	Period Period
	Start  time.Time
	End    time.Time
}

// WindowFor bugünü içeren son count periyodu döner. Haftalar pazartesi başlar.
func WindowFor(period string, count int, now time.Time, loc *time.Location) (Window, error) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	p := Period(period)
	if count <= 0 {
		switch p {
		case PeriodWeekly:
			count = 8
		case PeriodMonthly:
			count = 12
		default:
			count = 7
		}
	}
	if count > maxBuckets {
		return Window{}, fmt.Errorf("count en fazla %d olabilir", maxBuckets)
	}

	switch p {
	case PeriodWeekly:
		offset := (int(today.Weekday()) + 6) % 7
		monday := today.AddDate(0, 0, -offset)
		return Window{Period: p, Start: monday.AddDate(0, 0, -7*(count-1)), End: monday.AddDate(0, 0, 7)}, nil
	case PeriodMonthly:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return Window{Period: p, Start: first.AddDate(0, -(count - 1), 0), End: first.AddDate(0, 1, 0)}, nil
	case PeriodDaily, "":
		return Window{Period: PeriodDaily, Start: today.AddDate(0, 0, -(count - 1)), End: today.AddDate(0, 0, 1)}, nil
	}
	return Window{}, fmt.Errorf("period daily, weekly veya monthly olmalı")
}

func (w Window) step(t time.Time) time.Time {
	switch w.Period {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// Labels her bucket'ın başlangıç tarihini sırayla verir.
func (w Window) Labels() []string {
	var out []string
	for t := w.Start; t.Before(w.End); t = w.step(t) {
		out = append(out, t.Format(api.DateLayout))
	}
	return out
}

// BucketCount tek bir bucket ve tür için sayım. Kind viewing statüsü ya da "inquiry" olur.
type BucketCount struct {
	Bucket time.Time `gorm:"column:bucket"`
	Kind   string    `gorm:"column:kind"`
	Count  int64     `gorm:"column:count"`
}

type Point struct {
	Label     string `json:"label"`
	Inquiries int64  `json:"inquiries"`
	Scheduled int64  `json:"scheduled"`
	Completed int64  `json:"completed"`
	Cancelled int64  `json:"cancelled"`
	NoShow    int64  `json:"noShow"`
	Viewings  int64  `json:"viewings"`
}

type Totals struct {
	Inquiries int64 `json:"inquiries"`
	Viewings  int64 `json:"viewings"`
	Completed int64 `json:"completed"`
	NoShow    int64 `json:"noShow"`
}

type ActivityChart struct {
	Period Period  `json:"period"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Points []Point `json:"points"`
	Totals Totals  `json:"totals"`
}

// Build sayımları pencerenin bucket'larına dağıtır; veri olmayan bucket'lar sıfırla döner.
func Build(w Window, rows []BucketCount) ActivityChart {
	labels := w.Labels()
	points := make([]Point, len(labels))
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		points[i].Label = l
		index[l] = i
	}

	var totals Totals
	for _, r := range rows {
		// bucket DB'den saat dilimsiz gelir, sadece tarih kısmına bakılır
		i, ok := index[r.Bucket.Format(api.DateLayout)]
		if !ok {
			continue
		}
		pt := &points[i]
		if r.Kind == kindInquiry {
			pt.Inquiries += r.Count
			totals.Inquiries += r.Count
			continue
		}

		pt.Viewings += r.Count
		totals.Viewings += r.Count
		switch models.ViewingStatus(r.Kind) {
		case models.ViewingScheduled, models.ViewingConfirmed, models.ViewingRescheduled:
			pt.Scheduled += r.Count
		case models.ViewingCompleted:
			pt.Completed += r.Count
			totals.Completed += r.Count
		case models.ViewingCancelled:
			pt.Cancelled += r.Count
		case models.ViewingNoShow:
			pt.NoShow += r.Count
			totals.NoShow += r.Count
		}
	}

	return ActivityChart{
		Period: w.Period,
		From:   w.Start.Format(api.DateLayout),
		To:     w.End.AddDate(0, 0, -1).Format(api.DateLayout),
		Points: points,
		Totals: totals,
	}
}

// Source bucket sayımlarını sağlar.
type Source interface {
	Activity(ctx context.Context, w Window) ([]BucketCount, error)
}

type GormSource struct {
	db *gorm.DB
}

func NewSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

func (s *GormSource) Activity(ctx context.Context, w Window) ([]BucketCount, error) {
	unit := map[Period]string{PeriodDaily: "day", PeriodWeekly: "week", PeriodMonthly: "month"}[w.Period]
	tz := w.Start.Location().String()

	var viewings []BucketCount
	err := s.db.WithContext(ctx).Raw(`
		SELECT date_trunc(?, scheduled_at AT TIME ZONE ?) AS bucket,
			   status AS kind,
			   COUNT(*) AS count
		FROM viewings
		WHERE is_active AND scheduled_at >= ? AND scheduled_at < ?
		GROUP BY bucket, status`, unit, tz, w.Start, w.End).Scan(&viewings).Error
	if err != nil {
		return nil, err
	}

	var inquiries []BucketCount
	err = s.db.WithContext(ctx).Raw(`
		SELECT date_trunc(?, created_at AT TIME ZONE ?) AS bucket,
			   ? AS kind,
			   COUNT(*) AS count
		FROM clients
		WHERE created_at >= ? AND created_at < ?
		GROUP BY bucket`, unit, tz, kindInquiry, w.Start, w.End).Scan(&inquiries).Error
	if err != nil {
		return nil, err
	}

	return append(viewings, inquiries...), nil
}

// GET /api/dashboard/activity?period=weekly&count=8
func ActivityChartHandler(cfg *config.Config, src Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		count := 0
		if v := c.Query("count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "count must be a positive number")
			}
			count = n
		}

		w, err := WindowFor(c.Query("period", string(PeriodDaily)), count, time.Now(), cfg.Location)
		if err != nil {
			return api.NewDetailError(fiber.StatusBadRequest, "Invalid chart range", err.Error())
		}

		rows, err := src.Activity(c.UserContext(), w)
		if err != nil {
			return err
		}
		return api.OK(c, Build(w, rows))
	}
}

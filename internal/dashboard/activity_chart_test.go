package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

var dubai = time.FixedZone("GST", 4*3600)

// 2025-06-04 çarşamba
var now = time.Date(2025, 6, 4, 15, 0, 0, 0, dubai)

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowFor(t *testing.T) {
	tests := []struct {
		period    string
		count     int
		from, to  string
		wantLabel int
	}{
		{"daily", 0, "2025-05-29", "2025-06-04", 7},
		{"", 3, "2025-06-02", "2025-06-04", 3},
		{"weekly", 2, "2025-05-26", "2025-06-08", 2},
		{"monthly", 3, "2025-04-01", "2025-06-30", 3},
	}
	for _, tt := range tests {
		w, err := WindowFor(tt.period, tt.count, now, dubai)
		if err != nil {
			t.Fatalf("%s: %v", tt.period, err)
		}
		chart := Build(w, nil)
		if chart.From != tt.from || chart.To != tt.to || len(chart.Points) != tt.wantLabel {
			t.Fatalf("%s/%d: got %s..%s with %d points", tt.period, tt.count, chart.From, chart.To, len(chart.Points))
		}
	}

	if _, err := WindowFor("yearly", 0, now, dubai); err == nil {
		t.Fatalf("unknown period should fail")
	}
	if _, err := WindowFor("daily", maxBuckets+1, now, dubai); err == nil {
		t.Fatalf("too many buckets should fail")
	}
}

func TestBuildAggregates(t *testing.T) {
	w, _ := WindowFor("daily", 3, now, dubai)
	chart := Build(w, []BucketCount{
		{Bucket: day(2), Kind: "scheduled", Count: 2},
		{Bucket: day(2), Kind: "confirmed", Count: 1},
		{Bucket: day(3), Kind: "completed", Count: 4},
		{Bucket: day(3), Kind: "no_show", Count: 1},
		{Bucket: day(4), Kind: kindInquiry, Count: 5},
		{Bucket: day(20), Kind: "completed", Count: 9},
	})

	if p := chart.Points[0]; p.Scheduled != 3 || p.Viewings != 3 {
		t.Fatalf("unexpected first bucket %+v", p)
	}
	if p := chart.Points[1]; p.Completed != 4 || p.NoShow != 1 || p.Viewings != 5 {
		t.Fatalf("unexpected second bucket %+v", p)
	}
	if p := chart.Points[2]; p.Inquiries != 5 || p.Viewings != 0 {
		t.Fatalf("inquiries must not count as viewings: %+v", p)
	}
	want := Totals{Inquiries: 5, Viewings: 8, Completed: 4, NoShow: 1}
	if chart.Totals != want {
		t.Fatalf("totals: got %+v, want %+v", chart.Totals, want)
	}
}

type stubSource struct {
	rows []BucketCount
	err  error
	got  Window
}

func (s *stubSource) Activity(_ context.Context, w Window) ([]BucketCount, error) {
	s.got = w
	return s.rows, s.err
}

func TestActivityChartHandler(t *testing.T) {
	src := &stubSource{}
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	app.Get("/api/dashboard/activity", ActivityChartHandler(&config.Config{Location: dubai}, src))

	get := func(path string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			var env struct {
				Data ActivityChart `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(env.Data.Points) == 0 {
				t.Fatalf("expected points in chart")
			}
		}
		return resp.StatusCode
	}

	if code := get("/api/dashboard/activity?period=weekly&count=4"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if src.got.Period != PeriodWeekly {
		t.Fatalf("source got period %q", src.got.Period)
	}
	if code := get("/api/dashboard/activity?count=abc"); code != http.StatusBadRequest {
		t.Fatalf("bad count should be 400, got %d", code)
	}
	if code := get("/api/dashboard/activity?period=hourly"); code != http.StatusBadRequest {
		t.Fatalf("bad period should be 400, got %d", code)
	}

	src.err = errors.New("db down")
	if code := get("/api/dashboard/activity"); code != http.StatusInternalServerError {
		t.Fatalf("source error should be 500, got %d", code)
	}
}

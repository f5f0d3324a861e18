package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/config"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

func TestWriteSheetRows(t *testing.T) {
	dubai := time.FixedZone("GST", 4*3600)
	budgetMin := 800000.0
	contacted := time.Date(2025, 5, 2, 6, 30, 0, 0, time.UTC)

	clients := []models.Client{
		{
			ID: 1, Name: "Sara Ali", Email: "sara@example.com", Phone: "+971501234567",
			PropertyID: 4, Property: &models.Property{Title: "Marina Flat"},
			Status: models.ClientStatusContacted, Priority: models.PriorityHigh,
			Budget:          models.Budget{Min: &budgetMin},
			LastContactedAt: &contacted,
			AgentNotes:      []models.AgentNote{{Note: "called"}, {Note: "sent brochure"}},
			CreatedAt:       contacted,
		},
		{ID: 2, Name: "Omar", PropertyID: 9, CreatedAt: contacted},
	}

	var buf bytes.Buffer
	if err := WriteSheet(&buf, clients, dubai); err != nil {
		t.Fatalf("WriteSheet: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][len(exportHeader)-1] != "Notes" {
		t.Fatalf("unexpected header %v", rows[0])
	}

	first := rows[1]
	if first[1] != "Sara Ali" || first[4] != "Marina Flat" || first[6] != "contacted" {
		t.Fatalf("unexpected first row %v", first)
	}
	if first[9] != "800000" || first[11] != "2025-05-02 10:30" || first[14] != "2" {
		t.Fatalf("budget, contact time or note count wrong: %v", first)
	}
	if rows[2][4] != "#9" {
		t.Fatalf("missing property should fall back to id, got %q", rows[2][4])
	}
}

func TestExportEndpoint(t *testing.T) {
	store := newMemStore()
	store.Create(context.Background(), &models.Client{Name: "Sara Ali", PropertyID: 1, IsActive: true})

	cfg := &config.Config{Location: time.UTC}
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	app.Get("/api/clients/export", ExportClientsHandler(cfg, store))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/clients/export?status=new", nil))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", ct)
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(exportSheet)
	if len(rows) != 2 || rows[1][1] != "Sara Ali" {
		t.Fatalf("unexpected export rows %v", rows)
	}
}

package property

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

var importHeader = []any{"Title", "Description", "Price", "Type", "Listing Type", "Bedrooms", "Bathrooms", "Area", "Address", "City", "State", "Amenities", "Featured"}

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParseSheetMapsColumns(t *testing.T) {
	buf := workbook(t,
		importHeader,
		[]any{"Marina Flat", "Sea view", 1500000, "Apartment", "sale", 2, 2, 1250.5, "Marina Walk", "Dubai", "Dubai", "Pool, Gym", "yes"},
		[]any{},
		[]any{"Broken", "x", "cheap", "villa", "sale", 1, 1, 100, "a", "b", "c", "", ""},
	)

	rows, err := ParseSheet(buf)
	if err != nil {
		t.Fatalf("ParseSheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected blank row to be skipped, got %d rows", len(rows))
	}

	first := rows[0]
	if first.Err != nil || first.Line != 2 {
		t.Fatalf("unexpected first row %+v", first)
	}
	req := first.Request
	if req.Title != "Marina Flat" || req.Type != "apartment" || *req.Price != 1_500_000 || req.Area != 1250.5 {
		t.Fatalf("columns mapped incorrectly: %+v", req)
	}
	if req.Location.City != "Dubai" || len(req.Amenities) != 2 || !req.Featured {
		t.Fatalf("location or lists mapped incorrectly: %+v", req)
	}

	if rows[1].Err == nil || rows[1].Line != 4 {
		t.Fatalf("non-numeric price should fail on line 4, got %+v", rows[1])
	}
}

func TestParseSheetMissingColumns(t *testing.T) {
	buf := workbook(t, []any{"Title", "Price"}, []any{"Flat", 10})
	if _, err := ParseSheet(buf); err == nil {
		t.Fatalf("expected missing column error")
	}
}

func upload(t *testing.T, app *fiber.App, filename string, content []byte) (int, ImportResult) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write(content)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/properties/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()

	var env struct {
		Data ImportResult `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env.Data
}

func TestImportCreatesValidRows(t *testing.T) {
	store, ch, spy := &memStore{}, newSpyCache(), &auditSpy{}
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	app.Post("/api/properties/import", as(7), ImportPropertiesHandler(store, ch, spy))

	buf := workbook(t,
		importHeader,
		[]any{"Marina Flat", "Sea view", 1500000, "apartment", "sale", 2, 2, 1250, "Marina Walk", "Dubai", "Dubai", "Pool", ""},
		[]any{"Castle", "Old", 900000, "castle", "sale", 9, 9, 9000, "Hill", "Dubai", "Dubai", "", ""},
		[]any{"JVC Studio", "Compact", 45000, "studio", "rent", 0, 1, 420, "District 12", "Dubai", "Dubai", "", ""},
	)

	code, res := upload(t, app, "listings.xlsx", buf.Bytes())
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if res.Imported != 2 || res.Failed != 1 {
		t.Fatalf("expected 2 imported and 1 failed, got %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0].Row != 3 {
		t.Fatalf("invalid type should be reported on row 3, got %+v", res.Errors)
	}

	for _, p := range store.catalog {
		if p.AgentID != 7 || p.Status != models.PropertyStatusActive {
			t.Fatalf("imported property not owned by caller: %+v", p)
		}
	}
	if ch.bumps != 1 || len(spy.entries) != 1 {
		t.Fatalf("import should bump cache once and write one audit entry (bumps=%d audit=%d)", ch.bumps, len(spy.entries))
	}
}

func TestImportRejectsNonXLSX(t *testing.T) {
	store := &memStore{}
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	app.Post("/api/properties/import", as(7), ImportPropertiesHandler(store, newSpyCache(), nil))

	if code, _ := upload(t, app, "listings.csv", []byte("title,price\n")); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if code, _ := upload(t, app, "listings.xlsx", []byte("not a zip")); code != http.StatusBadRequest {
		t.Fatalf("corrupt workbook should be 400, got %d", code)
	}
	if len(store.catalog) != 0 {
		t.Fatalf("nothing should be imported")
	}
}

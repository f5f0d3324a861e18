package property

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/audit"
	"proptrack-backend/internal/auth"
	"proptrack-backend/internal/cache"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const maxImportRows = 500

// Başlık satırındaki kolon adları; boşluk, alt çizgi ve tire yok sayılır.
var requiredColumns = []string{"title", "description", "price", "type", "listingtype", "area", "address", "city", "state"}

// SheetRow Excel'deki tek bir ilan satırı. Line 1 tabanlı satır numarasıdır.
type SheetRow struct {
	Line    int
	Request CreatePropertyRequest
	Err     error
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Imported int               `json:"imported"`
	Failed   int               `json:"failed"`
	Errors   []RowError        `json:"errors"`
	Created  []models.Property `json:"properties"`
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// ParseSheet ilk sheet'i okur ve başlık satırına göre satırları request'e çevirir.
// Sayı alanı okunamayan satırlar Err ile döner, boş satırlar atlanır.
func ParseSheet(r io.Reader) ([]SheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("excel dosyası okunamadı: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel dosyasında sheet yok")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sheet okunamadı: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel dosyası boş")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		columns[normalizeHeader(h)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("eksik kolonlar: %s", strings.Join(missing, ", "))
	}
	if len(rows)-1 > maxImportRows {
		return nil, fmt.Errorf("en fazla %d satır yüklenebilir", maxImportRows)
	}

	out := make([]SheetRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		req, err := rowToRequest(cell)
		out = append(out, SheetRow{Line: i + 2, Request: req, Err: err})
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func rowToRequest(cell func(string) string) (CreatePropertyRequest, error) {
	req := CreatePropertyRequest{
		Title:       cell("title"),
		Description: cell("description"),
		Type:        strings.ToLower(cell("type")),
		ListingType: strings.ToLower(cell("listingtype")),
		Status:      strings.ToLower(cell("status")),
		Amenities:   api.CSV(cell("amenities")),
		Images:      api.CSV(cell("images")),
		Featured:    parseBool(cell("featured")),
		Location: LocationRequest{
			Address: cell("address"),
			City:    cell("city"),
			State:   cell("state"),
			ZipCode: cell("zipcode"),
		},
	}

	var err error
	if v := cell("price"); v != "" {
		price, perr := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if perr != nil {
			return req, fmt.Errorf("price is not a number: %q", v)
		}
		req.Price = &price
	}
	if req.Area, err = optionalFloat(cell("area")); err != nil {
		return req, fmt.Errorf("area is not a number")
	}
	if req.Bedrooms, err = optionalInt(cell("bedrooms")); err != nil {
		return req, fmt.Errorf("bedrooms is not a whole number")
	}
	if req.Bathrooms, err = optionalInt(cell("bathrooms")); err != nil {
		return req, fmt.Errorf("bathrooms is not a whole number")
	}
	if lat := cell("latitude"); lat != "" {
		v, perr := strconv.ParseFloat(lat, 64)
		if perr != nil {
			return req, fmt.Errorf("latitude is not a number")
		}
		req.Location.Coordinates.Latitude = &v
	}
	if lng := cell("longitude"); lng != "" {
		v, perr := strconv.ParseFloat(lng, 64)
		if perr != nil {
			return req, fmt.Errorf("longitude is not a number")
		}
		req.Location.Coordinates.Longitude = &v
	}
	return req, nil
}

func optionalFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
}

func optionalInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "evet":
		return true
	}
	return false
}

// POST /api/properties/import
// Her geçerli satır çağıran danışman adına ilan olarak kaydedilir; hatalı satırlar raporlanır.
func ImportPropertiesHandler(store Store, ch cache.Cache, aw audit.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return api.NewDetailError(fiber.StatusBadRequest, "File upload failed", err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Only .xlsx files can be imported")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return err
		}
		defer file.Close()

		rows, err := ParseSheet(file)
		if err != nil {
			return api.NewDetailError(fiber.StatusBadRequest, "Invalid spreadsheet", err.Error())
		}

		result := ImportResult{Errors: []RowError{}, Created: []models.Property{}}
		for _, row := range rows {
			if row.Err == nil {
				row.Err = api.Validate(&row.Request)
			}
			if row.Err != nil {
				result.Failed++
				result.Errors = append(result.Errors, RowError{Row: row.Line, Message: api.Describe(row.Err)})
				continue
			}

			property := row.Request.toModel(p.ID)
			if err := store.Create(c.UserContext(), &property); err != nil {
				log.Printf("[ERROR] import satır %d kaydedilemedi: %v", row.Line, err)
				result.Failed++
				result.Errors = append(result.Errors, RowError{Row: row.Line, Message: "could not be saved"})
				continue
			}
			result.Imported++
			result.Created = append(result.Created, property)
		}

		if result.Imported > 0 {
			invalidate(c, ch)
			audit.Record(c.UserContext(), aw, audit.LogOptions{
				UserID:      p.ID,
				UserName:    p.Name,
				EntityType:  "property",
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Bulk import from %s: %d created, %d failed", fileHeader.Filename, result.Imported, result.Failed),
			})
		}

		return api.OK(c, result)
	}
}

package client

import (
	"fmt"
	"io"
	"time"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/config"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet   = "Clients"
	maxExportRows = 5000
)

var exportHeader = []any{
	"ID", "Name", "Email", "Phone", "Property", "Inquiry Type", "Status", "Priority",
	"Source", "Budget Min", "Budget Max", "Last Contacted", "Next Follow-up", "Created", "Notes",
}

// WriteSheet client listesini tek sayfalık bir xlsx olarak w'ya yazar. Tarihler loc'a göre formatlanır.
func WriteSheet(w io.Writer, clients []models.Client, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, cl := range clients {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			cl.ID, cl.Name, cl.Email, cl.Phone, propertyTitle(cl), string(cl.InquiryType), string(cl.Status),
			string(cl.Priority), string(cl.Source), floatCell(cl.Budget.Min), floatCell(cl.Budget.Max),
			timeCell(cl.LastContactedAt, loc), timeCell(cl.NextFollowUpAt, loc),
			cl.CreatedAt.In(loc).Format("2006-01-02 15:04"), len(cl.AgentNotes),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func propertyTitle(cl models.Client) string {
	if cl.Property == nil {
		return fmt.Sprintf("#%d", cl.PropertyID)
	}
	return cl.Property.Title
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func timeCell(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

// GET /api/clients/export
// Liste ile aynı filtreleri kabul eder; sayfalama yerine ilk maxExportRows kayıt yazılır.
func ExportClientsHandler(cfg *config.Config, store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now()
		filter := FilterFromQuery(c.Queries(), cfg.Location, now)

		clients, _, err := store.List(c.UserContext(), filter, api.Page{Number: 1, Size: maxExportRows})
		if err != nil {
			return err
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="clients-%s.xlsx"`, now.In(cfg.Location).Format("20060102")))
		return WriteSheet(c.Response().BodyWriter(), clients, cfg.Location)
	}
}

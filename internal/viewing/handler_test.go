package viewing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/auth"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func withAgent(c *fiber.Ctx) error {
	c.Locals(auth.CtxUserIDKey, uint(3))
	c.Locals(auth.CtxUserNameKey, "Agent Three")
	c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
	return c.Next()
}

func buildTestApp(s *Scheduler, store Store) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	app.Post("/api/viewings/availability", AvailabilityHandler(s))
	app.Post("/api/viewings", withAgent, CreateViewingHandler(s, nil))
	app.Get("/api/viewings/:id", GetViewingHandler(s, store))
	app.Put("/api/viewings/:id", withAgent, UpdateViewingHandler(s, store, nil))
	app.Patch("/api/viewings/:id/status", withAgent, UpdateStatusHandler(s, store, nil))
	app.Delete("/api/viewings/:id", withAgent, DeleteViewingHandler(store, nil))
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func send(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, env
}

func TestCreateViewingConflictReturns400(t *testing.T) {
	store := newMemStore(existing(10, at(1, 14, 0), 60, models.ViewingConfirmed))
	app := buildTestApp(newTestScheduler(store, bufferPolicy), store)

	code, env := send(t, app, http.MethodPost, "/api/viewings",
		`{"propertyId":1,"clientId":1,"scheduledDate":"2025-06-01","scheduledTime":{"hour":15,"minute":0},"duration":60}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%+v)", code, env)
	}
	if env.Success || env.Message != "Scheduling conflict" || !strings.Contains(env.Error, "14:00") {
		t.Fatalf("unexpected error envelope %+v", env)
	}
	if store.count() != 1 {
		t.Fatalf("nothing should be persisted on conflict")
	}
}

func TestCreateViewingSplitsTime(t *testing.T) {
	store := newMemStore()
	app := buildTestApp(newTestScheduler(store, bufferPolicy), store)

	code, env := send(t, app, http.MethodPost, "/api/viewings",
		`{"propertyId":1,"clientId":1,"scheduledDate":"2025-06-02","scheduledTime":{"hour":14,"minute":30},"type":"virtual"}`)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%+v)", code, env)
	}

	var got struct {
		ID            uint      `json:"id"`
		ScheduledDate string    `json:"scheduledDate"`
		ScheduledTime TimeOfDay `json:"scheduledTime"`
		Duration      int       `json:"duration"`
		Status        string    `json:"status"`
		Type          string    `json:"type"`
	}
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.ScheduledDate != "2025-06-02" || got.ScheduledTime != (TimeOfDay{14, 30}) {
		t.Fatalf("unexpected split time %+v", got)
	}
	if got.Duration != DefaultDuration || got.Status != "scheduled" || got.Type != "virtual" {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestCreateViewingValidation(t *testing.T) {
	store := newMemStore()
	app := buildTestApp(newTestScheduler(store, bufferPolicy), store)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing time", `{"propertyId":1,"clientId":1,"scheduledDate":"2025-06-02"}`, http.StatusBadRequest},
		{"bad date", `{"propertyId":1,"clientId":1,"scheduledDate":"02.06.2025","scheduledTime":{"hour":10,"minute":0}}`, http.StatusBadRequest},
		{"minute out of range", `{"propertyId":1,"clientId":1,"scheduledDate":"2025-06-02","scheduledTime":{"hour":10,"minute":75}}`, http.StatusBadRequest},
		{"duration too long", `{"propertyId":1,"clientId":1,"scheduledDate":"2025-06-02","scheduledTime":{"hour":10,"minute":0},"duration":500}`, http.StatusBadRequest},
		{"unknown client", `{"propertyId":1,"clientId":5,"scheduledDate":"2025-06-02","scheduledTime":{"hour":10,"minute":0}}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := send(t, app, http.MethodPost, "/api/viewings", tt.body)
			if code != tt.want {
				t.Fatalf("expected %d, got %d (%+v)", tt.want, code, env)
			}
		})
	}
	if store.count() != 0 {
		t.Fatalf("invalid requests must not persist")
	}
}

func TestUpdateViewingTimeOnly(t *testing.T) {
	store := newMemStore(
		existing(10, at(1, 14, 0), 60, models.ViewingConfirmed),
		existing(11, at(5, 10, 0), 60, models.ViewingScheduled),
	)
	app := buildTestApp(newTestScheduler(store, bufferPolicy), store)

	// sadece saat değişir, tarih korunur
	code, env := send(t, app, http.MethodPut, "/api/viewings/11", `{"scheduledTime":{"hour":16,"minute":0}}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%+v)", code, env)
	}
	if got := store.viewings[11].ScheduledAt; !got.Equal(at(5, 16, 0)) {
		t.Fatalf("expected 2025-06-05 16:00, got %v", got.In(dubai))
	}

	code, env = send(t, app, http.MethodPut, "/api/viewings/11", `{"scheduledDate":"2025-06-01"}`)
	if code != http.StatusBadRequest || env.Message != "Scheduling conflict" {
		t.Fatalf("moving next to viewing 10 should conflict, got %d (%+v)", code, env)
	}
	if got := store.viewings[11].ScheduledAt; !got.Equal(at(5, 16, 0)) {
		t.Fatalf("rejected update must not change stored time, got %v", got.In(dubai))
	}
}

func TestStatusPatchAndDelete(t *testing.T) {
	store := newMemStore(existing(11, at(5, 10, 0), 60, models.ViewingScheduled))
	app := buildTestApp(newTestScheduler(store, bufferPolicy), store)

	code, env := send(t, app, http.MethodPatch, "/api/viewings/11/status",
		`{"status":"completed","outcome":"offer_made","clientFeedback":{"rating":5,"interested":true}}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%+v)", code, env)
	}
	v := store.viewings[11]
	if v.Status != models.ViewingCompleted || v.Outcome != models.OutcomeOfferMade {
		t.Fatalf("status patch not applied: %+v", v)
	}
	if fb := v.ClientFeedback.Data(); fb.Rating == nil || *fb.Rating != 5 {
		t.Fatalf("feedback not stored: %+v", fb)
	}

	code, _ = send(t, app, http.MethodPatch, "/api/viewings/11/status", `{"status":"teleported"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown status should be 400, got %d", code)
	}

	code, _ = send(t, app, http.MethodDelete, "/api/viewings/11", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if store.viewings[11].IsActive {
		t.Fatalf("viewing should be soft deleted")
	}

	code, _ = send(t, app, http.MethodGet, "/api/viewings/11", "")
	if code != http.StatusNotFound {
		t.Fatalf("deleted viewing should be 404, got %d", code)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	store := newMemStore(existing(10, at(1, 14, 0), 60, models.ViewingConfirmed))
	app := buildTestApp(newTestScheduler(store, bufferPolicy), store)

	code, env := send(t, app, http.MethodPost, "/api/viewings/availability",
		`{"propertyId":1,"scheduledDate":"2025-06-01","scheduledTime":{"hour":15,"minute":0}}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%+v)", code, env)
	}

	var got Availability
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.Available {
		t.Fatalf("15:00 should be unavailable")
	}
	if len(got.SuggestedSlots) > maxSuggestions {
		t.Fatalf("too many suggestions: %d", len(got.SuggestedSlots))
	}

	code, _ = send(t, app, http.MethodPost, "/api/viewings/availability",
		`{"propertyId":99,"scheduledDate":"2025-06-01","scheduledTime":{"hour":15,"minute":0}}`)
	if code != http.StatusNotFound {
		t.Fatalf("unknown property should be 404, got %d", code)
	}
}

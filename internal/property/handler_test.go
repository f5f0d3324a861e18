package property

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"proptrack-backend/internal/api"
	"proptrack-backend/internal/audit"
	"proptrack-backend/internal/auth"
	"proptrack-backend/internal/cache"
	"proptrack-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// memStore memFinder'ı CRUD işlemleriyle genişletir.
type memStore struct {
	memFinder
	listCalls int
}

func (m *memStore) Create(_ context.Context, p *models.Property) error {
	p.ID = uint(len(m.catalog) + 1)
	m.catalog = append(m.catalog, *p)
	return nil
}

func (m *memStore) Save(_ context.Context, p *models.Property) error {
	for i := range m.catalog {
		if m.catalog[i].ID == p.ID {
			m.catalog[i] = *p
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memStore) Delete(_ context.Context, id uint) error {
	for i := range m.catalog {
		if m.catalog[i].ID == id {
			m.catalog = append(m.catalog[:i], m.catalog[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memStore) List(_ context.Context, _ Filter, page api.Page) ([]models.Property, int64, error) {
	m.listCalls++
	return m.catalog, int64(len(m.catalog)), nil
}

func (m *memStore) Exists(ctx context.Context, id uint) (bool, error) {
	_, err := m.Get(ctx, id)
	return err == nil, nil
}

func (m *memStore) Stats(context.Context) (*Stats, error) {
	return &Stats{Total: int64(len(m.catalog))}, nil
}

// spyCache bellekte tutar ve RedisCache gibi kök namespace başına versiyon tutar.
type spyCache struct {
	entries  map[string][]byte
	versions map[string]int
	bumps    int
}

func newSpyCache() *spyCache {
	return &spyCache{entries: map[string][]byte{}, versions: map[string]int{}}
}

func (s *spyCache) Get(_ context.Context, key string, dest any) (bool, error) {
	b, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (s *spyCache) Set(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	s.entries[key] = b
	return err
}

func (s *spyCache) Key(_ context.Context, namespace string, params map[string]string) string {
	return cache.QueryKey(fmt.Sprintf("%s:v%d", namespace, s.versions[cache.RootNamespace(namespace)]), params)
}

func (s *spyCache) Bump(_ context.Context, namespace string) error {
	s.versions[cache.RootNamespace(namespace)]++
	s.bumps++
	return nil
}

type auditSpy struct{ entries []audit.LogOptions }

func (a *auditSpy) WriteLog(_ context.Context, opts audit.LogOptions) error {
	a.entries = append(a.entries, opts)
	return nil
}

// as verilen kullanıcı id'si ile giriş yapılmış gibi davranır.
func as(id uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, id)
		c.Locals(auth.CtxUserNameKey, "agent")
		c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
		return c.Next()
	}
}

func buildTestApp(store *memStore, ch cache.Cache, aw audit.Writer) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	app.Get("/api/properties", ListPropertiesHandler(store, ch))
	app.Get("/api/properties/:id", GetPropertyHandler(store))
	app.Get("/api/properties/:id/similar", SimilarPropertiesHandler(NewSimilarResolver(store), ch))
	app.Post("/api/properties", as(1), CreatePropertyHandler(store, ch, aw))
	// agent 2 başka bir danışman
	app.Put("/api/properties/:id", func(c *fiber.Ctx) error {
		id := uint(1)
		if c.Get("X-Agent") == "2" {
			id = 2
		}
		return as(id)(c)
	}, UpdatePropertyHandler(store, ch, aw))
	app.Delete("/api/properties/:id", as(1), DeletePropertyHandler(store, ch, aw))
	return app
}

func request(t *testing.T, app *fiber.App, method, path, body string, headers ...string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

const villaJSON = `{
	"title": "Palm Villa",
	"description": "Beachfront villa",
	"price": 2000000,
	"location": {"address": "Frond K", "city": "Dubai", "state": "Dubai"},
	"type": "villa",
	"listingType": "sale",
	"bedrooms": 5,
	"bathrooms": 6,
	"area": 6500,
	"amenities": ["Pool", "pool", "Gym"]
}`

func TestCreatePropertyAssignsAgent(t *testing.T) {
	store, ch, spy := &memStore{}, newSpyCache(), &auditSpy{}
	app := buildTestApp(store, ch, spy)

	if code := request(t, app, http.MethodPost, "/api/properties", villaJSON); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}

	p := store.catalog[0]
	if p.AgentID != 1 || p.Status != models.PropertyStatusActive {
		t.Fatalf("unexpected property %+v", p)
	}
	if len(p.Amenities) != 2 {
		t.Fatalf("amenities should be deduplicated, got %v", p.Amenities)
	}
	if ch.bumps != 1 || len(spy.entries) != 1 {
		t.Fatalf("create should bump cache and write audit (bumps=%d audit=%d)", ch.bumps, len(spy.entries))
	}
}

func TestCreatePropertyValidation(t *testing.T) {
	store := &memStore{}
	app := buildTestApp(store, cache.Nop{}, nil)

	bad := []string{
		strings.Replace(villaJSON, `"type": "villa"`, `"type": "castle"`, 1),
		strings.Replace(villaJSON, `"price": 2000000`, `"price": -5`, 1),
		strings.Replace(villaJSON, `"bedrooms": 5`, `"bedrooms": 40`, 1),
		strings.Replace(villaJSON, `"area": 6500`, `"area": 0`, 1),
		strings.Replace(villaJSON, `"city": "Dubai", `, ``, 1),
	}
	for i, body := range bad {
		if code := request(t, app, http.MethodPost, "/api/properties", body); code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d", i, code)
		}
	}
	if len(store.catalog) != 0 {
		t.Fatalf("invalid properties must not be stored")
	}
}

func TestUpdateRequiresOwner(t *testing.T) {
	store, ch := &memStore{}, newSpyCache()
	app := buildTestApp(store, ch, nil)
	request(t, app, http.MethodPost, "/api/properties", villaJSON)

	if code := request(t, app, http.MethodPut, "/api/properties/1", `{"price": 1}`, "X-Agent", "2"); code != http.StatusForbidden {
		t.Fatalf("other agent should get 403, got %d", code)
	}
	if store.catalog[0].Price != 2_000_000 {
		t.Fatalf("forbidden update must not change the property")
	}

	if code := request(t, app, http.MethodPut, "/api/properties/1", `{"price": 1900000, "status": "pending"}`); code != http.StatusOK {
		t.Fatalf("owner update: expected 200, got %d", code)
	}
	if p := store.catalog[0]; p.Price != 1_900_000 || p.Status != models.PropertyStatusPending || p.Title != "Palm Villa" {
		t.Fatalf("partial update not applied correctly: %+v", p)
	}

	if code := request(t, app, http.MethodPut, "/api/properties/9", `{"price": 1}`); code != http.StatusNotFound {
		t.Fatalf("unknown property should be 404, got %d", code)
	}
}

func TestListIsCachedUntilWrite(t *testing.T) {
	store, ch := &memStore{}, newSpyCache()
	app := buildTestApp(store, ch, nil)
	request(t, app, http.MethodPost, "/api/properties", villaJSON)

	request(t, app, http.MethodGet, "/api/properties?city=Dubai", "")
	request(t, app, http.MethodGet, "/api/properties?city=Dubai", "")
	if store.listCalls != 1 {
		t.Fatalf("second list should be served from cache, store called %d times", store.listCalls)
	}

	request(t, app, http.MethodDelete, "/api/properties/1", "")
	request(t, app, http.MethodGet, "/api/properties?city=Dubai", "")
	if store.listCalls != 2 {
		t.Fatalf("write should invalidate cached lists, store called %d times", store.listCalls)
	}
}

func TestSimilarUnknownReference(t *testing.T) {
	app := buildTestApp(&memStore{}, cache.Nop{}, nil)

	if code := request(t, app, http.MethodGet, "/api/properties/5/similar", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := request(t, app, http.MethodGet, "/api/properties/abc/similar", ""); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func similarIDs(t *testing.T, app *fiber.App, path string) []uint {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var env struct {
		Data []models.Property `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ids(env.Data)
}

func TestSimilarCacheDropsArchivedListing(t *testing.T) {
	store, ch := &memStore{}, newSpyCache()
	app := buildTestApp(store, ch, nil)
	request(t, app, http.MethodPost, "/api/properties", villaJSON)
	request(t, app, http.MethodPost, "/api/properties", villaJSON)

	if got := similarIDs(t, app, "/api/properties/1/similar"); !equalIDs(got, []uint{2}) {
		t.Fatalf("expected [2], got %v", got)
	}
	queries := len(store.queries)
	similarIDs(t, app, "/api/properties/1/similar")
	if len(store.queries) != queries {
		t.Fatalf("second similar call should be served from cache")
	}

	if code := request(t, app, http.MethodPut, "/api/properties/2", `{"status": "archived"}`); code != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d", code)
	}
	if got := similarIDs(t, app, "/api/properties/1/similar"); len(got) != 0 {
		t.Fatalf("archived listing still served from cache: %v", got)
	}
	if len(store.queries) == queries {
		t.Fatalf("write should force the similar lookup to run again")
	}
}

package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/joyeria/internal/adapters/repo/postgres"
	"github.com/phenrril/joyeria/internal/usecase"
)

const testAPIKey = "test-key"

type harness struct {
	srv     *Server
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := postgres.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	products := postgres.NewProductRepo(db)
	materials := postgres.NewMaterialRepo(db)
	s := newServer(
		&usecase.ProductUC{Products: products, Materials: materials},
		&usecase.MaterialUC{Materials: materials},
		&usecase.MatrixUC{Materials: materials},
		&usecase.CustomerUC{Customers: postgres.NewCustomerRepo(db)},
		Config{
			AdminAPIKey:        testAPIKey,
			AdminAllowedEmails: []string{"Admin@Joyeria.test"},
			AdminSecret:        "secret",
			BaseURL:            "http://shop.test",
		},
	)
	return &harness{srv: s, handler: Chain(s.router, RequestID, Logging, Recovery)}
}

func (h *harness) do(t *testing.T, method, path string, body any, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (h *harness) createMaterial(t *testing.T, name, price string) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/materials", map[string]string{"name": name, "pricePerGram": price}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create material: want=201 got=%d %s", rec.Code, rec.Body.String())
	}
	return decode[struct {
		ID string `json:"id"`
	}](t, rec).ID
}

func TestHealthzAndRequestID(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: want=200 got=%d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/materials", "/api/products", "/api/matrix/catalog", "/api/customers", "/admin/export/csv"} {
		rec := h.do(t, http.MethodGet, path, nil, false)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: want=401 got=%d", path, rec.Code)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/api/materials", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: want=401 got=%d", rec.Code)
	}
}

func TestAdminTokenCookie(t *testing.T) {
	h := newHarness(t)
	tok, _, err := h.srv.issueAdminToken("admin@joyeria.test", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	stranger, _, _ := h.srv.issueAdminToken("someone@else.test", time.Hour)
	expired, _, _ := h.srv.issueAdminToken("admin@joyeria.test", -time.Minute)

	signed := func(method jwt.SigningMethod, role string, secret []byte) string {
		claims := adminClaims{
			Email:            "admin@joyeria.test",
			Role:             role,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}
		out, err := jwt.NewWithClaims(method, claims).SignedString(secret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return out
	}
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{Email: "admin@joyeria.test", Role: "admin"}).SignedString(h.srv.adminSecret)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"allowed", tok, http.StatusOK},
		{"not allowed", stranger, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"tampered", tok[:len(tok)-2] + "xx", http.StatusUnauthorized},
		{"other algorithm", signed(jwt.SigningMethodHS512, "admin", h.srv.adminSecret), http.StatusUnauthorized},
		{"other secret", signed(jwt.SigningMethodHS256, "admin", []byte("not-the-secret")), http.StatusUnauthorized},
		{"not admin role", signed(jwt.SigningMethodHS256, "customer", h.srv.adminSecret), http.StatusUnauthorized},
		{"no expiry", noExpiry, http.StatusUnauthorized},
		{"garbage", "not.a.token", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/materials", nil)
			req.AddCookie(&http.Cookie{Name: adminCookie, Value: tc.token})
			rec := httptest.NewRecorder()
			h.handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("want=%d got=%d", tc.want, rec.Code)
			}
		})
	}
}

func TestProductLifecycleAndStorefront(t *testing.T) {
	h := newHarness(t)
	goldID := h.createMaterial(t, "Oro 18K", "75.5")

	body := map[string]any{
		"name":     "Anillo Clásico",
		"category": "anillos",
		"attributes": []map[string]any{
			{"name": "Ring Size", "values": []string{"6", "7"}},
		},
		"variants": []map[string]any{
			{"id": "variant-1", "attributes": map[string]string{"Ring Size": "6"}, "pricingType": "dynamic", "weight": "5", "materialId": goldID, "makingCharge": "0", "sku": "AC-6", "stock": "2"},
			{"id": "variant-2", "attributes": map[string]string{"Ring Size": "7"}, "pricingType": "flat", "price": "500", "sku": "AC-7", "stock": "0"},
		},
	}
	rec := h.do(t, http.MethodPost, "/api/products", body, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: want=201 got=%d %s", rec.Code, rec.Body.String())
	}
	created := decode[struct {
		Slug     string `json:"slug"`
		Variants []struct {
			CalculatedPrice *string `json:"calculatedPrice"`
		} `json:"variants"`
	}](t, rec)
	if created.Slug != "anillo-cl-sico" {
		t.Fatalf("slug: got %q", created.Slug)
	}
	if p := created.Variants[0].CalculatedPrice; p == nil || *p != "377.5" {
		t.Fatalf("calculated price: want=377.5 got=%v", p)
	}

	type storeProduct struct {
		Price    *string `json:"price"`
		Variants []struct {
			Key     string  `json:"key"`
			Price   *string `json:"price"`
			InStock bool    `json:"inStock"`
		} `json:"variants"`
	}
	rec = h.do(t, http.MethodGet, "/api/store/products/"+created.Slug, nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("store product: want=200 got=%d", rec.Code)
	}
	sp := decode[storeProduct](t, rec)
	if sp.Price == nil || *sp.Price != "377.5" || !sp.Variants[0].InStock || sp.Variants[1].InStock {
		t.Fatalf("store product: %s", rec.Body.String())
	}

	rec = h.do(t, http.MethodPut, "/api/materials/"+goldID, map[string]string{"name": "Oro 18K", "pricePerGram": "120"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update material: want=200 got=%d %s", rec.Code, rec.Body.String())
	}
	sp = decode[storeProduct](t, h.do(t, http.MethodGet, "/api/store/products/"+created.Slug, nil, false))
	if *sp.Variants[0].Price != "600" || *sp.Price != "500" {
		t.Fatalf("repriced: %+v", sp)
	}

	rec = h.do(t, http.MethodGet, "/api/store/categories", nil, false)
	if !strings.Contains(rec.Body.String(), "anillos") {
		t.Fatalf("categories: %s", rec.Body.String())
	}

	rec = h.do(t, http.MethodDelete, "/api/products/"+created.Slug, nil, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: want=204 got=%d", rec.Code)
	}
	rec = h.do(t, http.MethodGet, "/api/store/products/"+created.Slug, nil, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("after delete: want=404 got=%d", rec.Code)
	}
}

func TestProductValidationErrors(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{
		"name":    "",
		"pricing": map[string]string{"pricingType": "dynamic", "weight": "0"},
	}
	rec := h.do(t, http.MethodPost, "/api/products", body, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want=400 got=%d %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec)
	for _, f := range []string{"name", "pricing.weight", "pricing.materialId", "pricing.makingCharge"} {
		if got.Fields[f] == "" {
			t.Fatalf("missing field error %q in %v", f, got.Fields)
		}
	}

	rec = h.do(t, http.MethodPost, "/api/products", nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: want=400 got=%d", rec.Code)
	}
	rec = h.do(t, http.MethodPut, "/api/materials/not-a-uuid", map[string]string{}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want=400 got=%d", rec.Code)
	}
}

func TestMatrixEndpoints(t *testing.T) {
	h := newHarness(t)
	goldID := h.createMaterial(t, "Oro", "75.5")

	rec := h.do(t, http.MethodPost, "/api/matrix/apply", map[string]any{
		"attributes": []any{},
		"variants":   []any{},
		"op":         map[string]any{"op": "add_attribute", "attribute": "Metal"},
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply: want=200 got=%d %s", rec.Code, rec.Body.String())
	}
	applied := decode[struct {
		Accepted bool             `json:"accepted"`
		Variants []map[string]any `json:"variants"`
	}](t, rec)
	if !applied.Accepted || len(applied.Variants) != 5 {
		t.Fatalf("apply: accepted=%v variants=%d", applied.Accepted, len(applied.Variants))
	}

	rec = h.do(t, http.MethodPost, "/api/matrix/generate", map[string]any{
		"attributes": []map[string]any{{"name": "A", "values": []string{"x", "y"}}, {"name": "B", "values": []string{"1", "2"}}},
	}, true)
	gen := decode[struct {
		Variants []struct {
			ID         string            `json:"id"`
			Attributes map[string]string `json:"attributes"`
		} `json:"variants"`
	}](t, rec)
	if len(gen.Variants) != 4 || gen.Variants[1].Attributes["B"] != "2" || gen.Variants[3].ID != "variant-4" {
		t.Fatalf("generate: %s", rec.Body.String())
	}

	rec = h.do(t, http.MethodPost, "/api/pricing/calculate", map[string]string{"weight": "5", "materialId": goldID, "makingCharge": "0"}, true)
	if !strings.Contains(rec.Body.String(), `"calculatedPrice":"377.5"`) {
		t.Fatalf("calculate: %s", rec.Body.String())
	}
	rec = h.do(t, http.MethodPost, "/api/pricing/calculate", map[string]string{"weight": "0", "materialId": goldID, "makingCharge": "0"}, true)
	if !strings.Contains(rec.Body.String(), `"calculatedPrice":null`) {
		t.Fatalf("calculate undefined: %s", rec.Body.String())
	}

	rec = h.do(t, http.MethodGet, "/api/matrix/catalog", nil, true)
	if !strings.Contains(rec.Body.String(), "Ring Size") {
		t.Fatalf("catalog: %s", rec.Body.String())
	}
}

func TestExportCSV(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":    "Dije",
		"pricing": map[string]string{"pricingType": "flat", "price": "99.9"},
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	rec = h.do(t, http.MethodGet, "/admin/export/csv", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: want=200 got=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type: %q", ct)
	}
	want := "slug,name,variant_key,sku,pricing_type,price,stock\ndije,Dije,,,flat,99.90,\n"
	if rec.Body.String() != want {
		t.Fatalf("csv: want=%q got=%q", want, rec.Body.String())
	}
}

func TestGoogleCallbackRecordsCustomerAndAdmin(t *testing.T) {
	h := newHarness(t)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"email":"admin@joyeria.test","name":"Admin"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer provider.Close()

	h.srv.oauthCfg = &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://shop.test/auth/google/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"},
	}
	h.srv.userInfoURL = provider.URL + "/userinfo"

	rec := h.do(t, http.MethodGet, "/auth/google/login", nil, false)
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), provider.URL+"/auth") {
		t.Fatalf("login redirect: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=s1&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("callback: want=302 got=%d %s", rec.Code, rec.Body.String())
	}
	var adminTok string
	for _, c := range rec.Result().Cookies() {
		if c.Name == adminCookie {
			adminTok = c.Value
		}
	}
	if _, err := h.srv.verifyAdminToken(adminTok); err != nil {
		t.Fatalf("admin cookie: %v", err)
	}

	rec = h.do(t, http.MethodGet, "/api/customers", nil, true)
	if !strings.Contains(rec.Body.String(), "admin@joyeria.test") {
		t.Fatalf("customers: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=other&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("state mismatch: want=400 got=%d", rec.Code)
	}
}

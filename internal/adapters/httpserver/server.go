package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/joyeria/internal/adapters/export"
	"github.com/phenrril/joyeria/internal/domain"
	"github.com/phenrril/joyeria/internal/usecase"
	"github.com/phenrril/joyeria/internal/variants"
)

const maxBody = 1 << 20

type Config struct {
	AdminAPIKey        string
	AdminAllowedEmails []string
	AdminSecret        string
	BaseURL            string
	SecureCookies      bool
	OAuth              *oauth2.Config
}

type Server struct {
	router    *mux.Router
	products  *usecase.ProductUC
	materials *usecase.MaterialUC
	matrix    *usecase.MatrixUC
	customers *usecase.CustomerUC
	oauthCfg  *oauth2.Config

	adminAllowed  map[string]struct{}
	adminSecret   []byte
	adminAPIKey   string
	baseURL       string
	secureCookies bool
	userInfoURL   string
	now           func() time.Time
}

func New(p *usecase.ProductUC, m *usecase.MaterialUC, mx *usecase.MatrixUC, c *usecase.CustomerUC, cfg Config) http.Handler {
	s := newServer(p, m, mx, c, cfg)
	return Chain(s.router, RequestID, Logging, Recovery)
}

func newServer(p *usecase.ProductUC, m *usecase.MaterialUC, mx *usecase.MatrixUC, c *usecase.CustomerUC, cfg Config) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		products:      p,
		materials:     m,
		matrix:        mx,
		customers:     c,
		oauthCfg:      cfg.OAuth,
		adminAllowed:  map[string]struct{}{},
		adminAPIKey:   cfg.AdminAPIKey,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secureCookies: cfg.SecureCookies,
		userInfoURL:   googleInfoURL,
		now:           time.Now,
	}
	for _, e := range cfg.AdminAllowedEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			s.adminAllowed[e] = struct{}{}
		}
	}
	sec := cfg.AdminSecret
	if sec == "" {
		log.Warn().Msg("JWT_ADMIN_SECRET not set, using development secret")
		sec = "dev-admin-secret"
	}
	s.adminSecret = []byte(sec)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/store/products", s.handleStoreProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/store/products/{slug}", s.handleStoreProduct).Methods(http.MethodGet)
	r.HandleFunc("/api/store/categories", s.handleStoreCategories).Methods(http.MethodGet)

	r.HandleFunc("/auth/google/login", s.handleGoogleLogin).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/callback", s.handleGoogleCallback).Methods(http.MethodGet)
	r.HandleFunc("/admin/logout", s.handleAdminLogout).Methods(http.MethodPost)

	admin := func(path string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, s.adminOnly(h)).Methods(methods...)
	}
	admin("/api/materials", s.apiMaterials, http.MethodGet)
	admin("/api/materials", s.apiMaterialCreate, http.MethodPost)
	admin("/api/materials/{id}", s.apiMaterialUpdate, http.MethodPut)
	admin("/api/materials/{id}", s.apiMaterialDelete, http.MethodDelete)

	admin("/api/products", s.apiProducts, http.MethodGet)
	admin("/api/products", s.apiProductCreate, http.MethodPost)
	admin("/api/products/{slug}", s.apiProduct, http.MethodGet)
	admin("/api/products/{slug}", s.apiProductUpdate, http.MethodPut)
	admin("/api/products/{slug}", s.apiProductDelete, http.MethodDelete)

	admin("/api/matrix/apply", s.apiMatrixApply, http.MethodPost)
	admin("/api/matrix/generate", s.apiMatrixGenerate, http.MethodPost)
	admin("/api/matrix/catalog", s.apiMatrixCatalog, http.MethodGet)
	admin("/api/pricing/calculate", s.apiPricingCalculate, http.MethodPost)

	admin("/api/customers", s.apiCustomers, http.MethodGet)

	admin("/admin/export/csv", s.handleAdminExportCSV, http.MethodGet)
	admin("/admin/export/xlsx", s.handleAdminExportXLSX, http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStoreProducts(w http.ResponseWriter, r *http.Request) {
	f := productFilter(r)
	list, total, err := s.products.Storefront(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": total, "page": f.Page})
}

func (s *Server) handleStoreProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.StorefrontProduct(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStoreCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.products.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *Server) apiMaterials(w http.ResponseWriter, r *http.Request) {
	list, err := s.materials.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

func (s *Server) apiMaterialCreate(w http.ResponseWriter, r *http.Request) {
	var in usecase.MaterialInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := s.materials.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) apiMaterialUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var in usecase.MaterialInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := s.materials.Update(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.repriceProducts(r)
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) apiMaterialDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := s.materials.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.repriceProducts(r)
	w.WriteHeader(http.StatusNoContent)
}

// repriceProducts keeps stored list prices in step with material prices.
func (s *Server) repriceProducts(r *http.Request) {
	n, err := s.products.RepriceAll(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("reprice products")
		return
	}
	log.Info().Int("products", n).Msg("repriced products")
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	f := productFilter(r)
	f.ActiveOnly = r.URL.Query().Get("active") == "true"
	list, total, err := s.products.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": total, "page": f.Page})
}

func (s *Server) apiProductCreate(w http.ResponseWriter, r *http.Request) {
	var in usecase.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := s.products.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	log.Info().Str("slug", p.Slug).Int("variants", len(p.Variants)).Msg("product created")
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) apiProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.GetBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) apiProductUpdate(w http.ResponseWriter, r *http.Request) {
	var in usecase.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := s.products.Update(r.Context(), mux.Vars(r)["slug"], in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) apiProductDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.products.DeleteBySlug(r.Context(), mux.Vars(r)["slug"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type matrixApplyRequest struct {
	usecase.MatrixState
	Op usecase.MatrixOp `json:"op"`
}

func (s *Server) apiMatrixApply(w http.ResponseWriter, r *http.Request) {
	var req matrixApplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	state, accepted, err := s.matrix.Apply(r.Context(), req.MatrixState, req.Op)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attributes": state.Attributes,
		"variants":   state.Variants,
		"accepted":   accepted,
	})
}

func (s *Server) apiMatrixGenerate(w http.ResponseWriter, r *http.Request) {
	var state usecase.MatrixState
	if !decodeJSON(w, r, &state) {
		return
	}
	out, err := s.matrix.Generate(r.Context(), state)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiMatrixCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"attributes": s.matrix.Predefined()})
}

func (s *Server) apiPricingCalculate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weight       string `json:"weight"`
		MaterialID   string `json:"materialId"`
		MakingCharge string `json:"makingCharge"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	price, err := s.matrix.Calculate(r.Context(), req.Weight, req.MaterialID, req.MakingCharge)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calculatedPrice": price})
}

func (s *Server) apiCustomers(w http.ResponseWriter, r *http.Request) {
	page := intParam(r, "page", 1)
	size := intParam(r, "page_size", 50)
	list, total, err := s.customers.List(r.Context(), page, size)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": total, "page": page})
}

func (s *Server) handleAdminExportCSV(w http.ResponseWriter, r *http.Request) {
	s.exportProducts(w, r, "text/csv; charset=utf-8", "products.csv", export.WriteCSV)
}

func (s *Server) handleAdminExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.exportProducts(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "products.xlsx", export.WriteXLSX)
}

type exportFunc func(io.Writer, []domain.Product, variants.PriceBook) error

func (s *Server) exportProducts(w http.ResponseWriter, r *http.Request, contentType, filename string, write exportFunc) {
	list, err := s.products.All(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	book, err := s.products.PriceBook(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, list, book); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(buf.Bytes())
}

// fail maps usecase errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid input", "fields": verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Str("req_id", requestIDFrom(r.Context())).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json: " + err.Error()})
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func productFilter(r *http.Request) domain.ProductFilter {
	q := r.URL.Query()
	return domain.ProductFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Sort:     q.Get("sort"),
		Page:     intParam(r, "page", 1),
		PageSize: min(intParam(r, "page_size", 20), 100),
	}
}

package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/georgemunganga/shopfront-backend/internal/modules/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Handler exposes catalog HTTP endpoints. Reads are public; writes need an admin.
type Handler struct {
	service Service
	guard   *auth.Middleware
}

func NewHandler(service Service, guard *auth.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.With(h.guard.Optional).Get("/products", h.listProducts)
		r.With(h.guard.Optional).Get("/products/{id}", h.getProduct)
		r.Get("/products/{id}/variants", h.listVariants)
		r.Get("/colors", h.listColors)
		r.Get("/sizes", h.listSizes)

		r.Group(func(r chi.Router) {
			r.Use(h.guard.Admin)
			r.Post("/products", h.createProduct)
			r.Put("/products/{id}", h.updateProduct)
			r.Patch("/products/{id}/status", h.setStatus)
			r.Delete("/products/{id}", h.deleteProduct)
			r.Post("/products/{id}/variants", h.addVariant)
			r.Put("/variants/{id}", h.updateVariant)
			r.Patch("/variants/{id}/default", h.setDefaultVariant)
			r.Patch("/variants/{id}/stock", h.setStock)
			r.Post("/colors", h.createColor)
			r.Post("/sizes", h.createSize)
		})
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ProductFilter{Status: StatusPublished, Search: q.Get("q")}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	// Admins may list any status; everyone else only sees published products.
	if p, ok := auth.FromContext(r.Context()); ok && p.IsAdmin() {
		f.Status = ProductStatus(q.Get("status"))
	}
	products, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if products == nil {
		products = []*Product{}
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if p, ok := auth.FromContext(r.Context()); !view.Purchasable() && !(ok && p.IsAdmin()) {
		writeError(w, ErrNotFound)
		return
	}
	respond(w, http.StatusOK, view)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" validate:"required,oneof=draft published archived"`
	}
	if !decode(w, r, &body) {
		return
	}
	p, err := h.service.SetStatus(r.Context(), id, ProductStatus(body.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listVariants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	variants, err := h.service.ListVariants(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if variants == nil {
		variants = []*Variant{}
	}
	respond(w, http.StatusOK, variants)
}

func (h *Handler) addVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req VariantRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.service.AddVariant(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, v)
}

func (h *Handler) updateVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req VariantRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.service.UpdateVariant(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, v)
}

func (h *Handler) setDefaultVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := h.service.SetDefaultVariant(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, v)
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Qty int `json:"qty" validate:"gte=0"`
	}
	if !decode(w, r, &body) {
		return
	}
	v, err := h.service.SetStock(r.Context(), id, body.Qty)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, v)
}

func (h *Handler) listColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.service.ListColors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if colors == nil {
		colors = []*Color{}
	}
	respond(w, http.StatusOK, colors)
}

func (h *Handler) createColor(w http.ResponseWriter, r *http.Request) {
	var req ColorRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.service.CreateColor(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, c)
}

func (h *Handler) listSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := h.service.ListSizes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if sizes == nil {
		sizes = []*Size{}
	}
	respond(w, http.StatusOK, sizes)
}

func (h *Handler) createSize(w http.ResponseWriter, r *http.Request) {
	var req SizeRequest
	if !decode(w, r, &req) {
		return
	}
	sz, err := h.service.CreateSize(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, sz)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

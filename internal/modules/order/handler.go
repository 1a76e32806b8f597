package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/georgemunganga/shopfront-backend/internal/modules/auth"
	"github.com/georgemunganga/shopfront-backend/internal/modules/user"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Handler exposes order HTTP endpoints. Customers see only their own orders.
type Handler struct {
	service Service
	guard   *auth.Middleware
}

func NewHandler(service Service, guard *auth.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Post("/checkout", h.checkout)  // POST   /api/v1/orders/checkout
		r.Get("/", h.listOrders)         // GET    /api/v1/orders?status=pending
		r.Get("/{id}", h.getOrder)       // GET    /api/v1/orders/{id}
		r.Delete("/{id}", h.cancelOrder) // DELETE /api/v1/orders/{id}
		r.With(h.guard.RequireRole(user.RoleAdmin)).Patch("/{id}/status", h.updateStatus)
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, _ := auth.FromContext(r.Context())
	o, err := h.service.Checkout(r.Context(), p.UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	f := Filter{Status: Status(r.URL.Query().Get("status"))}
	if !p.IsAdmin() {
		f.UserID = p.UserID
	}
	orders, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []*Order{}
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	o, err := h.service.CancelOrder(r.Context(), o.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var body struct {
		Status string `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := validate.Struct(body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), id, Status(body.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

// visibleOrder loads the order named in the path. Another customer's order
// is reported as not found.
func (h *Handler) visibleOrder(w http.ResponseWriter, r *http.Request) (*Order, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}
	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if p, _ := auth.FromContext(r.Context()); !p.IsAdmin() && o.UserID != p.UserID {
		writeError(w, ErrNotFound)
		return nil, false
	}
	return o, true
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrEmptyCart):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		code = http.StatusConflict
	default:
		msg = "order request failed"
	}
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

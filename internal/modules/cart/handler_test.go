package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/georgemunganga/shopfront-backend/internal/modules/auth"
	"github.com/georgemunganga/shopfront-backend/internal/modules/user"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokens accepts any bearer token equal to "good" as user 42.
type tokens struct{}

func (tokens) Login(context.Context, string, string) (*auth.Token, error) {
	return nil, errors.New("not used")
}

func (tokens) ParseToken(s string) (*auth.Claims, error) {
	if s != "good" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{Role: user.RoleCustomer, StandardClaims: jwt.StandardClaims{Subject: "42"}}, nil
}

func newRouter(t *testing.T) *chi.Mux {
	svc, _, _ := setup(t)
	r := chi.NewRouter()
	NewHandler(svc, auth.NewMiddleware(tokens{})).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Bearer good")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRequiresAuthentication(t *testing.T) {
	rec := do(newRouter(t), http.MethodGet, "/api/v1/cart", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerAddAndUpdate(t *testing.T) {
	r := newRouter(t)

	rec := do(r, http.MethodPost, "/api/v1/cart/items", `{"product_id":1,"variant_id":11,"quantity":1}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c Cart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(42), c.UserID)

	rec = do(r, http.MethodPatch, "/api/v1/cart/items/"+strconv.FormatInt(c.Items[0].ID, 10), `{"quantity":5}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only 1 unit(s) available.")

	rec = do(r, http.MethodPost, "/api/v1/cart/items", `{"product_id":1,"quantity":0}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodDelete, "/api/v1/cart/items/999", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodDelete, "/api/v1/cart", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

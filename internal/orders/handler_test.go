package orders

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

func newTestMux(f *fixture) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(f.service, discard).Register(mux, "/api/v1", func(h http.HandlerFunc) http.HandlerFunc { return h })
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateIgnoresClientTotal(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 10)
	b := f.product(t, "B", 5.5)
	mux := newTestMux(f)

	body := `{"orderItems":[{"product":"` + a.ID + `","quantity":2},{"product":"` + b.ID + `","quantity":1}],` +
		`"shippingAddress1":"Main St 1","city":"Lisbon","zip":"1000","country":"PT","phone":"+351",` +
		`"user":"` + f.user.ID + `","totalPrice":0.01}`
	rec := do(mux, http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var order domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.NotEmpty(t, order.ID)
	assert.InDelta(t, 25.5, order.TotalPrice, 1e-9)
	assert.Equal(t, "Pending", order.Status)
	assert.Equal(t, f.user.ID, order.UserID)
}

func TestHandleCreateUnknownProduct(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(f)

	rec := do(mux, http.MethodPost, "/api/v1/orders", `{"orderItems":[{"product":"nope","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.db.OrderItemCount())

	rec = do(mux, http.MethodPost, "/api/v1/orders", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetAndDelete(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 10)
	mux := newTestMux(f)

	rec := do(mux, http.MethodPost, "/api/v1/orders", `{"orderItems":[{"product":"`+a.ID+`","quantity":1}],"user":"`+f.user.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = do(mux, http.MethodGet, "/api/v1/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Order struct {
			ID         string `json:"id"`
			OrderItems []struct {
				Quantity int `json:"quantity"`
				Product  struct {
					Name     string `json:"name"`
					Category struct {
						Name string `json:"name"`
					} `json:"category"`
				} `json:"product"`
			} `json:"orderItems"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"order"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, created.ID, got.Order.ID)
	require.Len(t, got.Order.OrderItems, 1)
	assert.Equal(t, "A", got.Order.OrderItems[0].Product.Name)
	assert.Equal(t, "Phones", got.Order.OrderItems[0].Product.Category.Name)
	assert.Equal(t, "Ada", got.Order.User.Name)

	rec = do(mux, http.MethodDelete, "/api/v1/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"the order is deleted"}`, rec.Body.String())

	rec = do(mux, http.MethodDelete, "/api/v1/orders/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestHandleUpdateStatus(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 10)
	mux := newTestMux(f)

	rec := do(mux, http.MethodPost, "/api/v1/orders", `{"orderItems":[{"product":"`+a.ID+`","quantity":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = do(mux, http.MethodPut, "/api/v1/orders/"+created.ID, `{"status":"Shipped"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Shipped"`)

	rec = do(mux, http.MethodPut, "/api/v1/orders/missing", `{"status":"Shipped"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAggregatesOnEmptyStore(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(f)

	rec := do(mux, http.MethodGet, "/api/v1/orders/get/totalsales", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalSales":0}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/v1/orders/get/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orderCount":0}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/v1/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orderList":[]}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/v1/orders/get/userorders/"+f.user.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userOrderList":[]}`, rec.Body.String())
}

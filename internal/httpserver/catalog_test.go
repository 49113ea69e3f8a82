package httpserver

import (
	"net/http"
	"testing"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducts(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/products?category=veg&q=tom&limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "veg", f.products.lastFilter.Category)
	assert.Equal(t, "tom", f.products.lastFilter.Query)
	assert.Equal(t, 5, f.products.lastFilter.Limit)

	rec = f.do(http.MethodGet, "/products?limit=lots", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/products/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProductConvertsPrices(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/products/admin/p1", adminToken, `{"price":"12.50","offerPrice":9.99,"stock":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	in := f.products.lastUpdate
	require.NotNil(t, in.PriceCents)
	require.NotNil(t, in.OfferPriceCents)
	require.NotNil(t, in.Stock)
	assert.EqualValues(t, 1250, *in.PriceCents)
	assert.EqualValues(t, 999, *in.OfferPriceCents)
	assert.Equal(t, 4, *in.Stock)

	rec = f.do(http.MethodPut, "/products/admin/p1", adminToken, `{"price":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/cart", shopperToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)

	rec = f.do(http.MethodPost, "/cart/add", shopperToken, `{"productId":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subtotalCents":500`)

	f.carts.addErr = &domain.InsufficientStockError{ProductID: "p1", ProductName: "Tomato"}
	rec = f.do(http.MethodPost, "/cart/add", shopperToken, `{"productId":"p1","quantity":99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tomato is out of stock")

	rec = f.do(http.MethodDelete, "/cart/remove/p1", shopperToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodDelete, "/cart/clear", shopperToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", f.carts.cleared)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[{"name":"vegetables","productCount":2,"inStockCount":1}]}`, rec.Body.String())
}

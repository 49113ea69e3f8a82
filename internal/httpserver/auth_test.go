package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/signup", "", `{"email":"a@example.com","password":"correct horse"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/auth/signup", "", `{"password":"correct horse"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)

	rec = f.do(http.MethodPost, "/auth/login", "", `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/auth/login", "", `{"email":"a@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, shopperToken, body.AccessToken)
	assert.Equal(t, 3600, body.ExpiresIn)
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/auth/me", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"admin","isAdmin":true}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/auth/logout", shopperToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, shopperToken, f.customers.loggedOut)
}

func TestBearerTokenParsing(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/auth/me", "", "", "Authorization", "bearer  "+shopperToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/auth/me", "", "", "Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

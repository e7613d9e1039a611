// Copyright (C) 2025 The University of Chicago
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package wts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uc-cdis/vadc-gwas-tools/config"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		Gen3: config.Gen3Config{WTSServiceURL: url},
		HTTP: config.HTTPConfig{RequestTimeout: 5 * time.Second},
	}
}

func TestGetRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/token/", r.URL.Path)
		assert.Equal(t, "default", r.URL.Query().Get("idp"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token": "abc123"}`))
	}))
	defer srv.Close()

	tr, err := New(testConfig(srv.URL)).GetRefreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", tr.Token)
}

func TestGetRefreshTokenEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).GetRefreshToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty token")
}

func TestGetRefreshTokenServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream idp unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).GetRefreshToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

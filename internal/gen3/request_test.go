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

package gen3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestSetsHeaders(t *testing.T) {
	req, err := NewRequest(context.Background(), http.MethodPost,
		"http://cohort-middleware-service.default/concept/by-source-id/2",
		strings.NewReader(`{}`))
	require.NoError(t, err)

	assert.NotEmpty(t, req.Header.Get(RequestIDHeader))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestNewRequestNoBodyNoContentType(t *testing.T) {
	req, err := NewRequest(context.Background(), http.MethodGet,
		"http://workspace-token-service.default/token/", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, req.Header.Get(RequestIDHeader))
	assert.Empty(t, req.Header.Get("Content-Type"))
}

func TestCheckResponseOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	assert.NoError(t, CheckResponse(res))
}

func TestCheckResponseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "cohort not found", http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/cohortdefinition/by-id/99")
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	err = CheckResponse(res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "cohort not found")
	assert.Contains(t, err.Error(), "/cohortdefinition/by-id/99")
}

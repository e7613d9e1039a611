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

package cohort

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uc-cdis/vadc-gwas-tools/config"
	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
	"github.com/uc-cdis/vadc-gwas-tools/internal/wts"
)

type staticTokens struct{ token string }

func (s *staticTokens) GetRefreshToken(context.Context) (*wts.TokenResponse, error) {
	return &wts.TokenResponse{Token: s.token}, nil
}

func testClient(url string) *Client {
	cfg := &config.Config{
		Gen3: config.Gen3Config{CohortServiceURL: url},
		HTTP: config.HTTPConfig{
			RequestTimeout: 5 * time.Second,
			StreamTimeout:  5 * time.Second,
		},
	}
	return New(cfg, &staticTokens{token: "tkn"})
}

func TestGetCohortDefinition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cohortdefinition/by-id/9", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		_, _ = w.Write([]byte(`{"cohort_definition": {
			"cohort_definition_id": 9,
			"cohort_name": "diabetes cases",
			"cohort_description": "t2d"
		}}`))
	}))
	defer srv.Close()

	def, err := testClient(srv.URL).GetCohortDefinition(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), def.CohortDefinitionID)
	assert.Equal(t, "diabetes cases", def.CohortName)
	require.NotNil(t, def.CohortDescription)
	assert.Equal(t, "t2d", *def.CohortDescription)
}

func TestGetConceptDescriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/concept/by-source-id/2", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload struct {
			ConceptIds []int64 `json:"ConceptIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []int64{2000000324, 2000006885}, payload.ConceptIds)

		_, _ = w.Write([]byte(`{"concepts": [
			{"concept_id": 2000000324, "concept_name": "Height", "prefixed_concept_id": "ID_2000000324"},
			{"concept_id": 2000006885, "concept_name": "HARE", "concept_type": "MVP Continuous"}
		]}`))
	}))
	defer srv.Close()

	concepts, err := testClient(srv.URL).GetConceptDescriptions(
		context.Background(), 2, []int64{2000000324, 2000006885})
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, "Height", concepts[0].ConceptName)
	require.NotNil(t, concepts[1].ConceptType)
	assert.Equal(t, "MVP Continuous", *concepts[1].ConceptType)
}

func TestGetCohortCSVPlain(t *testing.T) {
	csvBody := "sample.id,ID_2000000324\ns1,172\ns2,169\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cohort-data/by-source-id/2/by-cohort-definition-id/9", r.URL.Path)

		var payload struct {
			Variables []json.RawMessage `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Len(t, payload.Variables, 1)

		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "pheno.csv")
	vars := []variables.Variable{
		&variables.ConceptVariable{VariableType: variables.TypeConcept, ConceptID: 2000000324},
	}
	require.NoError(t, testClient(srv.URL).GetCohortCSV(context.Background(), 2, 9, out, vars))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(got))
}

func TestGetCohortCSVGzip(t *testing.T) {
	csvBody := "sample.id,ID_1\ns1,0\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "pheno.csv.gz")
	require.NoError(t, testClient(srv.URL).GetCohortCSV(context.Background(), 2, 9, out, nil))

	fh, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = fh.Close() }()
	gz, err := gzip.NewReader(fh)
	require.NoError(t, err)
	got, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(got))
}

func TestGetAttritionBreakdownCSVStripsPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"/concept-stats/by-source-id/2/by-cohort-definition-id/9/breakdown-by-concept-id/2000007027/csv",
			r.URL.Path)
		_, _ = w.Write([]byte("Cohort,Size\nall,100\n"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "attrition.csv")
	err := testClient(srv.URL).GetAttritionBreakdownCSV(
		context.Background(), 2, 9, out, nil, "ID_2000007027")
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(got), "Cohort,Size")
}

func TestGetAttritionBreakdownCSVBadPrefix(t *testing.T) {
	err := testClient("http://unused").GetAttritionBreakdownCSV(
		context.Background(), 2, 9, "out.csv", nil, "ID_hare")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed prefixed concept ID")
}

func TestGetDescriptiveStatistics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"/concept-stats/by-source-id/2/by-cohort-definition-id/9/breakdown-by-concept-id/2000007027",
			r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "non-Hispanic White", payload["hare_population"])

		_, _ = w.Write([]byte(`{"statistics": [{"variable": "ID_1", "mean": 1.5}]}`))
	}))
	defer srv.Close()

	stats, err := testClient(srv.URL).GetDescriptiveStatistics(
		context.Background(), 2, 9, nil, "ID_2000007027", "non-Hispanic White")
	require.NoError(t, err)

	m, ok := stats.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m, "statistics")
}

func TestServiceErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such cohort", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetCohortDefinition(context.Background(), 404)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "no such cohort")
}

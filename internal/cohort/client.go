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

// Package cohort is the client for the cohort middleware service: cohort
// definitions, concept descriptions, phenotype CSV extraction, attrition
// breakdowns and descriptive statistics. All calls authenticate with a
// Bearer token fetched from the workspace token service.
package cohort

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/uc-cdis/vadc-gwas-tools/config"
	"github.com/uc-cdis/vadc-gwas-tools/internal/gen3"
	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
	"github.com/uc-cdis/vadc-gwas-tools/internal/wts"
)

// TokenSource provides the Bearer token for cohort middleware calls. The wts
// client satisfies this; tests substitute a fake.
type TokenSource interface {
	GetRefreshToken(ctx context.Context) (*wts.TokenResponse, error)
}

// CohortDefinition is the metadata of one cohort. The yaml tags keep the
// key names of the release metadata artifact identical to the wire names.
type CohortDefinition struct {
	CohortDefinitionID int64   `json:"cohort_definition_id" yaml:"cohort_definition_id"`
	CohortName         string  `json:"cohort_name" yaml:"cohort_name"`
	CohortDescription  *string `json:"cohort_description" yaml:"cohort_description"`
}

// ConceptDescription describes one OMOP concept.
type ConceptDescription struct {
	ConceptID         int64   `json:"concept_id" yaml:"concept_id"`
	ConceptName       string  `json:"concept_name" yaml:"concept_name"`
	PrefixedConceptID *string `json:"prefixed_concept_id,omitempty" yaml:"prefixed_concept_id,omitempty"`
	ConceptCode       *string `json:"concept_code,omitempty" yaml:"concept_code,omitempty"`
	ConceptType       *string `json:"concept_type,omitempty" yaml:"concept_type,omitempty"`
}

// Client talks to the cohort middleware. The streaming CSV endpoints use a
// much longer timeout than the metadata endpoints.
type Client struct {
	baseURL  string
	hc       *http.Client
	streamHC *http.Client
	tokens   TokenSource
	tracer   trace.Tracer
}

// New builds a Client from the loaded configuration.
func New(cfg *config.Config, tokens TokenSource) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.Gen3.CohortServiceURL, "/"),
		hc:       &http.Client{Timeout: cfg.HTTP.RequestTimeout},
		streamHC: &http.Client{Timeout: cfg.HTTP.StreamTimeout},
		tokens:   tokens,
		tracer:   otel.Tracer("github.com/uc-cdis/vadc-gwas-tools/internal/cohort"),
	}
}

// GetCohortDefinition fetches the definition metadata for one cohort.
func (c *Client) GetCohortDefinition(ctx context.Context, cohortDefinitionID int64) (*CohortDefinition, error) {
	logctx.FromContext(ctx).Info("Fetching cohort definition", slog.Int64("cohort", cohortDefinitionID))

	path := fmt.Sprintf("/cohortdefinition/by-id/%d", cohortDefinitionID)
	res, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var envelope struct {
		CohortDefinition CohortDefinition `json:"cohort_definition"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding cohort definition: %w", err)
	}
	return &envelope.CohortDefinition, nil
}

// GetConceptDescriptions resolves a batch of concept IDs to descriptions.
func (c *Client) GetConceptDescriptions(ctx context.Context, sourceID int64, conceptIDs []int64) ([]ConceptDescription, error) {
	logctx.FromContext(ctx).Info("Fetching concept descriptions",
		slog.Int64("source", sourceID), slog.Any("conceptIDs", conceptIDs))

	path := fmt.Sprintf("/concept/by-source-id/%d", sourceID)
	payload := map[string]any{"ConceptIds": conceptIDs}
	res, err := c.do(ctx, http.MethodPost, path, payload, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var envelope struct {
		Concepts []ConceptDescription `json:"concepts"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding concept descriptions: %w", err)
	}
	return envelope.Concepts, nil
}

// GetCohortCSV streams the phenotype/covariate CSV for a cohort to
// localPath. The file is gzip-compressed when the path ends in ".gz".
func (c *Client) GetCohortCSV(ctx context.Context, sourceID, cohortDefinitionID int64, localPath string, vars []variables.Variable) error {
	ll := logctx.FromContext(ctx)
	ll.Info("Fetching cohort CSV",
		slog.Int64("source", sourceID), slog.Int64("cohort", cohortDefinitionID))

	path := fmt.Sprintf("/cohort-data/by-source-id/%d/by-cohort-definition-id/%d", sourceID, cohortDefinitionID)
	res, err := c.do(ctx, http.MethodPost, path, variablesPayload(vars), true)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	ll.Info("Writing cohort CSV", slog.String("path", localPath))
	return writeStream(localPath, res.Body)
}

// GetAttritionBreakdownCSV streams the attrition table for a cohort, broken
// down by the given prefixed concept (typically the HARE concept), to
// localPath.
func (c *Client) GetAttritionBreakdownCSV(ctx context.Context, sourceID, cohortDefinitionID int64, localPath string,
	vars []variables.Variable, prefixedBreakdownConceptID string) error {

	ll := logctx.FromContext(ctx)
	ll.Info("Fetching attrition breakdown CSV",
		slog.Int64("source", sourceID),
		slog.Int64("cohort", cohortDefinitionID),
		slog.String("breakdownConcept", prefixedBreakdownConceptID))

	breakdownID, err := variables.StripConceptPrefix(prefixedBreakdownConceptID)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/concept-stats/by-source-id/%d/by-cohort-definition-id/%d/breakdown-by-concept-id/%d/csv",
		sourceID, cohortDefinitionID, breakdownID)
	res, err := c.do(ctx, http.MethodPost, path, variablesPayload(vars), true)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	ll.Info("Writing attrition breakdown CSV", slog.String("path", localPath))
	return writeStream(localPath, res.Body)
}

// GetDescriptiveStatistics fetches per-variable descriptive statistics for a
// cohort, stratified by the breakdown concept and filtered to the selected
// HARE population. The response shape is owned by the service, so it is
// returned undecoded beyond generic JSON.
func (c *Client) GetDescriptiveStatistics(ctx context.Context, sourceID, cohortDefinitionID int64,
	vars []variables.Variable, prefixedBreakdownConceptID, harePopulation string) (any, error) {

	logctx.FromContext(ctx).Info("Fetching descriptive statistics",
		slog.Int64("source", sourceID),
		slog.Int64("cohort", cohortDefinitionID),
		slog.String("harePopulation", harePopulation))

	breakdownID, err := variables.StripConceptPrefix(prefixedBreakdownConceptID)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/concept-stats/by-source-id/%d/by-cohort-definition-id/%d/breakdown-by-concept-id/%d",
		sourceID, cohortDefinitionID, breakdownID)
	payload := map[string]any{
		"variables":       variableList(vars),
		"hare_population": harePopulation,
	}
	res, err := c.do(ctx, http.MethodPost, path, payload, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var stats any
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decoding descriptive statistics: %w", err)
	}
	return stats, nil
}

// do performs one authenticated call. A span wraps the request so slow
// cohort extractions show up in traces.
func (c *Client) do(ctx context.Context, method, path string, payload any, stream bool) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "cohort-middleware "+path)
	defer span.End()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := gen3.NewRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.GetRefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching auth token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)

	hc := c.hc
	if stream {
		hc = c.streamHC
	}
	res, err := hc.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("calling cohort middleware: %w", err)
	}
	if err := gen3.CheckResponse(res); err != nil {
		span.RecordError(err)
		_ = res.Body.Close()
		return nil, err
	}
	return res, nil
}

func variablesPayload(vars []variables.Variable) map[string]any {
	return map[string]any{"variables": variableList(vars)}
}

// variableList keeps the payload an empty array rather than null when no
// variables are given.
func variableList(vars []variables.Variable) []variables.Variable {
	if vars == nil {
		return []variables.Variable{}
	}
	return vars
}

// writeStream copies body to path, gzip-compressing when the path has a .gz
// suffix.
func writeStream(path string, body io.Reader) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	var dst io.Writer = fh
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(fh)
		dst = gz
	}

	_, err = io.Copy(dst, body)
	if gz != nil {
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

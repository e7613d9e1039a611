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

// Package indexd creates indexd records for GWAS result archives. Records
// carry the file hash, size, authorization resources and storage URLs; the
// service assigns the GUID (the "did" field). See
// https://github.com/uc-cdis/indexd#indexd-records for the record format.
package indexd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/uc-cdis/vadc-gwas-tools/config"
	"github.com/uc-cdis/vadc-gwas-tools/internal/gen3"
	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
)

// Record is the metadata posted to create one indexd record.
type Record struct {
	FileName     string                       `json:"file_name"`
	Authz        []string                     `json:"authz"`
	Hashes       map[string]string            `json:"hashes"`
	Size         int64                        `json:"size"`
	URLs         []string                     `json:"urls"`
	URLsMetadata map[string]map[string]string `json:"urls_metadata"`
	Form         string                       `json:"form"`
}

// CreateResponse is the service reply. Raw keeps the full body so callers
// can persist exactly what the service returned.
type CreateResponse struct {
	DID string
	Raw json.RawMessage
}

// Client posts records to the indexd service using basic auth.
type Client struct {
	baseURL  string
	user     string
	password string
	hc       *http.Client
}

// New builds a Client from the loaded configuration.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:  cfg.Gen3.IndexdServiceURL,
		user:     cfg.Indexd.User,
		password: cfg.Indexd.Password,
		hc:       &http.Client{Timeout: cfg.HTTP.RequestTimeout},
	}
}

// CreateRecord posts the record and returns the assigned GUID along with the
// raw response body.
func (c *Client) CreateRecord(ctx context.Context, rec *Record) (*CreateResponse, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding indexd record: %w", err)
	}

	req, err := gen3.NewRequest(ctx, http.MethodPost, c.baseURL+"/index", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.user, c.password)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating indexd record: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := gen3.CheckResponse(res); err != nil {
		return nil, err
	}

	var body json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding indexd response: %w", err)
	}
	var did struct {
		DID string `json:"did"`
	}
	if err := json.Unmarshal(body, &did); err != nil || did.DID == "" {
		return nil, fmt.Errorf("indexd response is missing the did field")
	}

	logctx.FromContext(ctx).Info("Assigned GUID (did) for indexd record", slog.String("did", did.DID))
	return &CreateResponse{DID: did.DID, Raw: body}, nil
}

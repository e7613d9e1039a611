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

// Package wts talks to the workspace token service. The service only answers
// on internal URLs, so there is no credential handling here; the workspace
// identity is ambient.
package wts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/uc-cdis/vadc-gwas-tools/config"
	"github.com/uc-cdis/vadc-gwas-tools/internal/gen3"
)

// TokenResponse is the WTS reply; Token goes into Bearer headers.
type TokenResponse struct {
	Token string `json:"token"`
}

// Client fetches refresh tokens for service-to-service calls.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New builds a Client from the loaded configuration.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Gen3.WTSServiceURL,
		hc:      &http.Client{Timeout: cfg.HTTP.RequestTimeout},
	}
}

// GetRefreshToken hits the WTS token endpoint for the default IdP.
func (c *Client) GetRefreshToken(ctx context.Context) (*TokenResponse, error) {
	req, err := gen3.NewRequest(ctx, http.MethodGet, c.baseURL+"/token/?idp=default", nil)
	if err != nil {
		return nil, err
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting refresh token: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := gen3.CheckResponse(res); err != nil {
		return nil, err
	}

	var tr TokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding refresh token response: %w", err)
	}
	if tr.Token == "" {
		return nil, fmt.Errorf("workspace token service returned an empty token")
	}
	return &tr, nil
}

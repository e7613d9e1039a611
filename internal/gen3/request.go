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

// Package gen3 holds the request plumbing shared by the Gen3 service
// clients: request construction with per-call request IDs and uniform
// non-2xx error reporting.
package gen3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader is attached to every outgoing service call so failures can
// be correlated with server-side logs.
const RequestIDHeader = "X-Request-Id"

const errBodySnippet = 512

// NewRequest builds an HTTP request with a fresh request ID. The JSON
// content type is set whenever a body is present; callers add authorization.
func NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, url, err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// CheckResponse turns a non-2xx response into an error carrying the status
// and the start of the body. The body is consumed either way so the
// underlying connection can be reused.
func CheckResponse(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, errBodySnippet))
	_, _ = io.Copy(io.Discard, res.Body)
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	return fmt.Errorf("%s %s returned %d: %s",
		res.Request.Method, res.Request.URL.Path, res.StatusCode, msg)
}

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

package indexd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
)

// HeadObjectAPI is the slice of the S3 client used for verification.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Verifier checks that an uploaded archive exists at its S3 destination
// with the expected size before an indexd record is created for it.
type S3Verifier struct {
	client HeadObjectAPI
}

// NewS3Verifier builds a verifier from the ambient AWS configuration.
func NewS3Verifier(ctx context.Context) (*S3Verifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Verifier{client: s3.NewFromConfig(cfg)}, nil
}

// NewS3VerifierWithClient builds a verifier around an existing client.
func NewS3VerifierWithClient(client HeadObjectAPI) *S3Verifier {
	return &S3Verifier{client: client}
}

// Verify heads the object at s3URI and checks its size against wantSize.
func (v *S3Verifier) Verify(ctx context.Context, s3URI string, wantSize int64) error {
	bucket, key, err := parseS3URI(s3URI)
	if err != nil {
		return err
	}

	out, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("heading %s: %w", s3URI, err)
	}
	if out.ContentLength == nil {
		return fmt.Errorf("no content length returned for %s", s3URI)
	}
	if *out.ContentLength != wantSize {
		return fmt.Errorf("size mismatch for %s: remote %d, local %d", s3URI, *out.ContentLength, wantSize)
	}

	ll := logctx.FromContext(ctx)
	ll.Info("Verified S3 object",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int64("size", wantSize))
	return nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("S3 URI must start with s3://, got %q", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("S3 URI must be s3://bucket/key, got %q", uri)
	}
	return bucket, key, nil
}

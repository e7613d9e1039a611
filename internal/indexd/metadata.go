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
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BuildRecord computes the md5 hash and size of the archive at path and
// assembles the record for the given S3 destination and arborist resources.
func BuildRecord(path, s3URI string, arboristResources []string) (*Record, error) {
	sum, size, err := fileDigest(path)
	if err != nil {
		return nil, err
	}
	return &Record{
		FileName:     filepath.Base(path),
		Authz:        arboristResources,
		Hashes:       map[string]string{"md5": sum},
		Size:         size,
		URLs:         []string{s3URI},
		URLsMetadata: map[string]map[string]string{s3URI: {}},
		Form:         "object",
	}, nil
}

func fileDigest(path string) (string, int64, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	h := md5.New()
	size, err := io.Copy(h, fh)
	if err != nil {
		return "", 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

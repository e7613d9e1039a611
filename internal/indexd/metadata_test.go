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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gwas.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	rec, err := BuildRecord(path, "s3://bucket/gwas.tar.gz", []string{"/programs/va/projects/gwas"})
	require.NoError(t, err)

	assert.Equal(t, "gwas.tar.gz", rec.FileName)
	assert.Equal(t, []string{"/programs/va/projects/gwas"}, rec.Authz)
	// md5 of "hello world"
	assert.Equal(t, map[string]string{"md5": "5eb63bbbe01eeed093cb22bb8f5acdc3"}, rec.Hashes)
	assert.Equal(t, int64(11), rec.Size)
	assert.Equal(t, []string{"s3://bucket/gwas.tar.gz"}, rec.URLs)
	assert.Equal(t, map[string]map[string]string{"s3://bucket/gwas.tar.gz": {}}, rec.URLsMetadata)
	assert.Equal(t, "object", rec.Form)
}

func TestBuildRecordMissingFile(t *testing.T) {
	_, err := BuildRecord(filepath.Join(t.TempDir(), "nope"), "s3://b/k", nil)
	require.Error(t, err)
}

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

package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
)

func TestRunProcessInputVariables(t *testing.T) {
	dir := t.TempDir()
	raw := `[
		{"variable_type": "concept", "concept_id": 2000000324},
		{"variable_type": "custom_dichotomous", "cohort_ids": [301, 401]},
		{"variable_type": "concept", "concept_id": 2000006885}
	]`
	rawPath := filepath.Join(dir, "raw.json")
	require.NoError(t, os.WriteFile(rawPath, []byte(raw), 0o644))

	pivRawVariablesJSON = rawPath
	pivHAREConceptID = 2000007027
	pivOutcomeJSON = `{"variable_type": "custom_dichotomous", "cohort_ids": [301, 401]}`
	pivOutputRawVariableJSON = filepath.Join(dir, "validated.json")
	pivOutputVariableWithHARE = filepath.Join(dir, "with_hare.json")
	pivOutputOtherJSON = filepath.Join(dir, "other.json")

	require.NoError(t, runProcessInputVariables(context.Background()))

	validatedData, err := os.ReadFile(pivOutputRawVariableJSON)
	require.NoError(t, err)
	validated, err := variables.DecodeList(validatedData)
	require.NoError(t, err)
	require.Len(t, validated, 3)
	assert.Equal(t, "ID_301_401", validated[0].Key())
	assert.Equal(t, "ID_2000000324", validated[1].Key())

	hareData, err := os.ReadFile(pivOutputVariableWithHARE)
	require.NoError(t, err)
	withHARE, err := variables.DecodeList(hareData)
	require.NoError(t, err)
	require.Len(t, withHARE, 4)
	assert.Equal(t, "ID_2000007027", withHARE[3].Key())

	otherData, err := os.ReadFile(pivOutputOtherJSON)
	require.NoError(t, err)
	var other map[string]string
	require.NoError(t, json.Unmarshal(otherData, &other))
	assert.Equal(t, map[string]string{
		"covariates":   "ID_2000000324 ID_2000006885",
		"outcome":      "ID_301_401",
		"outcome_type": "BINARY",
	}, other)
}

func TestRunProcessInputVariablesOutcomeMissing(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.json")
	require.NoError(t, os.WriteFile(rawPath,
		[]byte(`[{"variable_type": "concept", "concept_id": 1}]`), 0o644))

	pivRawVariablesJSON = rawPath
	pivOutcomeJSON = `{"variable_type": "concept", "concept_id": 2}`
	pivOutputRawVariableJSON = filepath.Join(dir, "validated.json")
	pivOutputVariableWithHARE = filepath.Join(dir, "with_hare.json")
	pivOutputOtherJSON = filepath.Join(dir, "other.json")

	err := runProcessInputVariables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in variables list")
}

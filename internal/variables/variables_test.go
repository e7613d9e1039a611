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

package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOneConcept(t *testing.T) {
	v, err := DecodeOne([]byte(`{"variable_type":"concept","concept_id":2000000324,"prefixed_concept_id":"ID_2000000324"}`))
	require.NoError(t, err)

	cv, ok := v.(*ConceptVariable)
	require.True(t, ok)
	assert.Equal(t, int64(2000000324), cv.ConceptID)
	require.NotNil(t, cv.PrefixedConceptID)
	assert.Equal(t, "ID_2000000324", *cv.PrefixedConceptID)
	assert.Equal(t, "ID_2000000324", cv.Key())
}

func TestDecodeOneCustomDichotomous(t *testing.T) {
	v, err := DecodeOne([]byte(`{"variable_type":"custom_dichotomous","cohort_ids":[301,401],"provided_name":"diabetes"}`))
	require.NoError(t, err)

	dv, ok := v.(*CustomDichotomousVariable)
	require.True(t, ok)
	assert.Equal(t, []int64{301, 401}, dv.CohortIDs)
	assert.Equal(t, "ID_301_401", dv.Key())
	assert.Equal(t, "BINARY", OutcomeType(dv))
}

func TestDecodeOneUnknownType(t *testing.T) {
	_, err := DecodeOne([]byte(`{"variable_type":"haplotype"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "haplotype")
}

func TestDecodeList(t *testing.T) {
	data := []byte(`[
		{"variable_type":"concept","concept_id":2000000324},
		{"variable_type":"custom_dichotomous","cohort_ids":[1,2]}
	]`)
	vars, err := DecodeList(data)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, TypeConcept, vars[0].Type())
	assert.Equal(t, TypeCustomDichotomous, vars[1].Type())
}

func TestDecodeListBadElement(t *testing.T) {
	_, err := DecodeList([]byte(`[{"variable_type":"nope"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable 0")
}

func TestStripConceptPrefix(t *testing.T) {
	id, err := StripConceptPrefix("ID_2000006885")
	require.NoError(t, err)
	assert.Equal(t, int64(2000006885), id)

	_, err = StripConceptPrefix("ID_abc")
	require.Error(t, err)

	ids, err := StripConceptPrefixes([]string{"ID_1", "ID_2"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestValidateAggregatesErrors(t *testing.T) {
	err := Validate([]Variable{
		&ConceptVariable{VariableType: TypeConcept, ConceptID: 0},
		&CustomDichotomousVariable{VariableType: TypeCustomDichotomous, CohortIDs: []int64{1}},
		&ConceptVariable{VariableType: TypeConcept, ConceptID: 5},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable 0")
	assert.Contains(t, err.Error(), "variable 1")
	assert.NotContains(t, err.Error(), "variable 2")
}

func TestMoveOutcomeFirst(t *testing.T) {
	a := &ConceptVariable{VariableType: TypeConcept, ConceptID: 1}
	b := &ConceptVariable{VariableType: TypeConcept, ConceptID: 2}
	c := &CustomDichotomousVariable{VariableType: TypeCustomDichotomous, CohortIDs: []int64{3, 4}}

	reordered, err := MoveOutcomeFirst([]Variable{a, b, c},
		&ConceptVariable{VariableType: TypeConcept, ConceptID: 2})
	require.NoError(t, err)
	assert.Equal(t, []Variable{b, a, c}, reordered)

	_, err = MoveOutcomeFirst([]Variable{a},
		&ConceptVariable{VariableType: TypeConcept, ConceptID: 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestOutcomeTypeContinuous(t *testing.T) {
	assert.Equal(t, "CONTINUOUS", OutcomeType(&ConceptVariable{VariableType: TypeConcept, ConceptID: 7}))
}

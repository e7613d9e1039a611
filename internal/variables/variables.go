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

// Package variables models the GWAS input variables exchanged with the
// cohort middleware: OMOP concept variables and custom dichotomous variables
// built from cohort pairs.
package variables

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	TypeConcept           = "concept"
	TypeCustomDichotomous = "custom_dichotomous"

	// Names of the variables injected for the attrition and descriptive
	// statistics endpoints; rows carrying them are filtered back out of the
	// shaped JSON.
	CaseCountsName    = "--case_counts_only--"
	ControlCountsName = "--control_counts_only--"
)

// Variable is either a ConceptVariable or a CustomDichotomousVariable.
type Variable interface {
	Type() string
	// Key renders the identifier used for covariate lists in the GENESIS
	// workflow, e.g. "ID_2000006885" or "ID_301_401".
	Key() string
}

// ConceptVariable references a single OMOP concept.
type ConceptVariable struct {
	VariableType      string  `json:"variable_type"`
	ConceptID         int64   `json:"concept_id"`
	ConceptName       *string `json:"concept_name,omitempty"`
	PrefixedConceptID *string `json:"prefixed_concept_id,omitempty"`
}

func (v *ConceptVariable) Type() string { return TypeConcept }

func (v *ConceptVariable) Key() string {
	return fmt.Sprintf("ID_%d", v.ConceptID)
}

// CustomDichotomousVariable is a 0/1 phenotype defined by a pair of cohorts.
type CustomDichotomousVariable struct {
	VariableType string  `json:"variable_type"`
	CohortIDs    []int64 `json:"cohort_ids"`
	ProvidedName *string `json:"provided_name,omitempty"`
}

func (v *CustomDichotomousVariable) Type() string { return TypeCustomDichotomous }

func (v *CustomDichotomousVariable) Key() string {
	parts := make([]string, len(v.CohortIDs))
	for i, id := range v.CohortIDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "ID_" + strings.Join(parts, "_")
}

// DecodeOne parses a single variable object, dispatching on variable_type.
func DecodeOne(data []byte) (Variable, error) {
	var probe struct {
		VariableType string `json:"variable_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding variable: %w", err)
	}
	switch probe.VariableType {
	case TypeConcept:
		var v ConceptVariable
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding concept variable: %w", err)
		}
		return &v, nil
	case TypeCustomDichotomous:
		var v CustomDichotomousVariable
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding custom dichotomous variable: %w", err)
		}
		return &v, nil
	default:
		return nil, fmt.Errorf(
			"only %q and %q variable types are supported, got %q",
			TypeConcept, TypeCustomDichotomous, probe.VariableType)
	}
}

// DecodeList parses a JSON array of variable objects.
func DecodeList(data []byte) ([]Variable, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decoding variable list: %w", err)
	}
	out := make([]Variable, 0, len(raws))
	for i, raw := range raws {
		v, err := DecodeOne(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Equal compares two variables field by field.
func Equal(a, b Variable) bool {
	return reflect.DeepEqual(a, b)
}

// StripConceptPrefix removes the "ID_" prefix from a prefixed concept ID and
// converts the remainder to an integer.
func StripConceptPrefix(prefixed string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(prefixed, "ID_"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed prefixed concept ID %q: %w", prefixed, err)
	}
	return id, nil
}

// StripConceptPrefixes converts a list of prefixed concept IDs.
func StripConceptPrefixes(prefixed []string) ([]int64, error) {
	out := make([]int64, len(prefixed))
	for i, p := range prefixed {
		id, err := StripConceptPrefix(p)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// Validate checks a variable list for structural problems, reporting all of
// them at once.
func Validate(vars []Variable) error {
	var errs *multierror.Error
	for i, v := range vars {
		switch t := v.(type) {
		case *ConceptVariable:
			if t.ConceptID <= 0 {
				errs = multierror.Append(errs, fmt.Errorf("variable %d: concept_id must be positive, got %d", i, t.ConceptID))
			}
		case *CustomDichotomousVariable:
			if len(t.CohortIDs) != 2 {
				errs = multierror.Append(errs, fmt.Errorf("variable %d: custom_dichotomous needs exactly 2 cohort IDs, got %d", i, len(t.CohortIDs)))
			}
		}
	}
	return errs.ErrorOrNil()
}

// MoveOutcomeFirst returns the list with the outcome as its first element.
// The outcome must already be present in the list.
func MoveOutcomeFirst(vars []Variable, outcome Variable) ([]Variable, error) {
	idx := -1
	for i, v := range vars {
		if Equal(v, outcome) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("outcome %s is not found in variables list", outcome.Key())
	}
	out := make([]Variable, 0, len(vars))
	out = append(out, vars[idx])
	out = append(out, vars[:idx]...)
	out = append(out, vars[idx+1:]...)
	return out, nil
}

// OutcomeType maps a variable to the GENESIS phenotype family.
func OutcomeType(outcome Variable) string {
	if outcome.Type() == TypeCustomDichotomous {
		return "BINARY"
	}
	return "CONTINUOUS"
}

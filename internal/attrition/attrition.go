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

// Package attrition reshapes the attrition breakdown CSVs produced by the
// cohort middleware into the combined JSON consumed by the portal front end.
package attrition

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
)

// TableType tags a shaped table as the case or control side.
type TableType string

const (
	TableCase    TableType = "case"
	TableControl TableType = "control"
)

// Display names for the injected count-constraining variables on the
// attrition tables.
const (
	CaseOnlyName    = "Case cohort only"
	ControlOnlyName = "Control cohort only"
)

// Breakdown is the per-population count for one row.
type Breakdown struct {
	ConceptValueName         string `json:"concept_value_name"`
	PersonsInCohortWithValue int64  `json:"persons_in_cohort_with_value"`
}

// Row is one shaped attrition row: the source cohort, the outcome, or one
// covariate.
type Row struct {
	Type             string      `json:"type"`
	Name             string      `json:"name"`
	Size             int64       `json:"size"`
	ConceptBreakdown []Breakdown `json:"concept_breakdown"`
}

// Table is one shaped attrition table.
type Table struct {
	TableType TableType `json:"table_type"`
	Rows      []Row     `json:"rows"`
}

// FormatTable converts a single attrition CSV into its JSON shape. The first
// data row is the source cohort, the first non-injected row after it is the
// outcome, and everything else is a covariate. Rows whose Cohort column
// matches one of skipNames are the variables injected purely to constrain
// counts and are filtered out. Breakdown population names are taken from the
// header columns after Cohort and Size.
func FormatTable(csvPath string, tableType TableType, skipNames []string) (*Table, error) {
	if tableType != TableCase && tableType != TableControl {
		return nil, fmt.Errorf("table type must be %q or %q, got %q", TableCase, TableControl, tableType)
	}

	fh, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("opening attrition CSV %s: %w", csvPath, err)
	}
	defer func() { _ = fh.Close() }()

	reader := csv.NewReader(fh)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading attrition header of %s: %w", csvPath, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("attrition CSV %s needs at least Cohort and Size columns", csvPath)
	}
	breakdownCols := header[2:]

	table := &Table{TableType: tableType, Rows: []Row{}}
	first := true
	seenOutcome := false
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading attrition CSV %s: %w", csvPath, err)
		}

		row := zip(header, record)
		if first {
			table.Rows = append(table.Rows, formatRow(row, "cohort", breakdownCols))
			first = false
			continue
		}
		if slices.Contains(skipNames, row["Cohort"]) {
			continue
		}
		if !seenOutcome {
			table.Rows = append(table.Rows, formatRow(row, "outcome", breakdownCols))
			seenOutcome = true
			continue
		}
		table.Rows = append(table.Rows, formatRow(row, "covariate", breakdownCols))
	}
	if first {
		return nil, fmt.Errorf("attrition CSV %s has no data rows", csvPath)
	}
	return table, nil
}

func formatRow(row map[string]string, rtype string, breakdownCols []string) Row {
	out := Row{
		Type:             rtype,
		Name:             row["Cohort"],
		Size:             atoiOrZero(row["Size"]),
		ConceptBreakdown: make([]Breakdown, 0, len(breakdownCols)),
	}
	for _, col := range breakdownCols {
		out.ConceptBreakdown = append(out.ConceptBreakdown, Breakdown{
			ConceptValueName:         col,
			PersonsInCohortWithValue: atoiOrZero(row[col]),
		})
	}
	return out
}

func atoiOrZero(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func zip(header, record []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, name := range header {
		if i >= len(record) {
			break
		}
		row[name] = record[i]
	}
	return row
}

// InjectCountVariables builds the per-side variable lists for a case-control
// run. Each side gets a synthetic dichotomous variable prepended whose
// cohort pair intersects the opposite outcome cohort with the source
// population, constraining the counts to that side only.
func InjectCountVariables(vars []variables.Variable, outcome *variables.CustomDichotomousVariable,
	sourcePopulationCohort int64, caseName, controlName string) (controlList, caseList []variables.Variable, err error) {

	if len(outcome.CohortIDs) != 2 {
		return nil, nil, fmt.Errorf("case-control outcome needs exactly 2 cohort IDs, got %d", len(outcome.CohortIDs))
	}

	controlVar := &variables.CustomDichotomousVariable{
		VariableType: variables.TypeCustomDichotomous,
		CohortIDs:    []int64{outcome.CohortIDs[1], sourcePopulationCohort},
		ProvidedName: &controlName,
	}
	caseVar := &variables.CustomDichotomousVariable{
		VariableType: variables.TypeCustomDichotomous,
		CohortIDs:    []int64{outcome.CohortIDs[0], sourcePopulationCohort},
		ProvidedName: &caseName,
	}

	controlList = append([]variables.Variable{controlVar}, vars...)
	caseList = append([]variables.Variable{caseVar}, vars...)
	return controlList, caseList, nil
}

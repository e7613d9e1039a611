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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uc-cdis/vadc-gwas-tools/config"
	"github.com/uc-cdis/vadc-gwas-tools/internal/attrition"
	"github.com/uc-cdis/vadc-gwas-tools/internal/cohort"
	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
	"github.com/uc-cdis/vadc-gwas-tools/internal/wts"
)

var (
	attrSourceID               int64
	attrSourcePopulationCohort int64
	attrOutcomeJSON            string
	attrVariablesJSON          string
	attrPrefixedBreakdownID    string
	attrOutputCSVPrefix        string
	attrOutputCombinedJSON     string
)

func init() {
	cmd := &cobra.Command{
		Use:   "get-attrition-csv",
		Short: "Fetch attrition tables and shape them into the combined JSON",
		Long: `Fetches the attrition tables for the workflow variables, stratified
by a breakdown concept such as the HARE population. Continuous phenotypes
produce one CSV; case-control phenotypes produce a case and a control CSV.
Either way a single combined JSON is written for the portal.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, done, err := setupTool("get-attrition-csv")
			if err != nil {
				return err
			}
			defer done()
			return runGetAttritionCSV(ctx)
		},
	}

	addStatsFlags(cmd.Flags().Int64Var, cmd.Flags().StringVar,
		&attrSourceID, &attrSourcePopulationCohort, &attrOutcomeJSON,
		&attrVariablesJSON, &attrPrefixedBreakdownID, &attrOutputCSVPrefix)
	cmd.Flags().StringVar(&attrOutputCombinedJSON, "output-combined-json", "",
		"Path to write the combined attrition JSON.")
	for _, f := range []string{"source-id", "source-population-cohort", "outcome",
		"variables-json", "prefixed-breakdown-concept-id", "output-csv-prefix",
		"output-combined-json"} {
		_ = cmd.MarkFlagRequired(f)
	}

	rootCmd.AddCommand(cmd)
}

func runGetAttritionCSV(ctx context.Context) error {
	ll := logctx.FromContext(ctx)

	outcome, vars, err := loadOutcomeAndVariables(attrOutcomeJSON, attrVariablesJSON)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client := cohort.New(cfg, wts.New(cfg))

	dichotomous, isCaseControl := outcome.(*variables.CustomDichotomousVariable)
	if !isCaseControl {
		ll.Info("Continuous design")
		csvPath := attrOutputCSVPrefix + ".source_cohort.attrition_table.csv"
		if err := client.GetAttritionBreakdownCSV(ctx, attrSourceID, attrSourcePopulationCohort,
			csvPath, vars, attrPrefixedBreakdownID); err != nil {
			return err
		}
		table, err := attrition.FormatTable(csvPath, attrition.TableCase, nil)
		if err != nil {
			return err
		}
		return writeJSON(attrOutputCombinedJSON, []*attrition.Table{table})
	}

	ll.Info("Case-control design")
	controlVars, caseVars, err := attrition.InjectCountVariables(vars, dichotomous,
		attrSourcePopulationCohort, attrition.CaseOnlyName, attrition.ControlOnlyName)
	if err != nil {
		return err
	}

	skip := []string{attrition.CaseOnlyName, attrition.ControlOnlyName}
	tables := make([]*attrition.Table, 2)
	sides := []struct {
		csvPath   string
		vars      []variables.Variable
		tableType attrition.TableType
		idx       int
	}{
		{attrOutputCSVPrefix + ".case_cohort.attrition_table.csv", caseVars, attrition.TableCase, 0},
		{attrOutputCSVPrefix + ".control_cohort.attrition_table.csv", controlVars, attrition.TableControl, 1},
	}
	for _, side := range sides {
		if err := client.GetAttritionBreakdownCSV(ctx, attrSourceID, attrSourcePopulationCohort,
			side.csvPath, side.vars, attrPrefixedBreakdownID); err != nil {
			return err
		}
		if tables[side.idx], err = attrition.FormatTable(side.csvPath, side.tableType, skip); err != nil {
			return err
		}
	}
	return writeJSON(attrOutputCombinedJSON, tables)
}

// loadOutcomeAndVariables parses the outcome JSON string and the variables
// file, and checks the outcome leads the list.
func loadOutcomeAndVariables(outcomeJSON, variablesPath string) (variables.Variable, []variables.Variable, error) {
	outcome, err := variables.DecodeOne([]byte(outcomeJSON))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing outcome: %w", err)
	}
	data, err := os.ReadFile(variablesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading variables file: %w", err)
	}
	vars, err := variables.DecodeList(data)
	if err != nil {
		return nil, nil, err
	}
	if len(vars) == 0 || !variables.Equal(vars[0], outcome) {
		return nil, nil, fmt.Errorf("first element of the variables list is not the outcome %s", outcome.Key())
	}
	return outcome, vars, nil
}

// addStatsFlags registers the flags shared by the attrition and descriptive
// statistics subcommands.
func addStatsFlags(int64Var func(*int64, string, int64, string), stringVar func(*string, string, string, string),
	sourceID, sourcePopulationCohort *int64, outcomeJSON, variablesJSON, prefixedBreakdownID, outputCSVPrefix *string) {

	int64Var(sourceID, "source-id", 0, "The cohort source ID.")
	int64Var(sourcePopulationCohort, "source-population-cohort", 0,
		"The cohort ID of the source population cohort.")
	stringVar(outcomeJSON, "outcome", "", "JSON formatted string of the outcome variable.")
	stringVar(variablesJSON, "variables-json", "", "Path to the JSON file containing the variable objects.")
	stringVar(prefixedBreakdownID, "prefixed-breakdown-concept-id", "",
		"Prefixed concept ID used for stratification (e.g. the HARE concept).")
	stringVar(outputCSVPrefix, "output-csv-prefix", "",
		"Prefix for the per-cohort outputs (1 for quantitative, 2 for case-control).")
}

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
	"strings"

	"github.com/spf13/cobra"

	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
)

var (
	pivRawVariablesJSON       string
	pivHAREConceptID          int64
	pivOutcomeJSON            string
	pivOutputRawVariableJSON  string
	pivOutputVariableWithHARE string
	pivOutputOtherJSON        string
)

func init() {
	cmd := &cobra.Command{
		Use:   "process-input-variables",
		Short: "Validate input variables and derive the GENESIS inputs",
		Long: `Validates the user-provided variable list, moves the outcome to the
front, appends the HARE concept, and extracts the covariate string, outcome
key, and outcome type used by the GENESIS workflow.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, done, err := setupTool("process-input-variables")
			if err != nil {
				return err
			}
			defer done()
			return runProcessInputVariables(ctx)
		},
	}

	cmd.Flags().StringVar(&pivRawVariablesJSON, "raw-variables-json", "",
		"The variable list provided by the user as a JSON file.")
	cmd.Flags().Int64Var(&pivHAREConceptID, "hare-concept-id", 0, "The HARE concept ID.")
	cmd.Flags().StringVar(&pivOutcomeJSON, "outcome", "",
		"JSON formatted string of the outcome variable.")
	cmd.Flags().StringVar(&pivOutputRawVariableJSON, "output-raw-variable-json", "",
		"Output path for the validated raw variable JSON.")
	cmd.Flags().StringVar(&pivOutputVariableWithHARE, "output-variable-json-w-hare", "",
		"Output path for the variable JSON with the HARE concept appended.")
	cmd.Flags().StringVar(&pivOutputOtherJSON, "output-other-json", "",
		"Output path for the covariate string, outcome key, and outcome type JSON.")
	for _, f := range []string{"raw-variables-json", "hare-concept-id", "outcome",
		"output-raw-variable-json", "output-variable-json-w-hare", "output-other-json"} {
		_ = cmd.MarkFlagRequired(f)
	}

	rootCmd.AddCommand(cmd)
}

func runProcessInputVariables(ctx context.Context) error {
	ll := logctx.FromContext(ctx)

	data, err := os.ReadFile(pivRawVariablesJSON)
	if err != nil {
		return fmt.Errorf("reading variables file: %w", err)
	}
	vars, err := variables.DecodeList(data)
	if err != nil {
		return err
	}
	if err := variables.Validate(vars); err != nil {
		return err
	}

	outcome, err := variables.DecodeOne([]byte(pivOutcomeJSON))
	if err != nil {
		return fmt.Errorf("parsing outcome: %w", err)
	}
	outcomeType := variables.OutcomeType(outcome)
	ll.Info("Determined outcome type", "outcomeType", outcomeType)

	vars, err = variables.MoveOutcomeFirst(vars, outcome)
	if err != nil {
		return err
	}

	if err := writeJSON(pivOutputRawVariableJSON, vars); err != nil {
		return err
	}

	withHARE := append(append([]variables.Variable{}, vars...), &variables.ConceptVariable{
		VariableType: variables.TypeConcept,
		ConceptID:    pivHAREConceptID,
	})
	if err := writeJSON(pivOutputVariableWithHARE, withHARE); err != nil {
		return err
	}

	covariates := make([]string, 0, len(vars)-1)
	for _, v := range vars[1:] {
		covariates = append(covariates, v.Key())
	}
	other := map[string]string{
		"covariates":   strings.Join(covariates, " "),
		"outcome":      vars[0].Key(),
		"outcome_type": outcomeType,
	}
	return writeJSON(pivOutputOtherJSON, other)
}

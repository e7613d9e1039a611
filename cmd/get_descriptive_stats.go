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

	"github.com/spf13/cobra"

	"github.com/uc-cdis/vadc-gwas-tools/config"
	"github.com/uc-cdis/vadc-gwas-tools/internal/cohort"
	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
	"github.com/uc-cdis/vadc-gwas-tools/internal/wts"
)

var (
	statsSourceID               int64
	statsSourcePopulationCohort int64
	statsOutcomeJSON            string
	statsVariablesJSON          string
	statsPrefixedBreakdownID    string
	statsOutputCSVPrefix        string
	statsOutputCombinedJSON     string
	statsHAREPopulation         string
)

func init() {
	cmd := &cobra.Command{
		Use:   "get-descriptive-stats",
		Short: "Fetch descriptive statistics for the workflow cohort",
		Long: `Fetches descriptive statistics for the workflow variables,
stratified by a breakdown concept and filtered to the selected HARE
population. The case-control side of the service endpoint is not available
yet, so case-control runs write an empty JSON object as a placeholder.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, done, err := setupTool("get-descriptive-stats")
			if err != nil {
				return err
			}
			defer done()
			return runGetDescriptiveStats(ctx)
		},
	}

	addStatsFlags(cmd.Flags().Int64Var, cmd.Flags().StringVar,
		&statsSourceID, &statsSourcePopulationCohort, &statsOutcomeJSON,
		&statsVariablesJSON, &statsPrefixedBreakdownID, &statsOutputCSVPrefix)
	cmd.Flags().StringVar(&statsOutputCombinedJSON, "output-combined-json", "",
		"Path to write the combined descriptive statistics JSON.")
	cmd.Flags().StringVar(&statsHAREPopulation, "hare-population", "",
		"Selected HARE population for the GWAS analysis.")
	for _, f := range []string{"source-id", "source-population-cohort", "outcome",
		"variables-json", "prefixed-breakdown-concept-id", "output-csv-prefix",
		"output-combined-json", "hare-population"} {
		_ = cmd.MarkFlagRequired(f)
	}

	rootCmd.AddCommand(cmd)
}

func runGetDescriptiveStats(ctx context.Context) error {
	ll := logctx.FromContext(ctx)

	outcome, vars, err := loadOutcomeAndVariables(statsOutcomeJSON, statsVariablesJSON)
	if err != nil {
		return err
	}

	outPath := statsOutputCSVPrefix + ".descriptive_stats.json"
	if outcome.Type() == variables.TypeCustomDichotomous {
		// The per-side statistics endpoint does not exist yet.
		ll.Info("Case-control design, writing placeholder", "path", outPath)
		return writeJSON(outPath, map[string]any{})
	}

	ll.Info("Continuous design", "harePopulation", statsHAREPopulation)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client := cohort.New(cfg, wts.New(cfg))

	stats, err := client.GetDescriptiveStatistics(ctx, statsSourceID, statsSourcePopulationCohort,
		vars, statsPrefixedBreakdownID, statsHAREPopulation)
	if err != nil {
		return err
	}
	ll.Info("Writing descriptive statistics", "path", outPath)
	return writeJSON(outPath, stats)
}

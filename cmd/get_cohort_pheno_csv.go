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
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/uc-cdis/vadc-gwas-tools/config"
	"github.com/uc-cdis/vadc-gwas-tools/internal/cohort"
	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
	"github.com/uc-cdis/vadc-gwas-tools/internal/pheno"
	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
	"github.com/uc-cdis/vadc-gwas-tools/internal/wts"
)

var (
	phenoSourceID           int64
	phenoCaseCohortID       int64
	phenoControlCohortID    int64
	phenoPrefixedConceptIDs []string
	phenoOutput             string
)

func init() {
	cmd := &cobra.Command{
		Use:   "get-cohort-pheno-csv",
		Short: "Fetch the phenotype/covariate CSV for the GWAS cohorts",
		Long: `Fetches the phenotype and covariate CSV used by the GENESIS workflow
from the cohort middleware. For continuous phenotypes only --case-cohort-id
is needed. For case-control, provide --control-cohort-id as well; the two
cohorts are fetched concurrently, merged, and labeled with a CASE_CONTROL
column (cases 1, controls 0).`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, done, err := setupTool("get-cohort-pheno-csv")
			if err != nil {
				return err
			}
			defer done()
			return runGetCohortPheno(ctx)
		},
	}

	cmd.Flags().Int64Var(&phenoSourceID, "source-id", 0, "The cohort source ID.")
	cmd.Flags().Int64Var(&phenoCaseCohortID, "case-cohort-id", 0,
		"The cohort ID for 'cases'. The only cohort ID needed for continuous phenotypes.")
	cmd.Flags().Int64Var(&phenoControlCohortID, "control-cohort-id", 0,
		"The cohort ID for 'controls'. Only relevant for case-control phenotypes.")
	cmd.Flags().StringSliceVar(&phenoPrefixedConceptIDs, "prefixed-concept-ids", nil,
		"Prefixed concept IDs, e.g. ID_2000006885.")
	cmd.Flags().StringVar(&phenoOutput, "output", "",
		"Path to write the final phenotype CSV. Gzipped when it ends with '.gz'.")
	_ = cmd.MarkFlagRequired("source-id")
	_ = cmd.MarkFlagRequired("case-cohort-id")
	_ = cmd.MarkFlagRequired("prefixed-concept-ids")
	_ = cmd.MarkFlagRequired("output")

	rootCmd.AddCommand(cmd)
}

func runGetCohortPheno(ctx context.Context) error {
	ll := logctx.FromContext(ctx)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client := cohort.New(cfg, wts.New(cfg))

	vars, err := conceptVariables(phenoPrefixedConceptIDs)
	if err != nil {
		return err
	}

	if phenoControlCohortID == 0 {
		ll.Info("Continuous phenotype design")
		return client.GetCohortCSV(ctx, phenoSourceID, phenoCaseCohortID, phenoOutput, vars)
	}

	if phenoCaseCohortID == phenoControlCohortID {
		return fmt.Errorf("case cohort ID can't be the same as the control cohort ID: %d", phenoCaseCohortID)
	}
	ll.Info("Case-control design")

	tmpDir, err := os.MkdirTemp("", "pheno")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	casePath := filepath.Join(tmpDir, "case.csv")
	controlPath := filepath.Join(tmpDir, "control.csv")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.GetCohortCSV(gctx, phenoSourceID, phenoCaseCohortID, casePath, vars)
	})
	g.Go(func() error {
		return client.GetCohortCSV(gctx, phenoSourceID, phenoControlCohortID, controlPath, vars)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return pheno.MergeCaseControl(casePath, controlPath, phenoOutput)
}

// conceptVariables turns prefixed concept IDs into concept variable objects.
func conceptVariables(prefixed []string) ([]variables.Variable, error) {
	ids, err := variables.StripConceptPrefixes(prefixed)
	if err != nil {
		return nil, err
	}
	out := make([]variables.Variable, len(ids))
	for i, id := range ids {
		out[i] = &variables.ConceptVariable{
			VariableType: variables.TypeConcept,
			ConceptID:    id,
		}
	}
	return out, nil
}

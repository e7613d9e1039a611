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
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/uc-cdis/vadc-gwas-tools/config"
	"github.com/uc-cdis/vadc-gwas-tools/internal/cohort"
	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
	"github.com/uc-cdis/vadc-gwas-tools/internal/variables"
	"github.com/uc-cdis/vadc-gwas-tools/internal/wts"
)

var (
	metaSourceID                 int64
	metaCaseCohortID             int64
	metaControlCohortID          int64
	metaPrefixedConceptIDs       []string
	metaPrefixedOutcomeConceptID string
	metaNPCs                     int
	metaMAFThreshold             float64
	metaImputationScoreCutoff    float64
	metaOutput                   string
)

// gwasMetadata is the YAML document handed to researchers alongside the
// workflow outputs.
type gwasMetadata struct {
	Cohorts struct {
		CaseCohort    *cohort.CohortDefinition `yaml:"case_cohort"`
		ControlCohort *cohort.CohortDefinition `yaml:"control_cohort"`
	} `yaml:"cohorts"`
	Phenotype  metadataPhenotype          `yaml:"phenotype"`
	Covariates []cohort.ConceptDescription `yaml:"covariates"`
	Parameters struct {
		NPopulationPCs        int     `yaml:"n_population_pcs"`
		MAFThreshold          float64 `yaml:"maf_threshold"`
		ImputationScoreCutoff float64 `yaml:"imputation_score_cutoff"`
	} `yaml:"parameters"`
}

// metadataPhenotype is the flat phenotype section: the outcome's concept
// description for continuous designs, or a nameless CASE-CONTROL marker.
type metadataPhenotype struct {
	ConceptID         *int64  `yaml:"concept_id"`
	ConceptName       string  `yaml:"concept_name"`
	PrefixedConceptID *string `yaml:"prefixed_concept_id,omitempty"`
	ConceptCode       *string `yaml:"concept_code,omitempty"`
	ConceptType       *string `yaml:"concept_type,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "get-gwas-metadata",
		Short: "Generate the YAML metadata file for a GWAS run",
		Long: `Generates a metadata file describing the cohorts, variables, and
workflow parameters of a GWAS run. For continuous phenotypes provide
--prefixed-outcome-concept-id; for case-control provide --control-cohort-id.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, done, err := setupTool("get-gwas-metadata")
			if err != nil {
				return err
			}
			defer done()
			return runGetGwasMetadata(ctx)
		},
	}

	cmd.Flags().Int64Var(&metaSourceID, "source-id", 0, "The cohort source ID.")
	cmd.Flags().Int64Var(&metaCaseCohortID, "case-cohort-id", 0,
		"The cohort ID for 'cases'. The only cohort ID needed for continuous phenotypes.")
	cmd.Flags().Int64Var(&metaControlCohortID, "control-cohort-id", 0,
		"The cohort ID for 'controls'. Only relevant for case-control phenotypes.")
	cmd.Flags().StringSliceVar(&metaPrefixedConceptIDs, "prefixed-concept-ids", nil,
		"Prefixed concept IDs.")
	cmd.Flags().StringVar(&metaPrefixedOutcomeConceptID, "prefixed-outcome-concept-id", "",
		"Prefixed concept ID of the continuous outcome phenotype. Not used for case-control.")
	cmd.Flags().IntVar(&metaNPCs, "n-pcs", 0, "Number of population PCs used in the workflow.")
	cmd.Flags().Float64Var(&metaMAFThreshold, "maf-threshold", 0, "MAF threshold used for filtering markers.")
	cmd.Flags().Float64Var(&metaImputationScoreCutoff, "imputation-score-cutoff", 0,
		"Imputation score cutoff used to filter markers.")
	cmd.Flags().StringVar(&metaOutput, "output", "", "Path to write the metadata YAML.")
	_ = cmd.MarkFlagRequired("source-id")
	_ = cmd.MarkFlagRequired("case-cohort-id")
	_ = cmd.MarkFlagRequired("prefixed-concept-ids")
	_ = cmd.MarkFlagRequired("n-pcs")
	_ = cmd.MarkFlagRequired("maf-threshold")
	_ = cmd.MarkFlagRequired("imputation-score-cutoff")
	_ = cmd.MarkFlagRequired("output")

	rootCmd.AddCommand(cmd)
}

func runGetGwasMetadata(ctx context.Context) error {
	ll := logctx.FromContext(ctx)

	isCaseControl := metaControlCohortID != 0
	if isCaseControl {
		if metaCaseCohortID == metaControlCohortID {
			return fmt.Errorf("case cohort ID can't be the same as the control cohort ID: %d", metaCaseCohortID)
		}
		ll.Info("Case-control design")
	} else {
		ll.Info("Continuous phenotype design")
		if metaPrefixedOutcomeConceptID == "" {
			return fmt.Errorf("--prefixed-outcome-concept-id is required for continuous phenotypes")
		}
	}

	// The outcome concept must be part of the description lookup.
	prefixedIDs := metaPrefixedConceptIDs
	if metaPrefixedOutcomeConceptID != "" && !slices.Contains(prefixedIDs, metaPrefixedOutcomeConceptID) {
		prefixedIDs = append(append([]string{}, prefixedIDs...), metaPrefixedOutcomeConceptID)
	}
	conceptIDs, err := variables.StripConceptPrefixes(prefixedIDs)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client := cohort.New(cfg, wts.New(cfg))

	caseDef, err := client.GetCohortDefinition(ctx, metaCaseCohortID)
	if err != nil {
		return err
	}
	var controlDef *cohort.CohortDefinition
	if isCaseControl {
		if controlDef, err = client.GetCohortDefinition(ctx, metaControlCohortID); err != nil {
			return err
		}
	}

	concepts, err := client.GetConceptDescriptions(ctx, metaSourceID, conceptIDs)
	if err != nil {
		return err
	}

	meta := formatMetadata(caseDef, controlDef, concepts, metaPrefixedOutcomeConceptID)
	meta.Parameters.NPopulationPCs = metaNPCs
	meta.Parameters.MAFThreshold = metaMAFThreshold
	meta.Parameters.ImputationScoreCutoff = metaImputationScoreCutoff

	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(metaOutput, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", metaOutput, err)
	}
	ll.Info("Wrote GWAS metadata", "path", metaOutput)
	return nil
}

// formatMetadata separates the outcome phenotype from the covariates. For
// case-control designs the phenotype has no concept behind it.
func formatMetadata(caseDef, controlDef *cohort.CohortDefinition,
	concepts []cohort.ConceptDescription, prefixedOutcomeConceptID string) *gwasMetadata {

	meta := &gwasMetadata{Covariates: []cohort.ConceptDescription{}}
	meta.Cohorts.CaseCohort = caseDef
	meta.Cohorts.ControlCohort = controlDef

	if prefixedOutcomeConceptID == "" {
		meta.Phenotype = metadataPhenotype{ConceptName: "CASE-CONTROL"}
		meta.Covariates = append(meta.Covariates, concepts...)
		return meta
	}

	for _, c := range concepts {
		if c.PrefixedConceptID != nil && *c.PrefixedConceptID == prefixedOutcomeConceptID {
			meta.Phenotype = metadataPhenotype{
				ConceptID:         &c.ConceptID,
				ConceptName:       c.ConceptName,
				PrefixedConceptID: c.PrefixedConceptID,
				ConceptCode:       c.ConceptCode,
				ConceptType:       c.ConceptType,
			}
			continue
		}
		meta.Covariates = append(meta.Covariates, c)
	}
	return meta
}

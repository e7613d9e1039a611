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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/uc-cdis/vadc-gwas-tools/internal/curation"
	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
	"github.com/uc-cdis/vadc-gwas-tools/internal/tophits"
)

var (
	curateStatsDir     string
	curatePValueColumn string
	curateCutoff       float64
	curateTopN         int
	curateOutPrefix    string
)

func init() {
	cmd := &cobra.Command{
		Use:   "curate-gwas-hits",
		Short: "Curate GWAS summary statistics into top hit files",
		Long: `Scans the gzipped GWAS summary statistics CSVs in a directory and
produces two gzipped CSVs: the rows at or below the significance cutoff, and
the overall top N hits ranked by p-value.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, done, err := setupTool("curate-gwas-hits")
			if err != nil {
				return err
			}
			defer done()

			res, err := curation.Run(ctx, curation.Options{
				StatsDir:     curateStatsDir,
				PValueColumn: curatePValueColumn,
				Cutoff:       curateCutoff,
				TopN:         curateTopN,
				OutPrefix:    curateOutPrefix,
			})
			if err != nil {
				return err
			}
			logctx.FromContext(ctx).Info("Curated GWAS hits",
				slog.Int64("total", res.Total),
				slog.Int64("belowCutoff", res.BelowCutoff),
				slog.String("topHits", res.TopHitsPath),
				slog.String("belowCutoffHits", res.BelowCutoffPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&curateStatsDir, "summary-stats-dir", "",
		"Directory containing the gzipped summary statistics CSVs.")
	cmd.Flags().StringVar(&curatePValueColumn, "pvalue-column", curation.DefaultPValueColumn,
		"Column holding the association p-value.")
	cmd.Flags().Float64Var(&curateCutoff, "pvalue-cutoff", curation.DefaultCutoff,
		"Genome-wide significance cutoff.")
	cmd.Flags().IntVar(&curateTopN, "top-n-hits", tophits.DefaultCapacity,
		"Number of top hits to keep.")
	cmd.Flags().StringVar(&curateOutPrefix, "out-prefix", "",
		"Prefix for the two output files.")
	_ = cmd.MarkFlagRequired("summary-stats-dir")
	_ = cmd.MarkFlagRequired("out-prefix")

	rootCmd.AddCommand(cmd)
}

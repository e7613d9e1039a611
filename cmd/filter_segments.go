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
	"github.com/spf13/cobra"

	"github.com/uc-cdis/vadc-gwas-tools/internal/segments"
)

var (
	filterFilePrefix  string
	filterFileSuffix  string
	filterSegmentFile string
	filterOutput      string
)

func init() {
	cmd := &cobra.Command{
		Use:   "filter-segments GDS_FILE [GDS_FILE...]",
		Short: "Filter the segment file to the chromosomes in the analysis",
		Long: `Filters the segment file to the rows whose chromosome has a GDS file
present, using the prefix and suffix produced by split-filename-by-chromosome.
A JSON object with 'chromosomes' and 'segments' is written to stdout or
--output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, done, err := setupTool("filter-segments")
			if err != nil {
				return err
			}
			defer done()

			parts := &segments.FilenameParts{
				FilePrefix: filterFilePrefix,
				FileSuffix: filterFileSuffix,
			}
			res, err := segments.FilterSegments(args, parts, filterSegmentFile)
			if err != nil {
				return err
			}
			return writeJSON(filterOutput, res)
		},
	}

	cmd.Flags().StringVar(&filterFilePrefix, "file-prefix", "",
		"Filename prefix up to and including 'chr'.")
	cmd.Flags().StringVar(&filterFileSuffix, "file-suffix", "",
		"Filename suffix after the chromosome.")
	cmd.Flags().StringVar(&filterSegmentFile, "segment-file", "", "Path to the segment file.")
	cmd.Flags().StringVar(&filterOutput, "output", "",
		"Path to write the JSON output. Defaults to stdout.")
	_ = cmd.MarkFlagRequired("file-prefix")
	_ = cmd.MarkFlagRequired("file-suffix")
	_ = cmd.MarkFlagRequired("segment-file")

	rootCmd.AddCommand(cmd)
}

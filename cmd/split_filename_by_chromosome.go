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
	splitGDSFile string
	splitOutput  string
)

func init() {
	cmd := &cobra.Command{
		Use:   "split-filename-by-chromosome",
		Short: "Split a GDS filename around the 'chr' token",
		Long: `Takes the path of a GDS file, which does not have to exist, and splits
its basename into a prefix and suffix around the 'chr' token. A JSON object
with 'file_prefix' and 'file_suffix' is written to stdout or --output.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, done, err := setupTool("split-filename-by-chromosome")
			if err != nil {
				return err
			}
			defer done()

			parts, err := segments.SplitFilenameByChr(splitGDSFile)
			if err != nil {
				return err
			}
			return writeJSON(splitOutput, parts)
		},
	}

	cmd.Flags().StringVar(&splitGDSFile, "gds-file", "",
		"Path to the GDS file (the file does not have to exist).")
	cmd.Flags().StringVar(&splitOutput, "output", "",
		"Path to write the JSON output. Defaults to stdout.")
	_ = cmd.MarkFlagRequired("gds-file")

	rootCmd.AddCommand(cmd)
}

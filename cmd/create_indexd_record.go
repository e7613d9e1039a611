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
	"github.com/uc-cdis/vadc-gwas-tools/internal/indexd"
	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
)

var (
	idxGwasArchive       string
	idxS3URI             string
	idxArboristResources []string
	idxVerifyS3          bool
	idxOutput            string
)

func init() {
	cmd := &cobra.Command{
		Use:   "create-indexd-record",
		Short: "Create the indexd record for a GWAS archive",
		Long: `Calculates the md5 hash and size of the GWAS archive and creates an
indexd record carrying them along with the arborist authorization resources
and the S3 destination. The JSON response, including the assigned GUID in
the 'did' field, is written to --output. Set GWASTOOLS_INDEXD_USER and
GWASTOOLS_INDEXD_PASSWORD (or INDEXDUSER/INDEXDPASS) for the indexd
endpoint.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, done, err := setupTool("create-indexd-record")
			if err != nil {
				return err
			}
			defer done()
			return runCreateIndexdRecord(ctx)
		},
	}

	cmd.Flags().StringVar(&idxGwasArchive, "gwas-archive", "", "Path to the GWAS archive.")
	cmd.Flags().StringVar(&idxS3URI, "s3-uri", "",
		"S3 URI of the GWAS archive on the downloadable bucket.")
	cmd.Flags().StringSliceVar(&idxArboristResources, "arborist-resource", nil,
		"One or more arborist authorization resources.")
	cmd.Flags().BoolVar(&idxVerifyS3, "verify-s3", false,
		"Verify the archive exists at the S3 destination with the expected size before creating the record.")
	cmd.Flags().StringVar(&idxOutput, "output", "",
		"Path to write the JSON response containing the generated record and GUID.")
	_ = cmd.MarkFlagRequired("gwas-archive")
	_ = cmd.MarkFlagRequired("s3-uri")
	_ = cmd.MarkFlagRequired("arborist-resource")
	_ = cmd.MarkFlagRequired("output")

	rootCmd.AddCommand(cmd)
}

func runCreateIndexdRecord(ctx context.Context) error {
	ll := logctx.FromContext(ctx)

	ll.Info("Calculating archive hash and size", "path", idxGwasArchive)
	rec, err := indexd.BuildRecord(idxGwasArchive, idxS3URI, idxArboristResources)
	if err != nil {
		return err
	}

	if idxVerifyS3 {
		verifier, err := indexd.NewS3Verifier(ctx)
		if err != nil {
			return err
		}
		if err := verifier.Verify(ctx, idxS3URI, rec.Size); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	res, err := indexd.New(cfg).CreateRecord(ctx, rec)
	if err != nil {
		return err
	}

	if err := os.WriteFile(idxOutput, res.Raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", idxOutput, err)
	}
	ll.Info("Saved indexd record response", "path", idxOutput, "did", res.DID)
	return nil
}

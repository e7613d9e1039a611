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

// Package pheno assembles the phenotype/covariate CSV consumed by the
// GENESIS workflow from the per-cohort CSVs served by the cohort middleware.
package pheno

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// CaseControlColumn is appended when merging case and control cohorts; cases
// carry 1 and controls 0.
const CaseControlColumn = "CASE_CONTROL"

const sampleIDColumn = "sample.id"

// MergeCaseControl combines the case and control cohort CSVs into a single
// phenotype CSV with a CASE_CONTROL column. A sample ID appearing twice,
// within a cohort or across the two, fails the merge. The output is gzipped
// when outputPath ends with ".gz".
func MergeCaseControl(casePath, controlPath, outputPath string) (rerr error) {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputPath, err)
	}
	var w io.Writer = out
	var gz *gzip.Writer
	if strings.HasSuffix(outputPath, ".gz") {
		gz = gzip.NewWriter(out)
		w = gz
	}
	writer := csv.NewWriter(w)
	defer func() {
		writer.Flush()
		var errs *multierror.Error
		if rerr != nil {
			errs = multierror.Append(errs, rerr)
		}
		if err := writer.Error(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if gz != nil {
			if err := gz.Close(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		if err := out.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		rerr = errs.ErrorOrNil()
	}()

	seen := make(map[string]struct{})

	header, err := appendCohort(writer, casePath, "1", nil, seen)
	if err != nil {
		return fmt.Errorf("processing case cohort: %w", err)
	}
	if _, err := appendCohort(writer, controlPath, "0", header, seen); err != nil {
		return fmt.Errorf("processing control cohort: %w", err)
	}
	return nil
}

// appendCohort copies one cohort CSV into the writer with the case/control
// label appended. When header is nil the input's header row is written first,
// with the CASE_CONTROL column added; otherwise the input header must match.
func appendCohort(writer *csv.Writer, path, label string, header []string, seen map[string]struct{}) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cohort CSV %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	reader := csv.NewReader(fh)
	fileHeader, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading cohort CSV header of %s: %w", path, err)
	}

	idIdx := -1
	for i, name := range fileHeader {
		if name == sampleIDColumn {
			idIdx = i
		}
	}
	if idIdx == -1 {
		return nil, fmt.Errorf("cohort CSV %s is missing the %s column", path, sampleIDColumn)
	}

	if header == nil {
		header = fileHeader
		if err := writer.Write(append(append([]string{}, header...), CaseControlColumn)); err != nil {
			return nil, err
		}
	} else if len(fileHeader) != len(header) {
		return nil, fmt.Errorf("cohort CSV %s has %d columns, expected %d", path, len(fileHeader), len(header))
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading cohort CSV %s: %w", path, err)
		}
		id := record[idIdx]
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("sample ID %s present multiple times", id)
		}
		seen[id] = struct{}{}
		if err := writer.Write(append(record, label)); err != nil {
			return nil, err
		}
	}
	return header, nil
}

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

// Package segments handles the per-chromosome filename conventions of the
// GENESIS segmented workflow: splitting GDS filenames around the "chr" token
// and filtering a segment file down to the chromosomes actually present.
package segments

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilenameParts is the prefix/suffix pair surrounding the chromosome token in
// a GDS filename.
type FilenameParts struct {
	FilePrefix string `json:"file_prefix"`
	FileSuffix string `json:"file_suffix"`
}

// FilterResult lists the chromosomes present in the analysis and the 0-based
// indices of the segment-file rows that reference them.
type FilterResult struct {
	Chromosomes []string `json:"chromosomes"`
	Segments    []int    `json:"segments"`
}

// SplitFilenameByChr splits a GDS filename around the "chr" token. The
// basename must contain "chr" and use a '.' before the extension; the file
// itself does not have to exist. For "data.genotype.chr12.gds" the prefix is
// "data.genotype.chr" and the suffix is ".gds".
func SplitFilenameByChr(gdsPath string) (*FilenameParts, error) {
	bname := filepath.Base(gdsPath)

	idx := strings.Index(bname, "chr")
	if idx == -1 {
		return nil, fmt.Errorf("the filename must contain 'chr': %s", bname)
	}

	ext := filepath.Ext(bname)
	stem := strings.TrimSuffix(bname, ext)
	if ext == "" || !strings.Contains(stem, ".") {
		return nil, fmt.Errorf("the filename must contain '.' before extension: %s", bname)
	}

	after := bname[idx+len("chr"):]
	suffix := "."
	if dot := strings.Index(after, "."); dot != -1 {
		suffix += after[dot+1:]
	}
	return &FilenameParts{
		FilePrefix: bname[:idx] + "chr",
		FileSuffix: suffix,
	}, nil
}

// FilterSegments reads a whitespace-delimited segment file whose first column
// is the chromosome, and keeps the rows whose chromosome maps to one of the
// given GDS filenames under the prefix/suffix convention.
func FilterSegments(gdsFilenames []string, parts *FilenameParts, segmentPath string) (*FilterResult, error) {
	gdsSet := make(map[string]struct{}, len(gdsFilenames))
	for _, f := range gdsFilenames {
		gdsSet[filepath.Base(f)] = struct{}{}
	}

	fh, err := os.Open(segmentPath)
	if err != nil {
		return nil, fmt.Errorf("opening segment file %s: %w", segmentPath, err)
	}
	defer func() { _ = fh.Close() }()

	chromSet := make(map[string]struct{})
	result := &FilterResult{Chromosomes: []string{}, Segments: []int{}}

	scanner := bufio.NewScanner(fh)
	for n := 0; scanner.Scan(); n++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		chrom := fields[0]
		if _, ok := gdsSet[parts.FilePrefix+chrom+parts.FileSuffix]; ok {
			chromSet[chrom] = struct{}{}
			result.Segments = append(result.Segments, n)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading segment file %s: %w", segmentPath, err)
	}

	for chrom := range chromSet {
		result.Chromosomes = append(result.Chromosomes, chrom)
	}
	sort.Strings(result.Chromosomes)
	return result, nil
}

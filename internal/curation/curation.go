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

// Package curation streams per-chromosome GWAS summary-statistic CSVs and
// produces two curated outputs: the top N hits by p-value and every hit at
// or below a significance cutoff. The cutoff pass is a plain filter-and-write
// loop; only the top-N selection goes through the tophits collector.
package curation

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/uc-cdis/vadc-gwas-tools/internal/logctx"
	"github.com/uc-cdis/vadc-gwas-tools/internal/tophits"
)

const (
	// DefaultPValueColumn is the column produced by the GENESIS workflow.
	DefaultPValueColumn = "Score.pval"

	// DefaultCutoff is the conventional genome-wide significance threshold.
	DefaultCutoff = 5e-8

	progressInterval = 1_000_000
)

// ErrNoSummaryFiles is returned when the stats directory has no .csv.gz files.
var ErrNoSummaryFiles = errors.New("no GWAS summary statistics files found")

// Options configures one curation run.
type Options struct {
	StatsDir     string
	PValueColumn string
	Cutoff       float64
	TopN         int
	OutPrefix    string
}

// Result reports what a curation run produced.
type Result struct {
	Total           int64
	BelowCutoff     int64
	TopHitsPath     string
	BelowCutoffPath string
}

// Run curates every *.csv.gz file under opts.StatsDir. The first file's
// header becomes the header of both outputs; every file must carry the
// p-value column or the whole run fails.
func Run(ctx context.Context, opts Options) (*Result, error) {
	ll := logctx.FromContext(ctx)

	if opts.PValueColumn == "" {
		opts.PValueColumn = DefaultPValueColumn
	}

	files, err := filepath.Glob(filepath.Join(opts.StatsDir, "*.csv.gz"))
	if err != nil {
		return nil, fmt.Errorf("listing summary statistics in %s: %w", opts.StatsDir, err)
	}
	slices.Sort(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSummaryFiles, opts.StatsDir)
	}
	ll.Info("Found summary stats files", slog.Int("count", len(files)), slog.String("dir", opts.StatsDir))

	collector, err := tophits.New(opts.TopN)
	if err != nil {
		return nil, err
	}

	res := &Result{
		TopHitsPath:     fmt.Sprintf("%s.top_%d_hits.csv.gz", opts.OutPrefix, opts.TopN),
		BelowCutoffPath: fmt.Sprintf("%s.below_cutoff_hits.csv.gz", opts.OutPrefix),
	}

	ll.Info("Hits below cutoff will be written", slog.String("path", res.BelowCutoffPath), slog.Float64("cutoff", opts.Cutoff))
	cutoffOut, err := newGzipCSVWriter(res.BelowCutoffPath)
	if err != nil {
		return nil, err
	}

	header, err := processSummaryFiles(ctx, files, opts, collector, cutoffOut, res)
	if cerr := cutoffOut.Close(); cerr != nil {
		err = multierror.Append(err, cerr).ErrorOrNil()
	}
	if err != nil {
		return nil, err
	}

	ll.Info("Top hits will be written", slog.String("path", res.TopHitsPath), slog.Int("n", opts.TopN))
	if err := writeTopHits(res.TopHitsPath, header, collector); err != nil {
		return nil, err
	}

	ll.Info("Curation finished",
		slog.Int64("total", res.Total),
		slog.Int64("belowCutoff", res.BelowCutoff))
	return res, nil
}

// processSummaryFiles feeds every row into the collector and writes rows at
// or below the cutoff straight through, in encounter order. Returns the
// output header (the first file's header).
func processSummaryFiles(ctx context.Context, files []string, opts Options,
	collector *tophits.Collector, cutoffOut *gzipCSVWriter, res *Result) ([]string, error) {

	ll := logctx.FromContext(ctx)
	var header []string

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ll.Info("Processing summary statistics file", slog.String("path", path))

		if err := processOneFile(path, opts, collector, cutoffOut, &header, res, ll); err != nil {
			return nil, err
		}
	}
	return header, nil
}

func processOneFile(path string, opts Options, collector *tophits.Collector,
	cutoffOut *gzipCSVWriter, outHeader *[]string, res *Result, ll *slog.Logger) error {

	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	gz, err := gzip.NewReader(fh)
	if err != nil {
		return fmt.Errorf("decompressing %s: %w", path, err)
	}
	defer func() { _ = gz.Close() }()

	reader := csv.NewReader(gz)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", path, err)
	}
	if !slices.Contains(header, opts.PValueColumn) {
		return fmt.Errorf("file %s is missing the p-value column %q", path, opts.PValueColumn)
	}

	if *outHeader == nil {
		*outHeader = header
		if err := cutoffOut.Write(header); err != nil {
			return err
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("reading %s line %d: %w", path, line, err)
		}

		row := zipRow(header, record)
		pval, err := strconv.ParseFloat(row[opts.PValueColumn], 64)
		if err != nil {
			return fmt.Errorf("parsing %s in %s line %d: %w", opts.PValueColumn, path, line, err)
		}

		if err := collector.Insert(tophits.Hit{Score: -pval, Row: row}); err != nil {
			return fmt.Errorf("collecting hit from %s line %d: %w", path, line, err)
		}

		if pval <= opts.Cutoff {
			res.BelowCutoff++
			if err := cutoffOut.Write(projectRow(row, *outHeader)); err != nil {
				return err
			}
		}

		res.Total++
		if res.Total%progressInterval == 0 {
			ll.Info("Processed records", slog.Int64("count", res.Total))
		}
	}
}

func writeTopHits(path string, header []string, collector *tophits.Collector) error {
	out, err := newGzipCSVWriter(path)
	if err != nil {
		return err
	}

	werr := out.Write(header)
	if werr == nil {
		for _, hit := range collector.Snapshot() {
			if werr = out.Write(projectRow(hit.Row, header)); werr != nil {
				break
			}
		}
	}
	if cerr := out.Close(); cerr != nil {
		werr = multierror.Append(werr, cerr).ErrorOrNil()
	}
	return werr
}

// zipRow pairs header names with record values, truncating to the shorter of
// the two the way the upstream workflow tolerates ragged rows.
func zipRow(header, record []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, name := range header {
		if i >= len(record) {
			break
		}
		row[name] = record[i]
	}
	return row
}

// projectRow renders a row in header order; missing columns become "".
func projectRow(row map[string]string, header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		out[i] = row[name]
	}
	return out
}

// gzipCSVWriter stacks a csv writer on a gzip stream on a file, closing all
// three in order.
type gzipCSVWriter struct {
	fh  *os.File
	gz  *gzip.Writer
	csv *csv.Writer
}

func newGzipCSVWriter(path string) (*gzipCSVWriter, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	gz := gzip.NewWriter(fh)
	return &gzipCSVWriter{fh: fh, gz: gz, csv: csv.NewWriter(gz)}, nil
}

func (w *gzipCSVWriter) Write(record []string) error {
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("writing %s: %w", w.fh.Name(), err)
	}
	return nil
}

func (w *gzipCSVWriter) Close() error {
	w.csv.Flush()
	err := w.csv.Error()
	if gerr := w.gz.Close(); err == nil {
		err = gerr
	}
	if ferr := w.fh.Close(); err == nil {
		err = ferr
	}
	if err != nil {
		return fmt.Errorf("closing %s: %w", w.fh.Name(), err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/export"
	"github.com/joseph-ayodele/po2so/internal/extract"
	"github.com/joseph-ayodele/po2so/internal/ingest"
	"github.com/joseph-ayodele/po2so/internal/layout"
	"github.com/joseph-ayodele/po2so/internal/mapping"
	"github.com/joseph-ayodele/po2so/internal/ocr"
	"github.com/joseph-ayodele/po2so/internal/pipeline"
)

var convertFlags struct {
	output  string
	format  string
	mapping string
	rules   string
	engine  string
	workers int
	timeout time.Duration
	soDate  string
	layout  string
}

var convertCmd = &cobra.Command{
	Use:   "convert [paths...]",
	Short: "Convert purchase orders into one sales order file",
	Long: `Convert reads purchase order files and directories, extracts every document in
parallel and writes the resulting sales orders to a single CSV or XLSX file.
Documents that fail are reported and left out of the file; the command only
exits non-zero when the file itself cannot be written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVarP(&convertFlags.output, "output", "o", "", "output file path (required)")
	f.StringVar(&convertFlags.format, "format", "", "output format: csv or xlsx (default from the output extension)")
	f.StringVar(&convertFlags.mapping, "mapping", "", "mapping spec file, YAML or JSON (default MAPPING_FILE)")
	f.StringVar(&convertFlags.rules, "rules", "", "extraction rules file (default RULES_FILE)")
	f.StringVar(&convertFlags.engine, "engine", "", "OCR engine: tesseract, tesseract-cli or azure (default OCR_ENGINE)")
	f.IntVar(&convertFlags.workers, "workers", 0, "documents processed in parallel (default BATCH_WORKERS)")
	f.DurationVar(&convertFlags.timeout, "timeout", 0, "per-document timeout (default DOCUMENT_TIMEOUT)")
	f.StringVar(&convertFlags.soDate, "so-date", "", "sales order date YYYY-MM-DD (default: mapping so_date, then today)")
	f.StringVar(&convertFlags.layout, "layout", "", "row layout: denormalized or two_block (default from mapping)")
	_ = convertCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if convertFlags.engine != "" {
		cfg.OCR.Engine = strings.ToLower(convertFlags.engine)
	}

	spec, err := loadSpec(firstNonEmpty(convertFlags.mapping, cfg.Files.MappingFile), cfg, specOverrides{
		Layout: convertFlags.layout,
		SODate: convertFlags.soDate,
		Today:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("mapping spec: %w", err)
	}
	rules, err := loadRules(firstNonEmpty(convertFlags.rules, cfg.Files.RulesFile))
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	format := export.FormatFromPath(convertFlags.output)
	switch strings.ToLower(convertFlags.format) {
	case "":
	case string(export.FormatCSV):
		format = export.FormatCSV
	case string(export.FormatXLSX):
		format = export.FormatXLSX
	default:
		return fmt.Errorf("unknown format %q (want csv or xlsx)", convertFlags.format)
	}

	exporter, err := export.NewExporter(export.Options{Columns: spec.Columns, Layout: spec.Layout}, logger)
	if err != nil {
		return err
	}
	mapper, err := mapping.NewMapper(spec, logger)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	proc := pipeline.NewProcessor(
		ocr.NewExtractor(cfg.OCR, engine, logger),
		layout.NewSegmenter(layout.DefaultConfig(), logger),
		extract.NewExtractor(rules, extractOptions(spec), logger),
		mapper,
		logger,
	)
	workers := cfg.Pipeline.Workers
	if convertFlags.workers > 0 {
		workers = convertFlags.workers
	}
	timeout := cfg.Pipeline.DocumentTimeout
	if convertFlags.timeout > 0 {
		timeout = convertFlags.timeout
	}
	batch := pipeline.NewBatch(proc, logger, pipeline.WithWorkers(workers), pipeline.WithProcessTimeout(timeout))

	loaded, _, err := ingest.NewLoader(logger).Load(ctx, args)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}
	results := batch.RunIngested(ctx, loaded)
	printSummary(cmd.OutOrStdout(), results)

	orders := pipeline.SalesOrders(results)
	if err := exporter.ExportFile(ctx, convertFlags.output, format, orders); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sales orders to %s\n", len(orders), convertFlags.output)
	return nil
}

// printSummary writes one line per document: status, field counts and the error if any.
func printSummary(w io.Writer, results []pipeline.Result) {
	var converted, review, failed int
	for _, r := range results {
		rep := r.Report
		switch rep.Status {
		case constants.StatusConverted:
			converted++
		case constants.StatusNeedsReview:
			review++
		default:
			failed++
		}
		line := fmt.Sprintf("%-12s %s", rep.Status, rep.Filename)
		if rep.SalesOrder != nil {
			line += fmt.Sprintf("  %s  resolved=%d flagged=%d", rep.SalesOrder.SONumber, rep.Resolved, rep.Flagged)
		}
		if len(rep.FlaggedFields) > 0 {
			line += "  review=" + strings.Join(rep.FlaggedFields, ",")
		}
		for _, warn := range rep.Warnings {
			line += "\n             warning: " + warn.String()
		}
		if rep.Error != "" {
			line += "\n             error: " + rep.Error
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d documents: %d converted, %d need review, %d failed\n", len(results), converted, review, failed)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/extract"
	"github.com/joseph-ayodele/po2so/internal/ingest"
	"github.com/joseph-ayodele/po2so/internal/layout"
	"github.com/joseph-ayodele/po2so/internal/ocr"
)

var inspectFlags struct {
	rules    string
	engine   string
	tokens   bool
	dayFirst bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the recovered tokens, regions and extracted fields of one document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectFlags.rules, "rules", "", "extraction rules file (default RULES_FILE)")
	f.StringVar(&inspectFlags.engine, "engine", "", "OCR engine: tesseract, tesseract-cli or azure (default OCR_ENGINE)")
	f.BoolVar(&inspectFlags.tokens, "tokens", true, "include the recovered tokens")
	f.BoolVar(&inspectFlags.dayFirst, "day-first", false, "read ambiguous numeric dates as day/month")
	rootCmd.AddCommand(inspectCmd)
}

// inspection is the JSON document printed by inspect.
type inspection struct {
	Document      *entity.RawDocument         `json:"document"`
	Recovered     *entity.Recovered           `json:"recovered,omitempty"`
	Regions       []regionView                `json:"regions"`
	Ambiguous     bool                        `json:"layout_ambiguous"`
	PurchaseOrder *entity.PurchaseOrderRecord `json:"purchase_order,omitempty"`
	Error         string                      `json:"error,omitempty"`
}

type regionView struct {
	Name  string     `json:"name"`
	Lines [][]string `json:"lines"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if inspectFlags.engine != "" {
		cfg.OCR.Engine = strings.ToLower(inspectFlags.engine)
	}
	rules, err := loadRules(firstNonEmpty(inspectFlags.rules, cfg.Files.RulesFile))
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	loaded, err := ingest.NewLoader(logger).LoadPath(ctx, args[0])
	if err != nil {
		return err
	}
	rec, err := ocr.NewExtractor(cfg.OCR, engine, logger).Recover(ctx, loaded.Document)
	if err != nil {
		return err
	}

	out := inspection{Document: loaded.Document}
	if inspectFlags.tokens {
		out.Recovered = rec
	}
	lay := layout.NewSegmenter(layout.DefaultConfig(), logger).Segment(rec)
	out.Ambiguous = lay.Ambiguous
	for _, region := range lay.Regions {
		view := regionView{Name: region.Name}
		for _, l := range region.Lines {
			cells := make([]string, 0, len(l.Cells))
			for _, c := range l.Cells {
				cells = append(cells, c.Text())
			}
			view.Lines = append(view.Lines, cells)
		}
		out.Regions = append(out.Regions, view)
	}

	opts := extract.DefaultOptions()
	opts.ReviewThreshold = cfg.Pipeline.ReviewThreshold
	opts.DayFirst = inspectFlags.dayFirst
	po, err := extract.NewExtractor(rules, opts, logger).Extract(lay)
	if err != nil {
		out.Error = err.Error()
	} else {
		po.DocumentID, po.Filename = loaded.Document.ID, loaded.Document.Filename
		out.PurchaseOrder = po
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/extract"
	"github.com/joseph-ayodele/po2so/internal/mapping"
	"github.com/joseph-ayodele/po2so/internal/ocr"
	"github.com/joseph-ayodele/po2so/internal/ocr/azure"
	"github.com/joseph-ayodele/po2so/internal/ocr/tesseract"
)

// newEngine builds the OCR engine named by cfg.OCR.Engine.
func newEngine(cfg *common.Config, logger *slog.Logger) (ocr.Engine, error) {
	switch cfg.OCR.Engine {
	case "", "tesseract":
		return tesseract.NewEngine(cfg.OCR), nil
	case "tesseract-cli":
		return ocr.NewCLIEngine(cfg.OCR, ocr.ExecRunner{}, logger), nil
	case "azure":
		if cfg.Azure.Endpoint == "" || cfg.Azure.APIKey == "" {
			return nil, common.NewAppError(common.CodeConfig, "azure engine needs AZURE_VISION_ENDPOINT and AZURE_VISION_KEY", common.ErrInvalidInput)
		}
		return azure.NewEngine(cfg.Azure), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown OCR engine %q", cfg.OCR.Engine), common.ErrInvalidInput)
	}
}

// specOverrides are the command-line values that take precedence over the mapping file.
type specOverrides struct {
	Layout string
	SODate string
	Today  time.Time
}

// loadSpec reads the mapping spec from path, or starts from the defaults when
// path is empty. Without a file the review threshold comes from the environment.
func loadSpec(path string, cfg *common.Config, o specOverrides) (mapping.Spec, error) {
	spec := mapping.DefaultSpec()
	if path != "" {
		var err error
		if spec, err = mapping.LoadSpec(path); err != nil {
			return mapping.Spec{}, err
		}
	} else if cfg != nil && cfg.Pipeline.ReviewThreshold > 0 {
		spec.ReviewThreshold = cfg.Pipeline.ReviewThreshold
	}
	if o.Layout != "" {
		spec.Layout = o.Layout
	}
	switch {
	case o.SODate != "":
		spec.SODate = o.SODate
	case spec.SODate == "" && !o.Today.IsZero():
		spec.SODate = o.Today.Format("2006-01-02")
	}
	if err := spec.Validate(); err != nil {
		return mapping.Spec{}, err
	}
	return spec, nil
}

// loadRules returns the default rule set unless a rules file is given.
func loadRules(path string) (*extract.RuleSet, error) {
	if path == "" {
		return extract.DefaultRules(), nil
	}
	return extract.LoadRules(path)
}

func extractOptions(spec mapping.Spec) extract.Options {
	opts := extract.DefaultOptions()
	opts.ReviewThreshold = spec.ReviewThreshold
	opts.DecimalSeparator = spec.DecimalSeparator
	opts.DayFirst = spec.DayFirst
	return opts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// CLIEngine shells out to the tesseract binary and reads its TSV output.
type CLIEngine struct {
	bin      string
	lang     string
	tessdata string
	psm      int
	runner   Runner
	logger   *slog.Logger
}

func NewCLIEngine(cfg common.OCRConfig, runner Runner, logger *slog.Logger) *CLIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	bin := cfg.TesseractBin
	if bin == "" {
		bin = "tesseract"
	}
	lang := cfg.TesseractLang
	if lang == "" {
		lang = "eng"
	}
	return &CLIEngine{bin: bin, lang: lang, tessdata: cfg.TessdataDir, psm: cfg.PSM, runner: runner, logger: logger}
}

func (c *CLIEngine) Name() string { return "tesseract-cli" }

func (c *CLIEngine) Recognize(ctx context.Context, img image.Image) (Recognition, error) {
	tmp, err := os.CreateTemp("", "po2so-page-*.png")
	if err != nil {
		return Recognition{}, err
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil {
			c.logger.Warn("failed to remove temp page image", "path", tmp.Name(), "error", err)
		}
	}()
	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		return Recognition{}, fmt.Errorf("encode page image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Recognition{}, err
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir D] tsv
	args := []string{tmp.Name(), "stdout", "-l", c.lang}
	if c.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(c.psm))
	}
	if c.tessdata != "" {
		args = append(args, "--tessdata-dir", c.tessdata)
	}
	args = append(args, "tsv")

	out, errb, err := c.runner.Run(ctx, c.bin, c.logger, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return Recognition{Words: parseTSV(string(out)), Ordered: true}, nil
}

// parseTSV reads word rows (level 5) from tesseract TSV output. Confidence is
// rescaled from 0..100; rows with conf -1 or empty text are layout rows.
func parseTSV(out string) []Word {
	var words []Word
	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[11:], "\t"))
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 || text == "" {
			continue
		}
		nums := make([]float64, 4)
		ok := true
		for k := range nums {
			v, err := strconv.ParseFloat(cols[6+k], 64)
			if err != nil {
				ok = false
				break
			}
			nums[k] = v
		}
		if !ok {
			continue
		}
		words = append(words, Word{
			Text:       text,
			Box:        entity.BBox{X: nums[0], Y: nums[1], Width: nums[2], Height: nums[3]},
			Confidence: conf / 100,
		})
	}
	return words
}

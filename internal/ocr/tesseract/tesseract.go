// Package tesseract provides an ocr.Engine backed by libtesseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/ocr"
)

// Engine runs one gosseract client per call; clients are not shared between goroutines.
type Engine struct {
	clientFactory func() *gosseract.Client
	langs         []string
	tessdata      string
	psm           int
	dpi           int
}

func NewEngine(cfg common.OCRConfig) *Engine {
	lang := cfg.TesseractLang
	if lang == "" {
		lang = "eng"
	}
	return &Engine{
		clientFactory: gosseract.NewClient,
		langs:         []string{lang},
		tessdata:      cfg.TessdataDir,
		psm:           cfg.PSM,
		dpi:           cfg.DPI,
	}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, img image.Image) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ocr.Recognition{}, fmt.Errorf("encode page image: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if e.tessdata != "" {
		if err := c.SetTessdataPrefix(e.tessdata); err != nil {
			return ocr.Recognition{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(e.langs...); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set languages: %w", err)
	}
	if e.psm > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.psm)); err != nil {
			return ocr.Recognition{}, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.dpi)); err != nil {
			return ocr.Recognition{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("recognize words: %w", err)
	}
	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.Word{
			Text: b.Word,
			Box: entity.BBox{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
			Confidence: b.Confidence / 100.0,
		})
	}
	return ocr.Recognition{Words: words, Ordered: true}, nil
}

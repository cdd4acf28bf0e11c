// Package azure provides an ocr.Engine backed by Azure Computer Vision OCR.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/ocr"
)

// client is the slice of the Computer Vision API the engine needs.
type client interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, imageParameter io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// Engine asks the service to detect orientation. The service does not return
// word confidences, so every word carries the configured assumed confidence.
type Engine struct {
	client     client
	language   computervision.OcrLanguages
	confidence float64
}

func NewEngine(cfg common.AzureConfig) *Engine {
	c := computervision.New(cfg.Endpoint)
	c.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.APIKey)
	lang := cfg.Language
	if lang == "" {
		lang = string(computervision.En)
	}
	conf := cfg.AssumedConfidence
	if conf <= 0 || conf > 1 {
		conf = 0.85
	}
	return &Engine{client: c, language: computervision.OcrLanguages(lang), confidence: conf}
}

func (e *Engine) Name() string { return "azure" }

func (e *Engine) Recognize(ctx context.Context, img image.Image) (ocr.Recognition, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ocr.Recognition{}, fmt.Errorf("encode page image: %w", err)
	}
	res, err := e.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(&buf), e.language)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("recognize printed text: %w", err)
	}
	return e.toRecognition(res), nil
}

func (e *Engine) toRecognition(res computervision.OcrResult) ocr.Recognition {
	out := ocr.Recognition{}
	if res.Orientation != nil {
		if angle, ok := correction(*res.Orientation); ok {
			out.OrientationKnown = true
			out.Rotation = angle
		}
	}
	if res.Regions == nil {
		return out
	}
	for _, region := range *res.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			for _, w := range *line.Words {
				if w.Text == nil || w.BoundingBox == nil {
					continue
				}
				box, ok := parseBoundingBox(*w.BoundingBox)
				if !ok {
					continue
				}
				out.Words = append(out.Words, ocr.Word{Text: *w.Text, Box: box, Confidence: e.confidence})
			}
		}
	}
	return out
}

// correction maps the reported direction of the text's top edge to the
// counter-clockwise rotation that makes the page upright.
func correction(orientation string) (int, bool) {
	switch strings.ToLower(orientation) {
	case "up":
		return 0, true
	case "right":
		return 90, true
	case "down":
		return 180, true
	case "left":
		return 270, true
	default:
		return 0, false
	}
}

// parseBoundingBox reads the service's "x,y,width,height" strings.
func parseBoundingBox(s string) (entity.BBox, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return entity.BBox{}, false
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return entity.BBox{}, false
		}
		v[i] = n
	}
	return entity.BBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, true
}

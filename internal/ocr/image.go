package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// retryAngles are tried, in order, when the upright reading scores too low.
var retryAngles = []int{90, 180, 270}

func (e *Extractor) recoverImage(ctx context.Context, doc *entity.RawDocument) (*entity.Recovered, error) {
	if err := e.requireEngine(); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(doc.Reader(), imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.UnreadableDocumentError("decode image", err)
	}
	page, err := e.recognizePage(ctx, img, 1, MethodImageOCR)
	if err != nil {
		return nil, err
	}
	return &entity.Recovered{Pages: []entity.Page{page}}, nil
}

type orientationCandidate struct {
	angle int
	img   image.Image
	rec   Recognition
	score float64
}

// recognizePage runs the engine on one page image, retrying rotations when the
// engine cannot report orientation and the upright reading looks implausible.
func (e *Extractor) recognizePage(ctx context.Context, img image.Image, number int, method string) (entity.Page, error) {
	if e.cfg.Enhance {
		img = enhance(img)
	}
	rec, err := recognize(ctx, e.engine, img)
	if err != nil {
		return entity.Page{}, fmt.Errorf("page %d: %s: %w", number, e.engine.Name(), err)
	}
	best := orientationCandidate{img: img, rec: rec}

	switch {
	case rec.OrientationKnown:
		if angle := normalizeAngle(rec.Rotation); angle != 0 {
			rotated := rotate(img, angle)
			again, err := recognize(ctx, e.engine, rotated)
			if err != nil {
				return entity.Page{}, fmt.Errorf("page %d: %s: %w", number, e.engine.Name(), err)
			}
			best = orientationCandidate{angle: angle, img: rotated, rec: again}
		}
		best.score = orientationScore(best.rec.Words)
		if len(best.rec.Words) > 0 && best.score < e.cfg.OrientationThreshold {
			return entity.Page{}, common.UnreadableDocumentError(
				fmt.Sprintf("page %d: score %.2f at reported rotation %d below threshold %.2f", number, best.score, best.angle, e.cfg.OrientationThreshold), nil)
		}
	default:
		best.score = orientationScore(rec.Words)
		if best.score >= e.cfg.OrientationThreshold {
			break
		}
		total := len(rec.Words)
		for _, angle := range retryAngles {
			rotated := rotate(img, angle)
			r, err := recognize(ctx, e.engine, rotated)
			if err != nil {
				return entity.Page{}, fmt.Errorf("page %d at %d degrees: %s: %w", number, angle, e.engine.Name(), err)
			}
			total += len(r.Words)
			if s := orientationScore(r.Words); s > best.score {
				best = orientationCandidate{angle: angle, img: rotated, rec: r, score: s}
			}
		}
		if total == 0 {
			return buildPage(number, img, 0, method, Recognition{}), nil
		}
		if best.score < e.cfg.OrientationThreshold {
			return entity.Page{}, common.UnreadableDocumentError(
				fmt.Sprintf("page %d: best orientation score %.2f below threshold %.2f", number, best.score, e.cfg.OrientationThreshold), nil)
		}
		e.logger.Debug("ocr.orientation.retry", "page", number, "angle", best.angle, "score", best.score)
	}
	return buildPage(number, best.img, best.angle, method, best.rec), nil
}

func buildPage(number int, img image.Image, angle int, method string, rec Recognition) entity.Page {
	b := img.Bounds()
	page := entity.Page{
		Number:   number,
		Width:    float64(b.Dx()),
		Height:   float64(b.Dy()),
		Rotation: angle,
		Method:   method,
	}
	for _, w := range rec.Words {
		text := Normalize(w.Text)
		if text == "" {
			continue
		}
		page.Tokens = append(page.Tokens, entity.Token{
			Page:       number,
			Box:        w.Box,
			Confidence: clamp01(w.Confidence),
			Text:       text,
		})
	}
	if !rec.Ordered {
		sortReadingOrder(page.Tokens)
	}
	return page
}

// enhance applies the grayscale, contrast and sharpen pass used for noisy scans.
func enhance(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 30)
	return imaging.Sharpen(out, 1.5)
}

// rotate turns img counter-clockwise by a multiple of 90 degrees.
func rotate(img image.Image, angle int) image.Image {
	switch normalizeAngle(angle) {
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	default:
		return img
	}
}

func normalizeAngle(a int) int {
	a %= 360
	if a < 0 {
		a += 360
	}
	return (a + 45) / 90 * 90 % 360
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

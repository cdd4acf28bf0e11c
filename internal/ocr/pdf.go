package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

const (
	defaultPageWidth  = 612.0 // US Letter in points
	defaultPageHeight = 792.0
)

// pageRenderer rasterizes PDF pages. *fitz.Document satisfies it.
type pageRenderer interface {
	NumPage() int
	ImageDPI(pageNumber int, dpi float64) (*image.RGBA, error)
	Close() error
}

func openFitz(data []byte) (pageRenderer, error) {
	return fitz.NewFromMemory(data)
}

type textLayerPage struct {
	width  float64
	height float64
	tokens []entity.Token
	chars  int
}

func (e *Extractor) recoverPDF(ctx context.Context, doc *entity.RawDocument, logger *slog.Logger) (*entity.Recovered, error) {
	layer, layerErr := readTextLayer(doc)
	if layerErr != nil {
		logger.Warn("ocr.pdf.text_layer.failed", "error", layerErr)
	}

	var renderer pageRenderer
	defer func() {
		if renderer != nil {
			_ = renderer.Close()
		}
	}()
	openRenderer := func() error {
		if renderer != nil {
			return nil
		}
		r, err := e.openRenderer(doc.Bytes())
		if err != nil {
			return common.UnreadableDocumentError("open pdf for rasterization", err)
		}
		renderer = r
		return nil
	}

	numPages := len(layer)
	if layerErr != nil {
		if err := openRenderer(); err != nil {
			return nil, err
		}
		numPages = renderer.NumPage()
	}
	if e.cfg.MaxPages > 0 && numPages > e.cfg.MaxPages {
		numPages = e.cfg.MaxPages
	}

	out := &entity.Recovered{}
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		number := i + 1
		if i < len(layer) && layer[i].chars >= e.cfg.MinTextLayerChars && layer[i].chars > 0 {
			out.Pages = append(out.Pages, entity.Page{
				Number: number,
				Width:  layer[i].width,
				Height: layer[i].height,
				Method: MethodPDFText,
				Tokens: layer[i].tokens,
			})
			continue
		}

		if err := e.requireEngine(); err != nil {
			return nil, err
		}
		if err := openRenderer(); err != nil {
			return nil, err
		}
		img, err := renderer.ImageDPI(i, float64(e.cfg.DPI))
		if err != nil {
			return nil, common.UnreadableDocumentError(fmt.Sprintf("rasterize page %d", number), err)
		}
		page, err := e.recognizePage(ctx, img, number, MethodPDFOCR)
		if err != nil {
			return nil, err
		}
		if layerErr == nil {
			out.Warnings = append(out.Warnings, common.Warning{
				Code:    common.WarnTextLayerFallback,
				Page:    number,
				Message: fmt.Sprintf("text layer had %d characters, page was OCRed", layer[i].chars),
			})
		}
		logger.Debug("ocr.pdf.page.ocr", "page", number, "tokens", len(page.Tokens), "rotation", page.Rotation)
		out.Pages = append(out.Pages, page)
	}
	return out, nil
}

// readTextLayer extracts positioned words from every page's content stream.
func readTextLayer(doc *entity.RawDocument) (pages []textLayerPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(doc.Reader(), doc.Size())
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	pages = make([]textLayerPage, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		w, h := mediaBox(p)
		tokens := wordsFromGlyphs(pageTexts(p), h, i)
		chars := 0
		for _, t := range tokens {
			chars += len([]rune(strings.ReplaceAll(t.Text, " ", "")))
		}
		pages = append(pages, textLayerPage{width: w, height: h, tokens: tokens, chars: chars})
	}
	return pages, nil
}

// pageTexts isolates content stream failures to the page they occur on.
func pageTexts(p pdf.Page) (texts []pdf.Text) {
	defer func() {
		if r := recover(); r != nil {
			texts = nil
		}
	}()
	if p.V.IsNull() {
		return nil
	}
	return p.Content().Text
}

// mediaBox returns the page size in points, following inherited boxes up the page tree.
func mediaBox(p pdf.Page) (width, height float64) {
	v := p.V
	for depth := 0; depth < 10 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Kind() == pdf.Array && mb.Len() == 4 {
			w := math.Abs(mb.Index(2).Float64() - mb.Index(0).Float64())
			h := math.Abs(mb.Index(3).Float64() - mb.Index(1).Float64())
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}

type glyph struct {
	x, y, w, size float64
	s             string
}

func (g glyph) space() bool { return strings.TrimSpace(g.s) == "" }

// wordsFromGlyphs groups glyph runs into word tokens: glyphs are bucketed into
// rows by baseline, sorted by x, and split on whitespace or gaps wider than a
// quarter of the font size.
func wordsFromGlyphs(texts []pdf.Text, pageHeight float64, pageNumber int) []entity.Token {
	var glyphs []glyph
	for _, t := range texts {
		runes := []rune(t.S)
		if len(runes) == 0 {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		step := t.W / float64(len(runes))
		for k, r := range runes {
			glyphs = append(glyphs, glyph{x: t.X + float64(k)*step, y: t.Y, w: step, size: size, s: string(r)})
		}
	}
	if len(glyphs) == 0 {
		return nil
	}

	type row struct {
		y      float64
		glyphs []glyph
	}
	var rows []*row
	for _, g := range glyphs {
		var hit *row
		for _, r := range rows {
			if math.Abs(r.y-g.y) <= math.Max(1, 0.3*g.size) {
				hit = r
				break
			}
		}
		if hit == nil {
			hit = &row{y: g.y}
			rows = append(rows, hit)
		}
		hit.glyphs = append(hit.glyphs, g)
	}
	// PDF space grows upwards; top row first.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	var tokens []entity.Token
	for _, r := range rows {
		sort.SliceStable(r.glyphs, func(i, j int) bool { return r.glyphs[i].x < r.glyphs[j].x })

		var word []glyph
		flush := func() {
			if len(word) == 0 {
				return
			}
			var b strings.Builder
			size := 0.0
			for _, g := range word {
				b.WriteString(g.s)
				size = math.Max(size, g.size)
			}
			text := Normalize(b.String())
			if text != "" && strings.IndexFunc(text, func(r rune) bool { return !unicode.IsSpace(r) }) >= 0 {
				x0 := word[0].x
				x1 := word[len(word)-1].x + word[len(word)-1].w
				tokens = append(tokens, entity.Token{
					Page: pageNumber,
					Box: entity.BBox{
						X:      x0,
						Y:      pageHeight - (r.y + 0.8*size),
						Width:  math.Max(x1-x0, 0.5*size),
						Height: size,
					},
					Confidence: 1,
					Text:       text,
				})
			}
			word = word[:0]
		}
		for _, g := range r.glyphs {
			if g.space() {
				flush()
				continue
			}
			if len(word) > 0 {
				prev := word[len(word)-1]
				if g.x-(prev.x+prev.w) > 0.25*g.size {
					flush()
				}
			}
			word = append(word, g)
		}
		flush()
	}
	return tokens
}

package ocr

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/gomutex/godocx/wml/ctypes"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

const wordBodyPart = "word/document.xml"

// recoverWord lays a .docx body out on the spreadsheet grid: each paragraph is
// a row with tab-separated runs in successive columns, and each table row is a
// row with one column per cell. Word has no fixed pagination, so the body is one page.
func (e *Extractor) recoverWord(doc *entity.RawDocument) (*entity.Recovered, error) {
	zr, err := zip.NewReader(doc.Reader(), doc.Size())
	if err != nil {
		return nil, common.UnreadableDocumentError("open word document", err)
	}
	part, err := zr.Open(wordBodyPart)
	if err != nil {
		return nil, common.UnreadableDocumentError("word document has no body part", err)
	}
	defer func() {
		if err := part.Close(); err != nil {
			e.logger.Warn("ocr.docx.close.failed", "error", err)
		}
	}()

	rows, err := wordRows(part)
	if err != nil {
		return nil, common.UnreadableDocumentError("decode word body", err)
	}

	page := entity.Page{Number: 1, Method: MethodWord}
	maxCols := 0
	for r, row := range rows {
		maxCols = max(maxCols, len(row))
		for c, cell := range row {
			text := Normalize(cell)
			if text == "" {
				continue
			}
			width := math.Min(float64(utf8.RuneCountInString(text))*sheetGlyphWidth, sheetColumnWidth*0.8)
			page.Tokens = append(page.Tokens, entity.Token{
				Page: 1,
				Box: entity.BBox{
					X:      float64(c) * sheetColumnWidth,
					Y:      float64(r) * sheetRowHeight,
					Width:  width,
					Height: sheetTokenHeight,
				},
				Confidence: 1,
				Text:       text,
			})
		}
	}
	page.Width = float64(maxCols) * sheetColumnWidth
	page.Height = float64(len(rows)) * sheetRowHeight
	return &entity.Recovered{Pages: []entity.Page{page}}, nil
}

// wordRows walks the top-level body children in document order.
func wordRows(r io.Reader) ([][]string, error) {
	d := xml.NewDecoder(r)
	var rows [][]string
	inBody := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch {
			case el.Name.Local == "body":
				inBody = true
			case !inBody:
			case el.Name.Local == "p":
				var p ctypes.Paragraph
				if err := d.DecodeElement(&p, &el); err != nil {
					return nil, err
				}
				rows = append(rows, strings.Split(paragraphText(&p), "\t"))
			case el.Name.Local == "tbl":
				var t ctypes.Table
				if err := d.DecodeElement(&t, &el); err != nil {
					return nil, err
				}
				rows = append(rows, tableRows(&t)...)
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if el.Name.Local == "body" {
				inBody = false
			}
		}
	}
}

func tableRows(t *ctypes.Table) [][]string {
	var rows [][]string
	for _, rc := range t.RowContents {
		if rc.Row == nil {
			continue
		}
		var cells []string
		for _, cc := range rc.Row.Contents {
			if cc.Cell == nil {
				continue
			}
			cells = append(cells, cellText(cc.Cell))
		}
		rows = append(rows, cells)
	}
	return rows
}

// cellText joins the paragraphs of a cell; nested tables are flattened into it.
func cellText(c *ctypes.Cell) string {
	var parts []string
	for _, block := range c.Contents {
		switch {
		case block.Paragraph != nil:
			parts = append(parts, strings.ReplaceAll(paragraphText(block.Paragraph), "\t", " "))
		case block.Table != nil:
			for _, row := range tableRows(block.Table) {
				parts = append(parts, row...)
			}
		}
	}
	return strings.Join(parts, " ")
}

func paragraphText(p *ctypes.Paragraph) string {
	var b strings.Builder
	for _, child := range p.Children {
		if child.Run == nil {
			continue
		}
		for _, rc := range child.Run.Children {
			switch {
			case rc.Text != nil:
				b.WriteString(rc.Text.Text)
			case rc.Tab != nil:
				b.WriteByte('\t')
			case rc.Break != nil:
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

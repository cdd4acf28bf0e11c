package ocr

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Synthetic grid used to place spreadsheet cells in page space.
const (
	sheetColumnWidth = 120.0
	sheetRowHeight   = 20.0
	sheetGlyphWidth  = 7.0
	sheetTokenHeight = 14.0
)

// recoverSpreadsheet turns every non-empty cell into a token; each non-empty sheet is a page.
func (e *Extractor) recoverSpreadsheet(doc *entity.RawDocument) (*entity.Recovered, error) {
	f, err := excelize.OpenReader(doc.Reader())
	if err != nil {
		return nil, common.UnreadableDocumentError("open spreadsheet", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("ocr.xlsx.close.failed", "error", err)
		}
	}()

	out := &entity.Recovered{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, common.UnreadableDocumentError(fmt.Sprintf("read sheet %q", sheet), err)
		}
		if len(rows) == 0 {
			continue
		}
		if e.cfg.MaxPages > 0 && len(out.Pages) >= e.cfg.MaxPages {
			break
		}
		number := len(out.Pages) + 1
		page := entity.Page{Number: number, Method: MethodSpreadsheet}
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
					Page: number,
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
		out.Pages = append(out.Pages, page)
	}
	if len(out.Pages) == 0 {
		return nil, common.UnreadableDocumentError("spreadsheet has no populated sheets", nil)
	}
	return out, nil
}

package export

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Row is one output row. Flagged marks the cells holding a field that needs review.
type Row struct {
	Cells   []string
	Flagged []bool
}

// Table is the rendered export, independent of the file format.
type Table struct {
	Header []string
	Rows   []Row
}

// cell is a rendered value and whether its source field is flagged.
type cell struct {
	value   string
	flagged bool
}

// BuildTable renders orders in the layout and columns of opts. Flagged
// fields render their raw text.
func BuildTable(orders []*entity.SalesOrderRecord, opts Options) Table {
	columns := opts.columns()
	if opts.Layout == constants.LayoutTwoBlock {
		return twoBlock(orders, columns)
	}
	t := Table{Header: append([]string(nil), columns...)}
	for _, so := range orders {
		for i := range so.Lines {
			t.Rows = append(t.Rows, buildRow(columns, func(col string) (cell, bool) {
				if constants.IsItemColumn(col) {
					return lineCell(&so.Lines[i], col), true
				}
				return orderCell(so, col), true
			}))
		}
	}
	return t
}

func twoBlock(orders []*entity.SalesOrderRecord, columns []string) Table {
	if !contains(columns, constants.ColSONumber) {
		columns = append([]string{constants.ColSONumber}, columns...)
	}
	t := Table{Header: append([]string{constants.ColRecordType}, columns...)}
	for _, so := range orders {
		h := buildRow(columns, func(col string) (cell, bool) {
			if constants.IsItemColumn(col) {
				return cell{}, false
			}
			return orderCell(so, col), true
		})
		t.Rows = append(t.Rows, prepend(constants.RecordHeader, h))
		for i := range so.Lines {
			l := buildRow(columns, func(col string) (cell, bool) {
				switch {
				case constants.IsItemColumn(col):
					return lineCell(&so.Lines[i], col), true
				case col == constants.ColSONumber:
					return cell{value: so.SONumber}, true
				}
				return cell{}, false
			})
			t.Rows = append(t.Rows, prepend(constants.RecordLine, l))
		}
	}
	return t
}

// buildRow renders the data columns first so the review columns can describe them.
// render reports false for columns that stay blank in this row.
func buildRow(columns []string, render func(col string) (cell, bool)) Row {
	row := Row{Cells: make([]string, len(columns)), Flagged: make([]bool, len(columns))}
	var flagged []string
	for i, col := range columns {
		if col == constants.ColNeedsReview || col == constants.ColReviewFields {
			continue
		}
		c, ok := render(col)
		if !ok {
			continue
		}
		row.Cells[i], row.Flagged[i] = c.value, c.flagged
		if c.flagged {
			flagged = append(flagged, col)
		}
	}
	for i, col := range columns {
		switch col {
		case constants.ColNeedsReview:
			row.Cells[i] = strconv.FormatBool(len(flagged) > 0)
		case constants.ColReviewFields:
			row.Cells[i] = strings.Join(flagged, ";")
		}
	}
	return row
}

func prepend(value string, r Row) Row {
	return Row{
		Cells:   append([]string{value}, r.Cells...),
		Flagged: append([]bool{false}, r.Flagged...),
	}
}

func orderCell(so *entity.SalesOrderRecord, col string) cell {
	if f, ok := so.Fields[col]; ok {
		return cell{value: f.Display(), flagged: f.NeedsReview}
	}
	switch col {
	case constants.ColSONumber:
		return cell{value: so.SONumber}
	case constants.ColSODate:
		if so.SODate.IsZero() {
			return cell{}
		}
		return cell{value: so.SODate.Format(entity.DateLayout)}
	case constants.ColCurrency:
		return cell{value: so.Currency}
	case constants.ColOrderTotal:
		return cell{value: text(so.OrderTotal)}
	case constants.ColTax:
		return cell{value: text(so.Tax)}
	case constants.ColShipping:
		return cell{value: text(so.Shipping)}
	case constants.ColGrandTotal:
		return cell{value: text(so.GrandTotal)}
	case constants.ColSourceFile:
		return cell{value: so.SourceFile}
	}
	return cell{}
}

func lineCell(l *entity.SalesOrderLine, col string) cell {
	switch col {
	case constants.ColLineNumber:
		return cell{value: strconv.Itoa(l.Number)}
	case constants.ColUOM:
		if f, ok := l.Fields[col]; ok && f.NeedsReview {
			return cell{value: f.Raw, flagged: true}
		}
		return cell{value: l.UOM}
	}
	if f, ok := l.Fields[col]; ok {
		return cell{value: f.Display(), flagged: f.NeedsReview}
	}
	switch col {
	case constants.ColItemSKU:
		return cell{value: l.SKU}
	case constants.ColDescription:
		return cell{value: l.Description}
	case constants.ColQuantity:
		return cell{value: text(l.Quantity)}
	case constants.ColUnitPrice:
		return cell{value: text(l.UnitPrice)}
	case constants.ColExtendedPrice:
		return cell{value: text(l.ExtendedPrice)}
	}
	return cell{}
}

func text(d *apd.Decimal) string {
	if d == nil {
		return ""
	}
	return d.Text('f')
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package entity

import (
	"sort"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Party is a customer, vendor or ship-to block.
type Party struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// SalesOrderLine amounts are rounded to the order currency.
type SalesOrderLine struct {
	Number        int          `json:"number"`
	SKU           string       `json:"sku"`
	Description   string       `json:"description"`
	UOM           string       `json:"uom"`
	Quantity      *apd.Decimal `json:"quantity"`
	UnitPrice     *apd.Decimal `json:"unit_price"`
	ExtendedPrice *apd.Decimal `json:"extended_price"`

	// Fields holds the source fields keyed by output column name.
	Fields map[string]ExtractedField `json:"-"`
}

// SalesOrderRecord is the Schema Mapper output.
type SalesOrderRecord struct {
	SONumber     string           `json:"so_number"`
	SODate       time.Time        `json:"so_date"`
	PONumber     string           `json:"po_number"`
	PODate       string           `json:"po_date,omitempty"`
	DueDate      string           `json:"due_date,omitempty"`
	Currency     string           `json:"currency"`
	Customer     Party            `json:"customer"`
	Vendor       Party            `json:"vendor"`
	ShipTo       Party            `json:"ship_to"`
	PaymentTerms string           `json:"payment_terms,omitempty"`
	Comments     string           `json:"comments,omitempty"`
	Lines        []SalesOrderLine `json:"lines"`
	OrderTotal   *apd.Decimal     `json:"order_total"`
	Tax          *apd.Decimal     `json:"tax"`
	Shipping     *apd.Decimal     `json:"shipping"`
	GrandTotal   *apd.Decimal     `json:"grand_total"`
	SourceFile   string           `json:"source_file"`

	// Fields holds the source header fields keyed by output column name.
	Fields map[string]ExtractedField `json:"-"`
}

// FlaggedFields lists the flagged output columns, order columns first, both sorted.
func (r *SalesOrderRecord) FlaggedFields() []string {
	out := flagged(r.Fields)
	for _, l := range r.Lines {
		for _, name := range flagged(l.Fields) {
			out = append(out, ItemFieldKey(l.Number, name))
		}
	}
	return out
}

// FieldCount counts the source-backed fields of the order and its lines.
func (r *SalesOrderRecord) FieldCount() int {
	n := len(r.Fields)
	for _, l := range r.Lines {
		n += len(l.Fields)
	}
	return n
}

func flagged(fields map[string]ExtractedField) []string {
	var names []string
	for name, f := range fields {
		if f.NeedsReview {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

package constants

// Export column names.
const (
	ColRecordType      = "record_type"
	ColSONumber        = "so_number"
	ColSODate          = "so_date"
	ColPONumber        = "po_number"
	ColPODate          = "po_date"
	ColDueDate         = "due_date"
	ColCurrency        = "currency"
	ColCustomerName    = "customer_name"
	ColCustomerPhone   = "customer_phone"
	ColCustomerEmail   = "customer_email"
	ColCustomerAddress = "customer_address"
	ColVendorName      = "vendor_name"
	ColVendorPhone     = "vendor_phone"
	ColVendorEmail     = "vendor_email"
	ColVendorAddress   = "vendor_address"
	ColShipToName      = "ship_to_name"
	ColShipToAddress   = "ship_to_address"
	ColPaymentTerms    = "payment_terms"
	ColComments        = "comments"
	ColLineNumber      = "line_number"
	ColItemSKU         = "item_sku"
	ColDescription     = "description"
	ColUOM             = "uom"
	ColQuantity        = "quantity"
	ColUnitPrice       = "unit_price"
	ColExtendedPrice   = "extended_price"
	ColOrderTotal      = "order_total"
	ColTax             = "tax"
	ColShipping        = "shipping"
	ColGrandTotal      = "grand_total"
	ColPOTotal         = "po_total"
	ColNeedsReview     = "needs_review"
	ColReviewFields    = "review_fields"
	ColSourceFile      = "source_file"
)

// Layouts of the exported file.
const (
	LayoutDenormalized = "denormalized"
	LayoutTwoBlock     = "two_block"
)

// Record types of the two-block layout.
const (
	RecordHeader = "H"
	RecordLine   = "L"
)

// DefaultColumns is the column list used when the mapping spec names none.
var DefaultColumns = []string{
	ColPONumber, ColVendorName, ColCustomerName, ColItemSKU, ColDescription,
	ColQuantity, ColUnitPrice, ColExtendedPrice, ColOrderTotal, ColNeedsReview,
}

// OrderColumns are rendered from the order; ItemColumns from a line.
var (
	OrderColumns = []string{
		ColSONumber, ColSODate, ColPONumber, ColPODate, ColDueDate, ColCurrency,
		ColCustomerName, ColCustomerPhone, ColCustomerEmail, ColCustomerAddress,
		ColVendorName, ColVendorPhone, ColVendorEmail, ColVendorAddress,
		ColShipToName, ColShipToAddress, ColPaymentTerms, ColComments,
		ColOrderTotal, ColTax, ColShipping, ColGrandTotal, ColPOTotal, ColSourceFile,
	}
	ItemColumns = []string{
		ColLineNumber, ColItemSKU, ColDescription, ColUOM, ColQuantity, ColUnitPrice, ColExtendedPrice,
	}
	// ReviewColumns describe the review state of the row they appear in.
	ReviewColumns = []string{ColNeedsReview, ColReviewFields}
)

// IsItemColumn reports whether name is rendered per line item.
func IsItemColumn(name string) bool {
	return contains(ItemColumns, name)
}

// IsKnownColumn reports whether name can appear in an export.
func IsKnownColumn(name string) bool {
	return contains(OrderColumns, name) || contains(ItemColumns, name) || contains(ReviewColumns, name)
}

// KnownColumns lists every exportable column.
func KnownColumns() []string {
	out := make([]string, 0, len(OrderColumns)+len(ItemColumns)+len(ReviewColumns))
	out = append(out, OrderColumns...)
	out = append(out, ItemColumns...)
	return append(out, ReviewColumns...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

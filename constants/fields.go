package constants

// Canonical purchase order header fields.
const (
	FieldPONumber      = "po_number"
	FieldPODate        = "po_date"
	FieldDueDate       = "due_date"
	FieldVendorName    = "vendor_name"
	FieldBuyerName     = "buyer_name"
	FieldBuyerPhone    = "buyer_phone"
	FieldBuyerEmail    = "buyer_email"
	FieldBuyerAddress  = "buyer_address"
	FieldShipToName    = "ship_to_name"
	FieldShipToAddress = "ship_to_address"
	FieldPaymentTerms  = "payment_terms"
	FieldCurrency      = "currency"
	FieldSubtotal      = "subtotal"
	FieldTax           = "tax"
	FieldShipping      = "shipping"
	FieldTotal         = "total"
	FieldComments      = "comments"
)

// Canonical line item fields.
const (
	ItemSKU         = "item_sku"
	ItemDescription = "description"
	ItemQuantity    = "quantity"
	ItemUnitPrice   = "unit_price"
	ItemAmount      = "amount"
	ItemUOM         = "uom"
)

// Region names produced by the layout segmenter.
const (
	RegionHeader    = "header"
	RegionLineItems = "line_items"
	RegionTotals    = "totals"
	RegionFooter    = "footer"
)

// LineItemFields lists item fields in column order.
var LineItemFields = []string{ItemSKU, ItemDescription, ItemQuantity, ItemUOM, ItemUnitPrice, ItemAmount}

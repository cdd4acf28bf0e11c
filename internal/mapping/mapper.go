package mapping

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// unitPriceExtraScale is how many digits past the minor unit a derived unit price keeps.
const unitPriceExtraScale = 2

// Mapper turns purchase order records into sales order records.
type Mapper struct {
	spec    Spec
	money   *money
	taxRate *apd.Decimal
	logger  *slog.Logger
}

func NewMapper(spec Spec, logger *slog.Logger) (*Mapper, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	m, err := newMoney(spec.RoundingMode, spec.Currency)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "mapping spec currency", err)
	}
	rate, err := decimal(string(spec.DefaultTaxRate))
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "mapping spec tax rate", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{spec: spec, money: m, taxRate: rate, logger: logger}, nil
}

func (m *Mapper) Spec() Spec { return m.spec }

// SONumber formats the sales order number of the seq-th document of a batch.
func (m *Mapper) SONumber(seq int) string {
	return fmt.Sprintf("%s%06d", m.spec.SOPrefix, m.spec.SOStart+seq)
}

// Map builds the sales order for po, the seq-th document of its batch. The
// returned warnings are non-fatal; IncompleteMappingError means no sales
// order could be built.
func (m *Mapper) Map(po *entity.PurchaseOrderRecord, seq int) (*entity.SalesOrderRecord, []common.Warning, error) {
	if po == nil || len(po.LineItems) == 0 {
		return nil, nil, common.IncompleteMappingError("purchase order has no line items")
	}

	var warnings []common.Warning
	lines := make([]entity.SalesOrderLine, 0, len(po.LineItems))
	var problems []string
	for _, item := range po.LineItems {
		line, warns, problem := m.mapLine(item)
		warnings = append(warnings, warns...)
		if problem != "" {
			problems = append(problems, problem)
			continue
		}
		lines = append(lines, line)
	}
	if len(problems) > 0 {
		return nil, warnings, common.IncompleteMappingError(strings.Join(problems, "; "))
	}

	so := &entity.SalesOrderRecord{
		SONumber:   m.SONumber(seq),
		SODate:     m.spec.OrderDate(),
		Currency:   m.spec.Currency,
		Lines:      lines,
		SourceFile: po.Filename,
		Fields:     make(map[string]entity.ExtractedField),
	}
	m.mapHeader(po, so)
	if w, ok := m.checkCurrency(po); ok {
		warnings = append(warnings, w)
	}

	warns, err := m.totals(po, so)
	if err != nil {
		return nil, warnings, common.IncompleteMappingError(err.Error())
	}
	warnings = append(warnings, warns...)

	m.logger.Debug("mapping.order.ok",
		"so_number", so.SONumber,
		"lines", len(so.Lines),
		"grand_total", so.GrandTotal.Text('f'))
	return so, warnings, nil
}

// mapLine returns the line, its warnings, and a problem description when the
// line lacks what a sales order line needs.
func (m *Mapper) mapLine(item entity.LineItem) (entity.SalesOrderLine, []common.Warning, string) {
	line := entity.SalesOrderLine{Number: item.Number, Fields: make(map[string]entity.ExtractedField)}
	var warnings []common.Warning

	if f, ok := item.Get(constants.ItemSKU); ok {
		line.SKU = f.Value()
		line.Fields[constants.ColItemSKU] = f
	}
	if f, ok := item.Get(constants.ItemDescription); ok {
		line.Description = f.Value()
		line.Fields[constants.ColDescription] = f
	}

	uom, known := constants.CanonicalizeUOM("")
	if f, ok := item.Get(constants.ItemUOM); ok {
		uom, known = constants.CanonicalizeUOM(f.Value())
		if !known {
			f.NeedsReview = true
			warnings = append(warnings, common.Warning{
				Code:    common.WarnUnknownUOM,
				Message: fmt.Sprintf("line %d: unknown unit %q", item.Number, f.Raw),
			})
		}
		line.Fields[constants.ColUOM] = f
	}
	line.UOM = string(uom)

	qty, hasQty := decimalField(item, constants.ItemQuantity)
	price, hasPrice := decimalField(item, constants.ItemUnitPrice)
	amount, hasAmount := decimalField(item, constants.ItemAmount)
	if f, ok := item.Get(constants.ItemQuantity); ok {
		line.Fields[constants.ColQuantity] = f
	}
	if f, ok := item.Get(constants.ItemUnitPrice); ok {
		line.Fields[constants.ColUnitPrice] = f
	}

	switch {
	case !hasQty:
		return line, warnings, fmt.Sprintf("line %d: missing or invalid quantity", item.Number)
	case qty.Sign() <= 0:
		return line, warnings, fmt.Sprintf("line %d: quantity must be positive", item.Number)
	}
	if !hasPrice && hasAmount && amount.Sign() >= 0 {
		derived, err := m.money.quo(amount, qty)
		if err == nil {
			derived, err = m.money.roundTo(derived, m.money.scale+unitPriceExtraScale)
		}
		if err != nil {
			return line, warnings, fmt.Sprintf("line %d: %v", item.Number, err)
		}
		price, hasPrice = derived, true
		src, _ := item.Get(constants.ItemAmount)
		line.Fields[constants.ColUnitPrice] = entity.ExtractedField{
			Name:        constants.ItemUnitPrice,
			Type:        entity.TypeDecimal,
			Raw:         derived.Text('f'),
			Decimal:     derived,
			Confidence:  src.Confidence,
			Region:      src.Region,
			Rule:        "derived",
			Tokens:      src.Tokens,
			NeedsReview: true,
		}
		warnings = append(warnings, common.Warning{
			Code:    common.WarnDerivedPrice,
			Message: fmt.Sprintf("line %d: unit price derived from amount %s / quantity %s", item.Number, amount.Text('f'), qty.Text('f')),
		})
	}
	switch {
	case !hasPrice:
		return line, warnings, fmt.Sprintf("line %d: missing or invalid unit price", item.Number)
	case price.Sign() < 0:
		return line, warnings, fmt.Sprintf("line %d: unit price must not be negative", item.Number)
	}

	product, err := m.money.mul(qty, price)
	var ext *apd.Decimal
	if err == nil {
		ext, err = m.money.round(product)
	}
	if err != nil {
		return line, warnings, fmt.Sprintf("line %d: %v", item.Number, err)
	}
	line.Quantity, line.UnitPrice, line.ExtendedPrice = qty, price, ext

	qtyField, priceField := line.Fields[constants.ColQuantity], line.Fields[constants.ColUnitPrice]
	extField := entity.ExtractedField{
		Name:        constants.ColExtendedPrice,
		Type:        entity.TypeDecimal,
		Raw:         ext.Text('f'),
		Decimal:     ext,
		Confidence:  math.Min(qtyField.Confidence, priceField.Confidence),
		NeedsReview: qtyField.NeedsReview || priceField.NeedsReview,
	}
	if hasAmount {
		if rounded, err := m.money.round(amount); err == nil && m.money.differsByMoreThanMinorUnit(rounded, ext) {
			extField.NeedsReview = true
			warnings = append(warnings, common.Warning{
				Code:    common.WarnTotalMismatch,
				Message: fmt.Sprintf("line %d: amount %s differs from quantity x unit price %s", item.Number, amount.Text('f'), ext.Text('f')),
			})
		}
	}
	line.Fields[constants.ColExtendedPrice] = extField
	return line, warnings, ""
}

// mapHeader copies header fields onto the order, assigning party roles.
func (m *Mapper) mapHeader(po *entity.PurchaseOrderRecord, so *entity.SalesOrderRecord) {
	set := func(col, field string) string {
		f, ok := po.Get(field)
		if !ok {
			return ""
		}
		so.Fields[col] = f
		return f.Value()
	}
	so.PONumber = set(constants.ColPONumber, constants.FieldPONumber)
	so.PODate = set(constants.ColPODate, constants.FieldPODate)
	so.DueDate = set(constants.ColDueDate, constants.FieldDueDate)
	so.PaymentTerms = set(constants.ColPaymentTerms, constants.FieldPaymentTerms)
	so.Comments = set(constants.ColComments, constants.FieldComments)
	so.ShipTo = entity.Party{
		Name:    set(constants.ColShipToName, constants.FieldShipToName),
		Address: set(constants.ColShipToAddress, constants.FieldShipToAddress),
	}

	// The PO issuer is the buyer. The vendor it addresses sells to them.
	buyerCols := [4]string{constants.ColCustomerName, constants.ColCustomerPhone, constants.ColCustomerEmail, constants.ColCustomerAddress}
	vendorCols := [4]string{constants.ColVendorName, constants.ColVendorPhone, constants.ColVendorEmail, constants.ColVendorAddress}
	if !m.spec.SwapParties {
		buyerCols, vendorCols = vendorCols, buyerCols
	}
	buyer := entity.Party{
		Name:    set(buyerCols[0], constants.FieldBuyerName),
		Phone:   set(buyerCols[1], constants.FieldBuyerPhone),
		Email:   set(buyerCols[2], constants.FieldBuyerEmail),
		Address: set(buyerCols[3], constants.FieldBuyerAddress),
	}
	vendor := entity.Party{Name: set(vendorCols[0], constants.FieldVendorName)}
	if m.spec.SwapParties {
		so.Customer, so.Vendor = buyer, vendor
	} else {
		so.Customer, so.Vendor = vendor, buyer
	}
}

func (m *Mapper) checkCurrency(po *entity.PurchaseOrderRecord) (common.Warning, bool) {
	f, ok := po.Get(constants.FieldCurrency)
	if !ok || f.Invalid || strings.EqualFold(f.Value(), m.spec.Currency) {
		return common.Warning{}, false
	}
	return common.Warning{
		Code:    common.WarnCurrencyMismatch,
		Message: fmt.Sprintf("document currency %q differs from %s", f.Value(), m.spec.Currency),
	}, true
}

// totals computes order, tax, shipping and grand totals and cross-checks the
// total printed on the purchase order.
func (m *Mapper) totals(po *entity.PurchaseOrderRecord, so *entity.SalesOrderRecord) ([]common.Warning, error) {
	exts := make([]*apd.Decimal, 0, len(so.Lines))
	flaggedLines := false
	for _, l := range so.Lines {
		exts = append(exts, l.ExtendedPrice)
		flaggedLines = flaggedLines || l.Fields[constants.ColExtendedPrice].NeedsReview
	}
	orderTotal, err := m.money.sum(exts...)
	if err != nil {
		return nil, err
	}
	so.OrderTotal = orderTotal
	so.Fields[constants.ColOrderTotal] = computedField(constants.ColOrderTotal, orderTotal, flaggedLines)

	if tax, ok := decimalHeader(po, constants.FieldTax); ok {
		if so.Tax, err = m.money.round(tax); err != nil {
			return nil, err
		}
		so.Fields[constants.ColTax], _ = po.Get(constants.FieldTax)
	} else {
		product, err := m.money.mul(orderTotal, m.taxRate)
		if err != nil {
			return nil, err
		}
		if so.Tax, err = m.money.round(product); err != nil {
			return nil, err
		}
	}

	so.Shipping = m.money.zero()
	if shipping, ok := decimalHeader(po, constants.FieldShipping); ok {
		if so.Shipping, err = m.money.round(shipping); err != nil {
			return nil, err
		}
		so.Fields[constants.ColShipping], _ = po.Get(constants.FieldShipping)
	}

	if so.GrandTotal, err = m.money.sum(orderTotal, so.Tax, so.Shipping); err != nil {
		return nil, err
	}
	so.Fields[constants.ColGrandTotal] = computedField(constants.ColGrandTotal, so.GrandTotal, flaggedLines)

	var warnings []common.Warning
	if f, ok := po.Get(constants.FieldTotal); ok {
		if printed, ok := decimalHeader(po, constants.FieldTotal); ok &&
			m.money.differsByMoreThanMinorUnit(printed, so.GrandTotal) &&
			m.money.differsByMoreThanMinorUnit(printed, so.OrderTotal) {
			f.NeedsReview = true
			warnings = append(warnings, common.Warning{
				Code:    common.WarnTotalMismatch,
				Message: fmt.Sprintf("document total %s differs from computed total %s", printed.Text('f'), so.GrandTotal.Text('f')),
			})
		}
		so.Fields[constants.ColPOTotal] = f
	}
	return warnings, nil
}

func computedField(name string, d *apd.Decimal, review bool) entity.ExtractedField {
	return entity.ExtractedField{
		Name:        name,
		Type:        entity.TypeDecimal,
		Raw:         d.Text('f'),
		Decimal:     d,
		Confidence:  1,
		NeedsReview: review,
	}
}

func decimalField(item entity.LineItem, name string) (*apd.Decimal, bool) {
	f, ok := item.Get(name)
	if !ok || f.Invalid || f.Decimal == nil {
		return nil, false
	}
	return f.Decimal, true
}

func decimalHeader(po *entity.PurchaseOrderRecord, name string) (*apd.Decimal, bool) {
	f, ok := po.Get(name)
	if !ok || f.Invalid || f.Decimal == nil {
		return nil, false
	}
	return f.Decimal, true
}

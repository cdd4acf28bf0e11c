package common

import "fmt"

// Warning codes attached to a document run. None of them stop the pipeline.
const (
	WarnEmptyPage         = "EMPTY_PAGE"
	WarnLayoutAmbiguous   = "LAYOUT_AMBIGUOUS"
	WarnTextLayerFallback = "TEXT_LAYER_FALLBACK"
	WarnTotalMismatch     = "TOTAL_MISMATCH"
	WarnCurrencyMismatch  = "CURRENCY_MISMATCH"
	WarnUnknownUOM        = "UNKNOWN_UOM"
	WarnDerivedPrice      = "DERIVED_PRICE"
	WarnFieldUnclaimed    = "FIELD_UNCLAIMED"
)

// Warning is a non-fatal diagnostic that travels with the document to the report.
type Warning struct {
	Code    string `json:"code"`
	Page    int    `json:"page,omitempty"` // 1-based, 0 when not page specific
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Page > 0 {
		return fmt.Sprintf("%s (page %d): %s", w.Code, w.Page, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// EmptyPageWarning reports a page that produced no tokens.
func EmptyPageWarning(page int) Warning {
	return Warning{Code: WarnEmptyPage, Page: page, Message: "page produced no text tokens"}
}

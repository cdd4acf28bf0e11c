package mapping

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/currency"
)

// precision is wide enough that no order arithmetic rounds before quantize.
const precision = 34

// money does currency arithmetic with one rounding mode and minor unit.
type money struct {
	ctx   *apd.Context
	scale int32
}

func newMoney(roundingMode, code string) (*money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)

	ctx := apd.BaseContext.WithPrecision(precision)
	switch roundingMode {
	case RoundHalfEven:
		ctx.Rounding = apd.RoundHalfEven
	default:
		ctx.Rounding = apd.RoundHalfUp
	}
	return &money{ctx: ctx, scale: int32(scale)}, nil
}

// round quantizes x to the currency's minor unit.
func (m *money) round(x *apd.Decimal) (*apd.Decimal, error) {
	return m.roundTo(x, m.scale)
}

func (m *money) roundTo(x *apd.Decimal, scale int32) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := m.ctx.Quantize(d, x, -scale); err != nil {
		return nil, fmt.Errorf("round %s: %w", x, err)
	}
	return d, nil
}

func (m *money) mul(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := m.ctx.Mul(d, x, y); err != nil {
		return nil, fmt.Errorf("multiply %s by %s: %w", x, y, err)
	}
	return d, nil
}

func (m *money) quo(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := m.ctx.Quo(d, x, y); err != nil {
		return nil, fmt.Errorf("divide %s by %s: %w", x, y, err)
	}
	return d, nil
}

func (m *money) sum(xs ...*apd.Decimal) (*apd.Decimal, error) {
	total := m.zero()
	for _, x := range xs {
		if _, err := m.ctx.Add(total, total, x); err != nil {
			return nil, fmt.Errorf("add %s: %w", x, err)
		}
	}
	return total, nil
}

// differsByMoreThanMinorUnit compares two amounts with a tolerance of one minor unit.
func (m *money) differsByMoreThanMinorUnit(x, y *apd.Decimal) bool {
	diff := new(apd.Decimal)
	if _, err := m.ctx.Sub(diff, x, y); err != nil {
		return true
	}
	diff.Abs(diff)
	return diff.Cmp(apd.New(1, -m.scale)) > 0
}

func (m *money) zero() *apd.Decimal {
	return apd.New(0, -m.scale)
}

// decimal parses a decimal literal; the empty string is zero.
func decimal(s string) (*apd.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return apd.New(0, 0), nil
	}
	d, _, err := apd.NewFromString(s)
	return d, err
}

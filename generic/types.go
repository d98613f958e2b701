/*
Package generic provides the domain-agnostic building blocks of the overtime engine.

PURPOSE:
  This package contains the quantities, calendar primitives, error taxonomy and
  persistence contracts the calculation packages are built on. Nothing here knows
  about pay rates, leave categories or the HR system; those live in overtime/ and hr/.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 2.5 hours, 45 minutes, 120 yuan)
  - EntityID: The employee a computation belongs to

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.1h + 0.2h is exactly 0.3h
  2. Units travel with values: an hour amount is never added to a yuan amount
  3. Amounts are values: every operation returns a new Amount

USAGE:
  worked := generic.NewAmount(2.5, generic.UnitHours)
  pay := generic.Money(worked.Value.Mul(decimal.NewFromInt(20)))

SEE ALSO:
  - time.go: TimePoint and ClockTime
  - errors.go: FormatError, ParseError, EmptyDataError
  - cascade.go: Priority-ordered offsetting of amounts
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal `json:"value"`
	Unit  Unit            `json:"unit"`
}

type Unit string

const (
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
	UnitYuan    Unit = "yuan"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func ZeroAmount(unit Unit) Amount { return Amount{Value: decimal.Zero, Unit: unit} }

func Hours(v decimal.Decimal) Amount   { return Amount{Value: v, Unit: UnitHours} }
func Minutes(v decimal.Decimal) Amount { return Amount{Value: v, Unit: UnitMinutes} }
func Money(v decimal.Decimal) Amount   { return Amount{Value: v, Unit: UnitYuan} }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                  { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount           { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount           { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount  { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                   { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool              { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                  { return a.Value.IsZero() }
func (a Amount) IsPositive() bool              { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool     { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool        { return a.Value.LessThan(b.Value) }
func (a Amount) GreaterOrEqual(b Amount) bool  { return a.Value.GreaterThanOrEqual(b.Value) }
func (a Amount) Equal(b Amount) bool           { return a.Unit == b.Unit && a.Value.Equal(b.Value) }
func (a Amount) Min(b Amount) Amount           { if a.LessThan(b) { return a }; return b }
func (a Amount) Max(b Amount) Amount           { if a.GreaterThan(b) { return a }; return b }

// Floor0 clamps negative amounts to zero.
func (a Amount) Floor0() Amount {
	if a.IsNegative() {
		return a.Zero()
	}
	return a
}

// Fixed renders the value with n decimal places, e.g. "12.50".
func (a Amount) Fixed(n int32) string { return a.Value.StringFixed(n) }

// Float returns the value as float64 for display or JSON consumers.
func (a Amount) Float() float64 {
	f, _ := a.Value.Float64()
	return f
}

// Sum adds amounts of the given unit.
func Sum(unit Unit, amounts ...Amount) Amount {
	total := ZeroAmount(unit)
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntityID identifies the employee whose month is being processed.
type EntityID string

type ReportID string

package core

// convert.go provides the strict field conversions used by the parser.
//
// Unlike a spreadsheet upload, the ticket feed has a fixed format:
//   - dates are always yyyy-MM-dd
//   - amounts are plain decimals with '.' as separator, no currency symbols
//
// Anything else is rejected so that a malformed line never turns into a
// silently-wrong stored value.

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Amounts are stored as NUMERIC(14,2).
const (
	decimalScale     = 2
	decimalIntDigits = 12
)

// decimalRegex validates a plain decimal: optional sign, digits, optional fraction.
var decimalRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseDate parses a yyyy-MM-dd date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %w", err)
	}
	return t, nil
}

// ParseDecimal parses a plain decimal into pgtype.Numeric. Values that do
// not fit NUMERIC(14,2) are rejected rather than rounded: at most 12 integer
// digits and 2 significant fractional digits ("1.500" is accepted).
func ParseDecimal(s string) (pgtype.Numeric, error) {
	s = strings.TrimSpace(s)
	if !decimalRegex.MatchString(s) {
		return pgtype.Numeric{}, fmt.Errorf("invalid decimal %q", s)
	}

	intPart, frac, _ := strings.Cut(strings.TrimLeft(s, "+-"), ".")
	if len(strings.TrimRight(frac, "0")) > decimalScale {
		return pgtype.Numeric{}, fmt.Errorf("decimal %q has more than %d fractional digits", s, decimalScale)
	}
	if len(strings.TrimLeft(intPart, "0")) > decimalIntDigits {
		return pgtype.Numeric{}, fmt.Errorf("decimal %q has more than %d integer digits", s, decimalIntDigits)
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return n, nil
}

// IsNegative reports whether n holds a value below zero.
func IsNegative(n pgtype.Numeric) bool {
	return n.Valid && n.Int != nil && n.Int.Sign() < 0
}

// FormatDecimal renders n in plain positional notation ("12.50").
// Returns "" for an invalid value.
func FormatDecimal(n pgtype.Numeric) string {
	if !n.Valid || n.Int == nil {
		return ""
	}
	if n.NaN {
		return "NaN"
	}

	digits := new(big.Int).Abs(n.Int).String()
	exp := int(n.Exp)
	if exp >= 0 {
		digits += strings.Repeat("0", exp)
	} else {
		scale := -exp
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}

	if n.Int.Sign() < 0 {
		return "-" + digits
	}
	return digits
}

// ToPgDate converts a parsed date to pgtype.Date.
// Returns invalid for the zero time.
func ToPgDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// ToPgTimestamptz converts a timestamp to pgtype.Timestamptz.
// Returns invalid for the zero time.
func ToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CanonicalNumber returns the one spelling shared by every literal with the
// same numeric value: 1, 1.0, 10e-1 and 1e0 all become "1". The digits are
// taken from the literal exactly, so integers beyond float64 precision keep
// every digit. The layout follows the ECMAScript number-to-string rules used
// by RFC 8785: plain notation while the decimal point falls within 21 digits,
// exponent notation ("1e+21", "1.5e-7") outside that. Literals whose
// magnitude overflows float64 are rejected.
func CanonicalNumber(n json.Number) (string, error) {
	if err := checkNumber(n); err != nil {
		return "", err
	}
	if f, _ := strconv.ParseFloat(string(n), 64); math.IsInf(f, 0) {
		return "", fmt.Errorf("value: %s is out of range", n)
	}

	neg, digits, exp, err := decompose(string(n))
	if err != nil {
		return "", fmt.Errorf("value: %s is out of range: %w", n, err)
	}
	if digits == "" {
		return "0", nil
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	point := len(digits) + exp // digits[:point] is the integer part
	switch {
	case exp >= 0 && point <= 21:
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", exp))
	case point > 0 && point <= 21:
		b.WriteString(digits[:point])
		b.WriteByte('.')
		b.WriteString(digits[point:])
	case point <= 0 && point > -6:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -point))
		b.WriteString(digits)
	default:
		b.WriteByte(digits[0])
		if len(digits) > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if point-1 >= 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(point - 1))
	}
	return b.String(), nil
}

// decompose splits a valid JSON number literal into its sign, its
// significant digits without leading or trailing zeros, and the power of ten
// they are scaled by. Zero yields empty digits.
func decompose(s string) (neg bool, digits string, exp int, err error) {
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	mantissa := s
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
		if exp, err = strconv.Atoi(strings.TrimPrefix(s[i+1:], "+")); err != nil {
			return false, "", 0, err
		}
	}
	intPart, frac, _ := strings.Cut(mantissa, ".")
	exp -= len(frac)

	digits = strings.TrimLeft(intPart+frac, "0")
	trimmed := strings.TrimRight(digits, "0")
	exp += len(digits) - len(trimmed)
	if trimmed == "" {
		neg = false
	}
	return neg, trimmed, exp, nil
}

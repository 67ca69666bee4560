// Package numfmt parses and renders numbers in the Italian format shown in the
// corrispettivi tables: "." groups thousands, "," separates decimals and
// currency amounts carry a trailing " €".
package numfmt

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// Sentinel is written into a cell whose upstream value is missing.
	Sentinel = "NuN"
	// Euro is the currency suffix appended to amounts.
	Euro = " €"
)

var printer = message.NewPrinter(language.Italian)

// IsSentinel reports whether text is one of the missing-value markers.
func IsSentinel(text string) bool {
	return text == "NuN" || text == "Nun"
}

// Options controls Format.
type Options struct {
	Decimals int
	Currency bool
	// Grouping selects the locale rendering with thousands separators.
	// Without it the value is rendered as a fixed-point number with a
	// decimal comma only.
	Grouping bool
}

// ParseLocaleNumber converts an Italian formatted string into a number.
// Empty input, sentinels and unparsable text yield 0.
func ParseLocaleNumber(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" || IsSentinel(t) {
		return 0
	}
	t = strings.Replace(t, Euro, "", 1)
	t = strings.ReplaceAll(t, ".", "")
	t = strings.Replace(t, ",", ".", 1)

	v, ok := ParsePrefix(t)
	if !ok || math.IsNaN(v) {
		return 0
	}
	return v
}

// ParsePrefix reads the longest leading decimal literal of s, the way a
// browser's parseFloat does. The boolean is false when no digits are found.
func ParsePrefix(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}

	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil && !math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Format renders value according to opts.
func Format(value float64, opts Options) string {
	var out string
	if opts.Grouping {
		out = grouped(value, opts.Decimals)
	} else {
		out = strings.Replace(strconv.FormatFloat(value, 'f', opts.Decimals, 64), ".", ",", 1)
	}
	if opts.Currency {
		out += Euro
	}
	return out
}

// Amount renders a grouped currency amount with two decimals.
func Amount(value float64) string {
	return Format(value, Options{Decimals: 2, Currency: true, Grouping: true})
}

// Integer renders Round(value) with thousands grouping.
func Integer(value float64) string {
	return Format(Round(value), Options{Grouping: true})
}

// FormatPlain renders value with the shortest exact representation, swapping
// the decimal point for a comma. No grouping is applied.
func FormatPlain(value float64) string {
	return strings.Replace(strconv.FormatFloat(value, 'f', -1, 64), ".", ",", 1)
}

// Round rounds half toward positive infinity.
func Round(value float64) float64 {
	return math.Floor(value + 0.5)
}

// grouped rounds half away from zero on the decimal representation of value
// and groups the integer part with the Italian separator.
func grouped(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	d := decimal.NewFromFloat(value).Round(int32(decimals))
	neg := d.Sign() < 0
	fixed := d.Abs().StringFixed(int32(decimals))

	intPart, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return strings.Replace(fixed, ".", ",", 1)
	}

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString(printer.Sprintf("%d", n))
	if frac != "" {
		sb.WriteByte(',')
		sb.WriteString(frac)
	}
	return sb.String()
}

package numfmt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel("NuN"))
	assert.True(t, IsSentinel("Nun"))
	assert.False(t, IsSentinel("nun"))
	assert.False(t, IsSentinel("NuN €"))
	assert.False(t, IsSentinel(""))
}

func TestParseLocaleNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12.345,50 €", 12345.5},
		{"1.234", 1234},
		{"-7,25 €", -7.25},
		{" 42 ", 42},
		{"12 €", 12},
		{"0 €", 0},
		{"NuN", 0},
		{"Nun", 0},
		{"", 0},
		{"abc", 0},
		{"NuN €", 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, ParseLocaleNumber(tc.in), 1e-9, "input %q", tc.in)
	}
}

func TestParsePrefix(t *testing.T) {
	v, ok := ParsePrefix("12abc")
	require.True(t, ok)
	assert.Equal(t, 12.0, v)

	v, ok = ParsePrefix("1e3x")
	require.True(t, ok)
	assert.Equal(t, 1000.0, v)

	v, ok = ParsePrefix("1e")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = ParsePrefix("  -.5")
	require.True(t, ok)
	assert.Equal(t, -0.5, v)

	v, ok = ParsePrefix("-Infinity")
	require.True(t, ok)
	assert.True(t, math.IsInf(v, -1))

	_, ok = ParsePrefix("abc")
	assert.False(t, ok)
	_, ok = ParsePrefix("-")
	assert.False(t, ok)
	_, ok = ParsePrefix(".")
	assert.False(t, ok)
}

func TestFormatGrouped(t *testing.T) {
	assert.Equal(t, "12.345,68", Format(12345.678, Options{Decimals: 2, Grouping: true}))
	assert.Equal(t, "1.234.567,89 €", Amount(1234567.891))
	assert.Equal(t, "0,00 €", Amount(0))
	assert.Equal(t, "-98.765,40 €", Amount(-98765.4))
	assert.Equal(t, "2,68 €", Amount(2.675))
	assert.Equal(t, "0,00 €", Amount(-0.001))
	assert.Equal(t, "12.346", Integer(12345.5))
	assert.Equal(t, "250", Integer(249.6))
}

func TestFormatFixed(t *testing.T) {
	assert.Equal(t, "1234,50 €", Format(1234.5, Options{Decimals: 2, Currency: true}))
	assert.Equal(t, "10,00", Format(10, Options{Decimals: 2}))
	assert.Equal(t, "-3,10 €", Format(-3.1, Options{Decimals: 2, Currency: true}))
}

func TestFormatPlain(t *testing.T) {
	assert.Equal(t, "1800", FormatPlain(1800))
	assert.Equal(t, "12,25", FormatPlain(12.25))
	a, b := 0.1, 0.2
	assert.Equal(t, "0,30000000000000004", FormatPlain(a+b))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3.0, Round(2.5))
	assert.Equal(t, -2.0, Round(-2.5))
	assert.Equal(t, -3.0, Round(-2.6))
	assert.Equal(t, 0.0, Round(0.49))
}

func TestAmountRoundTrip(t *testing.T) {
	for _, s := range []string{"12.345,50 €", "98.765,43 €", "-10.000,01 €", "0,99 €", "250,00 €"} {
		assert.Equal(t, s, Amount(ParseLocaleNumber(s)), "round trip of %q", s)
	}
}

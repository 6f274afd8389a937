package money

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale is the display locale for every amount and date.
var Locale = language.MustParse("es-AR")

var printer = message.NewPrinter(Locale)

const DateLayout = "02/01/2006"

// Format renders amount with the currency symbol and two decimals, e.g.
// "$ 1.234.567,89" or "-US$ 12,50". Rounding happens only here.
func Format(amount decimal.Decimal, cur Currency) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return sign + cur.Symbol() + " " + FormatNumber(amount, 2)
}

// FormatARS is Format with the primary currency.
func FormatARS(amount decimal.Decimal) string {
	return Format(amount, ARS)
}

var groupSep, decimalSep = localeSeparators()

// localeSeparators asks the locale printer how it writes 1234,5.
func localeSeparators() (group, dec string) {
	r := []rune(printer.Sprint(number.Decimal(1234.5, number.Scale(1))))
	if len(r) != 7 {
		return ".", ","
	}
	return string(r[1]), string(r[5])
}

// FormatNumber renders a plain locale-aware number with a fixed scale. The
// digits come from the decimal itself, so large amounts print exactly.
func FormatNumber(amount decimal.Decimal, scale int) string {
	s := amount.StringFixed(int32(scale))
	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(groupSep)
		}
		b.WriteRune(d)
	}
	if frac != "" {
		b.WriteString(decimalSep)
		b.WriteString(frac)
	}
	return b.String()
}

// FormatPercent renders a margin or progress value, e.g. "15%".
func FormatPercent(p decimal.Decimal) string {
	return p.String() + "%"
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

var ErrInvalidAmount = errors.New("invalid amount")

var thousandsOnly = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// ParseAmount reads user-typed amounts. Both "1.234,56" (es-AR) and
// "1234.56" are accepted; a lone dot followed by exactly three digit groups
// ("1.234") is read as a thousands separator. Currency symbols and spaces are
// ignored.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, USD.Symbol())
	s = strings.TrimPrefix(s, ARS.Symbol())
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")

	switch {
	case strings.Contains(digits, ","):
		digits = strings.ReplaceAll(digits, ".", "")
		digits = strings.ReplaceAll(digits, ",", ".")
	case thousandsOnly.MatchString(digits):
		digits = strings.ReplaceAll(digits, ".", "")
	}

	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// ParseDate accepts dd/mm/yyyy and yyyy-mm-dd.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

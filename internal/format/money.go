package format

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var symbols = map[string]string{
	"NGN": "₦",
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
	"JPY": "¥",
	"KES": "KSh",
	"GHS": "GH₵",
	"ZAR": "R",
}

// Scale is the number of minor-unit digits for an ISO 4217 code. Unknown codes use 2.
func Scale(code string) int {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// FormatMoney renders an amount held in minor units, e.g. 123450 NGN -> "₦1,234.50".
func FormatMoney(minor int64, code, lang string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	scale := Scale(code)
	amount := float64(minor) / math.Pow10(scale)

	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	neg := ""
	if amount < 0 {
		neg = "-"
		amount = -amount
	}
	digits := p.Sprint(number.Decimal(amount, number.Scale(scale)))

	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Sprintf("%s%s %s", neg, code, digits)
	}
	if sym, ok := symbols[code]; ok {
		return neg + sym + digits
	}
	return fmt.Sprintf("%s%s %s", neg, code, digits)
}

// Package statement renders printable account statements and consolidated
// reports, formatted for the es-AR locale.
package statement

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"reservas/internal/core"
)

var esAR = message.NewPrinter(language.MustParse("es-AR"))

// FormatMoney renders an amount with the es-AR conventions: grouping dots,
// decimal comma, two fraction digits, symbol keyed by currency ("$ 1.234,56",
// "US$ 1.234,56").
func FormatMoney(m core.Money, c core.Currency) string {
	symbol := "$"
	if c == core.USD {
		symbol = "US$"
	}

	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units := cents / 100
	frac := cents % 100

	// Grouping applies to the integer part only; the fraction is appended
	// by hand to keep cents exact.
	grouped := esAR.Sprintf("%v", number.Decimal(units))
	return fmt.Sprintf("%s%s %s,%02d", sign, symbol, grouped, frac)
}

// FormatDate renders dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

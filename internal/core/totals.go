package core

// Totals is the derived, never-persisted balance summary of one booking.
type Totals struct {
	TotalARS     Money `json:"totalARS"`
	TotalUSD     Money `json:"totalUSD"`
	TotalPaidARS Money `json:"totalPaidARS"`
	TotalPaidUSD Money `json:"totalPaidUSD"`
	BalanceARS   Money `json:"balanceARS"`
	BalanceUSD   Money `json:"balanceUSD"`
}

// CalculateTotals partitions the booking's items and payments by currency
// and sums each side. An ARS amount never contributes to a USD figure and
// vice versa; no conversion is ever applied. Inputs are not validated here.
func CalculateTotals(b Booking) Totals {
	var t Totals
	for _, it := range b.Items {
		switch it.Currency {
		case ARS:
			t.TotalARS.Cents += it.Value.Cents
		case USD:
			t.TotalUSD.Cents += it.Value.Cents
		}
	}
	for _, p := range b.Payments {
		switch p.Currency {
		case ARS:
			t.TotalPaidARS.Cents += p.Amount.Cents
		case USD:
			t.TotalPaidUSD.Cents += p.Amount.Cents
		}
	}
	t.BalanceARS.Cents = t.TotalARS.Cents - t.TotalPaidARS.Cents
	t.BalanceUSD.Cents = t.TotalUSD.Cents - t.TotalPaidUSD.Cents
	return t
}

// ReportRow is one line of a consolidated report.
type ReportRow struct {
	BookingID         string `json:"bookingId"`
	ReservationNumber string `json:"reservationNumber"`
	BalanceARS        Money  `json:"balanceARS"`
	BalanceUSD        Money  `json:"balanceUSD"`
}

// Report is the consolidated view over a selected subset of bookings.
type Report struct {
	Rows            []ReportRow `json:"rows"`
	GrandBalanceARS Money       `json:"grandBalanceARS"`
	GrandBalanceUSD Money       `json:"grandBalanceUSD"`
	Count           int         `json:"count"`
}

// Consolidate computes per-booking balances and grand totals over the given
// subset. Row order follows the caller's order; inputs are not mutated.
func Consolidate(bookings []Booking) Report {
	r := Report{Count: len(bookings)}
	for _, b := range bookings {
		t := CalculateTotals(b)
		r.Rows = append(r.Rows, ReportRow{
			BookingID:         b.ID,
			ReservationNumber: b.ReservationNumber,
			BalanceARS:        t.BalanceARS,
			BalanceUSD:        t.BalanceUSD,
		})
		r.GrandBalanceARS.Cents += t.BalanceARS.Cents
		r.GrandBalanceUSD.Cents += t.BalanceUSD.Cents
	}
	return r
}

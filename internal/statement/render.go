package statement

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"reservas/internal/core"
	"reservas/web"
)

// StatementView is the fully formatted model behind the per-booking
// "Estado de Cuenta".
type StatementView struct {
	Profile           string
	ReservationNumber string
	CreatedAt         string
	GeneratedAt       string
	Items             []ItemLine
	Payments          []PaymentLine
	Totals            TotalsView
}

type ItemLine struct {
	Name     string
	Currency string
	Value    string
}

type PaymentLine struct {
	Date     string
	Currency string
	Amount   string
}

type TotalsView struct {
	TotalARS   string
	TotalUSD   string
	PaidARS    string
	PaidUSD    string
	BalanceARS string
	BalanceUSD string
}

// ReportView is the formatted model behind the "Reporte Consolidado".
type ReportView struct {
	Profile     string
	GeneratedAt string
	Rows        []ReportRowLine
	GrandARS    string
	GrandUSD    string
	Count       int
}

type ReportRowLine struct {
	ReservationNumber string
	BalanceARS        string
	BalanceUSD        string
}

// Renderer turns bookings into printable statements. Templates are parsed
// once at construction from the embedded FS.
type Renderer struct {
	tmpl *template.Template
	now  func() time.Time
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse statement templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, now: time.Now}, nil
}

// StatementViewOf formats one booking for rendering.
func (r *Renderer) StatementViewOf(profile string, b core.Booking) StatementView {
	v := StatementView{
		Profile:           profile,
		ReservationNumber: b.ReservationNumber,
		CreatedAt:         FormatDate(b.CreatedAt),
		GeneratedAt:       FormatDate(r.now()),
		Totals:            totalsView(core.CalculateTotals(b)),
	}
	for _, it := range b.Items {
		v.Items = append(v.Items, ItemLine{
			Name:     it.Name,
			Currency: string(it.Currency),
			Value:    FormatMoney(it.Value, it.Currency),
		})
	}
	for _, p := range b.Payments {
		v.Payments = append(v.Payments, PaymentLine{
			Date:     FormatDate(p.Date),
			Currency: string(p.Currency),
			Amount:   FormatMoney(p.Amount, p.Currency),
		})
	}
	return v
}

// ReportViewOf formats a consolidated report over the selected bookings.
func (r *Renderer) ReportViewOf(profile string, bookings []core.Booking) ReportView {
	report := core.Consolidate(bookings)
	v := ReportView{
		Profile:     profile,
		GeneratedAt: FormatDate(r.now()),
		GrandARS:    FormatMoney(report.GrandBalanceARS, core.ARS),
		GrandUSD:    FormatMoney(report.GrandBalanceUSD, core.USD),
		Count:       report.Count,
	}
	for _, row := range report.Rows {
		v.Rows = append(v.Rows, ReportRowLine{
			ReservationNumber: row.ReservationNumber,
			BalanceARS:        FormatMoney(row.BalanceARS, core.ARS),
			BalanceUSD:        FormatMoney(row.BalanceUSD, core.USD),
		})
	}
	return v
}

// StatementHTML writes the printable HTML statement.
func (r *Renderer) StatementHTML(w io.Writer, profile string, b core.Booking) error {
	if err := r.tmpl.ExecuteTemplate(w, "statement.html", r.StatementViewOf(profile, b)); err != nil {
		return fmt.Errorf("render statement: %w", err)
	}
	return nil
}

// ReportHTML writes the printable HTML consolidated report.
func (r *Renderer) ReportHTML(w io.Writer, profile string, bookings []core.Booking) error {
	if err := r.tmpl.ExecuteTemplate(w, "consolidated.html", r.ReportViewOf(profile, bookings)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// StatementText renders the plain text statement.
func (r *Renderer) StatementText(profile string, b core.Booking) string {
	v := r.StatementViewOf(profile, b)
	var sb strings.Builder

	fmt.Fprintf(&sb, "ESTADO DE CUENTA\n")
	fmt.Fprintf(&sb, "Reserva: %s\n", v.ReservationNumber)
	fmt.Fprintf(&sb, "Perfil: %s\n", v.Profile)
	fmt.Fprintf(&sb, "Fecha de creacion: %s\n", v.CreatedAt)
	fmt.Fprintf(&sb, "Generado: %s\n", v.GeneratedAt)

	if len(v.Items) > 0 {
		fmt.Fprintf(&sb, "\nServicios\n")
		for _, it := range v.Items {
			fmt.Fprintf(&sb, "  %-30s %-4s %15s\n", it.Name, it.Currency, it.Value)
		}
	}
	if len(v.Payments) > 0 {
		fmt.Fprintf(&sb, "\nPagos\n")
		for _, p := range v.Payments {
			fmt.Fprintf(&sb, "  %-30s %-4s %15s\n", p.Date, p.Currency, p.Amount)
		}
	}

	fmt.Fprintf(&sb, "\nResumen\n")
	fmt.Fprintf(&sb, "  Total ARS:   %15s\n", v.Totals.TotalARS)
	fmt.Fprintf(&sb, "  Pagado ARS:  %15s\n", v.Totals.PaidARS)
	fmt.Fprintf(&sb, "  Saldo ARS:   %15s\n", v.Totals.BalanceARS)
	fmt.Fprintf(&sb, "  Total USD:   %15s\n", v.Totals.TotalUSD)
	fmt.Fprintf(&sb, "  Pagado USD:  %15s\n", v.Totals.PaidUSD)
	fmt.Fprintf(&sb, "  Saldo USD:   %15s\n", v.Totals.BalanceUSD)

	return sb.String()
}

// ReportText renders the plain text consolidated report.
func (r *Renderer) ReportText(profile string, bookings []core.Booking) string {
	v := r.ReportViewOf(profile, bookings)
	var sb strings.Builder

	fmt.Fprintf(&sb, "REPORTE CONSOLIDADO\n")
	fmt.Fprintf(&sb, "Perfil: %s\n", v.Profile)
	fmt.Fprintf(&sb, "Generado: %s\n", v.GeneratedAt)
	fmt.Fprintf(&sb, "Reservas: %d\n\n", v.Count)

	for _, row := range v.Rows {
		fmt.Fprintf(&sb, "  %-20s %18s %18s\n", row.ReservationNumber, row.BalanceARS, row.BalanceUSD)
	}

	fmt.Fprintf(&sb, "\n  %-20s %18s %18s\n", "TOTAL", v.GrandARS, v.GrandUSD)
	return sb.String()
}

func totalsView(t core.Totals) TotalsView {
	return TotalsView{
		TotalARS:   FormatMoney(t.TotalARS, core.ARS),
		TotalUSD:   FormatMoney(t.TotalUSD, core.USD),
		PaidARS:    FormatMoney(t.TotalPaidARS, core.ARS),
		PaidUSD:    FormatMoney(t.TotalPaidUSD, core.USD),
		BalanceARS: FormatMoney(t.BalanceARS, core.ARS),
		BalanceUSD: FormatMoney(t.BalanceUSD, core.USD),
	}
}

// Package output provides utilities for formatting and displaying simulation results.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/financing-simulator/internal/simulation"
	"github.com/iwvelando/financing-simulator/pkg/format"
	"github.com/iwvelando/financing-simulator/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// csvHeader lists the columns of CSV output; one row per schedule row.
var csvHeader = []string{"simulation", "period", "due", "payment", "principal", "interest", "balance", "notes"}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(results []simulation.Outcome) {
	_ = WritePretty(os.Stdout, results, "")
}

// WritePretty writes the human-readable table to w, printing numbers for the
// given BCP 47 locale (English when empty or unrecognized).
func WritePretty(w io.Writer, results []simulation.Outcome, locale string) error {
	p := message.NewPrinter(parseLocale(locale))
	for i, result := range results {
		if i > 0 {
			if _, err := fmt.Fprintf(w, "\n"); err != nil {
				return err
			}
		}
		if err := writeSummary(w, p, result); err != nil {
			return err
		}
		if err := writeSchedule(w, p, result); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(w io.Writer, p *message.Printer, result simulation.Outcome) error {
	r := result.Result
	lines := []string{
		fmt.Sprintf("--- Results for simulation %s ---", result.Name),
		p.Sprintf("Method: %s over %d periods at %.4f%% per period", result.Params.Method, result.Params.TermPeriods, result.Params.PeriodicRate),
		p.Sprintf("Installment: %s", money(p, r.InstallmentValue)),
		p.Sprintf("Financed: %s", money(p, r.FinancedAmount)),
	}
	if r.TaxAmount != nil {
		lines = append(lines, p.Sprintf("Tax: %s", money(p, *r.TaxAmount)))
	}
	if r.BalloonPayment > 0 {
		lines = append(lines, p.Sprintf("Balloon: %s", money(p, r.BalloonPayment)))
	}
	lines = append(lines,
		p.Sprintf("Total paid: %s", money(p, r.TotalPaid)),
		p.Sprintf("Total interest: %s (%s of principal)", money(p, r.TotalInterest),
			format.Percent(mathutil.CalculatePercentage(r.TotalInterest, result.Params.Principal), 2)),
	)
	if r.EffectiveRate != nil {
		rate := p.Sprintf("Effective rate: %s per period", format.Percent(r.EffectiveRate.RatePercent, 4))
		if r.EffectiveAnnualRate != nil {
			rate += p.Sprintf(", %s per year", format.Percent(*r.EffectiveAnnualRate, 2))
		}
		if !r.EffectiveRate.Converged {
			rate += " (estimate)"
		}
		lines = append(lines, rate)
	} else {
		lines = append(lines, "Effective rate: unavailable")
	}
	for _, note := range result.Notes {
		lines = append(lines, "Note: "+note)
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func writeSchedule(w io.Writer, p *message.Printer, result simulation.Outcome) error {
	if _, err := fmt.Fprintf(w, "Period | Due     | Payment | Principal | Interest | Balance\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "______ | _______ | _______ | _________ | ________ | _______\n"); err != nil {
		return err
	}
	for i, row := range result.Result.Schedule {
		_, err := fmt.Fprintf(w, "%6d | %-7s | %s | %s | %s | %s\n",
			row.PeriodIndex, dueDate(result, i),
			money(p, row.Payment), money(p, row.Principal), money(p, row.Interest), money(p, row.RemainingBalance))
		if err != nil {
			return err
		}
	}
	return nil
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(results []simulation.Outcome) {
	_ = WriteCSV(os.Stdout, results)
}

// CsvString returns the CSV representation of results.
func CsvString(results []simulation.Outcome) string {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, results)
	return buf.String()
}

// WriteCSV writes every schedule row of every result to w. Amounts are
// rounded to cents without separators; notes go on the first row of each
// simulation.
func WriteCSV(w io.Writer, results []simulation.Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, result := range results {
		for i, row := range result.Result.Schedule {
			notes := ""
			if i == 0 {
				notes = strings.Join(result.Notes, "; ")
			}
			record := []string{
				result.Name,
				strconv.Itoa(row.PeriodIndex),
				dueDate(result, i),
				format.Amount(row.Payment),
				format.Amount(row.Principal),
				format.Amount(row.Interest),
				format.Amount(row.RemainingBalance),
				notes,
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func dueDate(result simulation.Outcome, index int) string {
	if index < len(result.DueDates) {
		return result.DueDates[index]
	}
	return ""
}

// money prints amount rounded to cents with locale-specific separators.
func money(p *message.Printer, amount float64) string {
	return p.Sprintf("%.2f", format.Money(amount).InexactFloat64())
}

func parseLocale(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}

package output

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/iwvelando/financing-simulator/internal/simulation"
	"github.com/iwvelando/financing-simulator/pkg/loans"
)

func sampleOutcomes(t *testing.T) []simulation.Outcome {
	t.Helper()

	priceParams := loans.LoanParameters{Principal: 10000, PeriodicRate: 2, TermPeriods: 12, Method: loans.FixedInstallment}
	price, err := loans.Simulate(priceParams)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	sacParams := loans.LoanParameters{Principal: 3000, PeriodicRate: 1, TermPeriods: 3, Method: loans.ConstantAmortization, IncludeTax: true}
	sac, err := loans.Simulate(sacParams)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	return []simulation.Outcome{
		{Name: "Scenario A", Params: priceParams, Result: price},
		{
			Name:      "Short SAC",
			StartDate: "2027-01",
			Params:    sacParams,
			Result:    sac,
			DueDates:  []string{"2026-12", "2027-01", "2027-02", "2027-03"},
			Notes:     []string{"first note", "second, with comma"},
		},
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestPrettyFormat(t *testing.T) {
	output := captureStdout(t, func() { PrettyFormat(sampleOutcomes(t)) })

	expected := []string{
		"--- Results for simulation Scenario A ---",
		"Method: price over 12 periods",
		"Installment: 945.60",
		"Total paid: 11,347.15",
		"Total interest: 1,347.15 (13.47% of principal)",
		"Effective rate: 2.0000% per period, 26.82% per year",
		"Period | Due     | Payment | Principal | Interest | Balance",
		"--- Results for simulation Short SAC ---",
		"Tax: ",
		"Note: first note",
		"2027-03",
	}
	for _, fragment := range expected {
		if !strings.Contains(output, fragment) {
			t.Errorf("PrettyFormat output missing %q\n%s", fragment, output)
		}
	}
	if strings.Contains(output, "Balloon:") {
		t.Errorf("PrettyFormat should not print a balloon line without a balloon")
	}
}

func TestWritePrettyLocale(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePretty(&buf, sampleOutcomes(t)[:1], "pt-BR"); err != nil {
		t.Fatalf("WritePretty() error = %v", err)
	}
	if !strings.Contains(buf.String(), "945,60") {
		t.Errorf("pt-BR output should use a decimal comma:\n%s", buf.String())
	}

	buf.Reset()
	if err := WritePretty(&buf, sampleOutcomes(t)[:1], "not a locale!"); err != nil {
		t.Fatalf("WritePretty() error = %v", err)
	}
	if !strings.Contains(buf.String(), "945.60") {
		t.Errorf("unrecognized locale should fall back to English:\n%s", buf.String())
	}
}

func TestWritePrettyUnconverged(t *testing.T) {
	result, err := loans.Simulate(loans.LoanParameters{Principal: 1200, TermPeriods: 12, Method: loans.FixedInstallment})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WritePretty(&buf, []simulation.Outcome{{Name: "free", Result: result}}, ""); err != nil {
		t.Fatalf("WritePretty() error = %v", err)
	}
	if !strings.Contains(buf.String(), "(estimate)") {
		t.Errorf("unconverged rate should be marked as an estimate:\n%s", buf.String())
	}
}

func TestCsvFormat(t *testing.T) {
	results := sampleOutcomes(t)
	output := captureStdout(t, func() { CsvFormat(results) })

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	if err != nil {
		t.Fatalf("CsvFormat produced invalid CSV: %v", err)
	}

	// header + 13 rows for Scenario A + 4 rows for Short SAC
	if len(records) != 18 {
		t.Fatalf("CsvFormat produced %d records, expected 18", len(records))
	}
	if strings.Join(records[0], ",") != "simulation,period,due,payment,principal,interest,balance,notes" {
		t.Errorf("unexpected header %v", records[0])
	}

	first := records[2]
	if first[0] != "Scenario A" || first[1] != "1" || first[2] != "" || first[3] != "945.60" || first[5] != "200.00" {
		t.Errorf("first Scenario A installment = %v", first)
	}
	if records[13][6] != "0.00" {
		t.Errorf("final Scenario A balance = %s, expected 0.00", records[13][6])
	}

	sacStart := records[14]
	if sacStart[0] != "Short SAC" || sacStart[2] != "2026-12" || sacStart[7] != "first note; second, with comma" {
		t.Errorf("Short SAC row 0 = %v", sacStart)
	}
	if records[15][2] != "2027-01" || records[15][7] != "" {
		t.Errorf("Short SAC row 1 = %v", records[15])
	}
}

func TestCsvStringMatchesCsvFormat(t *testing.T) {
	results := sampleOutcomes(t)

	expected := CsvString(results)
	output := captureStdout(t, func() { CsvFormat(results) })

	if strings.TrimSpace(expected) != strings.TrimSpace(output) {
		t.Fatalf("CsvString and CsvFormat output mismatch\nCsvString:\n%s\nCsvFormat:\n%s", expected, output)
	}
}

func TestCsvFormatEmptyResults(t *testing.T) {
	output := CsvString(nil)
	if strings.TrimSpace(output) != "simulation,period,due,payment,principal,interest,balance,notes" {
		t.Errorf("CsvString(nil) = %q, expected only the header", output)
	}
}

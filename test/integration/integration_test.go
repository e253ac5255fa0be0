package integration

import (
	"bytes"
	"encoding/csv"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/financing-simulator/internal/config"
	"github.com/iwvelando/financing-simulator/internal/server"
	"github.com/iwvelando/financing-simulator/internal/simulation"
	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/loans"
	"github.com/iwvelando/financing-simulator/pkg/output"
	"github.com/iwvelando/financing-simulator/pkg/testutil"
	"go.uber.org/zap"
)

const testConfigPath = "../test_config.yaml"

func loadAndRun(t *testing.T) (*config.Configuration, []simulation.Outcome) {
	t.Helper()

	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	results, err := simulation.Run(zap.NewNop(), *conf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return conf, results
}

// TestMainIntegrationBaseline runs the test configuration the way the CLI
// does and checks the reference values of each simulation.
func TestMainIntegrationBaseline(t *testing.T) {
	_, results := loadAndRun(t)

	expectedSimulations := []string{"scenario a", "scenario b", "scenario c", "balloon", "interest free", "house"}
	if len(results) != len(expectedSimulations) {
		t.Fatalf("Expected %d simulations, got %d", len(expectedSimulations), len(results))
	}
	for i, expected := range expectedSimulations {
		if results[i].Name != expected {
			t.Errorf("Expected simulation %s, got %s", expected, results[i].Name)
		}
	}

	baselineChecks := []struct {
		simulation    string
		installment   float64
		totalPaid     float64
		financed      float64
		effectiveRate float64
		converged     bool
	}{
		{"scenario a", 945.596, 11347.15, 10000, 2, true},
		{"scenario b", 1033.333, 11300.00, 10000, 2, true},
		{"scenario c", 977.103, 11725.24, 10333.20, 2.5378, true},
		{"balloon", 799.401, 11592.81, 10000, 2, true},
		{"interest free", 100, 1200, 1200, 0.1, false},
	}

	for _, check := range baselineChecks {
		t.Run(check.simulation, func(t *testing.T) {
			outcome := testutil.FindSimulation(results, check.simulation)
			if outcome == nil {
				t.Fatalf("Simulation %s not found", check.simulation)
			}
			r := outcome.Result

			if math.Abs(r.InstallmentValue-check.installment) > 0.001 {
				t.Errorf("installment = %.4f, expected %.4f", r.InstallmentValue, check.installment)
			}
			if math.Abs(r.TotalPaid-check.totalPaid) > 0.01 {
				t.Errorf("total paid = %.2f, expected %.2f", r.TotalPaid, check.totalPaid)
			}
			if math.Abs(r.FinancedAmount-check.financed) > 0.01 {
				t.Errorf("financed = %.2f, expected %.2f", r.FinancedAmount, check.financed)
			}
			if r.EffectiveRate == nil {
				t.Fatal("effective rate missing")
			}
			if math.Abs(r.EffectiveRate.RatePercent-check.effectiveRate) > 0.01 {
				t.Errorf("effective rate = %.4f%%, expected %.4f%%", r.EffectiveRate.RatePercent, check.effectiveRate)
			}
			if r.EffectiveRate.Converged != check.converged {
				t.Errorf("converged = %v, expected %v", r.EffectiveRate.Converged, check.converged)
			}
		})
	}
}

func TestScheduleInvariants(t *testing.T) {
	_, results := loadAndRun(t)

	for _, outcome := range results {
		t.Run(outcome.Name, func(t *testing.T) {
			if err := testutil.CheckSchedule(outcome.Result.Schedule, outcome.Result.FinancedAmount); err != nil {
				t.Error(err)
			}
		})
	}

	sac := testutil.FindSimulation(results, "scenario b")
	if sac == nil {
		t.Fatal("scenario b not found")
	}
	last := sac.Result.Schedule[len(sac.Result.Schedule)-1]
	if math.Abs(last.Payment-850) > 0.001 {
		t.Errorf("last SAC payment = %.4f, expected 850", last.Payment)
	}

	balloon := testutil.FindSimulation(results, "balloon")
	if balloon == nil {
		t.Fatal("balloon not found")
	}
	if n := len(balloon.Result.Schedule); n != 14 {
		t.Fatalf("balloon schedule has %d rows, expected 14", n)
	}
	if math.Abs(balloon.Result.BalloonPayment-2000) > 0.001 {
		t.Errorf("balloon payment = %.2f, expected 2000", balloon.Result.BalloonPayment)
	}
	if math.Abs(balloon.Result.Schedule[12].RemainingBalance-1960.78) > 0.01 {
		t.Errorf("balance before the balloon = %.2f, expected 1960.78", balloon.Result.Schedule[12].RemainingBalance)
	}
}

func TestPropertySimulation(t *testing.T) {
	_, results := loadAndRun(t)

	house := testutil.FindSimulation(results, "house")
	if house == nil {
		t.Fatal("house not found")
	}

	monthly := house.Params.PeriodicRate
	if math.Abs(math.Pow(1+monthly/100, 12)-1.095) > 1e-9 {
		t.Errorf("monthly rate %.6f%% does not compound to 9.5%% a year", monthly)
	}
	if house.Params.Method != loans.FixedInstallment {
		t.Errorf("method = %v, expected price", house.Params.Method)
	}
	if len(house.DueDates) != len(house.Result.Schedule) {
		t.Fatalf("due dates = %d, expected one per schedule row", len(house.DueDates))
	}
	if house.DueDates[1] != "2030-01" || house.DueDates[361] != "2060-01" {
		t.Errorf("due dates run from %s to %s, expected 2030-01 to 2060-01", house.DueDates[1], house.DueDates[361])
	}
	if rate := house.Result.EffectiveRate; rate == nil || !rate.Converged || math.Abs(rate.RatePercent-monthly) > 0.01 {
		t.Errorf("effective rate = %+v, expected the contract rate %.4f%%", rate, monthly)
	}
}

// TestCSVOutputFormat checks the CSV export of the test configuration.
func TestCSVOutputFormat(t *testing.T) {
	_, results := loadAndRun(t)

	records, err := csv.NewReader(strings.NewReader(output.CsvString(results))).ReadAll()
	if err != nil {
		t.Fatalf("CSV output is not valid CSV: %v", err)
	}

	header := strings.Join(records[0], ",")
	if header != "simulation,period,due,payment,principal,interest,balance,notes" {
		t.Errorf("unexpected CSV header: %s", header)
	}

	expectedRows := 1
	for _, outcome := range results {
		expectedRows += len(outcome.Result.Schedule)
	}
	if len(records) != expectedRows {
		t.Errorf("CSV has %d records, expected %d", len(records), expectedRows)
	}

	for _, record := range records[1:] {
		if len(record) != 8 {
			t.Fatalf("CSV record should have 8 fields, got %d: %v", len(record), record)
		}
	}

	if records[1][0] != "scenario a" || records[2][3] != "945.60" {
		t.Errorf("unexpected first rows: %v / %v", records[1], records[2])
	}
}

// TestPrettyOutputFormat checks the pretty table of the test configuration.
func TestPrettyOutputFormat(t *testing.T) {
	conf, results := loadAndRun(t)

	var buf bytes.Buffer
	if err := output.WritePretty(&buf, results, conf.Output.Locale); err != nil {
		t.Fatalf("WritePretty() error = %v", err)
	}
	out := buf.String()

	for _, fragment := range []string{
		"--- Results for simulation scenario a ---",
		"--- Results for simulation house ---",
		"Balloon: 2,000.00",
		"(estimate)",
		"2060-01",
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("pretty output missing %q", fragment)
		}
	}
	if strings.Contains(out, "archived") {
		t.Error("inactive simulations should not be printed")
	}
}

func TestConfigurationValidation(t *testing.T) {
	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	for _, warning := range conf.ValidateConfiguration() {
		t.Errorf("unexpected warning for the test configuration: %s", warning)
	}
}

// TestExampleConfigurations makes sure the shipped examples load and run.
func TestExampleConfigurations(t *testing.T) {
	conf, err := config.LoadConfiguration(filepath.Join("..", "..", constants.ExampleConfigFile))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	results, err := simulation.Run(zap.NewNop(), *conf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 active example simulations, got %d", len(results))
	}
	for _, outcome := range results {
		if len(outcome.Notes) > 0 {
			t.Errorf("%s: example values should fit the product, got notes %v", outcome.Name, outcome.Notes)
		}
	}

	serverConf, err := server.LoadConfig(filepath.Join("..", "..", constants.DefaultServerConfigFile+".example"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if serverConf.UploadSizeBytes() != 256*1024 || !serverConf.RateLimit.Enabled() || !serverConf.Cache.Enabled() {
		t.Errorf("unexpected example server configuration: %+v", serverConf)
	}
}

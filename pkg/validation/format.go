// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/financing-simulator/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateRateBasis checks the rate basis of a simulation; empty means monthly.
func ValidateRateBasis(basis string) error {
	switch strings.ToLower(strings.TrimSpace(basis)) {
	case "", constants.RateBasisMonthly, constants.RateBasisAnnual:
		return nil
	}
	return fmt.Errorf("expected rate basis of %s or %s, got %s",
		constants.RateBasisMonthly, constants.RateBasisAnnual, basis)
}

// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/financing-simulator/pkg/constants"
)

const (
	// DateTimeLayout is the format expected in config files and is also the output
	// date format.
	DateTimeLayout = constants.DateTimeLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseMonth parses a YYYY-MM date.
func ParseMonth(date string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected a date formatted as YYYY-MM, got %q", date)
	}
	return t, nil
}

// OffsetDate returns the string-formatted date offset by the given number of
// months relative to the given date.
func OffsetDate(date, layout string, months int) (string, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date, err
	}
	return t.AddDate(0, months, 0).Format(layout), nil
}

// DueDates labels the rows of a schedule whose first installment falls on
// firstDue. Index 0 is the disbursement month, one month before firstDue;
// index k is the month of installment k.
func DueDates(firstDue string, periods int) ([]string, error) {
	start, err := ParseMonth(firstDue)
	if err != nil {
		return nil, err
	}
	if periods < 0 {
		return nil, fmt.Errorf("periods must not be negative, got %d", periods)
	}

	dates := make([]string, periods+1)
	for k := range dates {
		dates[k] = start.AddDate(0, k-1, 0).Format(DateTimeLayout)
	}
	return dates, nil
}

// MaturityDate returns the month of the last of termPeriods monthly
// installments starting at firstDue.
func MaturityDate(firstDue string, termPeriods int) (string, error) {
	return OffsetDate(firstDue, DateTimeLayout, termPeriods-1)
}

// DateBeforeDate returns true if firstDate is strictly before secondDate.
func DateBeforeDate(firstDate string, secondDate string) (bool, error) {
	firstDateT, err := time.Parse(DateTimeLayout, firstDate)
	if err != nil {
		return false, err
	}
	secondDateT, err := time.Parse(DateTimeLayout, secondDate)
	if err != nil {
		return false, err
	}
	return firstDateT.Before(secondDateT), nil
}

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/financing-simulator/pkg/mathutil"
)

// Product bounds a kind of financing. Rates are monthly percentages.
type Product struct {
	Name         string
	MinPrincipal float64
	MaxPrincipal float64
	MinRate      float64
	MaxRate      float64
	MinTerm      int
	MaxTerm      int
}

var products = map[string]Product{
	"vehicle": {
		Name:         "vehicle",
		MinPrincipal: 5000,
		MaxPrincipal: 500000,
		MinRate:      0.5,
		MaxRate:      4.0,
		MinTerm:      12,
		MaxTerm:      72,
	},
	"property": {
		Name:         "property",
		MinPrincipal: 50000,
		MaxPrincipal: 5000000,
		MinRate:      0.3,
		MaxRate:      2.0,
		MinTerm:      60,
		MaxTerm:      420,
	},
	"personal": {
		Name:         "personal",
		MinPrincipal: 500,
		MaxPrincipal: 100000,
		MinRate:      1.0,
		MaxRate:      10.0,
		MinTerm:      3,
		MaxTerm:      60,
	},
}

// LookupProduct returns the product with the given name, ignoring case.
func LookupProduct(name string) (Product, bool) {
	p, ok := products[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ProductNames lists the known products in alphabetical order.
func ProductNames() []string {
	names := make([]string, 0, len(products))
	for name := range products {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clamp limits principal, monthly rate and term to the product bounds and
// describes every adjustment it made.
func (p Product) Clamp(principal, rate float64, term int) (float64, float64, int, []string) {
	var notes []string

	if clamped := mathutil.Clamp(principal, p.MinPrincipal, p.MaxPrincipal); clamped != principal {
		notes = append(notes, fmt.Sprintf("principal %.2f clamped to %.2f for %s financing", principal, clamped, p.Name))
		principal = clamped
	}
	if clamped := mathutil.Clamp(rate, p.MinRate, p.MaxRate); clamped != rate {
		notes = append(notes, fmt.Sprintf("rate %.4f%% clamped to %.4f%% for %s financing", rate, clamped, p.Name))
		rate = clamped
	}
	if term < p.MinTerm || term > p.MaxTerm {
		clamped := term
		if clamped < p.MinTerm {
			clamped = p.MinTerm
		} else {
			clamped = p.MaxTerm
		}
		notes = append(notes, fmt.Sprintf("term %d clamped to %d months for %s financing", term, clamped, p.Name))
		term = clamped
	}

	return principal, rate, term, notes
}

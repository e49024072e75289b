// Package apportion distributes an integer budget across weighted categories
// using the largest-remainder method, so that the integer shares always sum to
// the budget exactly.
package apportion

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
)

// ErrInvalidInput is matched by every *InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports malformed or out-of-domain allocation input.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidInput) hold for every InvalidInputError.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Category is a named, non-negative weight competing for a share of a budget.
type Category struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Share is the integer allocation of one category. Ideal is the exact
// proportional value the integer share was rounded from.
type Share struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Ideal  float64 `json:"ideal"`
	Marks  int     `json:"marks"`
}

// Total sums the integer marks of shares.
func Total(shares []Share) int {
	total := 0
	for _, s := range shares {
		total += s.Marks
	}
	return total
}

// Allocate splits budget across categories in proportion to their weights.
//
// Every share is the floor of its ideal value, plus one for the categories
// with the largest fractional parts until the budget is used up. Ties go to
// the category that comes first in the input. Results are returned in input
// order and always sum to budget.
func Allocate(categories []Category, budget int) ([]Share, error) {
	if budget < 0 {
		return nil, invalid("budget", "must be non-negative, got %d", budget)
	}
	if len(categories) == 0 {
		if budget != 0 {
			return nil, invalid("categories", "no categories to receive a budget of %d", budget)
		}
		return []Share{}, nil
	}

	sum, err := validate(categories)
	if err != nil {
		return nil, err
	}

	type entry struct {
		index int
		frac  *big.Rat
	}

	shares := make([]Share, len(categories))
	entries := make([]entry, len(categories))
	bigBudget := new(big.Rat).SetInt64(int64(budget))
	allocated := 0

	for i, c := range categories {
		ideal := new(big.Rat).SetFloat64(c.Weight)
		ideal.Mul(ideal, bigBudget)
		ideal.Quo(ideal, sum)

		floor := new(big.Int).Quo(ideal.Num(), ideal.Denom())
		frac := new(big.Rat).Sub(ideal, new(big.Rat).SetInt(floor))

		idealF, _ := ideal.Float64()
		shares[i] = Share{
			Name:   c.Name,
			Weight: c.Weight,
			Ideal:  idealF,
			Marks:  int(floor.Int64()),
		}
		entries[i] = entry{index: i, frac: frac}
		allocated += shares[i].Marks
	}

	remainder := budget - allocated
	if remainder < 0 || remainder >= len(categories) {
		panic(fmt.Sprintf("apportion: remainder %d out of range for %d categories", remainder, len(categories)))
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].frac.Cmp(entries[b].frac) > 0
	})
	for _, e := range entries[:remainder] {
		shares[e.index].Marks++
	}

	return shares, nil
}

// Percentages returns each category's exact share of the total weight, in
// percent, in input order.
func Percentages(categories []Category) ([]float64, error) {
	if len(categories) == 0 {
		return []float64{}, nil
	}
	sum, err := validate(categories)
	if err != nil {
		return nil, err
	}

	total, _ := sum.Float64()
	out := make([]float64, len(categories))
	for i, c := range categories {
		out[i] = c.Weight / total * 100
	}
	return out, nil
}

func validate(categories []Category) (*big.Rat, error) {
	seen := make(map[string]struct{}, len(categories))
	sum := new(big.Rat)
	for i, c := range categories {
		field := fmt.Sprintf("categories[%d]", i)
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return nil, invalid(field, "weight of %q is not finite", c.Name)
		}
		if c.Weight < 0 {
			return nil, invalid(field, "weight of %q is negative (%g)", c.Name, c.Weight)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, invalid(field, "duplicate category name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		sum.Add(sum, new(big.Rat).SetFloat64(c.Weight))
	}
	if sum.Sign() == 0 {
		return nil, invalid("categories", "all %d weights are zero", len(categories))
	}
	return sum, nil
}

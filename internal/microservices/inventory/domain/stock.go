package domain

import (
	"errors"
	"fmt"
	"sort"

	"burger-system/internal/microservices/inventory/domain/dao"

	"github.com/hashicorp/go-multierror"
)

// ErrRecipeNotFound means the product has no recipe registered; the order can
// never be fulfilled by this stock.
var ErrRecipeNotFound = errors.New("recipe not found")

// InsufficientStockError names every ingredient that cannot cover its recipe
// line, not just the first one found.
type InsufficientStockError struct {
	Product   string
	Shortages *multierror.Error
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %v", e.Product, e.Shortages)
}

// VerifyRecipe compares a recipe against the quantities on hand, collecting
// every shortfall into a single diagnostic. Ingredients are checked in name
// order so the diagnostic is deterministic.
func VerifyRecipe(product string, recipe dao.Recipe, have map[string]int) error {
	var shortages *multierror.Error
	for _, ingredient := range SortedIngredients(recipe) {
		required := recipe[ingredient]
		available, ok := have[ingredient]
		if !ok {
			shortages = multierror.Append(shortages, fmt.Errorf("%s is not registered", ingredient))
			continue
		}
		if available < required {
			shortages = multierror.Append(shortages,
				fmt.Errorf("%s: available %d, required %d", ingredient, available, required))
		}
	}
	if shortages != nil {
		return &InsufficientStockError{Product: product, Shortages: shortages}
	}
	return nil
}

// SortedIngredients returns the recipe's ingredient names in a stable order.
// Deductions also lock rows in this order to keep concurrent orders from
// deadlocking.
func SortedIngredients(recipe dao.Recipe) []string {
	names := make([]string, 0, len(recipe))
	for name := range recipe {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

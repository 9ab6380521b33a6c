package classifier

import (
	"strings"

	"github.com/testtube/campus-ledger/internal/core/models"
)

// Classifier maps a payment purpose and merchant address to a spending
// category. Classification is a pure function of its inputs: the rule table
// is fixed and evaluated in order, so re-classifying a transaction always
// yields the same result.
type Classifier struct {
	overrides map[string]models.Category
}

type rule struct {
	category models.Category
	keywords []string
}

// Rules are checked top to bottom; the first keyword hit wins.
var rules = []rule{
	{models.CategoryFood, []string{"food", "lunch", "dinner", "breakfast", "cafeteria", "canteen", "coffee", "snack", "meal", "restaurant", "pizza"}},
	{models.CategoryBooks, []string{"book", "textbook", "library", "course material"}},
	{models.CategoryTransport, []string{"bus", "shuttle", "transport", "ride", "parking", "bike"}},
	{models.CategoryEntertainment, []string{"movie", "cinema", "concert", "game", "event ticket", "party"}},
	{models.CategoryFees, []string{"tuition", "fee", "fine", "registration", "exam"}},
	{models.CategoryHousing, []string{"rent", "dorm", "hostel", "housing", "laundry"}},
	{models.CategorySupplies, []string{"supplies", "stationery", "lab", "printing", "print", "equipment"}},
}

// New builds a classifier with optional per-address category overrides,
// typically loaded from configuration for known campus merchants.
func New(overrides map[string]models.Category) *Classifier {
	if overrides == nil {
		overrides = map[string]models.Category{}
	}
	return &Classifier{overrides: overrides}
}

// Classify never fails: inputs with no matching rule fall back to
// Uncategorized. Address overrides take precedence over keyword rules.
func (c *Classifier) Classify(purpose, merchantAddress string) models.Category {
	if cat, ok := c.overrides[merchantAddress]; ok && cat.Valid() {
		return cat
	}

	normalized := strings.ToLower(purpose)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				return r.category
			}
		}
	}

	return models.CategoryUncategorized
}

package models

// Category is a campus spending category assigned at confirmation time.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryBooks         Category = "Books"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryFees          Category = "Fees"
	CategoryHousing       Category = "Housing"
	CategorySupplies      Category = "Supplies"
	CategoryUncategorized Category = "Uncategorized"
)

var AllCategories = []Category{
	CategoryFood,
	CategoryBooks,
	CategoryTransport,
	CategoryEntertainment,
	CategoryFees,
	CategoryHousing,
	CategorySupplies,
	CategoryUncategorized,
}

func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

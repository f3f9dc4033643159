package constants

import (
	"strings"
)

// Category is a grocery category assigned to a receipt line item.
type Category string

const (
	FreshProduce Category = "Fresh Produce"
	Dairy        Category = "Dairy"
	Meat         Category = "Meat"
	Pantry       Category = "Pantry"
	Beverages    Category = "Beverages"
	Snacks       Category = "Snacks"
	Frozen       Category = "Frozen"
	Household    Category = "Household"
)

// CategoryKeywords pairs a category with its synonym set.
type CategoryKeywords struct {
	Category Category
	Keywords []string
}

// categoryTable is scanned in order; on equal fuzzy scores the earlier entry wins.
var categoryTable = []CategoryKeywords{
	{FreshProduce, []string{
		"apple", "banana", "tomato", "lettuce", "carrot", "onion", "potato", "avocado",
		"cucumber", "pepper", "grapes", "kiwi", "mandarin", "pear", "plum", "spinach",
		"broccoli", "cauliflower", "pumpkin", "lemon", "lime", "orange", "blueberry", "strawberry",
	}},
	{Dairy, []string{
		"milk", "cheese", "yogurt", "butter", "cream", "yoghurt", "cheddar", "mozzarella",
		"cream cheese", "custard", "evaporated milk", "condensed milk", "ice cream",
	}},
	{Meat, []string{
		"beef", "chicken", "pork", "lamb", "steak", "mince", "sausage", "bacon", "ham",
		"turkey", "duck", "venison", "salami", "meatballs", "ribs", "wings", "drumsticks",
	}},
	{Pantry, []string{
		"bread", "pasta", "rice", "flour", "sugar", "oil", "sauce", "soup", "cereal",
		"muesli", "granola", "jam", "honey", "spices", "herbs", "baking powder", "yeast",
		"vinegar", "mustard", "mayonnaise", "ketchup", "tomato paste", "beans", "lentils",
		"chickpeas", "couscous", "quinoa",
	}},
	{Beverages, []string{
		"water", "juice", "soda", "beer", "wine", "coffee", "tea", "coke", "pepsi",
		"smoothie", "energy drink", "sports drink", "kombucha", "lemonade", "ginger beer",
		"tonic", "syrup",
	}},
	{Snacks, []string{
		"chips", "crackers", "nuts", "chocolate", "candy", "biscuits", "cookies", "popcorn",
		"muesli bar", "granola bar", "rice cracker", "pretzel", "fruit snack", "trail mix",
		"ice block",
	}},
	{Frozen, []string{
		"ice cream", "frozen", "pizza", "fries", "peas", "corn", "frozen berries",
		"frozen veg", "frozen meal", "frozen fish", "frozen chicken", "frozen dessert",
	}},
	{Household, []string{
		"toilet paper", "paper towel", "soap", "detergent", "cleaning", "tissue",
		"dishwasher", "laundry", "bleach", "sponges", "bin liner", "foil", "cling film",
		"air freshener", "insect spray", "light bulb",
	}},
}

// CategoryTable returns the keyword table in its fixed iteration order.
func CategoryTable() []CategoryKeywords {
	out := make([]CategoryKeywords, len(categoryTable))
	copy(out, categoryTable)
	return out
}

// GroceryCategories lists every category in table order.
func GroceryCategories() []Category {
	out := make([]Category, len(categoryTable))
	for i, c := range categoryTable {
		out[i] = c.Category
	}
	return out
}

func AsStringSlice() []string {
	cats := GroceryCategories()
	result := make([]string, len(cats))
	for i, cat := range cats {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form input (e.g. a vision model's label or a user
// correction) onto a known category.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Category{
		"produce":    FreshProduce,
		"fruit":      FreshProduce,
		"vegetables": FreshProduce,
		"veg":        FreshProduce,
		"drinks":     Beverages,
		"grocery":    Pantry,
		"groceries":  Pantry,
		"cleaning":   Household,
		"butchery":   Meat,
		"bakery":     Pantry,
	}
	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, c := range categoryTable {
		if normalized == strings.ToLower(string(c.Category)) {
			return c.Category, true
		}
	}
	return "", false
}

package detail

import "strings"

// Category is a coarse weather class used only to pick display styling.
type Category string

const (
	Sunny         Category = "sunny"
	Cloudy        Category = "cloudy"
	Rainy         Category = "rainy"
	Snowy         Category = "snowy"
	Stormy        Category = "stormy"
	Uncategorized Category = ""
)

// categoryRules is evaluated in order; the first rule with a matching keyword wins.
var categoryRules = []struct {
	keywords []string
	category Category
}{
	{[]string{"clear", "sunny"}, Sunny},
	{[]string{"cloud"}, Cloudy},
	{[]string{"rain"}, Rainy},
	{[]string{"snow"}, Snowy},
	{[]string{"storm"}, Stormy},
}

// Classify maps a provider description to a Category by case-sensitive substring match.
func Classify(description string) Category {
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(description, kw) {
				return rule.category
			}
		}
	}
	return Uncategorized
}

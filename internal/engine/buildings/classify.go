package buildings

import "strings"

// Category groups buildings into one of the material classes.
type Category string

const (
	CategoryResidential Category = "residential"
	CategoryCommercial  Category = "commercial"
	CategoryIndustrial  Category = "industrial"
	CategoryPublic      Category = "public"
	CategoryDefault     Category = "default"
)

// Keyword match order is fixed so ambiguous tags classify the same way
// every time.
var categoryKeywords = []struct {
	cat   Category
	words []string
}{
	{CategoryResidential, []string{"residential", "house", "apartment", "detached", "terrace", "dormitory"}},
	{CategoryCommercial, []string{"commercial", "retail", "office", "shop", "hotel", "supermarket"}},
	{CategoryIndustrial, []string{"industrial", "warehouse", "factory", "depot", "hangar"}},
	{CategoryPublic, []string{"public", "school", "hospital", "church", "university", "civic", "government"}},
}

var categoryColors = map[Category][3]float32{
	CategoryResidential: {0.78, 0.71, 0.6},
	CategoryCommercial:  {0.56, 0.62, 0.7},
	CategoryIndustrial:  {0.52, 0.52, 0.54},
	CategoryPublic:      {0.8, 0.76, 0.66},
	CategoryDefault:     {0.7, 0.68, 0.63},
}

// classify picks a material category. An explicit type tag wins; without
// one, height biases tall buildings commercial and short ones residential.
func classify(buildingType string, height float32) Category {
	tag := strings.ToLower(strings.TrimSpace(buildingType))
	if tag != "" {
		for _, entry := range categoryKeywords {
			for _, w := range entry.words {
				if strings.Contains(tag, w) {
					return entry.cat
				}
			}
		}
	}
	switch {
	case height > 40:
		return CategoryCommercial
	case height > 0 && height < 12:
		return CategoryResidential
	default:
		return CategoryDefault
	}
}

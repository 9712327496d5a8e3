// Package enrichment assigns a category and a relevance score to normalized
// article text.
package enrichment

import "strings"

const (
	CategoryUncategorized = "uncategorized"

	CategoryPolitics      = "politics"
	CategorySports        = "sports"
	CategoryBusiness      = "business"
	CategoryTechnology    = "technology"
	CategoryScience       = "science"
	CategoryEntertainment = "entertainment"
	CategoryWorld         = "world"
	CategoryHealth        = "health"
	CategoryEnvironment   = "environment"
)

// Taxonomy lists the known categories in tie-break order.
var Taxonomy = []string{
	CategoryPolitics,
	CategorySports,
	CategoryBusiness,
	CategoryTechnology,
	CategoryScience,
	CategoryEntertainment,
	CategoryWorld,
	CategoryHealth,
	CategoryEnvironment,
}

var aliases = map[string]string{
	"politics":      CategoryPolitics,
	"government":    CategoryPolitics,
	"election":      CategoryPolitics,
	"sports":        CategorySports,
	"sport":         CategorySports,
	"football":      CategorySports,
	"soccer":        CategorySports,
	"business":      CategoryBusiness,
	"finance":       CategoryBusiness,
	"markets":       CategoryBusiness,
	"economy":       CategoryBusiness,
	"tech":          CategoryTechnology,
	"technology":    CategoryTechnology,
	"ai":            CategoryTechnology,
	"science":       CategoryScience,
	"entertainment": CategoryEntertainment,
	"movies":        CategoryEntertainment,
	"culture":       CategoryEntertainment,
	"world":         CategoryWorld,
	"international": CategoryWorld,
	"global":        CategoryWorld,
	"health":        CategoryHealth,
	"medicine":      CategoryHealth,
	"covid":         CategoryHealth,
	"environment":   CategoryEnvironment,
	"climate":       CategoryEnvironment,
}

// NormalizeLabel maps a free-form label onto the taxonomy.
func NormalizeLabel(label string) string {
	if c, ok := aliases[strings.ToLower(strings.TrimSpace(label))]; ok {
		return c
	}
	return CategoryUncategorized
}

// keywords drive the local classifier. Terms are matched as whole tokens.
var keywords = map[string][]string{
	CategoryPolitics: {
		"election", "elections", "parliament", "senate", "congress", "minister",
		"president", "government", "vote", "voters", "campaign", "policy",
		"lawmakers", "legislation", "party", "opposition",
	},
	CategorySports: {
		"football", "soccer", "basketball", "tennis", "cricket", "match",
		"tournament", "league", "championship", "goal", "coach", "olympic",
		"olympics", "team", "season", "striker",
	},
	CategoryBusiness: {
		"market", "markets", "stocks", "shares", "economy", "inflation",
		"investors", "revenue", "profit", "earnings", "bank", "company",
		"merger", "acquisition", "finance", "trade",
	},
	CategoryTechnology: {
		"software", "startup", "ai", "artificial", "intelligence", "smartphone",
		"app", "internet", "cyber", "cybersecurity", "chip", "chips", "computer",
		"google", "apple", "microsoft", "algorithm", "data",
	},
	CategoryScience: {
		"research", "researchers", "scientists", "study", "physics", "chemistry",
		"biology", "space", "nasa", "telescope", "experiment", "discovery",
		"planet", "astronomers", "laboratory",
	},
	CategoryEntertainment: {
		"film", "movie", "movies", "music", "album", "celebrity", "actor",
		"actress", "festival", "tv", "television", "series", "concert", "box",
		"hollywood", "singer",
	},
	CategoryWorld: {
		"international", "foreign", "embassy", "border", "united", "nations",
		"refugees", "diplomatic", "treaty", "summit", "global", "war",
	},
	CategoryHealth: {
		"health", "hospital", "doctors", "patients", "disease", "vaccine",
		"virus", "covid", "medicine", "medical", "cancer", "treatment",
		"outbreak", "nutrition",
	},
	CategoryEnvironment: {
		"climate", "emissions", "carbon", "pollution", "environment",
		"environmental", "wildlife", "renewable", "solar", "wind", "forest",
		"biodiversity", "drought", "warming",
	},
}

// Package content defines the domain types shared across the aggregation
// and curation pipeline.
package content

import "fmt"

// Category identifies a content vertical. It selects which source adapters
// are consulted and how the curation prompt is framed.
type Category string

const (
	CategoryTechNews          Category = "tech_news"
	CategoryJobListings       Category = "job_listings"
	CategoryLearningResources Category = "learning_resources"
)

// Categories returns every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryTechNews,
		CategoryJobListings,
		CategoryLearningResources,
	}
}

// ParseCategory validates raw against the known categories.
func ParseCategory(raw string) (Category, error) {
	switch Category(raw) {
	case CategoryTechNews, CategoryJobListings, CategoryLearningResources:
		return Category(raw), nil
	}
	return "", fmt.Errorf("unknown content category %q", raw)
}

func (c Category) String() string {
	return string(c)
}

// Item is the normalized shape every source adapter produces. PublishedAt is
// RFC3339 or empty when the source did not report a usable timestamp.
type Item struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags,omitempty"`
}

// Difficulty grades an item for the community. The vocabulary is fixed;
// anything else coming back from the curation model gets normalized.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyEntryLevel   Difficulty = "entry_level"
	DifficultyJunior       Difficulty = "junior"
	DifficultyMidLevel     Difficulty = "mid_level"
	DifficultySenior       Difficulty = "senior"
)

// ParseDifficulty validates raw against the difficulty vocabulary.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(raw) {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced,
		DifficultyEntryLevel, DifficultyJunior, DifficultyMidLevel, DifficultySenior:
		return Difficulty(raw), nil
	}
	return "", fmt.Errorf("unknown difficulty %q", raw)
}

// NormalizeDifficulty maps any out-of-vocabulary value to DifficultyBeginner.
func NormalizeDifficulty(raw string) Difficulty {
	if d, err := ParseDifficulty(raw); err == nil {
		return d
	}
	return DifficultyBeginner
}

func (d Difficulty) String() string {
	return string(d)
}

// CuratedItem is an Item annotated by the curation pass.
type CuratedItem struct {
	Item
	WhyValuable    string     `json:"why_valuable"`
	Difficulty     Difficulty `json:"difficulty"`
	RecommendedFor []string   `json:"recommended_for,omitempty"`
}

// CurationResult is the output of one curation pass over an aggregated batch.
type CurationResult struct {
	Items          []CuratedItem `json:"items"`
	Summary        string        `json:"summary"`
	RecommendedFor []string      `json:"recommended_for,omitempty"`
}

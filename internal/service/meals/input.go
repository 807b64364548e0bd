package meals

import (
	"math"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/models"
)

// Input carries the descriptive fields of a new meal.
type Input struct {
	Title           string   `json:"title"`
	Category        string   `json:"category"`
	Price           float64  `json:"price"`
	Description     string   `json:"description"`
	Ingredients     []string `json:"ingredients"`
	Image           string   `json:"image"`
	DistributorName string   `json:"distributor_name"`
}

// Validate checks the required fields.
func (in *Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return apperr.Validation("category is required")
	}
	if in.Price <= 0 || math.IsInf(in.Price, 0) || math.IsNaN(in.Price) {
		return apperr.Validation("price must be greater than zero")
	}
	return nil
}

// Details converts the input into stored meal fields owned by distributorEmail.
func (in *Input) Details(distributorEmail string) models.MealDetails {
	name := strings.TrimSpace(in.DistributorName)
	if name == "" {
		name = distributorEmail
	}
	return models.MealDetails{
		Title:            strings.TrimSpace(in.Title),
		Category:         strings.TrimSpace(in.Category),
		Price:            in.Price,
		Description:      strings.TrimSpace(in.Description),
		Ingredients:      cleanIngredients(in.Ingredients),
		Image:            strings.TrimSpace(in.Image),
		DistributorName:  name,
		DistributorEmail: distributorEmail,
	}
}

// Patch carries the editable meal fields; nil fields are left unchanged.
// Counters and the distributor cannot be patched.
type Patch struct {
	Title       *string   `json:"title"`
	Category    *string   `json:"category"`
	Price       *float64  `json:"price"`
	Description *string   `json:"description"`
	Ingredients *[]string `json:"ingredients"`
	Image       *string   `json:"image"`
}

// Changes returns the column updates described by the patch.
func (p *Patch) Changes() (map[string]interface{}, error) {
	changes := make(map[string]interface{})
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, apperr.Validation("title cannot be empty")
		}
		changes["title"] = title
	}
	if p.Category != nil {
		category := strings.TrimSpace(*p.Category)
		if category == "" {
			return nil, apperr.Validation("category cannot be empty")
		}
		changes["category"] = category
	}
	if p.Price != nil {
		if *p.Price <= 0 || math.IsInf(*p.Price, 0) || math.IsNaN(*p.Price) {
			return nil, apperr.Validation("price must be greater than zero")
		}
		changes["price"] = *p.Price
	}
	if p.Description != nil {
		changes["description"] = strings.TrimSpace(*p.Description)
	}
	if p.Ingredients != nil {
		changes["ingredients"] = cleanIngredients(*p.Ingredients)
	}
	if p.Image != nil {
		changes["image"] = strings.TrimSpace(*p.Image)
	}
	if len(changes) == 0 {
		return nil, apperr.Validation("no editable fields supplied")
	}
	return changes, nil
}

func cleanIngredients(raw []string) datatypes.JSONSlice[string] {
	cleaned := make(datatypes.JSONSlice[string], 0, len(raw))
	for _, ingredient := range raw {
		if ingredient = strings.TrimSpace(ingredient); ingredient != "" {
			cleaned = append(cleaned, ingredient)
		}
	}
	return cleaned
}

// ParsePriceRange parses "min-max" into an inclusive range. An empty string
// means no price filter.
func ParsePriceRange(raw string) (*float64, *float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil, nil
	}

	minRaw, maxRaw, ok := strings.Cut(raw, "-")
	if !ok {
		return nil, nil, apperr.Validation("price_range must look like min-max, got %q", raw)
	}

	minPrice, err := parsePrice(minRaw)
	if err != nil {
		return nil, nil, apperr.Validation("price_range must look like min-max, got %q", raw)
	}
	maxPrice, err := parsePrice(maxRaw)
	if err != nil {
		return nil, nil, apperr.Validation("price_range must look like min-max, got %q", raw)
	}
	if minPrice > maxPrice {
		return nil, nil, apperr.Validation("price_range minimum exceeds maximum")
	}
	return &minPrice, &maxPrice, nil
}

func parsePrice(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, strconv.ErrRange
	}
	return value, nil
}

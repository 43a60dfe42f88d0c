package notice

import (
	"strings"

	"github.com/trezcool/campusboard/core"
)

type Category string

const (
	CategoryAcademic Category = "Academic"
	CategoryEvents   Category = "Events"
	CategoryGeneral  Category = "General"

	// CategoryAll is accepted by filters and means no filtering.
	CategoryAll = "All"

	defaultCategoryColor = "#264653"
)

var (
	Categories = []Category{CategoryAcademic, CategoryEvents, CategoryGeneral}

	categoryColors = map[Category]string{
		CategoryAcademic: "#4E89AE",
		CategoryEvents:   "#F4A261",
		CategoryGeneral:  "#2A9D8F",
	}

	errUnknownCategoryText = "category must be one of Academic, Events, General"
)

func (c Category) IsValid() bool {
	_, ok := categoryColors[c]
	return ok
}

// CategoryColor returns the display color of category, falling back to a neutral color.
func CategoryColor(category Category) string {
	if color, ok := categoryColors[category]; ok {
		return color
	}
	return defaultCategoryColor
}

// CategoryInfo is a display entry of the category table.
type CategoryInfo struct {
	Name  Category `json:"name"`
	Color string   `json:"color"`
}

// CategoryTable returns every category with its display color.
func CategoryTable() []CategoryInfo {
	table := make([]CategoryInfo, 0, len(Categories))
	for _, c := range Categories {
		table = append(table, CategoryInfo{Name: c, Color: CategoryColor(c)})
	}
	return table
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = core.CleanString(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", core.NewFieldValidationError("category", errUnknownCategoryText)
}

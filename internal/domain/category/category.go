package category

import (
	_ "embed"
	"encoding/json"
	"strings"
)

//go:embed categories.json
var rawCategories []byte

type Subcategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Icon          string        `json:"icon"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

type Taxonomy struct {
	categories []Category
	byName     map[string]struct{}
}

// Load parses the embedded taxonomy. The file ships with the binary, so a
// parse failure is a build defect rather than a runtime condition.
func Load() (*Taxonomy, error) {
	var doc struct {
		Categories []Category `json:"categories"`
	}

	err := json.Unmarshal(rawCategories, &doc)

	if err != nil {
		return nil, err
	}

	t := &Taxonomy{
		categories: doc.Categories,
		byName:     make(map[string]struct{}),
	}

	for _, c := range doc.Categories {
		t.byName[strings.ToLower(c.Name)] = struct{}{}

		for _, sub := range c.Subcategories {
			t.byName[strings.ToLower(sub.Name)] = struct{}{}
		}
	}

	return t, nil
}

func (t *Taxonomy) List() []Category {
	return t.categories
}

// Valid reports whether name matches a category or subcategory,
// case-insensitively.
func (t *Taxonomy) Valid(name string) bool {
	_, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]

	return ok
}

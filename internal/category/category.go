package category

import "time"

// MaxLevel is the deepest level a category may sit at; roots are level 0.
const MaxLevel = 2

// Localized holds the per-locale overrides of a category's display text.
type Localized struct {
	Name        string `json:"name,omitempty" bson:"name,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

type Category struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Slug         string               `json:"slug"`
	ParentID     *string              `json:"parentId"`
	Level        int                  `json:"level"`
	SortOrder    int                  `json:"sortOrder"`
	Image        string               `json:"image,omitempty"`
	Description  string               `json:"description,omitempty"`
	Translations map[string]Localized `json:"translations,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// Node is a category with its children, as returned by the tree endpoint.
type Node struct {
	Category
	Children []*Node `json:"children"`
}

// Input is the admin payload for creating or updating a category.
type Input struct {
	Name         string               `json:"name" validate:"required,max=120"`
	Slug         string               `json:"slug" validate:"max=140"`
	ParentID     *string              `json:"parentId"`
	SortOrder    int                  `json:"sortOrder" validate:"gte=0"`
	Image        string               `json:"image" validate:"max=500"`
	Description  string               `json:"description" validate:"max=2000"`
	Translations map[string]Localized `json:"translations"`
}

// Localize returns a copy with the locale's name and description applied and the
// translation map dropped.
func (c Category) Localize(locale string) Category {
	if t, ok := c.Translations[locale]; ok {
		if t.Name != "" {
			c.Name = t.Name
		}
		if t.Description != "" {
			c.Description = t.Description
		}
	}
	c.Translations = nil
	return c
}

func (c Category) parent() string {
	if c.ParentID == nil {
		return ""
	}
	return *c.ParentID
}

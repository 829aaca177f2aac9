package models

import "fmt"

// Tag is derived from every track's comment field; it is never stored on its own.
type Tag struct {
	Name       string    `json:"name"`
	UsageCount int       `json:"usage_count"`
	Group      *TagGroup `json:"group,omitempty"`
}

// TagGroup groups tags for display. Membership is keyed by case-insensitive tag name.
type TagGroup struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Color    string   `json:"color,omitempty"`
	Position int      `json:"position"`
	Tags     []string `json:"tags,omitempty"`
}

func (g *TagGroup) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("tag group name is required")
	}
	return nil
}

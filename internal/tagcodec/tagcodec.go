// Package tagcodec encodes a free-text comment and a list of tags into one field.
//
// The encoded form is
//
//	{comment} && {tag1}; {tag2}; ...
//
// The first " && " splits the comment from the tag list, so the comment itself must never contain it.
// Tags are separated by ";" and compared case-insensitively; the casing used when a tag was first
// added is preserved.
package tagcodec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/factor8/TagDeck/internal/shared"
)

const (
	// Delimiter separates the free-text comment from the tag list.
	Delimiter = " && "
	// Separator separates tags within the tag list.
	Separator = ";"
)

// Comment is a decoded comment field.
type Comment struct {
	Text string
	Tags []string
}

// Decode splits raw at the first [Delimiter].
//
// Without a delimiter the whole field is free text. Tags are trimmed and empty entries dropped.
func Decode(raw string) Comment {
	text, list, ok := strings.Cut(raw, Delimiter)
	if !ok {
		return Comment{Text: raw}
	}

	c := Comment{Text: text}
	for _, tag := range strings.Split(list, Separator) {
		if tag = strings.TrimSpace(tag); tag != "" {
			c.Tags = append(c.Tags, tag)
		}
	}
	return c
}

// Encode renders c. A comment without tags is emitted unchanged, without a delimiter.
func (c Comment) Encode() string {
	if len(c.Tags) == 0 {
		return c.Text
	}
	return c.Text + Delimiter + strings.Join(c.Tags, Separator+" ")
}

// Encode renders text and tags as one field.
func Encode(text string, tags []string) string {
	return Comment{Text: text, Tags: tags}.Encode()
}

// Has reports whether tag is present, ignoring case.
func (c Comment) Has(tag string) bool {
	return c.index(tag) >= 0
}

// Add appends tag unless an equal tag is already present. It reports whether c changed.
func (c *Comment) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || c.Has(tag) {
		return false
	}
	c.Tags = append(c.Tags, tag)
	return true
}

// Remove deletes every entry equal to tag, ignoring case. It reports whether c changed.
func (c *Comment) Remove(tag string) bool {
	key := shared.FoldKey(tag)
	before := len(c.Tags)
	c.Tags = slices.DeleteFunc(c.Tags, func(t string) bool { return shared.FoldKey(t) == key })
	return len(c.Tags) != before
}

// Rename replaces from with to in place. When to is already present the old entry is dropped instead.
func (c *Comment) Rename(from, to string) bool {
	to = strings.TrimSpace(to)
	i := c.index(from)
	if i < 0 || to == "" {
		return false
	}
	if j := c.index(to); j >= 0 && j != i {
		return c.Remove(from)
	}
	if c.Tags[i] == to {
		return false
	}
	c.Tags[i] = to
	return true
}

func (c Comment) index(tag string) int {
	key := shared.FoldKey(tag)
	return slices.IndexFunc(c.Tags, func(t string) bool { return shared.FoldKey(t) == key })
}

// AddTag decodes raw, adds tag and re-encodes. The bool reports whether the field changed.
func AddTag(raw, tag string) (string, bool) {
	c := Decode(raw)
	if !c.Add(tag) {
		return raw, false
	}
	return c.Encode(), true
}

// RemoveTag decodes raw, removes tag and re-encodes. The bool reports whether the field changed.
func RemoveTag(raw, tag string) (string, bool) {
	c := Decode(raw)
	if !c.Remove(tag) {
		return raw, false
	}
	return c.Encode(), true
}

// RenameTag decodes raw, renames from to to and re-encodes.
func RenameTag(raw, from, to string) (string, bool) {
	c := Decode(raw)
	if !c.Rename(from, to) {
		return raw, false
	}
	return c.Encode(), true
}

// Tags returns the tags carried by raw.
func Tags(raw string) []string {
	return Decode(raw).Tags
}

// ValidateText rejects free text that would be misread as a tag list, either on its own or once
// a tag list is appended to it (text ending in "&&" forms a second delimiter).
func ValidateText(text string) error {
	if strings.Contains(text, Delimiter) {
		return fmt.Errorf("%w: comment must not contain %q", shared.ErrInvalidInput, Delimiter)
	}
	if Decode(Encode(text, []string{"x"})).Text != text {
		return fmt.Errorf("%w: comment must not end with %q", shared.ErrInvalidInput, strings.TrimRight(Delimiter, " "))
	}
	return nil
}

// ValidateTag rejects tag names that cannot survive an encode and decode.
func ValidateTag(tag string) error {
	tag = strings.TrimSpace(tag)
	switch {
	case tag == "":
		return fmt.Errorf("%w: tag name is empty", shared.ErrInvalidInput)
	case strings.Contains(tag, Separator):
		return fmt.Errorf("%w: tag %q must not contain %q", shared.ErrInvalidInput, tag, Separator)
	case strings.Contains(tag, strings.TrimSpace(Delimiter)):
		return fmt.Errorf("%w: tag %q must not contain %q", shared.ErrInvalidInput, tag, strings.TrimSpace(Delimiter))
	}
	return nil
}

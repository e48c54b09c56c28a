package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	TitleMinLength       = 3
	TitleMaxLength       = 200
	DescriptionMaxLength = 1000
	OptionMaxLength      = 200
	MaxTags              = 10
	TagMaxLength         = 50
)

// ValidationErrors maps a field name to the problems found with it.
type ValidationErrors map[string][]string

func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

// Check records message for field unless it is empty.
func (v ValidationErrors) Check(field, message string) {
	if message != "" {
		v.Add(field, message)
	}
}

// Err returns v as an error, or nil when no field failed.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", field, strings.Join(v[field], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func ValidateTitle(title string) string {
	n := utf8.RuneCountInString(title)
	switch {
	case strings.TrimSpace(title) == "":
		return "can't be blank"
	case n < TitleMinLength:
		return fmt.Sprintf("should be at least %d characters", TitleMinLength)
	case n > TitleMaxLength:
		return fmt.Sprintf("should be at most %d characters", TitleMaxLength)
	}
	return ""
}

func ValidateDescription(description string) string {
	if utf8.RuneCountInString(description) > DescriptionMaxLength {
		return fmt.Sprintf("should be at most %d characters", DescriptionMaxLength)
	}
	return ""
}

// ValidateExpiresAt requires a set expiration to lie strictly after now.
func ValidateExpiresAt(expiresAt *time.Time, now time.Time) string {
	if expiresAt != nil && !expiresAt.After(now) {
		return "must be in the future"
	}
	return ""
}

func ValidateCategory(category *Category) string {
	if category != nil && !category.Valid() {
		return "is invalid"
	}
	return ""
}

// NormalizeTags lowercases, trims and deduplicates tags, keeping first
// occurrence order. Empty tags are dropped.
func NormalizeTags(raw []string) ([]string, string) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		if utf8.RuneCountInString(tag) > TagMaxLength {
			return nil, fmt.Sprintf("each tag should be at most %d characters", TagMaxLength)
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > MaxTags {
		return nil, fmt.Sprintf("should have at most %d tags", MaxTags)
	}
	return tags, ""
}

// NormalizeOptions trims option texts and filters out blank ones. At least
// one option must remain.
func NormalizeOptions(raw []string) ([]string, string) {
	options := make([]string, 0, len(raw))
	for _, text := range raw {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) > OptionMaxLength {
			return nil, fmt.Sprintf("each option should be at most %d characters", OptionMaxLength)
		}
		options = append(options, text)
	}
	if len(options) == 0 {
		return nil, "should have at least one option"
	}
	return options, ""
}

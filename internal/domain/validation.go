package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLabelNameLength bounds board and column names.
const MaxLabelNameLength = 16

// NameKind selects the rule set used by ValidateName.
type NameKind string

// NameKind values.
const (
	NameKindBoard   NameKind = "board"
	NameKindColumn  NameKind = "column"
	NameKindTask    NameKind = "task"
	NameKindSubtask NameKind = "subtask"
)

// label renders the field name used in validation messages.
func (k NameKind) label() string {
	switch k {
	case NameKindBoard:
		return "board name"
	case NameKindColumn:
		return "column title"
	case NameKindTask:
		return "task name"
	case NameKindSubtask:
		return "subtask name"
	default:
		return "field"
	}
}

// ValidateName checks one user-supplied name against the rules for kind.
func ValidateName(kind NameKind, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s cannot be empty: %w", kind.label(), ErrInvalidName)
	}
	switch kind {
	case NameKindBoard, NameKindColumn:
		if utf8.RuneCountInString(trimmed) > MaxLabelNameLength {
			return fmt.Errorf("%s cannot exceed %d characters: %w", kind.label(), MaxLabelNameLength, ErrNameTooLong)
		}
		if !isLabelText(trimmed) {
			return fmt.Errorf("%s can only contain letters and numbers: %w", kind.label(), ErrInvalidNameChars)
		}
	}
	return nil
}

// ValidateUniqueNames reports the first name that repeats, ignoring case and surrounding space.
func ValidateUniqueNames(kind NameKind, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%s %q is already used: %w", kind.label(), strings.TrimSpace(name), ErrDuplicateName)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func isLabelText(value string) bool {
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ' || r == '\t':
		default:
			return false
		}
	}
	return true
}

// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// DerefString returns the pointed string or ""
func DerefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NonEmptyPtr returns nil for blank strings
func NonEmptyPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

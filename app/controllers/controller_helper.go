package controllers

import "time"

// formatTimePtr renders a nullable timestamp as RFC3339 UTC, nil stays nil.
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

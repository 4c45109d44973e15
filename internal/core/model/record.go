package model

import (
	"fmt"
	"strings"
)

// Record is a semi-structured document owned by the external store. The core
// reads and writes records only by key; Fields is an open map so collections
// with different schemas can flow through the same pipeline.
type Record struct {
	Key       string                 `json:"_key"`
	Fields    map[string]interface{} `json:"fields"`
	Embedding []float64              `json:"embedding,omitempty"`
}

// FieldString returns the named field rendered as a string, with ok=false
// when the field is absent, nil, or empty after trimming.
func (r *Record) FieldString(name string) (string, bool) {
	if r == nil || r.Fields == nil {
		return "", false
	}
	v, exists := r.Fields[name]
	if !exists || v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprintf("%v", t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// CompositeKey joins the named fields into one normalized string, used by
// sorted-neighborhood blocking. Missing fields contribute an empty segment so
// records stay comparable.
func (r *Record) CompositeKey(fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		if s, ok := r.FieldString(f); ok {
			parts[i] = strings.ToLower(s)
		}
	}
	return strings.Join(parts, "|")
}

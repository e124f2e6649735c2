package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// StatusScale maps categorical status labels to numbers. Labels are matched
// case-insensitively after trimming whitespace.
type StatusScale struct {
	labels  map[string]float64
	display map[string]string
	numeric bool
}

// DefaultScaleLabels is the ordinal scale of the client relations data set.
const DefaultScaleLabels = "Stellar=4,Good=3,Average=2,Poor=1,None=0"

// NewStatusScale builds a scale from label -> value pairs. When numeric is
// true, statuses that parse as finite numbers pass through unchanged.
func NewStatusScale(labels map[string]float64, numeric bool) StatusScale {
	s := StatusScale{
		labels:  make(map[string]float64, len(labels)),
		display: make(map[string]string, len(labels)),
		numeric: numeric,
	}
	for label, v := range labels {
		key := normalizeLabel(label)
		s.labels[key] = v
		s.display[key] = strings.TrimSpace(label)
	}
	return s
}

// IdentityScale passes numeric statuses through and knows no labels.
func IdentityScale() StatusScale {
	return NewStatusScale(nil, true)
}

// ParseStatusScale parses "Label=value,Label=value". An empty definition yields a
// scale with no labels.
func ParseStatusScale(def string, numeric bool) (StatusScale, error) {
	labels := make(map[string]float64)
	seen := make(map[string]struct{})
	for _, pair := range strings.Split(def, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		label, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(label) == "" {
			return StatusScale{}, fmt.Errorf("invalid status scale entry %q: want Label=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return StatusScale{}, fmt.Errorf("invalid status scale value in %q", pair)
		}
		label = strings.TrimSpace(label)
		if _, dup := seen[normalizeLabel(label)]; dup {
			return StatusScale{}, fmt.Errorf("duplicate status scale label %q", label)
		}
		seen[normalizeLabel(label)] = struct{}{}
		labels[label] = v
	}
	return NewStatusScale(labels, numeric), nil
}

// Map returns the numeric value of a raw status cell.
func (s StatusScale) Map(status string) (float64, error) {
	key := normalizeLabel(status)
	if key == "" {
		return 0, fmt.Errorf("%w: empty status", ErrUnmappableStatus)
	}
	if v, ok := s.labels[key]; ok {
		return v, nil
	}
	if s.numeric {
		if v, err := strconv.ParseFloat(strings.TrimSpace(status), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnmappableStatus, strings.TrimSpace(status))
}

// Label returns the configured label for a status cell, or the trimmed cell.
func (s StatusScale) Label(status string) string {
	if d, ok := s.display[normalizeLabel(status)]; ok {
		return d
	}
	return strings.TrimSpace(status)
}

// Bounds returns the lowest and highest labelled values. ok is false for a
// scale without labels.
func (s StatusScale) Bounds() (lo, hi float64, ok bool) {
	if len(s.labels) == 0 {
		return 0, 0, false
	}
	values := make([]float64, 0, len(s.labels))
	for _, v := range s.labels {
		values = append(values, v)
	}
	sort.Float64s(values)
	return values[0], values[len(values)-1], true
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

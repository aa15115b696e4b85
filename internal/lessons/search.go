package lessons

import (
	"context"
	"strconv"
	"strings"
)

// Predicate is the disjunctive filter built from a free-text query:
// case-insensitive substring on subject and location, exact equality on
// price when the query parses as a float, exact equality on available when
// it parses as an integer.
type Predicate struct {
	text      string
	price     *float64
	available *int
}

// NewPredicate parses the query once so Matches stays allocation-free.
func NewPredicate(query string) Predicate {
	p := Predicate{text: strings.ToLower(query)}
	if f, err := strconv.ParseFloat(query, 64); err == nil {
		p.price = &f
	}
	if n, err := strconv.Atoi(query); err == nil {
		p.available = &n
	}
	return p
}

// Matches reports whether the lesson satisfies any branch of the predicate.
func (p Predicate) Matches(l Lesson) bool {
	if strings.Contains(strings.ToLower(l.Subject), p.text) {
		return true
	}
	if strings.Contains(strings.ToLower(l.Location), p.text) {
		return true
	}
	if p.price != nil && l.Price == *p.price {
		return true
	}
	if p.available != nil && l.Available == *p.available {
		return true
	}
	return false
}

// Search scans the lessons table and filters it with the query predicate.
// The lessons set is small; filtering in-process keeps numeric fields on
// exact equality instead of forcing a text operator onto them.
func (s *Store) Search(ctx context.Context, query string) ([]Lesson, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	p := NewPredicate(query)
	matched := make([]Lesson, 0, len(all))
	for _, l := range all {
		if p.Matches(l) {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

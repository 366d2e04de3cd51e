// Package search ranks person records against a free-text query. The whole
// pipeline (folding, edit distance, ordering) is pure and runs in memory:
// the repository only supplies candidate rows with their derived presence.
package search

import (
	"sort"
	"strings"

	"github.com/veletic/gatehouse/internal/domain"
)

// Thresholds are the maximum edit distances that still count as a match,
// per field variant. Concatenated name variants get a wider budget so a
// reordered "last first" query still lands.
type Thresholds struct {
	Identifier int
	Name       int
	Combined   int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Identifier: 2, Name: 3, Combined: 6}
}

type Engine struct {
	thresholds Thresholds
}

func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

type scored struct {
	status             domain.PersonStatus
	leastDistance      int
	identifierDistance int
	included           bool
}

// Rank filters and orders persons against query. An empty query returns all
// persons in ascending identifier order. A non-empty query includes a person
// when any field variant contains the folded query as a substring or lies
// within that variant's distance threshold, ordered by least distance across
// all variants, then distance on the identifier, then identifier.
func (e *Engine) Rank(query string, persons []domain.PersonStatus) []domain.PersonStatus {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]domain.PersonStatus, len(persons))
		copy(out, persons)
		sort.Slice(out, func(i, j int) bool {
			return out[i].Identifier < out[j].Identifier
		})
		return out
	}

	folded := Fold(query)
	results := make([]scored, 0, len(persons))
	for _, p := range persons {
		s := e.score(folded, p)
		if s.included {
			results = append(results, s)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.leastDistance != b.leastDistance {
			return a.leastDistance < b.leastDistance
		}
		if a.identifierDistance != b.identifierDistance {
			return a.identifierDistance < b.identifierDistance
		}
		return a.status.Identifier < b.status.Identifier
	})

	out := make([]domain.PersonStatus, len(results))
	for i, s := range results {
		out[i] = s.status
	}
	return out
}

func (e *Engine) score(foldedQuery string, p domain.PersonStatus) scored {
	fname := Fold(p.Fname)
	lname := Fold(p.Lname)
	identifier := Fold(p.Identifier)

	variants := []struct {
		value     string
		threshold int
	}{
		{identifier, e.thresholds.Identifier},
		{fname, e.thresholds.Name},
		{lname, e.thresholds.Name},
		{fname + " " + lname, e.thresholds.Combined},
		{lname + " " + fname, e.thresholds.Combined},
	}

	s := scored{status: p, leastDistance: -1}
	for _, v := range variants {
		dist := Distance(foldedQuery, v.value)
		if s.leastDistance < 0 || dist < s.leastDistance {
			s.leastDistance = dist
		}
		if strings.Contains(v.value, foldedQuery) || dist <= v.threshold {
			s.included = true
		}
	}
	s.identifierDistance = Distance(foldedQuery, identifier)
	return s
}

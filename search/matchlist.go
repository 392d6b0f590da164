package search

import (
	"pixeldiff/types"
)

// MatchList is a bounded list of matches ordered by ascending MeanDiff.
type MatchList struct {
	limit   int
	matches []types.MatchRecord
}

// NewMatchList creates a list holding at most limit matches.
func NewMatchList(limit int) *MatchList {
	if limit < 0 {
		limit = 0
	}
	return &MatchList{limit: limit}
}

// Insert places m before the first entry with a strictly larger MeanDiff,
// dropping the tail beyond the limit. When no entry is larger, m is appended
// only if there is room. Entries with equal MeanDiff keep insertion order.
func (l *MatchList) Insert(m types.MatchRecord) bool {
	for i, existing := range l.matches {
		if m.MeanDiff < existing.MeanDiff {
			l.matches = append(l.matches, types.MatchRecord{})
			copy(l.matches[i+1:], l.matches[i:])
			l.matches[i] = m
			if len(l.matches) > l.limit {
				l.matches = l.matches[:l.limit]
			}
			return true
		}
	}
	if len(l.matches) < l.limit {
		l.matches = append(l.matches, m)
		return true
	}
	return false
}

// Len returns the number of matches held.
func (l *MatchList) Len() int { return len(l.matches) }

// Matches returns a copy of the matches, most similar first.
func (l *MatchList) Matches() []types.MatchRecord {
	return append([]types.MatchRecord(nil), l.matches...)
}

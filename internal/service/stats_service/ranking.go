package stats_service

import (
	"cmp"
	"slices"
)

type Ranked[T any] struct {
	Rank  int `json:"rank"`
	Entry T   `json:"entry"`
}

// RankBy orders entries by score, highest first, and numbers them from 1.
// Equal scores keep their input order and still get distinct ranks.
func RankBy[T any](entries []T, score func(T) int) []Ranked[T] {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return cmp.Compare(score(b), score(a))
	})

	res := make([]Ranked[T], 0, len(sorted))
	for i, e := range sorted {
		res = append(res, Ranked[T]{Rank: i + 1, Entry: e})
	}
	return res
}

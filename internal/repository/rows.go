package repository

import (
	"errors"
	"sort"

	"persona-probe/internal/domain"
)

// ErrNotFound se devuelve cuando una corrida o un trial no existe.
var ErrNotFound = errors.New("not found")

// pgxRows es la parte de pgx.Rows que usan los scanners; simplifica los tests.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}

func levelColumn(l domain.Level) string {
	if !l.Valid() {
		return ""
	}
	return l.String()
}

func parseLevelColumn(s string) (domain.Level, error) {
	if s == "" {
		return domain.LevelUnknown, nil
	}
	return domain.ParseLevel(s)
}

func sortKeys(keys []domain.GroupKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

func sortDistributionKeys(keys []domain.DistributionKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

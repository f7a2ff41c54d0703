package storage

import (
	"fmt"
	"strings"
)

// ReaderOption narrows the runs returned by Runs.
type ReaderOption func(*runsQuery)

// WithTarget keeps runs of a single target.
func WithTarget(target string) ReaderOption {
	return func(q *runsQuery) {
		q.target = &target
	}
}

// WithMinPower keeps runs whose best power is at least p.
func WithMinPower(p float64) ReaderOption {
	return func(q *runsQuery) {
		q.minPower = &p
	}
}

// WithLimit caps the number of runs returned. Non-positive values are
// ignored.
func WithLimit(n int) ReaderOption {
	return func(q *runsQuery) {
		if n > 0 {
			q.limit = n
		}
	}
}

type runsQuery struct {
	target   *string
	minPower *float64
	limit    int
}

func (q *runsQuery) build() (string, []any) {
	var sb strings.Builder
	var args []any
	var where []string

	sb.WriteString(selectRunColumnsSQL)

	if q.target != nil {
		where = append(where, "target = ?")
		args = append(args, *q.target)
	}
	if q.minPower != nil {
		where = append(where, "best_power >= ?")
		args = append(args, *q.minPower)
	}
	if len(where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	sb.WriteString("\nORDER BY best_power DESC, id")

	if q.limit > 0 {
		sb.WriteString(fmt.Sprintf("\nLIMIT %d", q.limit))
	}
	return sb.String(), args
}

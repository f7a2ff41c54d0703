package storage

import (
	"database/sql"
	"time"
)

// RunRecord is a stored search result.
type RunRecord struct {
	ID              int64
	Target          string
	CreatedAt       time.Time
	BestPeriod      float64
	BestPower       float64
	BestDepth       float64
	BestTransitTime float64
	Duration        float64
	Samples         int
	Complete        bool
	Config          *string
}

// PeriodogramPoint is one evaluated grid period of a stored run.
type PeriodogramPoint struct {
	Index       int
	Period      float64
	Power       float64
	Depth       float64
	TransitTime float64
}

type runData struct {
	ID              int64
	Target          string
	CreatedAt       time.Time
	BestPeriod      float64
	BestPower       float64
	BestDepth       float64
	BestTransitTime float64
	Duration        float64
	Samples         int
	Complete        bool
	Config          sql.NullString
}

func (d *runData) scanArgs() []any {
	return []any{
		&d.ID,
		&d.Target,
		&d.CreatedAt,
		&d.BestPeriod,
		&d.BestPower,
		&d.BestDepth,
		&d.BestTransitTime,
		&d.Duration,
		&d.Samples,
		&d.Complete,
		&d.Config,
	}
}

func (d *runData) record() *RunRecord {
	r := RunRecord{
		ID:              d.ID,
		Target:          d.Target,
		CreatedAt:       d.CreatedAt,
		BestPeriod:      d.BestPeriod,
		BestPower:       d.BestPower,
		BestDepth:       d.BestDepth,
		BestTransitTime: d.BestTransitTime,
		Duration:        d.Duration,
		Samples:         d.Samples,
		Complete:        d.Complete,
	}
	if d.Config.Valid {
		r.Config = &d.Config.String
	}
	return &r
}

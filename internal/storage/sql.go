package storage

import (
	_ "embed"
)

const (
	insertRunSQL = `
INSERT INTO runs (
                  target,
                  created_at,
                  best_period,
                  best_power,
                  best_depth,
                  best_transit_time,
                  duration,
                  n_samples,
                  complete,
                  config)
VALUES (?, CURRENT_TIMESTAMP, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRunColumnsSQL = `
SELECT 
    id, 
    target, 
    created_at, 
    best_period, 
    best_power, 
    best_depth, 
    best_transit_time, 
    duration, 
    n_samples, 
    complete, 
    config 
FROM runs`

	selectRunSQL = selectRunColumnsSQL + `
WHERE 
    id = ?`

	insertPeriodogramSQL = `
INSERT INTO periodogram (run_id,
                         idx,
                         period,
                         power,
                         depth,
                         transit_time)
VALUES `

	selectPeriodogramSQL = `
SELECT 
    idx, 
    period, 
    power, 
    depth, 
    transit_time 
FROM periodogram 
WHERE 
    run_id = ? 
ORDER BY idx`

	// periodogramBatchSize keeps a batch insert below SQLite's default
	// limit of 999 bound variables.
	periodogramBatchSize = 150
)

//go:embed schema.sql
var initSchemaSQL string

//go:embed indexes.sql
var initIndexesSQL string

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roman-kulish/transit-search/internal/bls"
)

// ErrRunNotFound is returned by Run for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// SqliteStore implements Store on a SQLite database file. Writes and reads
// use separate connections, opened on first use.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore creates a store for the database at dbPath. The schema is
// created with the first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

// newSqliteStoreWithDB creates a store using db for reads and writes. The
// schema is not initialised.
func newSqliteStoreWithDB(db *sql.DB) *SqliteStore {
	s := &SqliteStore{}
	s.writeDBOnce.Do(func() { s.writeDB = db })
	s.readDBOnce.Do(func() { s.readDB = db })
	return s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateRun(ctx context.Context, run *RunRecord, config any) (runID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx,
		run.Target,
		run.BestPeriod,
		run.BestPower,
		run.BestDepth,
		run.BestTransitTime,
		run.Duration,
		run.Samples,
		run.Complete,
		configData,
	)
	if err != nil {
		err = fmt.Errorf("inserting run: %w", err)
		return
	}

	runID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting run ID: %w", err)
	}
	return
}

func (s *SqliteStore) StorePeriodogram(ctx context.Context, runID int64, pg *bls.Periodogram) (err error) {
	if pg.EvaluatedCount() == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	indexes := make([]int, 0, pg.Len())
	for i, ok := range pg.Evaluated {
		if ok {
			indexes = append(indexes, i)
		}
	}

	for start := 0; start < len(indexes); start += periodogramBatchSize {
		batch := indexes[start:min(start+periodogramBatchSize, len(indexes))]
		values := make([]any, 0, len(batch)*6)

		var sb strings.Builder
		sb.WriteString(insertPeriodogramSQL)

		for n, i := range batch {
			values = append(values,
				runID,
				i,
				pg.Period[i],
				pg.Power[i],
				pg.Depth[i],
				pg.TransitTime[i],
			)

			if n > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?)")
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting periodogram: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SqliteStore) Run(ctx context.Context, id int64) (run *RunRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var data runData
	if err = stmt.QueryRowContext(ctx, id).Scan(data.scanArgs()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("%w: %d", ErrRunNotFound, id)
			return
		}
		err = fmt.Errorf("scanning run: %w", err)
		return
	}

	return data.record(), nil
}

func (s *SqliteStore) Runs(ctx context.Context, opts ...ReaderOption) (runs []*RunRecord, err error) {
	var q runsQuery
	for _, opt := range opts {
		opt(&q)
	}

	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	query, args := q.build()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("querying runs: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data runData
		if err = rows.Scan(data.scanArgs()...); err != nil {
			err = fmt.Errorf("scanning run: %w", err)
			return
		}
		runs = append(runs, data.record())
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating runs: %w", err)
	}
	return
}

func (s *SqliteStore) Periodogram(ctx context.Context, runID int64) (points []PeriodogramPoint, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectPeriodogramSQL, runID)
	if err != nil {
		err = fmt.Errorf("querying periodogram: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var p PeriodogramPoint
		if err = rows.Scan(&p.Index, &p.Period, &p.Power, &p.Depth, &p.TransitTime); err != nil {
			err = fmt.Errorf("scanning periodogram point: %w", err)
			return
		}
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating periodogram: %w", err)
	}
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
		}

		if s.readDB != nil && s.readDB != s.writeDB {
			readErr = s.readDB.Close()
		}
		s.writeDB, s.readDB = nil, nil

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}

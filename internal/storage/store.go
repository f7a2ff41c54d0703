package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/transit-search/internal/bls"
)

// Store persists transit search results so candidates can be ranked across
// targets and runs.
type Store interface {
	// CreateRun records the summary of a search run and returns its
	// identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - run: Run summary; ID and CreatedAt are ignored
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	CreateRun(ctx context.Context, run *RunRecord, config any) (runID int64, err error)

	// StorePeriodogram saves every evaluated grid period of a run in a
	// single transaction.
	StorePeriodogram(ctx context.Context, runID int64, pg *bls.Periodogram) error

	// Run retrieves a stored run by its ID.
	Run(ctx context.Context, id int64) (*RunRecord, error)

	// Runs returns stored runs ordered by best power, strongest first.
	// Options narrow the result, see WithTarget, WithMinPower and WithLimit.
	Runs(ctx context.Context, opts ...ReaderOption) ([]*RunRecord, error)

	// Periodogram returns the stored grid points of a run ordered by index.
	Periodogram(ctx context.Context, runID int64) ([]PeriodogramPoint, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}

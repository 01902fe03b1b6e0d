package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/store"
)

// ingestionLockKey is the advisory lock id shared by every ingest process.
const ingestionLockKey int64 = 0x636c696e6963

// AdvisoryLocker holds a session-level advisory lock on a dedicated
// connection for the duration of an ingestion run.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
	log  zerolog.Logger

	mu   sync.Mutex
	conn *pgxpool.Conn
}

var _ store.Locker = (*AdvisoryLocker)(nil)

// NewAdvisoryLocker creates a locker on pool.
func NewAdvisoryLocker(pool *pgxpool.Pool, logger zerolog.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, log: logger}
}

func (l *AdvisoryLocker) Lock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return store.ErrLocked
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, ingestionLockKey).Scan(&acquired); err != nil {
		conn.Release()
		return fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return store.ErrLocked
	}

	l.conn = conn
	l.log.Info().Msg("Ingestion lock acquired")
	return nil
}

func (l *AdvisoryLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Release()
		l.conn = nil
	}()

	if _, err := l.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, ingestionLockKey); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	l.log.Info().Msg("Ingestion lock released")
	return nil
}

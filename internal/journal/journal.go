// Package journal appends relationship and broadcast events to an audit log.
// The log is write-only; nothing is restored from it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/geopal/core/logger"
)

// Kind names a journaled event.
type Kind string

const (
	RequestSent     Kind = "request_sent"
	RequestReplaced Kind = "request_replaced"
	RequestAccepted Kind = "request_accepted"
	RequestDeclined Kind = "request_declined"
	FriendRemoved   Kind = "friend_removed"
	LocationShared  Kind = "location_shared"
)

// Entry is one audit row.
type Entry struct {
	Kind       Kind      `db:"kind"`
	Actor      int64     `db:"actor_id"`
	Peer       int64     `db:"peer_id"`
	Comment    string    `db:"comment"`
	Place      string    `db:"place"`
	Recipients int       `db:"recipients"`
	At         time.Time `db:"created_at"`
}

// Writer appends entries.
type Writer interface {
	Append(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Append(context.Context, Entry) error { return nil }

const insertEntry = `INSERT INTO relationship_events
	(kind, actor_id, peer_id, comment, place, recipients, created_at)
	VALUES (:kind, :actor_id, :peer_id, :comment, :place, :recipients, :created_at)`

// AppendTimeout bounds a single insert.
const AppendTimeout = 3 * time.Second

type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Postgres writes entries into the relationship_events table.
type Postgres struct {
	db      namedExecer
	now     func() time.Time
	timeout time.Duration
}

// NewPostgres binds a writer to db.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, now: time.Now, timeout: AppendTimeout}
}

// Append inserts e, stamping it when At is zero.
func (p *Postgres) Append(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = p.now().UTC()
	}
	start := time.Now()
	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.db.NamedExecContext(execCtx, insertEntry, e); err != nil {
		return fmt.Errorf("journal: append %s: %w", e.Kind, err)
	}
	logger.Debug(ctx, "journal", "journal.append",
		slog.String("kind", string(e.Kind)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// Record appends e and logs instead of returning the error; journaling never
// fails a user-facing operation.
func Record(ctx context.Context, w Writer, e Entry) {
	if w == nil {
		return
	}
	if err := w.Append(ctx, e); err != nil {
		logger.Warn(ctx, "journal", "journal.append",
			slog.String("status", "fail"),
			slog.String("kind", string(e.Kind)),
			slog.String("err", err.Error()),
		)
	}
}

package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"focustriage/pkg/logx"

	_ "modernc.org/sqlite"
)

type Options struct {
	Path        string
	BusyTimeout time.Duration
	Log         logx.Logger
	// Now stamps ObservedAt; defaults to time.Now.
	Now func() time.Time
}

// Reader yields records newer than a cursor. Each call opens its own
// read-only connection so the OS-owned file is never held open between polls.
type Reader struct {
	path    string
	busy    time.Duration
	log     logx.Logger
	now     func() time.Time
	decoder Decoder

	mu     sync.Mutex
	schema *schema
}

func NewReader(opts Options) *Reader {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "source"))
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 2 * time.Second
	}
	path := strings.TrimSpace(opts.Path)
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return &Reader{
		path:    path,
		busy:    busy,
		log:     log,
		now:     now,
		decoder: NewDecoder(log),
	}
}

func (r *Reader) Path() string { return r.path }

func (r *Reader) dsn() string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", r.busy.Milliseconds()))
	u := url.URL{Scheme: "file", Path: r.path, RawQuery: q.Encode()}
	return u.String()
}

func (r *Reader) open() (*sql.DB, error) {
	if strings.TrimSpace(r.path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNotFound)
	}
	if _, err := os.Stat(r.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, r.path)
		}
		return nil, fmt.Errorf("stat notification DB %s: %w", r.path, err)
	}
	db, err := sql.Open("sqlite", r.dsn())
	if err != nil {
		return nil, fmt.Errorf("open notification DB %s: %w", r.path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// resolve returns the memoized schema, probing on first success.
// A failed probe is not cached; the next call probes again.
func (r *Reader) resolve(ctx context.Context, db *sql.DB) (schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schema != nil {
		return *r.schema, nil
	}

	var lastErr error
	for _, s := range schemas {
		rows, err := db.QueryContext(ctx, s.Since, int64(math.MaxInt64))
		if err != nil {
			lastErr = err
			continue
		}
		err = rows.Close()
		if err != nil {
			lastErr = err
			continue
		}
		sc := s
		r.schema = &sc
		r.log.Info("notification DB schema detected", logx.String("schema", s.Name), logx.String("path", r.path))
		return sc, nil
	}
	if lastErr != nil {
		return schema{}, fmt.Errorf("%w: %v", ErrSchemaUnknown, lastErr)
	}
	return schema{}, ErrSchemaUnknown
}

// Schema reports the detected layout name ("current" or "legacy").
func (r *Reader) Schema(ctx context.Context) (string, error) {
	db, err := r.open()
	if err != nil {
		return "", err
	}
	defer db.Close()
	s, err := r.resolve(ctx, db)
	if err != nil {
		return "", err
	}
	return s.Name, nil
}

// ReadNew returns every record with ID > since, ascending by ID.
func (r *Reader) ReadNew(ctx context.Context, since int64) ([]Record, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	s, err := r.resolve(ctx, db)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, s.Since, since)
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", s.Name, err)
	}
	defer rows.Close()

	now := r.now()
	var out []Record
	for rows.Next() {
		var (
			id     int64
			data   []byte
			appKey sql.NullString
		)
		if err := rows.Scan(&id, &data, &appKey); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", s.Name, err)
		}
		p := r.decoder.Decode(data)
		out = append(out, Record{
			ID:         id,
			AppKey:     appKey.String,
			Title:      p.Title,
			Body:       p.Body,
			Subtitle:   p.Subtitle,
			ObservedAt: now,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", s.Name, err)
	}
	return out, nil
}

// LatestID returns the largest record ID, or 0 for an empty log.
func (r *Reader) LatestID(ctx context.Context) (int64, error) {
	db, err := r.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	s, err := r.resolve(ctx, db)
	if err != nil {
		return 0, err
	}
	var latest sql.NullInt64
	if err := db.QueryRowContext(ctx, s.Max).Scan(&latest); err != nil {
		return 0, fmt.Errorf("query %s max id: %w", s.Name, err)
	}
	return latest.Int64, nil
}

package db

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"hullbridge/vhacd"
)

// ErrNotFound is returned when no run matches.
var ErrNotFound = errors.New("db: run not found")

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID            string // uuid, assigned by InsertRun when empty
	MeshName      string
	MeshHash      string
	ParamsHash    string
	Backend       string
	Outcome       string // vhacd.Outcome.String()
	ErrorMessage  string
	PointCount    uint32
	TriangleCount uint32
	HullCount     int
	Duration      time.Duration
	CreatedAt     time.Time
}

// Repository reads and writes decomposition history.
type Repository struct {
	db *Database
}

// NewRepository wraps an open Database.
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// InsertRun stores rec and its hulls in one transaction and returns the run
// ID. Only completed runs should carry hulls; the cache serves those alone.
func (r *Repository) InsertRun(ctx context.Context, rec RunRecord, hulls []*vhacd.ConvexHull) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.HullCount = len(hulls)

	err := r.db.withConn(func(conn *sql.DB) (err error) {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if err != nil {
				err = multierr.Append(err, ignoreDone(tx.Rollback()))
			}
		}()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO runs (
				id, mesh_name, mesh_hash, params_hash, backend, outcome,
				error_message, point_count, triangle_count, hull_count,
				duration_ms, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.MeshName, rec.MeshHash, rec.ParamsHash, rec.Backend, rec.Outcome,
			rec.ErrorMessage, rec.PointCount, rec.TriangleCount, rec.HullCount,
			rec.Duration.Milliseconds(), rec.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO hulls (run_id, idx, points, triangles, volume, center_x, center_y, center_z)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare hull insert: %w", err)
		}
		defer stmt.Close()

		for i, h := range hulls {
			_, err = stmt.ExecContext(ctx, rec.ID, i,
				encodeFloat64s(h.Points), encodeInt32s(h.Triangles),
				h.Volume, h.Center[0], h.Center[1], h.Center[2])
			if err != nil {
				return fmt.Errorf("failed to insert hull %d: %w", i, err)
			}
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit run: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

const runColumns = `id, mesh_name, mesh_hash, params_hash, backend, outcome, error_message,
	point_count, triangle_count, hull_count, duration_ms, created_at`

func scanRun(row interface{ Scan(...any) error }) (RunRecord, error) {
	var (
		rec        RunRecord
		durationMS int64
		createdMS  int64
	)
	err := row.Scan(&rec.ID, &rec.MeshName, &rec.MeshHash, &rec.ParamsHash, &rec.Backend,
		&rec.Outcome, &rec.ErrorMessage, &rec.PointCount, &rec.TriangleCount, &rec.HullCount,
		&durationMS, &createdMS)
	if err != nil {
		return RunRecord{}, err
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = time.UnixMilli(createdMS)
	return rec, nil
}

// GetRun loads one run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (RunRecord, error) {
	var rec RunRecord
	err := r.db.withConn(func(conn *sql.DB) error {
		var err error
		rec, err = scanRun(conn.QueryRowContext(ctx,
			`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return rec, nil
}

// FindCompletedRun returns the newest completed run for the same mesh,
// parameters and backend, or ErrNotFound.
func (r *Repository) FindCompletedRun(ctx context.Context, meshHash, paramsHash, backend string) (RunRecord, error) {
	var rec RunRecord
	err := r.db.withConn(func(conn *sql.DB) error {
		var err error
		rec, err = scanRun(conn.QueryRowContext(ctx, `
			SELECT `+runColumns+` FROM runs
			WHERE mesh_hash = ? AND params_hash = ? AND backend = ? AND outcome = ?
			ORDER BY created_at DESC LIMIT 1`,
			meshHash, paramsHash, backend, vhacd.OutcomeCompleted.String()))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to query cache: %w", err)
	}
	return rec, nil
}

// LoadHulls returns the hulls stored for a run in index order.
func (r *Repository) LoadHulls(ctx context.Context, runID string) ([]*vhacd.ConvexHull, error) {
	var hulls []*vhacd.ConvexHull
	err := r.db.withConn(func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT points, triangles, volume, center_x, center_y, center_z
			FROM hulls WHERE run_id = ? ORDER BY idx`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var points, triangles []byte
			h := &vhacd.ConvexHull{}
			if err := rows.Scan(&points, &triangles, &h.Volume, &h.Center[0], &h.Center[1], &h.Center[2]); err != nil {
				return err
			}
			if h.Points, err = decodeFloat64s(points); err != nil {
				return err
			}
			if h.Triangles, err = decodeInt32s(triangles); err != nil {
				return err
			}
			hulls = append(hulls, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load hulls for run %s: %w", runID, err)
	}
	return hulls, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means 20.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []RunRecord
	err := r.db.withConn(func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRun(rows)
			if err != nil {
				return err
			}
			runs = append(runs, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func encodeFloat64s(v []float64) []byte {
	out := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(f))
	}
	return out
}

func decodeFloat64s(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("point blob of %d bytes is not a float64 array", len(b))
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}

func encodeInt32s(v []int32) []byte {
	out := make([]byte, len(v)*4)
	for i, n := range v {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(n))
	}
	return out
}

func decodeInt32s(b []byte) ([]int32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("triangle blob of %d bytes is not an int32 array", len(b))
	}
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

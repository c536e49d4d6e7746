package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelfield.ai/internal/sim/tuning"
	"voxelfield.ai/internal/sim/world"
)

var ErrNoBake = errors.New("no bake recorded for config")

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick atomic.Uint64
	dropBake atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqBake
	reqSync
)

type req struct {
	kind reqKind

	tick world.TickLogEntry
	bake BakeRecord
	done chan struct{}
}

// BakeRecord is one generation run (or cache hit) of the volume.
type BakeRecord struct {
	ConfigHash string
	Seed       int64
	Size       int
	Passes     int
	Solver     string
	Digest     string
	Solid      int
	Open       int
	MaxLight   int
	Millis     int64
	Path       string
	Cached     bool
	RecordedAt string
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTickTotal uint64
	DropBakeTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// 60 Hz trace rows; a few seconds of stall fit in the buffer.
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tunings (
			config_hash TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS bakes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			config_hash TEXT NOT NULL,
			seed INTEGER NOT NULL,
			size INTEGER NOT NULL,
			passes INTEGER NOT NULL,
			solver TEXT NOT NULL,
			digest TEXT NOT NULL,
			solid INTEGER NOT NULL,
			open INTEGER NOT NULL,
			max_light INTEGER NOT NULL,
			millis INTEGER NOT NULL,
			path TEXT NOT NULL,
			cached INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bakes_config ON bakes(config_hash, id);`,
		`CREATE TABLE IF NOT EXISTS camera_ticks (
			tick INTEGER PRIMARY KEY,
			captured INTEGER NOT NULL,
			inputs INTEGER NOT NULL,
			eye_x REAL NOT NULL,
			eye_y REAL NOT NULL,
			eye_z REAL NOT NULL,
			raw_json TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTickTotal: s.dropTick.Load(),
		DropBakeTotal: s.dropBake.Load(),
	}
}

// WriteTick indexes a camera trace entry. It never blocks the world loop.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; the JSONL trace remains the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordBake(r BakeRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	if r.RecordedAt == "" {
		r.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.ch <- req{kind: reqBake, bake: r}:
	default:
		s.dropBake.Add(1)
	}
}

// Sync waits until everything queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LatestBake returns the newest non-cached bake for a config hash.
func (s *SQLiteIndex) LatestBake(ctx context.Context, configHash string) (BakeRecord, error) {
	var r BakeRecord
	var cached int
	err := s.db.QueryRowContext(ctx, `SELECT config_hash,seed,size,passes,solver,digest,solid,open,max_light,millis,path,cached,recorded_at
		FROM bakes WHERE config_hash=? AND cached=0 ORDER BY id DESC LIMIT 1`, configHash).Scan(
		&r.ConfigHash, &r.Seed, &r.Size, &r.Passes, &r.Solver, &r.Digest,
		&r.Solid, &r.Open, &r.MaxLight, &r.Millis, &r.Path, &cached, &r.RecordedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrNoBake, configHash)
	}
	r.Cached = cached != 0
	return r, err
}

// UpsertTuning stores the tuning actually applied, keyed by its field hash.
func (s *SQLiteIndex) UpsertTuning(ctx context.Context, t tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO tunings(config_hash,json,updated_at) VALUES(?,?,?)`,
		t.Field.Hash(), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO camera_ticks(tick,captured,inputs,eye_x,eye_y,eye_z,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertBake, _ := s.db.Prepare(`INSERT INTO bakes(config_hash,seed,size,passes,solver,digest,solid,open,max_light,millis,path,cached,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertBake != nil {
			_ = insertBake.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 600
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	handle := func(r req) {
		if r.kind == reqSync {
			commit()
			close(r.done)
			return
		}
		begin()
		if tx == nil {
			return
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			raw, _ := json.Marshal(e)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					int64(e.Tick),
					boolInt(e.Captured),
					e.Inputs,
					float64(e.Eye[0]), float64(e.Eye[1]), float64(e.Eye[2]),
					string(raw),
				); err != nil {
					rollback()
					return
				}
				opCount++
			}

		case reqBake:
			b := r.bake
			if insertBake != nil {
				if _, err := tx.Stmt(insertBake).Exec(
					b.ConfigHash,
					b.Seed,
					b.Size,
					b.Passes,
					b.Solver,
					b.Digest,
					b.Solid,
					b.Open,
					b.MaxLight,
					b.Millis,
					b.Path,
					boolInt(b.Cached),
					b.RecordedAt,
				); err != nil {
					rollback()
					return
				}
				opCount++
			}
			commit()
		}
		flushIfNeeded()
	}

	// The single connection is held by an open tx; the ticker bounds how long
	// readers wait on an idle queue.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			handle(r)
		case <-ticker.C:
			flushIfNeeded()
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

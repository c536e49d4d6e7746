package r2s3

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
)

type Stats struct {
	Pending            int64
	UploadSuccessTotal uint64
	UploadFailTotal    uint64
	LastSuccessUnix    int64
	LastErrorUnix      int64
}

// Mirror copies files under dataDir to the bucket, keyed by their path
// relative to dataDir. A nil *Mirror is a no-op.
type Mirror struct {
	client  *Client
	dataDir string
	prefix  string
	logger  *log.Logger
	pool    pond.Pool

	closed   atomic.Bool
	pending  atomic.Int64
	okTotal  atomic.Uint64
	errTotal atomic.Uint64
	lastOK   atomic.Int64
	lastErr  atomic.Int64

	attempts int
	backoff  time.Duration
}

func NewMirror(client *Client, dataDir, prefix string, workers int, logger *log.Logger) *Mirror {
	if workers <= 0 {
		workers = 1
	}
	return &Mirror{
		client:   client,
		dataDir:  dataDir,
		prefix:   strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/"),
		logger:   logger,
		pool:     pond.NewPool(workers),
		attempts: 4,
		backoff:  200 * time.Millisecond,
	}
}

// FromEnv builds a mirror from VF_R2_* variables. It returns nil when
// VF_R2_MIRROR is unset or false.
func FromEnv(dataDir string, logger *log.Logger) (*Mirror, error) {
	if on, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("VF_R2_MIRROR"))); !on {
		return nil, nil
	}
	client, err := New(
		os.Getenv("VF_R2_ENDPOINT"),
		os.Getenv("VF_R2_BUCKET"),
		os.Getenv("VF_R2_ACCESS_KEY_ID"),
		os.Getenv("VF_R2_SECRET_ACCESS_KEY"),
	)
	if err != nil {
		return nil, fmt.Errorf("VF_R2_MIRROR=true: %w", err)
	}
	workers, _ := strconv.Atoi(strings.TrimSpace(os.Getenv("VF_R2_UPLOAD_WORKERS")))
	return NewMirror(client, dataDir, os.Getenv("VF_R2_PREFIX"), workers, logger), nil
}

// Enqueue schedules localPath for upload. It never blocks on the network.
func (m *Mirror) Enqueue(localPath string) {
	if m == nil || m.closed.Load() {
		return
	}
	key, err := m.objectKey(localPath)
	if err != nil {
		m.printf("r2 mirror skip local=%s err=%v", localPath, err)
		return
	}
	m.pending.Add(1)
	m.pool.Submit(func() {
		defer m.pending.Add(-1)
		m.upload(key, localPath)
	})
}

// Close waits for queued uploads to finish.
func (m *Mirror) Close() {
	if m == nil || m.closed.Swap(true) {
		return
	}
	m.pool.StopAndWait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		Pending:            m.pending.Load(),
		UploadSuccessTotal: m.okTotal.Load(),
		UploadFailTotal:    m.errTotal.Load(),
		LastSuccessUnix:    m.lastOK.Load(),
		LastErrorUnix:      m.lastErr.Load(),
	}
}

func (m *Mirror) upload(key, localPath string) {
	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.client.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			break
		}
		if attempt < m.attempts {
			time.Sleep(time.Duration(attempt*attempt) * m.backoff)
		}
	}
	if err != nil {
		m.errTotal.Add(1)
		m.lastErr.Store(time.Now().Unix())
		m.printf("r2 mirror upload failed key=%s err=%v", key, err)
		return
	}
	m.okTotal.Add(1)
	m.lastOK.Store(time.Now().Unix())
	m.printf("r2 mirror uploaded key=%s", key)
}

func (m *Mirror) objectKey(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty local path")
	}
	absBase, err := filepath.Abs(m.dataDir)
	if err != nil {
		return "", err
	}
	absLocal, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absLocal)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside data dir %s", absLocal, absBase)
	}
	if m.prefix != "" {
		rel = path.Join(m.prefix, rel)
	}
	return rel, nil
}

func (m *Mirror) printf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

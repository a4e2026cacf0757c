package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"silkstaff/internal/services"
	"silkstaff/internal/tableapi"
	"silkstaff/internal/upload"
)

type fakeTables struct {
	mu        sync.Mutex
	platforms []string
	count     int
	rows      []tableapi.Row
	upserts   []tableapi.Upsert
	// failUpsert fails the n-th upsert call (1-based) when positive.
	failUpsert int
	upsertSeen int
	countCalls int
	pageCalls  []int
}

func (f *fakeTables) Rows(_ context.Context, _ string, q tableapi.Query) ([]tableapi.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, q.Page)
	start := q.Page * q.Limit
	if start >= len(f.rows) {
		return nil, nil
	}
	end := min(start+q.Limit, len(f.rows))
	return append([]tableapi.Row(nil), f.rows[start:end]...), nil
}

func (f *fakeTables) Count(context.Context, string, tableapi.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	return f.count, nil
}

func (f *fakeTables) Upsert(_ context.Context, _ string, u tableapi.Upsert) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertSeen++
	if f.failUpsert > 0 && f.upsertSeen == f.failUpsert {
		return nil, &tableapi.StatusError{Method: "PUT", URL: "/row", Code: 502}
	}
	f.upserts = append(f.upserts, u)
	return json.RawMessage(`{"ok":true}`), nil
}

func (f *fakeTables) Values(context.Context, string, string) ([]string, error) {
	return f.platforms, nil
}

type fakeUploader struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath, displayName string) (upload.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := filepath.Base(localPath)
	f.calls = append(f.calls, base)
	if f.fail[base] {
		return upload.Result{}, services.Wrap(services.ErrTransient, "upload", "patch", base, errors.New("connection reset"))
	}
	return upload.Result{Name: "id-" + base, URL: "https://static.example/id-" + base}, nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.delays {
		if got == d {
			n++
		}
	}
	return n
}

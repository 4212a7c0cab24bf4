package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

// fakeStorage serves documents from memory, keyed by storage path.
type fakeStorage struct {
	files map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: map[string][]byte{}}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.files[key] = raw
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.files[key]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *fakeStorage) Stat(_ context.Context, key string) (int64, error) {
	raw, ok := s.files[key]
	if !ok {
		return 0, errors.New("no such file")
	}
	return int64(len(raw)), nil
}

// fakePageCounter returns a fixed count or error.
type fakePageCounter struct {
	pages int
	err   error
}

func (c *fakePageCounter) CountPages(context.Context, domain.ProcessingRequest) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.pages, nil
}

// fakeEngine replays a scripted sequence of results; the last entry repeats.
type fakeEngine struct {
	mu      sync.Mutex
	script  []engineStep
	calls   int
	lastReq domain.ProcessingRequest
}

type engineStep struct {
	result *domain.EngineResult
	err    error
}

func (e *fakeEngine) Analyze(_ context.Context, req domain.ProcessingRequest) (*domain.EngineResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastReq = req
	step := engineStep{err: errors.New("no script")}
	if len(e.script) > 0 {
		idx := e.calls
		if idx >= len(e.script) {
			idx = len(e.script) - 1
		}
		step = e.script[idx]
	}
	e.calls++
	return step.result, step.err
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeLedger keeps in-memory totals and records Record/suspend calls.
type fakeLedger struct {
	mu        sync.Mutex
	daily     float64
	monthly   float64
	readErr   error
	suspended bool
	records   []ledgerEntry
	alerted   map[string]bool
}

type ledgerEntry struct {
	engine domain.EngineID
	pages  int
	cost   float64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{alerted: map[string]bool{}}
}

func (l *fakeLedger) Record(_ context.Context, engine domain.EngineID, pages int, cost float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, ledgerEntry{engine: engine, pages: pages, cost: cost})
	l.daily += cost
	l.monthly += cost
	return nil
}

func (l *fakeLedger) DailyTotal(context.Context, string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return 0, l.readErr
	}
	return l.daily, nil
}

func (l *fakeLedger) MonthlyTotal(context.Context, string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return 0, l.readErr
	}
	return l.monthly, nil
}

func (l *fakeLedger) SuspendCloud(context.Context, time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspended = true
	return nil
}

func (l *fakeLedger) CloudSuspended(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suspended, nil
}

func (l *fakeLedger) MarkAlerted(_ context.Context, period domain.BudgetPeriodKind, severity domain.AlertSeverity) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := string(period) + "/" + string(severity)
	if l.alerted[key] {
		return false, nil
	}
	l.alerted[key] = true
	return true, nil
}

// fakeRecordStore captures usage records and saved outcomes.
type fakeRecordStore struct {
	mu       sync.Mutex
	records  []domain.UsageRecord
	outcomes map[string]domain.ProcessingOutcome
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{outcomes: map[string]domain.ProcessingOutcome{}}
}

func (s *fakeRecordStore) Append(_ context.Context, rec domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeRecordStore) SaveOutcome(_ context.Context, documentID string, outcome domain.ProcessingOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[documentID] = outcome
	return nil
}

// fakeAlertSink collects emitted alerts.
type fakeAlertSink struct {
	mu     sync.Mutex
	alerts []domain.BudgetAlert
	err    error
}

func (s *fakeAlertSink) Emit(_ context.Context, alert domain.BudgetAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func goodResult(engine domain.EngineID, confidence float64) *domain.EngineResult {
	return &domain.EngineResult{
		Engine:          engine,
		Text:            "FULL NAME JOHN DOE DOCUMENT 12345",
		LineConfidences: []float64{confidence, confidence},
		AvgConfidence:   confidence,
		Pages:           1,
	}
}

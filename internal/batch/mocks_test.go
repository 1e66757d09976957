package batch

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/events"
	"github.com/fennwald/triage-api/internal/extraction"
	"github.com/fennwald/triage-api/internal/store"
)

// mockMessageStore implements store.MessageStore with function fields.
type mockMessageStore struct {
	GetUnprocessedInWindowFunc func(ctx context.Context, conversationID int64, start, end time.Time) ([]*domain.Message, error)
	MarkProcessedFunc          func(ctx context.Context, ids []int64) (int64, error)

	mu            sync.Mutex
	markedIDs     []int64
	markProcessed int
}

func (m *mockMessageStore) Create(ctx context.Context, msg *domain.Message) error { return nil }

func (m *mockMessageStore) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	return nil, store.ErrMessageNotFound
}

func (m *mockMessageStore) GetUnprocessedInWindow(ctx context.Context, conversationID int64, start, end time.Time) ([]*domain.Message, error) {
	if m.GetUnprocessedInWindowFunc != nil {
		return m.GetUnprocessedInWindowFunc(ctx, conversationID, start, end)
	}
	return nil, nil
}

func (m *mockMessageStore) MarkProcessed(ctx context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	m.markedIDs = append(m.markedIDs, ids...)
	m.markProcessed++
	m.mu.Unlock()
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *mockMessageStore) ConversationsWithUnprocessed(ctx context.Context, start, end time.Time) ([]int64, error) {
	return nil, nil
}

func (m *mockMessageStore) ListConversations(ctx context.Context) ([]int64, error) {
	return nil, nil
}

func (m *mockMessageStore) WithTx(tx *sql.Tx) store.MessageStore { return m }

// mockTaskStore implements store.TaskStore with function fields.
type mockTaskStore struct {
	CreateFunc func(ctx context.Context, task *domain.ExtractedTask) error

	mu      sync.Mutex
	created []*domain.ExtractedTask
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.ExtractedTask) error {
	m.mu.Lock()
	m.created = append(m.created, task)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedTask, error) {
	return nil, store.ErrTaskNotFound
}

func (m *mockTaskStore) ListByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.ExtractedTask, error) {
	return nil, nil
}

func (m *mockTaskStore) ListByCreatedDate(ctx context.Context, conversationID int64, date time.Time) ([]*domain.ExtractedTask, error) {
	return nil, nil
}

func (m *mockTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return m }

// mockItemStore implements store.ItemStore with function fields.
type mockItemStore struct {
	CreateFunc func(ctx context.Context, item *domain.PrioritizationItem) error

	mu      sync.Mutex
	created []*domain.PrioritizationItem
}

func (m *mockItemStore) Create(ctx context.Context, item *domain.PrioritizationItem) error {
	m.mu.Lock()
	m.created = append(m.created, item)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, item)
	}
	return nil
}

func (m *mockItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PrioritizationItem, error) {
	return nil, store.ErrItemNotFound
}

func (m *mockItemStore) ListPendingForConversation(ctx context.Context, conversationID int64) ([]*domain.PrioritizationItem, error) {
	return nil, nil
}

func (m *mockItemStore) ListByCreatedDate(ctx context.Context, conversationID int64, date time.Time) ([]*domain.PrioritizationItem, error) {
	return nil, nil
}

func (m *mockItemStore) SetPriority(ctx context.Context, id uuid.UUID, priority domain.Priority) error {
	return nil
}

func (m *mockItemStore) MarkExported(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockItemStore) MarkDiscarded(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockItemStore) WithTx(tx *sql.Tx) store.ItemStore { return m }

// mockExtractor implements extraction.Extractor.
type mockExtractor struct {
	ExtractFunc func(ctx context.Context, req extraction.Request) ([]extraction.ExtractedItem, error)

	mu    sync.Mutex
	calls int
	last  extraction.Request
}

func (m *mockExtractor) Extract(ctx context.Context, req extraction.Request) ([]extraction.ExtractedItem, error) {
	m.mu.Lock()
	m.calls++
	m.last = req
	m.mu.Unlock()
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, req)
	}
	return nil, errors.New("no extract func configured")
}

// mockEmitter records emitted events.
type mockEmitter struct {
	mu     sync.Mutex
	events []*events.Event
}

func (m *mockEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return nil
}

// noopDriver is a database/sql driver whose transactions succeed without a
// server. The orchestrator's stores are mocked, so the only calls that
// reach the driver are BeginTx and Commit.
type noopDriver struct{}

func (noopDriver) Open(name string) (driver.Conn, error) { return &noopConn{}, nil }

type noopConn struct{}

func (*noopConn) Prepare(query string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (*noopConn) Close() error                              { return nil }
func (*noopConn) Begin() (driver.Tx, error)                 { return noopTx{}, nil }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

var registerNoopDriver sync.Once

// newNoopDB returns a *sql.DB whose transactions always commit.
func newNoopDB() *sql.DB {
	registerNoopDriver.Do(func() {
		sql.Register("batch-noop", noopDriver{})
	})
	db, err := sql.Open("batch-noop", "")
	if err != nil {
		panic(err)
	}
	return db
}

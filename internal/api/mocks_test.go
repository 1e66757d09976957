package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fennwald/triage-api/internal/config"
	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/staff"
	"github.com/fennwald/triage-api/internal/store"
)

// fakeMessageStore assigns IDs on create like the real store does.
type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []*domain.Message

	createErr error
}

func (f *fakeMessageStore) Create(ctx context.Context, msg *domain.Message) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg.ID = f.nextID
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMessageStore) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, store.ErrMessageNotFound
}

func (f *fakeMessageStore) GetUnprocessedInWindow(ctx context.Context, conversationID int64, start, end time.Time) ([]*domain.Message, error) {
	return nil, nil
}

func (f *fakeMessageStore) MarkProcessed(ctx context.Context, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

func (f *fakeMessageStore) ConversationsWithUnprocessed(ctx context.Context, start, end time.Time) ([]int64, error) {
	return nil, nil
}

func (f *fakeMessageStore) ListConversations(ctx context.Context) ([]int64, error) {
	return nil, nil
}

func (f *fakeMessageStore) WithTx(tx *sql.Tx) store.MessageStore { return f }

// fakeStaffStore answers membership checks from a static set.
type fakeStaffStore struct {
	usernames map[string]struct{}
	err       error
}

func (f *fakeStaffStore) IsMember(ctx context.Context, username string, userID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.usernames[username]
	return ok, nil
}

func (f *fakeStaffStore) Add(ctx context.Context, ident domain.StaffIdentity) error { return nil }

func (f *fakeStaffStore) WithTx(tx *sql.Tx) store.StaffStore { return f }

// fakeItemStore mirrors the guarded transition behavior of the postgres
// store for handler tests.
type fakeItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.PrioritizationItem
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: make(map[uuid.UUID]*domain.PrioritizationItem)}
}

func (f *fakeItemStore) Create(ctx context.Context, item *domain.PrioritizationItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PrioritizationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (f *fakeItemStore) ListPendingForConversation(ctx context.Context, conversationID int64) ([]*domain.PrioritizationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PrioritizationItem
	for _, item := range f.items {
		if item.ConversationID == conversationID && item.State == domain.ItemStatePending {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeItemStore) ListByCreatedDate(ctx context.Context, conversationID int64, date time.Time) ([]*domain.PrioritizationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PrioritizationItem
	for _, item := range f.items {
		if item.ConversationID == conversationID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeItemStore) SetPriority(ctx context.Context, id uuid.UUID, priority domain.Priority) error {
	return f.transition(id, func(item *domain.PrioritizationItem) error {
		return item.SetPriority(priority)
	})
}

func (f *fakeItemStore) MarkExported(ctx context.Context, id uuid.UUID) error {
	return f.transition(id, func(item *domain.PrioritizationItem) error {
		return item.MarkExported()
	})
}

func (f *fakeItemStore) MarkDiscarded(ctx context.Context, id uuid.UUID) error {
	return f.transition(id, func(item *domain.PrioritizationItem) error {
		return item.Discard()
	})
}

func (f *fakeItemStore) transition(id uuid.UUID, fn func(*domain.PrioritizationItem) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	if err := fn(item); err != nil {
		return store.ErrInvalidTransition
	}
	return nil
}

func (f *fakeItemStore) WithTx(tx *sql.Tx) store.ItemStore { return f }

// fakeTaskStore serves a fixed set of tasks.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.ExtractedTask
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.ExtractedTask)}
}

func (f *fakeTaskStore) Create(ctx context.Context, task *domain.ExtractedTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (f *fakeTaskStore) ListByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.ExtractedTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ExtractedTask
	for _, task := range f.tasks {
		if task.ConversationID == conversationID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListByCreatedDate(ctx context.Context, conversationID int64, date time.Time) ([]*domain.ExtractedTask, error) {
	return nil, nil
}

func (f *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return f }

// mockExporter records handler-driven exports.
type mockExporter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockExporter) Export(ctx context.Context, item domain.PrioritizationItem, contextLinks []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newStaffDirectory builds a directory whose static allow-list contains the
// given usernames.
func newStaffDirectory(usernames ...string) *staff.Directory {
	return staff.NewDirectory(
		config.StaffConfig{Usernames: usernames},
		&fakeStaffStore{usernames: map[string]struct{}{}},
		testLogger(),
	)
}

// newStaffDirectoryWithIDs builds a directory from a numeric allow-list.
func newStaffDirectoryWithIDs(userIDs ...int64) *staff.Directory {
	return staff.NewDirectory(
		config.StaffConfig{UserIDs: userIDs},
		&fakeStaffStore{usernames: map[string]struct{}{}},
		testLogger(),
	)
}

// failingDirectory builds a directory whose store lookups always fail.
func failingDirectory() *staff.Directory {
	return staff.NewDirectory(
		config.StaffConfig{},
		&fakeStaffStore{err: errors.New("connection refused")},
		testLogger(),
	)
}

// serve routes the request through a chi router so URL parameters resolve
// the way they do in production.
func serve(t *testing.T, register func(r chi.Router), req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	register(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func requireJSON(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

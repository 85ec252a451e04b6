package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/healthtic/internal/model"
)

// fakeAPI: бэкенд в памяти. Хуки позволяют задержать или сломать отдельные вызовы.
type fakeAPI struct {
	mu       sync.Mutex
	me       int64
	contacts []model.Contact
	convs    []model.Conversation
	threads  map[int64][]model.Message
	sent     []model.Message
	marked   []int64
	nextID   int64
	clock    time.Time

	contactsErr error
	convsErr    error
	markErr     error
	fetchHook   func(withUser int64)
	convsHook   func() []model.Conversation
	sendHook    func(content string) error
}

func newFakeAPI(me int64) *fakeAPI {
	return &fakeAPI{
		me:      me,
		threads: make(map[int64][]model.Message),
		nextID:  100,
		clock:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAPI) Contacts(context.Context) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contactsErr != nil {
		return nil, f.contactsErr
	}
	return append([]model.Contact(nil), f.contacts...), nil
}

func (f *fakeAPI) Conversations(context.Context) ([]model.Conversation, error) {
	f.mu.Lock()
	hook := f.convsHook
	f.mu.Unlock()
	if hook != nil {
		if convs := hook(); convs != nil {
			return convs, nil
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convsErr != nil {
		return nil, f.convsErr
	}
	return append([]model.Conversation(nil), f.convs...), nil
}

func (f *fakeAPI) Messages(_ context.Context, withUser int64) ([]model.Message, error) {
	if f.fetchHook != nil {
		f.fetchHook(withUser)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Message(nil), f.threads[withUser]...), nil
}

func (f *fakeAPI) SendMessage(_ context.Context, receiver int64, content string) (*model.Message, error) {
	if f.sendHook != nil {
		if err := f.sendHook(content); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	m := model.Message{ID: f.nextID, Sender: f.me, Receiver: receiver, Content: content, CreatedAt: f.clock}
	f.threads[receiver] = append(f.threads[receiver], m)
	f.sent = append(f.sent, m)
	return &m, nil
}

func (f *fakeAPI) MarkAsRead(_ context.Context, contactID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, contactID)
	return f.markErr
}

func (f *fakeAPI) sentContents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Content
	}
	return out
}

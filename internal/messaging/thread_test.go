package messaging

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/healthtic/internal/apiclient"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/session"
	"github.com/healthtic/internal/storage/memory"
	"github.com/healthtic/internal/validate"
)

func loggedIn(t *testing.T, u model.User) *session.Store {
	t.Helper()
	s := session.New(memory.New(), "")
	s.Login(context.Background(), "tok", u)
	return s
}

func TestPatientSendsFirstMessage(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(11)
	api.contacts = []model.Contact{{ID: 5, Username: "house", Role: model.RoleDoctor}}
	sess := loggedIn(t, model.User{Username: "pat1", Role: model.RolePatient})
	inbox := NewInbox(api, nil, false)
	thread := NewThread(api, sess, inbox)

	if err := inbox.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	list := inbox.DisplayList()
	if len(list) != 1 || list[0].Contact.ID != 5 || list[0].Conversation != nil {
		t.Fatalf("display list before send = %+v", list)
	}

	if err := thread.Open(ctx, list[0].Contact); err != nil {
		t.Fatalf("Open: %v", err)
	}
	thread.SetDraft("Bonjour")
	msg, err := thread.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if msg.ID == 0 || thread.Draft() != "" {
		t.Errorf("canonical message not returned or draft not cleared: %+v %q", msg, thread.Draft())
	}

	list = inbox.DisplayList()
	if len(list) != 1 || list[0].Conversation == nil {
		t.Fatalf("display list after send = %+v", list)
	}
	c := list[0].Conversation
	if c.LastMessage.Content != "Bonjour" || c.UnreadCount != 0 {
		t.Errorf("conversation = %+v", c)
	}
	got := thread.Messages()
	if len(got) != 1 || got[0].ID != msg.ID {
		t.Errorf("thread = %+v", got)
	}
}

func TestMarkAsReadFailureKeepsOptimisticReset(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	doctor := model.Contact{ID: 5, Role: model.RoleDoctor}
	api.contacts = []model.Contact{doctor}
	api.convs = []model.Conversation{{Contact: doctor, UnreadCount: 3}}
	api.markErr = &apiclient.StatusError{Status: 500}
	inbox := NewInbox(api, nil, false)
	thread := NewThread(api, nil, inbox)

	if err := inbox.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if inbox.TotalUnread() != 3 {
		t.Fatalf("TotalUnread = %d", inbox.TotalUnread())
	}
	if err := thread.Open(ctx, doctor); err != nil {
		t.Fatalf("Open must not fail on mark_as_read error: %v", err)
	}
	if got := inbox.Conversations()[0].UnreadCount; got != 0 {
		t.Errorf("unread_count = %d, want 0", got)
	}
	if thread.State() != StateLoaded {
		t.Errorf("state = %v", thread.State())
	}
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	api.threads[1] = []model.Message{{ID: 1, Sender: 1, Content: "from A"}}
	api.threads[2] = []model.Message{{ID: 2, Sender: 2, Content: "from B"}}

	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	api.fetchHook = func(withUser int64) {
		if withUser == 1 {
			close(startedA)
			<-releaseA
		}
	}
	thread := NewThread(api, nil, nil)

	errA := make(chan error, 1)
	go func() { errA <- thread.Open(ctx, model.Contact{ID: 1}) }()
	<-startedA

	if err := thread.Open(ctx, model.Contact{ID: 2}); err != nil {
		t.Fatalf("Open B: %v", err)
	}
	close(releaseA)
	if err := <-errA; !errors.Is(err, ErrStale) {
		t.Fatalf("Open A = %v, want ErrStale", err)
	}

	msgs := thread.Messages()
	if len(msgs) != 1 || msgs[0].Content != "from B" {
		t.Fatalf("thread shows %+v, want B's messages", msgs)
	}
	if c, _ := thread.Contact(); c.ID != 2 {
		t.Errorf("selected contact = %d", c.ID)
	}
}

func TestSequentialSendsKeepOrderUnderJitter(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	rng := rand.New(rand.NewSource(7))
	var rngMu sync.Mutex
	api.sendHook = func(string) error {
		rngMu.Lock()
		d := time.Duration(rng.Intn(5)) * time.Millisecond
		rngMu.Unlock()
		time.Sleep(d)
		return nil
	}
	thread := NewThread(api, nil, NewInbox(api, nil, false))
	if err := thread.Open(ctx, model.Contact{ID: 9}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	const n = 20
	want := make([]string, n)
	results := make([]<-chan SendResult, n)
	for i := 0; i < n; i++ {
		want[i] = string(rune('a' + i))
		results[i] = thread.Enqueue(ctx, want[i])
	}
	for i, ch := range results {
		if r := <-ch; r.Err != nil {
			t.Fatalf("send %d: %v", i, r.Err)
		}
	}

	sent := api.sentContents()
	msgs := thread.Messages()
	if len(sent) != n || len(msgs) != n {
		t.Fatalf("sent=%d rendered=%d, want %d", len(sent), len(msgs), n)
	}
	for i := 0; i < n; i++ {
		if sent[i] != want[i] || msgs[i].Content != want[i] {
			t.Fatalf("position %d: backend %q rendered %q, want %q", i, sent[i], msgs[i].Content, want[i])
		}
		if i > 0 && msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("created_at decreases at %d", i)
		}
	}
}

func TestSubmitGuards(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	thread := NewThread(api, nil, nil)

	thread.SetDraft("hello")
	if _, err := thread.Submit(ctx); !errors.Is(err, ErrNoContact) {
		t.Fatalf("no contact: %v", err)
	}

	if err := thread.Open(ctx, model.Contact{ID: 3}); err != nil {
		t.Fatal(err)
	}
	thread.SetDraft("   \n")
	_, err := thread.Submit(ctx)
	if !errors.Is(err, ErrEmptyMessage) || !validate.IsValidation(err) {
		t.Fatalf("blank draft: %v", err)
	}
	if len(api.sentContents()) != 0 {
		t.Fatal("request sent for blank draft")
	}
}

func TestSubmitRejectsDoubleSubmit(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	entered := make(chan struct{})
	release := make(chan struct{})
	api.sendHook = func(string) error {
		close(entered)
		<-release
		return nil
	}
	thread := NewThread(api, nil, nil)
	if err := thread.Open(ctx, model.Contact{ID: 3}); err != nil {
		t.Fatal(err)
	}
	thread.SetDraft("once")

	first := make(chan error, 1)
	go func() {
		_, err := thread.Submit(ctx)
		first <- err
	}()
	<-entered
	if !thread.Sending() {
		t.Error("Sending() should be true while the request is in flight")
	}
	if _, err := thread.Submit(ctx); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("second submit: %v", err)
	}
	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if got := api.sentContents(); len(got) != 1 {
		t.Fatalf("sent %d messages, want 1", len(got))
	}
}

func TestCancelledSubmitKeepsSendInFlight(t *testing.T) {
	api := newFakeAPI(1)
	entered := make(chan struct{})
	release := make(chan struct{})
	api.sendHook = func(string) error {
		close(entered)
		<-release
		return nil
	}
	thread := NewThread(api, nil, nil)
	if err := thread.Open(context.Background(), model.Contact{ID: 3}); err != nil {
		t.Fatal(err)
	}
	thread.SetDraft("Bonjour")

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := thread.Submit(ctx)
		first <- err
	}()
	<-entered
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled submit = %v", err)
	}
	if !thread.Sending() {
		t.Fatal("send still on the backend but Sending() is false")
	}
	if _, err := thread.Submit(context.Background()); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("retry while the first send is pending = %v", err)
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for thread.Sending() {
		if time.Now().After(deadline) {
			t.Fatal("Sending() never cleared")
		}
		time.Sleep(time.Millisecond)
	}
	if got := api.sentContents(); len(got) != 1 {
		t.Fatalf("sent %v, want one message", got)
	}
	if thread.Draft() != "" {
		t.Errorf("draft kept after the send succeeded: %q", thread.Draft())
	}
	if len(thread.Messages()) != 1 {
		t.Errorf("thread = %+v", thread.Messages())
	}
}

func TestCancelledJobIsNotSent(t *testing.T) {
	api := newFakeAPI(1)
	thread := NewThread(api, nil, nil)
	if err := thread.Open(context.Background(), model.Contact{ID: 3}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := <-thread.Enqueue(ctx, "late")
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("Enqueue with cancelled ctx = %+v", res)
	}
	if got := api.sentContents(); len(got) != 0 {
		t.Errorf("cancelled message reached the backend: %v", got)
	}
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	api.sendHook = func(string) error { return &apiclient.NetworkError{Op: "send", Err: errors.New("refused")} }
	inbox := NewInbox(api, nil, false)
	thread := NewThread(api, nil, inbox)
	if err := thread.Open(ctx, model.Contact{ID: 3}); err != nil {
		t.Fatal(err)
	}
	thread.SetDraft("retry me")
	if _, err := thread.Submit(ctx); !apiclient.IsNetwork(err) {
		t.Fatalf("Submit = %v", err)
	}
	if thread.Draft() != "retry me" {
		t.Errorf("draft = %q", thread.Draft())
	}
	if len(thread.Messages()) != 0 || len(inbox.Conversations()) != 0 {
		t.Error("failed send must not touch thread or inbox")
	}
	if thread.Sending() {
		t.Error("sending flag left set")
	}
}

func TestOpenFailureLeavesIdle(t *testing.T) {
	ctx := context.Background()
	api := &failingMessages{fakeAPI: newFakeAPI(1), err: &apiclient.AuthError{Status: 401}}
	thread := NewThread(api, nil, nil)
	err := thread.Open(ctx, model.Contact{ID: 4})
	if !apiclient.IsAuth(err) {
		t.Fatalf("Open = %v", err)
	}
	if thread.State() != StateIdle || len(thread.Messages()) != 0 {
		t.Errorf("state=%v messages=%d", thread.State(), len(thread.Messages()))
	}
	if _, ok := thread.Contact(); ok {
		t.Error("failed open must not keep a selection")
	}
	if thread.Err() == nil {
		t.Error("Err() should report the failure")
	}
}

type failingMessages struct {
	*fakeAPI
	err error
}

func (f *failingMessages) Messages(context.Context, int64) ([]model.Message, error) {
	return nil, f.err
}

func TestOpenSortsAscending(t *testing.T) {
	api := newFakeAPI(1)
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	api.threads[6] = []model.Message{
		{ID: 3, CreatedAt: base.Add(2 * time.Minute)},
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(time.Minute)},
	}
	thread := NewThread(api, nil, nil)
	if err := thread.Open(context.Background(), model.Contact{ID: 6}); err != nil {
		t.Fatal(err)
	}
	for i, m := range thread.Messages() {
		if m.ID != int64(i+1) {
			t.Fatalf("position %d has id %d", i, m.ID)
		}
	}
}

func TestIsFromMe(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(7)

	withID := NewThread(api, loggedIn(t, model.User{ID: 7, Username: "doc", Role: model.RoleDoctor}), nil)
	if err := withID.Open(ctx, model.Contact{ID: 3}); err != nil {
		t.Fatal(err)
	}
	if !withID.IsFromMe(model.Message{Sender: 7, Receiver: 3}) || withID.IsFromMe(model.Message{Sender: 3, Receiver: 7}) {
		t.Error("direct comparison with session user id failed")
	}

	noID := NewThread(api, loggedIn(t, model.User{Username: "pat1", Role: model.RolePatient}), nil)
	if err := noID.Open(ctx, model.Contact{ID: 3}); err != nil {
		t.Fatal(err)
	}
	msg := model.Message{Sender: 3, Receiver: 8}
	if noID.IsFromMe(msg) {
		t.Error("message from open contact reported as mine")
	}
	if err := noID.Open(ctx, model.Contact{ID: 4}); err != nil {
		t.Fatal(err)
	}
	if !noID.IsFromMe(msg) {
		t.Error("IsFromMe must use the currently open contact, not a cached one")
	}
}

func TestReceive(t *testing.T) {
	api := newFakeAPI(1)
	thread := NewThread(api, nil, nil)
	if thread.Receive(model.Message{ID: 1, Sender: 2, Receiver: 1}) {
		t.Fatal("nothing open, message must be ignored")
	}
	if err := thread.Open(context.Background(), model.Contact{ID: 2}); err != nil {
		t.Fatal(err)
	}
	if !thread.Receive(model.Message{ID: 50, Sender: 2, Receiver: 1}) {
		t.Fatal("message for open pair rejected")
	}
	if thread.Receive(model.Message{ID: 50, Sender: 2, Receiver: 1}) {
		t.Error("duplicate id appended")
	}
	if thread.Receive(model.Message{ID: 51, Sender: 9, Receiver: 1}) {
		t.Error("message from another contact appended")
	}
	if n := len(thread.Messages()); n != 1 {
		t.Errorf("thread has %d messages", n)
	}
}

func TestMarkReadOpenThread(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	api.convs = []model.Conversation{{Contact: model.Contact{ID: 2}, UnreadCount: 1}}
	inbox := NewInbox(api, nil, false)
	thread := NewThread(api, nil, inbox)

	if err := thread.MarkRead(ctx); !errors.Is(err, ErrNoContact) {
		t.Fatalf("MarkRead without contact = %v", err)
	}
	if err := thread.Open(ctx, model.Contact{ID: 2}); err != nil {
		t.Fatal(err)
	}
	if err := inbox.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if inbox.TotalUnread() != 1 {
		t.Fatalf("setup: unread = %d", inbox.TotalUnread())
	}

	api.markErr = errors.New("boom")
	if err := thread.MarkRead(ctx); err == nil {
		t.Error("backend failure not returned")
	}
	if inbox.TotalUnread() != 0 {
		t.Errorf("local unread not reset: %d", inbox.TotalUnread())
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if n := len(api.marked); n != 2 || api.marked[1] != 2 {
		t.Errorf("mark_as_read calls = %v", api.marked)
	}
}

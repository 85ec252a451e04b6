package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/healthtic/internal/apiclient"
	"github.com/healthtic/internal/model"
)

func TestDirectoryKeepsSnapshotOnAuthError(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	api.contacts = []model.Contact{{ID: 5}}
	dir := NewDirectory(api)
	if _, err := dir.Fetch(ctx); err != nil {
		t.Fatal(err)
	}

	api.contactsErr = &apiclient.AuthError{Status: 403}
	got, err := dir.Fetch(ctx)
	if !apiclient.IsAuth(err) {
		t.Fatalf("Fetch = %v, want AuthError", err)
	}
	if len(got) != 1 || len(dir.Contacts()) != 1 {
		t.Fatal("auth failure must not be masked as an empty directory")
	}
	if c, ok := dir.Lookup(5); !ok || c.ID != 5 {
		t.Error("Lookup lost the contact")
	}
}

func TestDirectoryNotFoundIsEmpty(t *testing.T) {
	api := newFakeAPI(1)
	api.contactsErr = &apiclient.NotFoundError{Path: "/users/contacts/"}
	dir := NewDirectory(api)
	got, err := dir.Fetch(context.Background())
	if err != nil || len(got) != 0 || !dir.Loaded() {
		t.Fatalf("Fetch = %v, %v", got, err)
	}
}

func TestInboxRegionsLoadIndependently(t *testing.T) {
	api := newFakeAPI(1)
	api.contactsErr = &apiclient.NetworkError{Op: "contacts", Err: errors.New("timeout")}
	api.convs = []model.Conversation{{Contact: model.Contact{ID: 3}, UnreadCount: 2}}
	inbox := NewInbox(api, nil, false)

	if err := inbox.Load(context.Background()); !apiclient.IsNetwork(err) {
		t.Fatalf("Load = %v", err)
	}
	if inbox.ContactsState().Err == nil {
		t.Error("contacts region should carry the error")
	}
	if st := inbox.ConversationsState(); st.Err != nil || st.Loading {
		t.Errorf("conversations region = %+v", st)
	}
	if list := inbox.DisplayList(); len(list) != 1 || list[0].Contact.ID != 3 {
		t.Errorf("conversations must render without contacts: %+v", list)
	}
	if inbox.TotalUnread() != 2 {
		t.Errorf("TotalUnread = %d", inbox.TotalUnread())
	}
}

func TestInboxShowAllContacts(t *testing.T) {
	api := newFakeAPI(1)
	api.contacts = []model.Contact{{ID: 1}, {ID: 2}}
	api.convs = []model.Conversation{
		{Contact: model.Contact{ID: 2}, UnreadCount: 1},
		{Contact: model.Contact{ID: 8}},
	}
	inbox := NewInbox(api, nil, false)
	if err := inbox.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := ids(inbox.DisplayList()); !equalIDs(got, []int64{2, 8, 1}) {
		t.Errorf("merged list = %v", got)
	}

	inbox.ShowAllContacts(true)
	list := inbox.DisplayList()
	if got := ids(list); !equalIDs(got, []int64{1, 2}) {
		t.Fatalf("all-contacts list = %v", got)
	}
	if list[1].Conversation == nil || list[1].Conversation.UnreadCount != 1 {
		t.Error("contact with history should carry its conversation")
	}
}

func TestInboxConversationsNotFoundIsEmpty(t *testing.T) {
	api := newFakeAPI(1)
	api.convsErr = &apiclient.NotFoundError{Path: "/chat/messages/conversations/"}
	inbox := NewInbox(api, nil, false)
	if err := inbox.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh = %v", err)
	}
	if len(inbox.Conversations()) != 0 {
		t.Error("expected empty index")
	}
}

func TestInboxReorderOnSend(t *testing.T) {
	api := newFakeAPI(1)
	api.convs = []model.Conversation{
		{Contact: model.Contact{ID: 1}, LastMessage: model.LastMessage{CreatedAt: ts(5)}},
		{Contact: model.Contact{ID: 2}, LastMessage: model.LastMessage{CreatedAt: ts(1)}},
	}
	for _, reorder := range []bool{false, true} {
		inbox := NewInbox(api, nil, reorder)
		if err := inbox.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
		inbox.RecordSend(model.Contact{ID: 2}, model.Message{Content: "x", CreatedAt: *ts(9)})
		first := inbox.Conversations()[0].Contact.ID
		want := int64(1)
		if reorder {
			want = 2
		}
		if first != want {
			t.Errorf("reorder=%v: first = %d, want %d", reorder, first, want)
		}
	}
}

// slowConversations задерживает первый запрос бесед до закрытия release
// и отдаёт снимок, сделанный до задержки.
func slowConversations(api *fakeAPI, snapshot []model.Conversation) (started, release chan struct{}) {
	started, release = make(chan struct{}), make(chan struct{})
	var once sync.Once
	api.convsHook = func() []model.Conversation {
		first := false
		once.Do(func() { first = true })
		if !first {
			return nil
		}
		close(started)
		<-release
		return append([]model.Conversation{}, snapshot...)
	}
	return started, release
}

func TestSendSurvivesOlderConversationFetch(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(11)
	api.contacts = []model.Contact{{ID: 5, Role: model.RoleDoctor}}
	inbox := NewInbox(api, nil, false)
	thread := NewThread(api, loggedIn(t, model.User{ID: 11, Role: model.RolePatient}), inbox)
	started, release := slowConversations(api, []model.Conversation{})

	loaded := make(chan error, 1)
	go func() { loaded <- inbox.Load(ctx) }()
	<-started

	if err := thread.Open(ctx, model.Contact{ID: 5, Role: model.RoleDoctor}); err != nil {
		t.Fatal(err)
	}
	thread.SetDraft("Bonjour")
	if _, err := thread.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-loaded; err != nil {
		t.Fatal(err)
	}

	convs := inbox.Conversations()
	if len(convs) != 1 || convs[0].Contact.ID != 5 || convs[0].LastMessage.Content != "Bonjour" {
		t.Fatalf("conversation created by the send was lost: %+v", convs)
	}
}

func TestMarkReadSurvivesOlderConversationFetch(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	unread := []model.Conversation{{Contact: model.Contact{ID: 3}, UnreadCount: 2}}
	api.convs = unread
	inbox := NewInbox(api, nil, false)
	started, release := slowConversations(api, unread)

	done := make(chan error, 1)
	go func() { done <- inbox.Refresh(ctx) }()
	<-started
	inbox.MarkRead(3)
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if n := inbox.TotalUnread(); n != 0 {
		t.Errorf("unread count came back after refresh: %d", n)
	}
	if st := inbox.ConversationsState(); st.Loading {
		t.Error("conversations region still loading")
	}

	// Новый Refresh без локальных изменений снова отражает бэкенд.
	if err := inbox.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if n := inbox.TotalUnread(); n != 2 {
		t.Errorf("backend state not applied: %d", n)
	}
}

func TestOlderRefreshDoesNotOverwriteNewer(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(1)
	inbox := NewInbox(api, nil, false)
	started, release := slowConversations(api, []model.Conversation{{Contact: model.Contact{ID: 4}}})

	done := make(chan error, 1)
	go func() { done <- inbox.Refresh(ctx) }()
	<-started

	api.mu.Lock()
	api.convs = []model.Conversation{{Contact: model.Contact{ID: 4}}, {Contact: model.Contact{ID: 9}, UnreadCount: 1}}
	api.mu.Unlock()
	if err := inbox.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if inbox.ConversationsState().Loading {
		t.Error("dropped response left the region loading")
	}
	if convs := inbox.Conversations(); len(convs) != 2 {
		t.Errorf("older response overwrote the newer one: %+v", convs)
	}
}

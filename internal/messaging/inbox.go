package messaging

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/healthtic/internal/apiclient"
	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
)

// Region: независимо загружаемая часть экрана сообщений.
type Region struct {
	Loading bool
	Err     error
}

// Inbox держит справочник контактов и индекс бесед и собирает из них список.
// Регионы загружаются параллельно, у каждого свой флаг загрузки и своя ошибка.
type Inbox struct {
	api     API
	dir     *Directory
	reorder bool

	mu       sync.RWMutex
	convs    []model.Conversation
	showAll  bool
	contacts Region
	index    Region

	// Локальные изменения, сделанные пока идёт Refresh, накладываются
	// на его результат. Ответ, обогнанный более новым Refresh, отбрасывается.
	seq      uint64
	pending  []localChange
	fetchGen uint64
	applied  uint64
	inflight map[uint64]uint64
}

// localChange: отправка (msg != nil) или прочтение беседы с contact.
type localChange struct {
	seq     uint64
	contact model.Contact
	msg     *model.Message
}

// NewInbox: reorder включает пересортировку бесед по давности после отправки.
func NewInbox(api API, dir *Directory, reorder bool) *Inbox {
	if dir == nil {
		dir = NewDirectory(api)
	}
	return &Inbox{api: api, dir: dir, reorder: reorder, inflight: make(map[uint64]uint64)}
}

// Directory возвращает справочник контактов, с которым работает Inbox.
func (i *Inbox) Directory() *Directory { return i.dir }

// Load загружает контакты и беседы одновременно. Медленный или упавший запрос
// контактов не задерживает беседы и наоборот. Возвращается первая ошибка.
func (i *Inbox) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return i.loadContacts(ctx) })
	g.Go(func() error { return i.Refresh(ctx) })
	return g.Wait()
}

func (i *Inbox) loadContacts(ctx context.Context) error {
	i.setRegion(&i.contacts, Region{Loading: true})
	_, err := i.dir.Fetch(ctx)
	i.setRegion(&i.contacts, Region{Err: err})
	if err != nil {
		logger.Warnf("messaging: contacts: %v", err)
	}
	return err
}

// Refresh перезагружает только индекс бесед. 404 означает, что бесед нет.
// Отправки и прочтения, случившиеся пока шёл запрос, применяются поверх ответа;
// ответ старше уже применённого Refresh отбрасывается.
func (i *Inbox) Refresh(ctx context.Context) error {
	defer logger.DeferLogDuration("messaging.Inbox.Refresh", time.Now())()
	i.mu.Lock()
	i.fetchGen++
	gen := i.fetchGen
	i.inflight[gen] = i.seq
	i.index = Region{Loading: true}
	i.mu.Unlock()

	convs, err := i.api.Conversations(ctx)
	if err != nil && apiclient.IsNotFound(err) {
		convs, err = nil, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	since := i.inflight[gen]
	delete(i.inflight, gen)
	defer i.prunePending()
	if gen < i.applied {
		i.index.Loading = len(i.inflight) > 0
		logger.Debugf("messaging: discard conversations gen=%d (applied %d)", gen, i.applied)
		return nil
	}
	i.index = Region{Loading: len(i.inflight) > 0, Err: err}
	if err != nil {
		logger.Warnf("messaging: conversations: %v", err)
		return err
	}
	for _, ch := range i.pending {
		if ch.seq > since {
			convs = ch.apply(convs, i.reorder)
		}
	}
	i.convs = convs
	i.applied = gen
	return nil
}

func (ch localChange) apply(convs []model.Conversation, reorder bool) []model.Conversation {
	if ch.msg == nil {
		return ApplyMarkRead(convs, ch.contact.ID)
	}
	for _, c := range convs {
		if c.Contact.ID == ch.contact.ID && c.LastMessage.CreatedAt != nil && c.LastMessage.CreatedAt.After(ch.msg.CreatedAt) {
			return convs
		}
	}
	return ApplyLocalSend(convs, ch.contact, *ch.msg, reorder)
}

// record запоминает локальное изменение, если его может затереть идущий Refresh.
// Вызывается под i.mu.
func (i *Inbox) record(ch localChange) {
	i.seq++
	if len(i.inflight) == 0 {
		return
	}
	ch.seq = i.seq
	i.pending = append(i.pending, ch)
}

// prunePending убирает изменения, которые уже не нужны ни одному идущему Refresh.
func (i *Inbox) prunePending() {
	if len(i.inflight) == 0 {
		i.pending = nil
		return
	}
	oldest := i.seq
	for _, since := range i.inflight {
		oldest = min(oldest, since)
	}
	i.pending = slices.DeleteFunc(i.pending, func(ch localChange) bool { return ch.seq <= oldest })
}

func (i *Inbox) setRegion(r *Region, v Region) {
	i.mu.Lock()
	*r = v
	i.mu.Unlock()
}

// ContactsState и ConversationsState — индикаторы загрузки для каждого региона.
func (i *Inbox) ContactsState() Region {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.contacts
}

func (i *Inbox) ConversationsState() Region {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index
}

// Conversations возвращает копию индекса бесед.
func (i *Inbox) Conversations() []model.Conversation {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.convs)
}

// ShowAllContacts переключает список на полный справочник контактов.
func (i *Inbox) ShowAllContacts(all bool) {
	i.mu.Lock()
	i.showAll = all
	i.mu.Unlock()
}

// DisplayList: беседы и затем контакты без беседы; в режиме "все контакты" —
// справочник в его порядке, с беседой там, где она есть.
func (i *Inbox) DisplayList() []Entry {
	contacts := i.dir.Contacts()
	i.mu.RLock()
	convs := slices.Clone(i.convs)
	showAll := i.showAll
	i.mu.RUnlock()

	if !showAll {
		return Merge(convs, contacts)
	}
	byID := make(map[int64]model.Conversation, len(convs))
	for _, c := range convs {
		if _, ok := byID[c.Contact.ID]; !ok {
			byID[c.Contact.ID] = c
		}
	}
	out := make([]Entry, 0, len(contacts))
	for _, ct := range Merge(nil, contacts) {
		if c, ok := byID[ct.Contact.ID]; ok {
			ct.Conversation = &c
		}
		out = append(out, ct)
	}
	return out
}

// RecordSend отражает успешно отправленное сообщение.
func (i *Inbox) RecordSend(contact model.Contact, msg model.Message) {
	i.mu.Lock()
	i.convs = ApplyLocalSend(i.convs, contact, msg, i.reorder)
	i.record(localChange{contact: contact, msg: &msg})
	i.mu.Unlock()
}

// MarkRead оптимистично обнуляет счётчик непрочитанных; не откатывается,
// даже если mark_as_read на бэкенде не прошёл.
func (i *Inbox) MarkRead(contactID int64) {
	i.mu.Lock()
	i.convs = ApplyMarkRead(i.convs, contactID)
	i.record(localChange{contact: model.Contact{ID: contactID}})
	i.mu.Unlock()
}

// TotalUnread: сумма unread_count по всем беседам.
func (i *Inbox) TotalUnread() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	n := 0
	for _, c := range i.convs {
		n += c.UnreadCount
	}
	return n
}

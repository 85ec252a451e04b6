package messaging

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/session"
	"github.com/healthtic/internal/validate"
)

// State: состояние треда.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "idle"
	}
}

// SendResult: итог отправки из очереди.
type SendResult struct {
	Message *model.Message
	Err     error
}

// Thread: открытая переписка с одним контактом.
//
// Каждое открытие увеличивает поколение; ответ, пришедший для прежнего
// поколения или другого контакта, отбрасывается. Отправки одному контакту
// идут строго по одной, в порядке постановки в очередь.
type Thread struct {
	api     API
	session *session.Store
	inbox   *Inbox

	mu       sync.Mutex
	state    State
	contact  *model.Contact
	gen      uint64
	messages []model.Message
	draft    string
	sending  bool
	err      error

	qmu    sync.Mutex
	queues map[int64]*sendQueue
}

// NewThread: inbox может быть nil, тогда список бесед не обновляется.
func NewThread(api API, s *session.Store, inbox *Inbox) *Thread {
	return &Thread{api: api, session: s, inbox: inbox, queues: make(map[int64]*sendQueue)}
}

// Open выбирает контакт и загружает тред. Одновременно уходит mark_as_read;
// его ошибка только логируется, а локальный счётчик непрочитанных уже обнулён.
// Если пока шла загрузка был открыт другой контакт, возвращается ErrStale.
func (t *Thread) Open(ctx context.Context, contact model.Contact) error {
	defer logger.DeferLogDuration("messaging.Thread.Open", time.Now())()
	t.mu.Lock()
	t.gen++
	gen := t.gen
	c := contact
	t.contact = &c
	t.state = StateLoading
	t.messages = nil
	t.err = nil
	t.mu.Unlock()

	if t.inbox != nil {
		t.inbox.MarkRead(contact.ID)
	}

	var fetched []model.Message
	var g errgroup.Group
	g.Go(func() error {
		msgs, err := t.api.Messages(ctx, contact.ID)
		fetched = msgs
		return err
	})
	g.Go(func() error {
		if err := t.api.MarkAsRead(ctx, contact.ID); err != nil {
			logger.Warnf("messaging: mark_as_read contact=%d: %v", contact.ID, err)
		}
		return nil
	})
	err := g.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.contact == nil || t.contact.ID != contact.ID {
		logger.Debugf("messaging: discard thread for contact=%d (gen %d, current %d)", contact.ID, gen, t.gen)
		return ErrStale
	}
	if err != nil {
		t.state = StateIdle
		t.contact = nil
		t.messages = nil
		t.err = err
		return err
	}
	// Сообщения, пришедшие пока шла загрузка, не должны потеряться.
	merged := slices.Clone(fetched)
	for _, m := range t.messages {
		if !containsID(merged, m.ID) {
			merged = append(merged, m)
		}
	}
	sortMessages(merged)
	t.messages = merged
	t.state = StateLoaded
	return nil
}

// Close сбрасывает тред в Idle. Ответы незавершённых загрузок будут отброшены.
func (t *Thread) Close() {
	t.mu.Lock()
	t.gen++
	t.state = StateIdle
	t.contact = nil
	t.messages = nil
	t.err = nil
	t.mu.Unlock()
}

func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Contact возвращает открытый контакт.
func (t *Thread) Contact() (model.Contact, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.contact == nil {
		return model.Contact{}, false
	}
	return *t.contact, true
}

// Messages возвращает копию треда, по возрастанию created_at.
func (t *Thread) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}

// Err: ошибка последней загрузки.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Sending сообщает, идёт ли отправка из поля ввода.
func (t *Thread) Sending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sending
}

func (t *Thread) SetDraft(s string) {
	t.mu.Lock()
	t.draft = s
	t.mu.Unlock()
}

func (t *Thread) Draft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

// Submit отправляет черновик. Пустой черновик, отсутствие контакта и уже
// идущая отправка ничего не отправляют. При ошибке черновик сохраняется.
func (t *Thread) Submit(ctx context.Context) (*model.Message, error) {
	t.mu.Lock()
	draft := t.draft
	if err := checkContent(draft); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if t.contact == nil {
		t.mu.Unlock()
		return nil, ErrNoContact
	}
	if t.sending {
		t.mu.Unlock()
		return nil, ErrSendInFlight
	}
	contact := *t.contact
	t.sending = true
	t.mu.Unlock()

	resCh := t.enqueue(ctx, contact, draft)
	select {
	case res := <-resCh:
		t.finishSubmit(draft, res)
		return res.Message, res.Err
	case <-ctx.Done():
		// Задача уже в очереди или на бэкенде: флаг отправки держится до её итога,
		// иначе повторная отправка продублировала бы сообщение.
		go func() { t.finishSubmit(draft, <-resCh) }()
		return nil, ctx.Err()
	}
}

func (t *Thread) finishSubmit(draft string, res SendResult) {
	t.mu.Lock()
	t.sending = false
	if res.Err == nil && t.draft == draft {
		t.draft = ""
	}
	t.mu.Unlock()
}

// Enqueue ставит сообщение открытому контакту в очередь отправки.
// Сообщения одному контакту уходят на бэкенд по одному, в порядке вызовов.
func (t *Thread) Enqueue(ctx context.Context, content string) <-chan SendResult {
	if err := checkContent(content); err != nil {
		return done(SendResult{Err: err})
	}
	contact, ok := t.Contact()
	if !ok {
		return done(SendResult{Err: ErrNoContact})
	}
	return t.enqueue(ctx, contact, content)
}

func (t *Thread) enqueue(ctx context.Context, contact model.Contact, content string) <-chan SendResult {
	t.qmu.Lock()
	q, ok := t.queues[contact.ID]
	if !ok {
		q = &sendQueue{}
		t.queues[contact.ID] = q
	}
	t.qmu.Unlock()

	res := make(chan SendResult, 1)
	q.push(sendJob{ctx: ctx, contact: contact, content: content, res: res}, t.send)
	return res
}

func (t *Thread) send(job sendJob) {
	if err := job.ctx.Err(); err != nil {
		job.res <- SendResult{Err: err}
		return
	}
	msg, err := t.api.SendMessage(job.ctx, job.contact.ID, job.content)
	if err != nil {
		logger.Warnf("messaging: send to contact=%d: %v", job.contact.ID, err)
		job.res <- SendResult{Err: err}
		return
	}
	t.appendIfOpen(*msg)
	if t.inbox != nil {
		t.inbox.RecordSend(job.contact, *msg)
	}
	job.res <- SendResult{Message: msg}
}

// Receive добавляет сообщение, пришедшее по realtime-каналу, если оно
// относится к открытой переписке и ещё не показано.
func (t *Thread) Receive(msg model.Message) bool {
	return t.appendIfOpen(msg)
}

// MarkRead отмечает открытую переписку прочитанной: счётчик в Inbox
// обнуляется сразу, затем уходит mark_as_read. Ошибка бэкенда возвращается,
// локальный сброс не откатывается.
func (t *Thread) MarkRead(ctx context.Context) error {
	contact, ok := t.Contact()
	if !ok {
		return ErrNoContact
	}
	if t.inbox != nil {
		t.inbox.MarkRead(contact.ID)
	}
	return t.api.MarkAsRead(ctx, contact.ID)
}

func (t *Thread) appendIfOpen(msg model.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.contact == nil || t.state == StateIdle {
		return false
	}
	if msg.Sender != t.contact.ID && msg.Receiver != t.contact.ID {
		return false
	}
	if containsID(t.messages, msg.ID) {
		return false
	}
	t.messages = append(t.messages, msg)
	return true
}

// IsFromMe вычисляется для каждого сообщения заново: если id пользователя
// сессии известен, сравнение прямое, иначе отправитель не открытый контакт.
func (t *Thread) IsFromMe(msg model.Message) bool {
	if t.session != nil {
		if u := t.session.User(); u != nil && u.ID != 0 {
			return msg.Sender == u.ID
		}
	}
	contact, ok := t.Contact()
	if !ok {
		return false
	}
	return msg.Sender != contact.ID
}

func checkContent(content string) error {
	if err := validate.Struct(validate.MessageForm{Content: content}); err != nil {
		return fmt.Errorf("%w: %w", ErrEmptyMessage, err)
	}
	return nil
}

func containsID(msgs []model.Message, id int64) bool {
	for _, m := range msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}

func done(r SendResult) <-chan SendResult {
	ch := make(chan SendResult, 1)
	ch <- r
	return ch
}

type sendJob struct {
	ctx     context.Context
	contact model.Contact
	content string
	res     chan SendResult
}

// sendQueue: FIFO отправок одному контакту. Воркер запускается при первой
// задаче и завершается, когда очередь опустела.
type sendQueue struct {
	mu      sync.Mutex
	jobs    []sendJob
	running bool
}

func (q *sendQueue) push(job sendJob, run func(sendJob)) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()
	go q.drain(run)
}

func (q *sendQueue) drain(run func(sendJob)) {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		run(job)
	}
}

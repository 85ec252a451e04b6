package messaging

import (
	"slices"

	"github.com/healthtic/internal/model"
)

// Entry описывает строку списка бесед: контакт и, если переписка уже была, его беседа.
type Entry struct {
	Contact      model.Contact
	Conversation *model.Conversation
}

// Merge строит список для отображения: сначала беседы в порядке бэкенда,
// затем контакты без беседы в порядке справочника. Каждый id встречается один раз.
func Merge(convs []model.Conversation, contacts []model.Contact) []Entry {
	seen := make(map[int64]struct{}, len(convs)+len(contacts))
	out := make([]Entry, 0, len(convs)+len(contacts))
	for i := range convs {
		id := convs[i].Contact.ID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c := convs[i]
		out = append(out, Entry{Contact: c.Contact, Conversation: &c})
	}
	for _, ct := range contacts {
		if _, dup := seen[ct.ID]; dup {
			continue
		}
		seen[ct.ID] = struct{}{}
		out = append(out, Entry{Contact: ct})
	}
	return out
}

// ApplyLocalSend отражает отправленное сообщение в списке бесед.
// Существующая беседа обновляется на месте, новая создаётся с unread_count = 0
// и ставится в начало. С reorder список пересортировывается по давности.
// Входной срез не изменяется.
func ApplyLocalSend(convs []model.Conversation, contact model.Contact, msg model.Message, reorder bool) []model.Conversation {
	created := msg.CreatedAt
	last := model.LastMessage{Content: msg.Content, CreatedAt: &created, IsFromMe: true}

	out := make([]model.Conversation, 0, len(convs)+1)
	found := false
	for _, c := range convs {
		if c.Contact.ID == contact.ID && !found {
			c.LastMessage = last
			found = true
		}
		out = append(out, c)
	}
	if !found {
		out = append([]model.Conversation{{Contact: contact, LastMessage: last}}, out...)
	}
	if reorder {
		SortByRecency(out)
	}
	return out
}

// ApplyMarkRead обнуляет unread_count беседы с контактом. Входной срез не изменяется.
func ApplyMarkRead(convs []model.Conversation, contactID int64) []model.Conversation {
	out := slices.Clone(convs)
	for i := range out {
		if out[i].Contact.ID == contactID {
			out[i].UnreadCount = 0
		}
	}
	return out
}

// SortByRecency сортирует беседы по last_message.created_at по убыванию.
// Сортировка стабильная, беседы без сообщений уходят в конец.
func SortByRecency(convs []model.Conversation) {
	slices.SortStableFunc(convs, func(a, b model.Conversation) int {
		at, bt := a.LastMessage.CreatedAt, b.LastMessage.CreatedAt
		switch {
		case at == nil && bt == nil:
			return 0
		case at == nil:
			return 1
		case bt == nil:
			return -1
		}
		return bt.Compare(*at)
	})
}

// sortMessages упорядочивает тред по created_at по возрастанию, сохраняя порядок равных.
func sortMessages(msgs []model.Message) {
	slices.SortStableFunc(msgs, func(a, b model.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

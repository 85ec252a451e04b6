package messaging

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/healthtic/internal/apiclient"
	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
)

// Directory: снимок контактов, доступных пользователю для переписки.
// Обновляется только полной перезагрузкой.
type Directory struct {
	api API

	mu       sync.RWMutex
	contacts []model.Contact
	loaded   bool
}

func NewDirectory(api API) *Directory {
	return &Directory{api: api}
}

// Fetch перезагружает справочник. 404 означает пустой список. При любой другой
// ошибке, в том числе AuthError, прежний снимок сохраняется и ошибка возвращается.
func (d *Directory) Fetch(ctx context.Context) ([]model.Contact, error) {
	defer logger.DeferLogDuration("messaging.Directory.Fetch", time.Now())()
	contacts, err := d.api.Contacts(ctx)
	if err != nil {
		if !apiclient.IsNotFound(err) {
			return d.Contacts(), err
		}
		contacts = nil
	}
	d.mu.Lock()
	d.contacts = slices.Clone(contacts)
	d.loaded = true
	d.mu.Unlock()
	return slices.Clone(contacts), nil
}

// Contacts возвращает копию текущего снимка.
func (d *Directory) Contacts() []model.Contact {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.contacts)
}

// Loaded: был ли хотя бы один успешный Fetch.
func (d *Directory) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Lookup ищет контакт по id в снимке.
func (d *Directory) Lookup(id int64) (model.Contact, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return model.Contact{}, false
}

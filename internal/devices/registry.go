// Package devices manages the measurement devices registered by a patient.
//
// The list is never patched locally: every successful mutation is followed by a
// full refetch, and a failed mutation leaves the list as it was.
package devices

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/healthtic/internal/apiclient"
	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/session"
	"github.com/healthtic/internal/validate"
)

var (
	// ErrNotPatient — устройства есть только у пациентов.
	ErrNotPatient = errors.New("devices are available to patients only")
	// ErrNotConfirmed — пользователь не подтвердил необратимое действие.
	ErrNotConfirmed = errors.New("action not confirmed")
	// ErrUnknownDevice — устройства с таким id нет в текущем списке.
	ErrUnknownDevice = errors.New("unknown device")
)

// API is the subset of the backend client used by the registry.
type API interface {
	MyDevices(ctx context.Context) ([]model.Device, error)
	CreateDevice(ctx context.Context, name string) (*model.Device, error)
	UpdateDevice(ctx context.Context, id string, upd model.DeviceUpdate) error
	DeleteDevice(ctx context.Context, id string) error
	RegenerateDeviceKey(ctx context.Context, id string) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

type Registry struct {
	api     API
	session *session.Store

	mu      sync.RWMutex
	devices []model.Device
	loading bool
	err     error
}

func NewRegistry(api API, s *session.Store) *Registry {
	return &Registry{api: api, session: s}
}

func (r *Registry) checkRole() error {
	if !r.session.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	if r.session.Role() != model.RolePatient {
		return ErrNotPatient
	}
	return nil
}

// Refresh перезагружает список устройств. 404 означает, что устройств нет.
func (r *Registry) Refresh(ctx context.Context) error {
	if err := r.checkRole(); err != nil {
		return err
	}
	defer logger.DeferLogDuration("devices.Refresh", time.Now())()
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	list, err := r.api.MyDevices(ctx)
	if err != nil && apiclient.IsNotFound(err) {
		list, err = nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	r.err = err
	if err != nil {
		return err
	}
	r.devices = list
	return nil
}

// Devices возвращает копию последнего загруженного списка.
func (r *Registry) Devices() []model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.devices)
}

// Loading и Err — состояние последней загрузки списка.
func (r *Registry) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

func (r *Registry) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Get ищет устройство в текущем списке.
func (r *Registry) Get(id string) (model.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.ID == id {
			return d, true
		}
	}
	return model.Device{}, false
}

// Create регистрирует устройство. Ключ выдаёт бэкенд; список перечитывается.
func (r *Registry) Create(ctx context.Context, name string) (*model.Device, error) {
	if err := r.checkRole(); err != nil {
		return nil, err
	}
	if err := validate.Struct(validate.DeviceForm{Name: name}); err != nil {
		return nil, err
	}
	dev, err := r.api.CreateDevice(ctx, name)
	if err != nil {
		return nil, err
	}
	logger.Infof("devices: created id=%s key=%s", dev.ID, logger.MaskSecret(dev.DeviceKey))
	return dev, r.Refresh(ctx)
}

// Update отправляет только заданные поля.
func (r *Registry) Update(ctx context.Context, id string, upd model.DeviceUpdate) error {
	if err := r.checkRole(); err != nil {
		return err
	}
	if upd.Empty() {
		return nil
	}
	if upd.Name != nil {
		if err := validate.Struct(validate.DeviceForm{Name: *upd.Name}); err != nil {
			return err
		}
	}
	if err := r.api.UpdateDevice(ctx, id, upd); err != nil {
		return err
	}
	return r.Refresh(ctx)
}

// Rename — Update только с именем.
func (r *Registry) Rename(ctx context.Context, id, name string) error {
	return r.Update(ctx, id, model.DeviceUpdate{Name: &name})
}

// ToggleActive — Update с инвертированным is_active текущей записи.
func (r *Registry) ToggleActive(ctx context.Context, id string) error {
	if err := r.checkRole(); err != nil {
		return err
	}
	dev, ok := r.Get(id)
	if !ok {
		return ErrUnknownDevice
	}
	active := !dev.IsActive
	return r.Update(ctx, id, model.DeviceUpdate{IsActive: &active})
}

// RegenerateKey ротирует ключ. Старый ключ сразу стирается из локального списка,
// новый появляется только после перечитывания с бэкенда.
func (r *Registry) RegenerateKey(ctx context.Context, id string, c Confirmer) error {
	if err := r.checkRole(); err != nil {
		return err
	}
	if err := confirm(ctx, c, "Regenerate the key? The device will have to be reconfigured."); err != nil {
		return err
	}
	if err := r.api.RegenerateDeviceKey(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	for i := range r.devices {
		if r.devices[i].ID == id {
			r.devices[i].DeviceKey = ""
		}
	}
	r.mu.Unlock()
	return r.Refresh(ctx)
}

// Delete удаляет устройство только после подтверждения.
func (r *Registry) Delete(ctx context.Context, id string, c Confirmer) error {
	if err := r.checkRole(); err != nil {
		return err
	}
	if err := confirm(ctx, c, "Delete this device? This cannot be undone."); err != nil {
		return err
	}
	if err := r.api.DeleteDevice(ctx, id); err != nil {
		return err
	}
	logger.Infof("devices: deleted id=%s", id)
	return r.Refresh(ctx)
}

func confirm(ctx context.Context, c Confirmer, prompt string) error {
	if c == nil {
		return ErrNotConfirmed
	}
	ok, err := c.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfirmed
	}
	return nil
}

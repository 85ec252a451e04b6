package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
)

type deviceRow struct {
	owner int64
	dev   model.Device
}

// DeviceRepository — устройства пациентов. Чужое устройство неотличимо от несуществующего.
type DeviceRepository struct {
	mu   sync.RWMutex
	rows map[string]*deviceRow
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{rows: make(map[string]*deviceRow)}
}

// newDeviceKey — 64 hex-символа.
func newDeviceKey() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func (r *DeviceRepository) Create(ctx context.Context, owner int64, name string) model.Device {
	dev := model.Device{
		ID:        uuid.NewString(),
		Name:      name,
		DeviceKey: newDeviceKey(),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.rows[dev.ID] = &deviceRow{owner: owner, dev: dev}
	r.mu.Unlock()
	logger.Infof("device created id=%s owner=%d", dev.ID, owner)
	return dev
}

func (r *DeviceRepository) ListByOwner(ctx context.Context, owner int64) []model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Device, 0)
	for _, row := range r.rows {
		if row.owner == owner {
			out = append(out, row.dev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *DeviceRepository) row(owner int64, id string) (*deviceRow, error) {
	row, ok := r.rows[id]
	if !ok || row.owner != owner {
		return nil, ErrNotFound
	}
	return row, nil
}

// Update меняет только заданные поля.
func (r *DeviceRepository) Update(ctx context.Context, owner int64, id string, upd model.DeviceUpdate) (model.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.row(owner, id)
	if err != nil {
		return model.Device{}, err
	}
	if upd.Name != nil {
		row.dev.Name = *upd.Name
	}
	if upd.IsActive != nil {
		row.dev.IsActive = *upd.IsActive
	}
	return row.dev, nil
}

func (r *DeviceRepository) Delete(ctx context.Context, owner int64, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.row(owner, id); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

// RegenerateKey атомарно заменяет ключ; старый сразу перестаёт действовать.
func (r *DeviceRepository) RegenerateKey(ctx context.Context, owner int64, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.row(owner, id)
	if err != nil {
		return "", err
	}
	prev := row.dev.DeviceKey
	for row.dev.DeviceKey == prev {
		row.dev.DeviceKey = newDeviceKey()
	}
	return row.dev.DeviceKey, nil
}

// ByKey находит активное устройство по ключу (приём измерений).
func (r *DeviceRepository) ByKey(ctx context.Context, key string) (int64, model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.dev.DeviceKey == key && row.dev.IsActive {
			return row.owner, row.dev, nil
		}
	}
	return 0, model.Device{}, ErrNotFound
}

// Touch отмечает время последних данных от устройства.
func (r *DeviceRepository) Touch(ctx context.Context, id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		t := at
		row.dev.LastDataAt = &t
	}
}

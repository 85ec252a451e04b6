package model

import "time"

// Device: измерительное устройство пациента. DeviceKey выдаётся бэкендом и ротируется.
type Device struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	DeviceKey  string     `json:"device_key"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastDataAt *time.Time `json:"last_data_at"`
}

// CreateDeviceRequest: тело POST /devices/create.
type CreateDeviceRequest struct {
	Name string `json:"name"`
}

// DeviceUpdate описывает частичное обновление, nil-поля не отправляются.
type DeviceUpdate struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Empty сообщает, что обновлять нечего.
func (u DeviceUpdate) Empty() bool {
	return u.Name == nil && u.IsActive == nil
}

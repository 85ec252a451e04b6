package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/healthtic/internal/model"
)

// Login — POST /auth/login/.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login/", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register — POST /auth/register/.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register/", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Contacts — GET /users/contacts/.
func (c *Client) Contacts(ctx context.Context) ([]model.Contact, error) {
	var out []model.Contact
	if err := c.do(ctx, http.MethodGet, "/users/contacts/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Conversations — GET /chat/messages/conversations/.
func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var out []model.Conversation
	if err := c.do(ctx, http.MethodGet, "/chat/messages/conversations/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Messages — GET /chat/messages/?with_user={id}, ascending by created_at.
func (c *Client) Messages(ctx context.Context, withUser int64) ([]model.Message, error) {
	q := url.Values{"with_user": {strconv.FormatInt(withUser, 10)}}
	var out []model.Message
	if err := c.do(ctx, http.MethodGet, "/chat/messages/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage — POST /chat/messages/; returns the backend's canonical message.
func (c *Client) SendMessage(ctx context.Context, receiver int64, content string) (*model.Message, error) {
	var out model.Message
	req := model.SendMessageRequest{Receiver: receiver, Content: content}
	if err := c.do(ctx, http.MethodPost, "/chat/messages/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkAsRead — POST /chat/messages/mark_as_read/.
func (c *Client) MarkAsRead(ctx context.Context, contactID int64) error {
	return c.do(ctx, http.MethodPost, "/chat/messages/mark_as_read/", nil, model.MarkAsReadRequest{ContactID: contactID}, nil)
}

// MyDevices — GET /devices/my-devices/.
func (c *Client) MyDevices(ctx context.Context) ([]model.Device, error) {
	var out []model.Device
	if err := c.do(ctx, http.MethodGet, "/devices/my-devices/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDevice — POST /devices/create/.
func (c *Client) CreateDevice(ctx context.Context, name string) (*model.Device, error) {
	var out model.Device
	if err := c.do(ctx, http.MethodPost, "/devices/create/", nil, model.CreateDeviceRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDevice — PUT /devices/{id}/update/ with only the fields that are set.
func (c *Client) UpdateDevice(ctx context.Context, id string, upd model.DeviceUpdate) error {
	return c.do(ctx, http.MethodPut, "/devices/"+url.PathEscape(id)+"/update/", nil, upd, nil)
}

// DeleteDevice — DELETE /devices/{id}/delete/.
func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/devices/"+url.PathEscape(id)+"/delete/", nil, nil, nil)
}

// RegenerateDeviceKey — POST /devices/{id}/regenerate-key/. The response body is
// ignored: the new key is only ever read back through MyDevices.
func (c *Client) RegenerateDeviceKey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/devices/"+url.PathEscape(id)+"/regenerate-key/", nil, struct{}{}, nil)
}

// Dashboard — GET /health/dashboard/.
func (c *Client) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	var out model.Dashboard
	if err := c.do(ctx, http.MethodGet, "/health/dashboard/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Prediction — GET /health/prediction/.
func (c *Client) Prediction(ctx context.Context) (*model.Prediction, error) {
	var out model.Prediction
	if err := c.do(ctx, http.MethodGet, "/health/prediction/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Alerts — GET /alerts/alerts/. A JSON null body yields a nil slice.
func (c *Client) Alerts(ctx context.Context) ([]model.Alert, error) {
	var out []model.Alert
	if err := c.do(ctx, http.MethodGet, "/alerts/alerts/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

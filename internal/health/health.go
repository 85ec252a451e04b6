// Package health reads the patient dashboard, the risk prediction and alerts.
package health

import (
	"context"
	"errors"

	"github.com/healthtic/internal/apiclient"
	"github.com/healthtic/internal/model"
)

// ErrNoData: у пользователя ещё нет измерений. Это пустое состояние, не сбой.
var ErrNoData = errors.New("no health data yet")

type API interface {
	Dashboard(ctx context.Context) (*model.Dashboard, error)
	Prediction(ctx context.Context) (*model.Prediction, error)
	Alerts(ctx context.Context) ([]model.Alert, error)
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// Dashboard возвращает ErrNoData на 404; AuthError и прочие ошибки пробрасываются.
func (s *Service) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	d, err := s.api.Dashboard(ctx)
	if apiclient.IsNotFound(err) {
		return nil, ErrNoData
	}
	return d, err
}

// Prediction: как Dashboard.
func (s *Service) Prediction(ctx context.Context) (*model.Prediction, error) {
	p, err := s.api.Prediction(ctx)
	if apiclient.IsNotFound(err) {
		return nil, ErrNoData
	}
	return p, err
}

// Alerts: 404 и пустое тело дают пустой список.
func (s *Service) Alerts(ctx context.Context) ([]model.Alert, error) {
	alerts, err := s.api.Alerts(ctx)
	if apiclient.IsNotFound(err) {
		return []model.Alert{}, nil
	}
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return alerts, nil
}

// UnreadCount: число непрочитанных уведомлений.
func UnreadCount(alerts []model.Alert) int {
	n := 0
	for _, a := range alerts {
		if !a.IsRead {
			n++
		}
	}
	return n
}

package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/healthtic/internal/model"
)

const (
	colorGreen  = "green"
	colorOrange = "orange"
	colorRed    = "red"

	trendWindow   = 7
	historyWindow = 5
)

// HealthRepository хранит измерения и уведомления пациентов и строит из них
// дашборд и оценку риска.
type HealthRepository struct {
	mu       sync.RWMutex
	measures map[int64][]model.Measurement
	alerts   map[int64][]model.Alert
	nextID   int64
}

func NewHealthRepository() *HealthRepository {
	return &HealthRepository{
		measures: make(map[int64][]model.Measurement),
		alerts:   make(map[int64][]model.Alert),
	}
}

// Record сохраняет измерение и при опасных значениях создаёт уведомление.
func (r *HealthRepository) Record(ctx context.Context, patientID int64, m model.Measurement) {
	if m.TakenAt.IsZero() {
		m.TakenAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.measures[patientID] = append(r.measures[patientID], m)
	if m.SpO2 > 0 && m.SpO2 < 92 {
		r.addAlert(patientID, "Low oxygen saturation", fmt.Sprintf("SpO2 %.0f%%", m.SpO2), "critical", m.TakenAt)
	}
	if m.HeartRate > 120 {
		r.addAlert(patientID, "High heart rate", fmt.Sprintf("%.0f bpm", m.HeartRate), "warning", m.TakenAt)
	}
}

func (r *HealthRepository) addAlert(patientID int64, title, msg, level string, at time.Time) {
	r.nextID++
	r.alerts[patientID] = append(r.alerts[patientID], model.Alert{
		ID: r.nextID, Title: title, Message: msg, Level: level, CreatedAt: at,
	})
}

// Alerts — уведомления пациента, новые сверху.
func (r *HealthRepository) Alerts(ctx context.Context, patientID int64) []model.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.alerts[patientID]
	out := make([]model.Alert, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out
}

func (r *HealthRepository) series(patientID int64) []model.Measurement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Measurement(nil), r.measures[patientID]...)
}

// Dashboard возвращает ErrNotFound, пока у пациента нет измерений.
func (r *HealthRepository) Dashboard(ctx context.Context, patientID int64) (*model.Dashboard, error) {
	ms := r.series(patientID)
	if len(ms) == 0 {
		return nil, ErrNotFound
	}
	last := ms[len(ms)-1]
	d := &model.Dashboard{
		Stats: model.DashboardStats{
			RespiratoryRate: metric(last.RespiratoryRate, "rpm", 12, 20),
			HeartRate:       metric(last.HeartRate, "bpm", 60, 100),
			SpO2:            metric(last.SpO2, "%", 95, 100),
			AirQuality:      metric(last.AirQuality, "AQI", 0, 50),
			Temperature:     metric(last.Temperature, "°C", 36.1, 37.5),
		},
		Trends:             []float64{},
		History:            []model.HistoryItem{},
		RecentMeasurements: []model.RecentMeasurement{},
	}
	from := max(0, len(ms)-trendWindow)
	for _, m := range ms[from:] {
		d.Trends = append(d.Trends, min(100, m.RespiratoryRate/30*100))
	}
	for i := len(ms) - 1; i >= 0 && len(d.History) < historyWindow; i-- {
		status, color := overall(ms[i])
		d.History = append(d.History, model.HistoryItem{
			Date: ms[i].TakenAt.Format("2006-01-02 15:04"), Status: status, Color: color,
		})
	}
	for _, rm := range []struct {
		label string
		m     model.Metric
	}{
		{"Heart rate", d.Stats.HeartRate},
		{"SpO2", d.Stats.SpO2},
		{"Respiratory rate", d.Stats.RespiratoryRate},
	} {
		d.RecentMeasurements = append(d.RecentMeasurements, model.RecentMeasurement{
			Label: rm.label, Value: fmt.Sprintf("%.0f %s", rm.m.Value, rm.m.Unit), Color: rm.m.Color,
		})
	}
	return d, nil
}

// Prediction — простая оценка риска по последнему измерению.
func (r *HealthRepository) Prediction(ctx context.Context, patientID int64) (*model.Prediction, error) {
	ms := r.series(patientID)
	if len(ms) == 0 {
		return nil, ErrNotFound
	}
	factors := abnormal(ms[len(ms)-1])
	p := &model.Prediction{
		HealthScore:     float64(max(0, 100-15*len(factors))),
		RelativeRisk:    1 + 0.25*float64(len(factors)),
		Confidence:      min(1, float64(len(ms))/20),
		RiskFactors:     factors,
		Recommendations: []model.Recommendation{},
		DataCount:       len(ms),
	}
	switch {
	case len(factors) == 0:
		p.RiskLevel = "Faible"
	case len(factors) <= 2:
		p.RiskLevel = "Modéré"
	default:
		p.RiskLevel = "Élevé"
	}
	if len(factors) > 0 {
		p.Recommendations = append(p.Recommendations, model.Recommendation{
			Icon: "stethoscope", Title: "Contact your doctor", Description: "Some measurements are outside the normal range.",
		})
	}
	p.Recommendations = append(p.Recommendations, model.Recommendation{
		Icon: "activity", Title: "Keep measuring", Description: "Regular data improves the estimate.",
	})
	return p, nil
}

func metric(v float64, unit string, lo, hi float64) model.Metric {
	m := model.Metric{Value: v, Unit: unit, Status: "Normal", Color: colorGreen}
	switch {
	case v < lo:
		m.Status, m.Color = "Low", colorOrange
	case v > hi:
		m.Status, m.Color = "High", colorOrange
	}
	return m
}

func abnormal(m model.Measurement) []string {
	out := []string{}
	if m.SpO2 < 95 {
		out = append(out, "low oxygen saturation")
	}
	if m.HeartRate < 60 || m.HeartRate > 100 {
		out = append(out, "abnormal heart rate")
	}
	if m.RespiratoryRate < 12 || m.RespiratoryRate > 20 {
		out = append(out, "abnormal respiratory rate")
	}
	if m.Temperature > 37.5 {
		out = append(out, "fever")
	}
	if m.AirQuality > 100 {
		out = append(out, "poor air quality")
	}
	return out
}

func overall(m model.Measurement) (string, string) {
	switch n := len(abnormal(m)); {
	case n == 0:
		return "Stable", colorGreen
	case n <= 2:
		return "Watch", colorOrange
	default:
		return "Critical", colorRed
	}
}

package model

import "time"

// Metric: одна карточка дашборда (ЧД, пульс, SpO2, ...).
type Metric struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Status string  `json:"status"`
	Color  string  `json:"color"`
}

type DashboardStats struct {
	RespiratoryRate Metric `json:"respiratory_rate"`
	HeartRate       Metric `json:"heart_rate"`
	SpO2            Metric `json:"spo2"`
	AirQuality      Metric `json:"air_quality"`
	Temperature     Metric `json:"temperature"`
}

type HistoryItem struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Color  string `json:"color"`
}

type RecentMeasurement struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color"`
}

// Dashboard: ответ /health/dashboard.
type Dashboard struct {
	Stats              DashboardStats      `json:"stats"`
	Trends             []float64           `json:"trends"`
	History            []HistoryItem       `json:"history"`
	RecentMeasurements []RecentMeasurement `json:"recent_measurements"`
}

type Recommendation struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Prediction: ответ /health/prediction (оценка риска моделью).
type Prediction struct {
	HealthScore     float64          `json:"health_score"`
	RelativeRisk    float64          `json:"relative_risk"`
	Confidence      float64          `json:"confidence"`
	RiskLevel       string           `json:"risk_level"`
	RiskFactors     []string         `json:"risk_factors"`
	Recommendations []Recommendation `json:"recommendations"`
	DataCount       int              `json:"data_count"`
}

// Alert: уведомление о состоянии пациента.
type Alert struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Measurement: показания, присланные устройством пациента.
type Measurement struct {
	HeartRate       float64   `json:"heart_rate"`
	SpO2            float64   `json:"spo2"`
	RespiratoryRate float64   `json:"respiratory_rate"`
	Temperature     float64   `json:"temperature"`
	AirQuality      float64   `json:"air_quality"`
	TakenAt         time.Time `json:"taken_at"`
}

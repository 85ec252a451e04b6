package repository

import (
	"context"
	"time"

	"github.com/healthtic/internal/model"
)

// Demo accounts created by SeedDemo. Both use DemoPassword.
const (
	DemoDoctor   = "drhouse"
	DemoPatient  = "pat1"
	DemoPassword = "password"
)

// SeedDemo создаёт врача и закреплённого за ним пациента, одно устройство
// пациента и суточную серию измерений.
func SeedDemo(ctx context.Context, users *UserRepository, devices *DeviceRepository, health *HealthRepository) error {
	doc, err := users.Create(ctx, DemoDoctor, "house@healthtic.local", DemoPassword, model.RoleDoctor)
	if err != nil {
		return err
	}
	pat, err := users.Create(ctx, DemoPatient, "pat1@healthtic.local", DemoPassword, model.RolePatient)
	if err != nil {
		return err
	}
	if err := users.Assign(ctx, doc.ID, pat.ID); err != nil {
		return err
	}
	dev := devices.Create(ctx, pat.ID, "Chest sensor")

	start := time.Now().UTC().Add(-24 * time.Hour)
	for i := 0; i < 8; i++ {
		at := start.Add(time.Duration(i) * 3 * time.Hour)
		health.Record(ctx, pat.ID, model.Measurement{
			HeartRate:       72 + float64(i%3)*4,
			SpO2:            97 - float64(i%2),
			RespiratoryRate: 14 + float64(i%4),
			Temperature:     36.6,
			AirQuality:      35,
			TakenAt:         at,
		})
		devices.Touch(ctx, dev.ID, at)
	}
	return nil
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthtic/internal/health"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the latest vital signs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		d, err := health.NewService(app.api).Dashboard(cmd.Context())
		if errors.Is(err, health.ErrNoData) {
			fmt.Println("No measurements yet.")
			return nil
		}
		if err != nil {
			return err
		}
		s := d.Stats
		for _, row := range []struct {
			label string
			v     float64
			unit  string
			st    string
		}{
			{"Heart rate", s.HeartRate.Value, s.HeartRate.Unit, s.HeartRate.Status},
			{"SpO2", s.SpO2.Value, s.SpO2.Unit, s.SpO2.Status},
			{"Respiratory rate", s.RespiratoryRate.Value, s.RespiratoryRate.Unit, s.RespiratoryRate.Status},
			{"Temperature", s.Temperature.Value, s.Temperature.Unit, s.Temperature.Status},
			{"Air quality", s.AirQuality.Value, s.AirQuality.Unit, s.AirQuality.Status},
		} {
			fmt.Printf("%-17s %6.1f %-6s %s\n", row.label, row.v, row.unit, row.st)
		}
		for _, h := range d.History {
			fmt.Printf("  %s  %s\n", h.Date, h.Status)
		}
		return nil
	},
}

var predictionCmd = &cobra.Command{
	Use:   "prediction",
	Short: "Show the risk assessment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		p, err := health.NewService(app.api).Prediction(cmd.Context())
		if errors.Is(err, health.ErrNoData) {
			fmt.Println("Not enough data for a prediction.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Risk: %s  score=%.0f  confidence=%.0f%%  (%d samples)\n", p.RiskLevel, p.HealthScore, p.Confidence, p.DataCount)
		for _, f := range p.RiskFactors {
			fmt.Println("  -", f)
		}
		for _, r := range p.Recommendations {
			fmt.Printf("  * %s: %s\n", r.Title, r.Description)
		}
		return nil
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		alerts, err := health.NewService(app.api).Alerts(cmd.Context())
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Println("No alerts.")
			return nil
		}
		for _, a := range alerts {
			fmt.Printf("[%s] %-8s %s: %s\n", a.CreatedAt.Local().Format("02/01 15:04"), a.Level, a.Title, a.Message)
		}
		fmt.Printf("%d unread\n", health.UnreadCount(alerts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd, predictionCmd, alertsCmd)
}

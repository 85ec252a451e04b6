package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/healthtic/internal/devices"
	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage your measurement devices (patients only)",
}

var yes = devices.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

func init() {
	rmCmd := &cobra.Command{
		Use:   "rm <device-id>",
		Short: "Delete a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, func(ctx context.Context, r *devices.Registry) error {
				return r.Delete(ctx, args[0], confirmer(cmd))
			})
		},
	}
	rotateCmd := &cobra.Command{
		Use:   "rotate <device-id>",
		Short: "Regenerate a device key (the old key stops working)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, func(ctx context.Context, r *devices.Registry) error {
				if err := r.RegenerateKey(ctx, args[0], confirmer(cmd)); err != nil {
					return err
				}
				if d, ok := r.Get(args[0]); ok {
					fmt.Printf("new key: %s\n", d.DeviceKey)
				}
				return nil
			})
		},
	}
	for _, c := range []*cobra.Command{rmCmd, rotateCmd} {
		c.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	}

	devicesCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRegistry(cmd, func(context.Context, *devices.Registry) error { return nil })
			},
		},
		&cobra.Command{
			Use:   "add <name...>",
			Short: "Register a new device",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRegistry(cmd, func(ctx context.Context, r *devices.Registry) error {
					_, err := r.Create(ctx, strings.Join(args, " "))
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "rename <device-id> <name...>",
			Short: "Rename a device",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRegistry(cmd, func(ctx context.Context, r *devices.Registry) error {
					return r.Rename(ctx, args[0], strings.Join(args[1:], " "))
				})
			},
		},
		&cobra.Command{
			Use:   "toggle <device-id>",
			Short: "Activate or deactivate a device",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRegistry(cmd, func(ctx context.Context, r *devices.Registry) error {
					return r.ToggleActive(ctx, args[0])
				})
			},
		},
		rotateCmd,
		rmCmd,
	)
	rootCmd.AddCommand(devicesCmd)
}

func confirmer(cmd *cobra.Command) devices.Confirmer {
	if y, _ := cmd.Flags().GetBool("yes"); y {
		return yes
	}
	return app
}

// withRegistry загружает список, выполняет действие и печатает актуальное состояние.
func withRegistry(cmd *cobra.Command, fn func(context.Context, *devices.Registry) error) error {
	if err := app.requireLogin(); err != nil {
		return err
	}
	ctx := cmd.Context()
	r := devices.NewRegistry(app.api, app.session)
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	if err := fn(ctx, r); err != nil {
		return err
	}
	printDevices(r.Devices())
	return nil
}

func printDevices(list []model.Device) {
	if len(list) == 0 {
		fmt.Println("No devices.")
		return
	}
	for _, d := range list {
		state := "active"
		if !d.IsActive {
			state = "inactive"
		}
		last := "never"
		if d.LastDataAt != nil {
			last = d.LastDataAt.Local().Format("02/01 15:04")
		}
		fmt.Printf("%s  %-20s %-8s key=%s last=%s\n", d.ID, d.Name, state, logger.MaskSecret(d.DeviceKey), last)
	}
}

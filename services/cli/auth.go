package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthtic/internal/auth"
	"github.com/healthtic/internal/validate"
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and remember the session",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <email>",
	Short: "Create an account, then log in",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		auth.NewService(app.api, app.session).Logout(cmd.Context())
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		u := app.session.User()
		fmt.Printf("%s <%s> role=%s id=%d\n", u.Username, u.Email, u.Role, u.ID)
		fmt.Printf("home: %s\n", app.session.Route())
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("password", "p", "", "password (prompted when empty)")
	registerCmd.Flags().StringP("password", "p", "", "password (prompted when empty)")
	registerCmd.Flags().String("role", "patient", "doctor or patient")
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

func password(cmd *cobra.Command, label string) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	return app.prompt(label)
}

func runLogin(cmd *cobra.Command, args []string) error {
	pw, err := password(cmd, "Password: ")
	if err != nil {
		return err
	}
	route, err := auth.NewService(app.api, app.session).Login(cmd.Context(), validate.LoginForm{
		Username: args[0],
		Password: pw,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Welcome %s. Home: %s\n", app.session.User().Username, route)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	pw, err := password(cmd, "Password: ")
	if err != nil {
		return err
	}
	confirm := pw
	if p, _ := cmd.Flags().GetString("password"); p == "" {
		if confirm, err = app.prompt("Confirm password: "); err != nil {
			return err
		}
	}
	role, _ := cmd.Flags().GetString("role")
	route, err := auth.NewService(app.api, app.session).Register(cmd.Context(), validate.RegisterForm{
		Username: args[0],
		Email:    args[1],
		Password: pw,
		Confirm:  confirm,
		Role:     role,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Account created. Home: %s\n", route)
	return nil
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/healthtic/internal/apiclient"
	"github.com/healthtic/internal/config"
	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/session"
	"github.com/healthtic/internal/startup"
	"github.com/healthtic/internal/storage"
)

// client собирает ядро клиента для одной команды.
type client struct {
	cfg     *config.Config
	store   storage.SessionStore
	session *session.Store
	api     *apiclient.Client
	in      *bufio.Reader
}

var app *client

var rootCmd = &cobra.Command{
	Use:           "healthtic",
	Short:         "HEALTH TIC client: chat with your care team and manage devices",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
		c, err := newClient(cmd.Context(), verbose)
		if err != nil {
			return err
		}
		app = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging to stderr")
}

func newClient(ctx context.Context, verbose bool) (*client, error) {
	logger.SetPrefix("cli")
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	if verbose {
		logger.SetLevel("debug")
	}

	store, err := startup.OpenSessionStore(ctx, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("session storage: %w", err)
	}
	sess := session.New(store, cfg.Session.Key)
	if err := sess.Load(ctx); err != nil {
		logger.Warnf("session rehydration failed, continuing logged out: %v", err)
	}
	api := apiclient.New(cfg.APIURL, sess,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithAuthScheme(cfg.AuthScheme),
	)
	return &client{cfg: cfg, store: store, session: sess, api: api, in: bufio.NewReader(os.Stdin)}, nil
}

func (c *client) close() {
	if err := c.store.Close(); err != nil {
		logger.Warnf("close session storage: %v", err)
	}
}

func (c *client) requireLogin() error {
	if !c.session.IsAuthenticated() {
		return errors.New("not logged in, run `healthtic login` first")
	}
	return nil
}

// prompt читает одну строку со stdin.
func (c *client) prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm реализует devices.Confirmer через вопрос на stdin.
func (c *client) Confirm(_ context.Context, question string) (bool, error) {
	ans, err := c.prompt(question + " [y/N] ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(ans)) {
	case "y", "yes", "o", "oui":
		return true, nil
	}
	return false, nil
}

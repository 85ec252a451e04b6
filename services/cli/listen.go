package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/healthtic/internal/messaging"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/realtime"
)

var listenCmd = &cobra.Command{
	Use:   "listen [contact-id]",
	Short: "Print incoming messages until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	if err := app.requireLogin(); err != nil {
		return err
	}
	if app.cfg.WSURL == "" {
		return errors.New("realtime is disabled, set WS_URL")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		thread *messaging.Thread
		inbox  *messaging.Inbox
	)
	if len(args) == 1 {
		var err error
		if thread, inbox, err = openThread(ctx, args[0]); err != nil {
			return err
		}
		defer thread.Close()
		printThread(thread)
	} else {
		inbox = app.inbox()
	}

	var rt realtime.Thread
	if thread != nil {
		rt = thread
	}
	l := realtime.New(app.cfg.WSURL, app.cfg.AuthScheme, app.session, rt, inbox)
	l.OnMessage = func(m model.Message, shown bool) {
		if shown {
			contact, _ := thread.Contact()
			printMessage(thread, contact, m)
			return
		}
		fmt.Printf("new message from %d (%d unread)\n", m.Sender, inbox.TotalUnread())
	}
	fmt.Fprintln(os.Stderr, "listening, Ctrl+C to stop")
	return l.Run(ctx)
}

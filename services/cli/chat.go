package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthtic/internal/messaging"
	"github.com/healthtic/internal/model"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List the people you can message",
	Args:  cobra.NoArgs,
	RunE:  runContacts,
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Show conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runInbox,
}

var openCmd = &cobra.Command{
	Use:   "open <contact-id>",
	Short: "Show the message thread with a contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

var sendCmd = &cobra.Command{
	Use:   "send <contact-id> <text...>",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSend,
}

func init() {
	inboxCmd.Flags().Bool("all", false, "show every contact, not only active conversations")
	rootCmd.AddCommand(contactsCmd, inboxCmd, openCmd, sendCmd)
}

func (c *client) inbox() *messaging.Inbox {
	return messaging.NewInbox(c.api, nil, c.cfg.ReorderOnSend)
}

func runContacts(cmd *cobra.Command, _ []string) error {
	if err := app.requireLogin(); err != nil {
		return err
	}
	contacts, err := messaging.NewDirectory(app.api).Fetch(cmd.Context())
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		fmt.Println("No contacts.")
		return nil
	}
	for _, ct := range contacts {
		mark := " "
		if ct.IsAssigned {
			mark = "*"
		}
		fmt.Printf("%s %4d  %-20s %s\n", mark, ct.ID, ct.DisplayName(), ct.Email)
	}
	return nil
}

func runInbox(cmd *cobra.Command, _ []string) error {
	if err := app.requireLogin(); err != nil {
		return err
	}
	inbox := app.inbox()
	loadErr := inbox.Load(cmd.Context())
	if st := inbox.ContactsState(); st.Err != nil {
		fmt.Println("contacts unavailable:", st.Err)
	}
	if st := inbox.ConversationsState(); st.Err != nil {
		fmt.Println("conversations unavailable:", st.Err)
	}
	all, _ := cmd.Flags().GetBool("all")
	inbox.ShowAllContacts(all)

	list := inbox.DisplayList()
	if len(list) == 0 {
		if loadErr != nil {
			return loadErr
		}
		fmt.Println("No conversations yet. Use --all to see your contacts.")
		return nil
	}
	for _, e := range list {
		printEntry(e)
	}
	if n := inbox.TotalUnread(); n > 0 {
		fmt.Printf("\n%d unread\n", n)
	}
	return nil
}

func printEntry(e messaging.Entry) {
	if e.Conversation == nil {
		fmt.Printf("%4d  %-20s\n", e.Contact.ID, e.Contact.DisplayName())
		return
	}
	lm := e.Conversation.LastMessage
	preview := lm.Content
	if lm.IsFromMe {
		preview = "you: " + preview
	}
	when := ""
	if lm.CreatedAt != nil {
		when = lm.CreatedAt.Local().Format("02/01 15:04")
	}
	unread := ""
	if e.Conversation.UnreadCount > 0 {
		unread = fmt.Sprintf(" (%d)", e.Conversation.UnreadCount)
	}
	fmt.Printf("%4d  %-20s %-11s %s%s\n", e.Contact.ID, e.Contact.DisplayName(), when, truncate(preview, 48), unread)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// openThread находит контакт в справочнике и открывает с ним беседу.
func openThread(ctx context.Context, raw string) (*messaging.Thread, *messaging.Inbox, error) {
	if err := app.requireLogin(); err != nil {
		return nil, nil, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid contact id %q", raw)
	}
	inbox := app.inbox()
	if _, err := inbox.Directory().Fetch(ctx); err != nil {
		return nil, nil, err
	}
	contact, ok := inbox.Directory().Lookup(id)
	if !ok {
		return nil, nil, fmt.Errorf("contact %d is not in your contacts", id)
	}
	thread := messaging.NewThread(app.api, app.session, inbox)
	if err := thread.Open(ctx, contact); err != nil {
		return nil, nil, err
	}
	return thread, inbox, nil
}

func printThread(t *messaging.Thread) {
	contact, _ := t.Contact()
	msgs := t.Messages()
	if len(msgs) == 0 {
		fmt.Printf("No messages with %s yet.\n", contact.DisplayName())
		return
	}
	for _, m := range msgs {
		printMessage(t, contact, m)
	}
}

func printMessage(t *messaging.Thread, contact model.Contact, m model.Message) {
	who := contact.DisplayName()
	if t.IsFromMe(m) {
		who = "you"
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.DateTime), who, m.Content)
}

func runOpen(cmd *cobra.Command, args []string) error {
	thread, _, err := openThread(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer thread.Close()
	printThread(thread)
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	thread, _, err := openThread(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer thread.Close()
	thread.SetDraft(strings.Join(args[1:], " "))
	msg, err := thread.Submit(cmd.Context())
	if err != nil {
		return err
	}
	contact, _ := thread.Contact()
	printMessage(thread, contact, *msg)
	return nil
}

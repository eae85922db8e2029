// Package notification provides the Telegram transport: outbound digest
// delivery with per-recipient failure isolation, and the inbound command
// router for the closed recipient set.
package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/cofure/cofure/pkg/core"
)

// Fixed command replies.
const (
	deniedReply = "🚫 Bạn không có quyền sử dụng bot này."
	statusReply = "Bot đang hoạt động 🔥"
)

// sender is the outbound slice of *tb.Bot, split out so delivery logic can
// be exercised without a live bot session.
type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram implements core.Notifier and routes inbound bot commands.
type Telegram struct {
	client    *tb.Bot
	api       sender
	directory *core.Directory
	loc       *time.Location
	status    string
}

// Option configures a Telegram instance.
type Option func(*Telegram)

// WithStatusText overrides the /status reply.
func WithStatusText(text string) Option {
	return func(t *Telegram) {
		t.status = text
	}
}

// NewTelegram connects the bot client. A long poller is attached only in
// polling mode; in webhook mode updates arrive through ProcessUpdate.
func NewTelegram(directory *core.Directory, settings core.TelegramSettings, loc *time.Location, options ...Option) (*Telegram, error) {
	var poller tb.Poller
	if settings.Mode == core.ModePolling {
		poller = &tb.LongPoller{Timeout: 10 * time.Second}
	}

	client, err := tb.NewBot(tb.Settings{
		Token:  settings.Token,
		Poller: poller,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	if err := client.SetCommands([]tb.Command{
		{Text: "/start", Description: "Chào hỏi và kiểm tra bot"},
		{Text: "/ping", Description: "Kiểm tra phản hồi"},
		{Text: "/status", Description: "Trạng thái bot"},
	}); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	t := &Telegram{
		client:    client,
		api:       client,
		directory: directory,
		loc:       loc,
		status:    statusReply,
	}

	for _, option := range options {
		option(t)
	}

	t.registerHandlers()

	return t, nil
}

func (t *Telegram) registerHandlers() {
	for _, command := range []string{"/start", "/ping", "/status"} {
		t.client.Handle(command, t.guard(command, t.handleMessage))
	}
}

// guard keeps a handler panic from killing the process.
func (t *Telegram) guard(name string, handler func(*tb.Message)) func(*tb.Message) {
	return func(m *tb.Message) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("telegram handler %s panicked: %v", name, r)
			}
		}()
		handler(m)
	}
}

func (t *Telegram) handleMessage(m *tb.Message) {
	if m == nil || m.Sender == nil {
		log.Error("message or sender is nil")
		return
	}

	senderID := strconv.FormatInt(m.Sender.ID, 10)
	reply := t.Route(senderID, m.Text, time.Now().In(t.loc))
	if reply == "" {
		return
	}

	t.send(m.Sender, reply)
}

// Route resolves an inbound text to its reply, or "" when no reply should
// be sent. The sender must be a registered recipient; denied attempts are
// logged with the sender id for abuse monitoring.
func (t *Telegram) Route(senderID, text string, now time.Time) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	command := fields[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	switch command {
	case "/start", "/ping", "/status":
	default:
		return ""
	}

	recipient, ok := t.directory.Get(senderID)
	if !ok {
		log.WithField("sender", senderID).Warn(core.ErrUnauthorized)
		return deniedReply
	}

	switch command {
	case "/start":
		return fmt.Sprintf("✅ Xin chào %s! Cofure đã sẵn sàng hoạt động vào lúc %s!",
			recipient.Name, now.Format("15:04:05"))
	case "/ping":
		return fmt.Sprintf("Pong! ✅ %s", now.Format("15:04 02/01/2006"))
	default:
		return t.status
	}
}

// Start begins long-polling. Only valid in polling mode.
func (t *Telegram) Start() {
	go t.client.Start()
}

// Stop halts the long poller.
func (t *Telegram) Stop() {
	t.client.Stop()
}

// RegisterWebhook points the platform at the public webhook URL.
func (t *Telegram) RegisterWebhook(publicURL string) error {
	if _, err := t.client.Raw("setWebhook", map[string]string{"url": publicURL}); err != nil {
		return &core.UpstreamError{Service: "telegram setWebhook", Err: err}
	}
	return nil
}

// ProcessUpdate hands a webhook-delivered update to the bot dispatcher.
func (t *Telegram) ProcessUpdate(u tb.Update) {
	t.client.ProcessUpdate(u)
}

// Notify sends the same text to every recipient in the directory.
func (t *Telegram) Notify(text string) {
	for _, recipient := range t.directory.All() {
		if err := t.deliver(recipient.ID, text); err != nil {
			log.WithError(err).Error("failed to send notification")
		}
	}
}

// DeliverAll sends each recipient its message batch. A failure for one
// recipient is logged and counted; the remaining recipients are still
// attempted. Total failure is reported through the counts, never raised.
func (t *Telegram) DeliverAll(batches map[string][]string) core.DeliveryReport {
	var report core.DeliveryReport

	for _, recipient := range t.directory.All() {
		messages, ok := batches[recipient.ID]
		if !ok || len(messages) == 0 {
			continue
		}

		if err := t.deliverBatch(recipient.ID, messages); err != nil {
			log.WithError(err).WithField("recipient", recipient.ID).Error("digest delivery failed")
			report.Failed++
			continue
		}

		report.Succeeded++
	}

	return report
}

func (t *Telegram) deliverBatch(recipientID string, messages []string) error {
	for _, message := range messages {
		if err := t.deliver(recipientID, message); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telegram) deliver(recipientID, text string) error {
	id, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return &core.DeliveryError{RecipientID: recipientID, Err: err}
	}

	if _, err := t.api.Send(&tb.User{ID: id}, text); err != nil {
		return &core.DeliveryError{RecipientID: recipientID, Err: err}
	}

	return nil
}

func (t *Telegram) send(to *tb.User, text string) {
	if _, err := t.api.Send(to, text); err != nil {
		log.WithError(err).Error("failed to send message")
	}
}

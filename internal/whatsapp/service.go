package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// MessageHandler receives the text of an incoming message and the sender's number
type MessageHandler func(ctx context.Context, sender, text string) error

type Config struct {
	DataDir string
}

type Service struct {
	client         *whatsmeow.Client
	cfg            *Config
	log            zerolog.Logger
	messageHandler MessageHandler
}

// NewService creates a new WhatsApp service
func NewService(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Service, error) {
	logger = logger.With().Str("component", "WhatsApp").Logger()

	// Use nil logger - sqlstore will use a no-op logger by default
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    logger,
	}

	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// NormalizePhoneNumber strips formatting and an international "00" prefix,
// leaving the digits WhatsApp uses as the user part of a JID
func NormalizePhoneNumber(phoneNumber string) string {
	phoneNumber = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phoneNumber)

	return strings.TrimPrefix(phoneNumber, "00")
}

// Connect connects to WhatsApp, printing a pairing QR code on first use
func (s *Service) Connect(ctx context.Context) error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, _ := s.client.GetQRChannel(ctx)
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			s.log.Info().Str("event", evt.Event).Msg("Login event")
			continue
		}
		q, err := qrcode.New(evt.Code, qrcode.Medium)
		if err != nil {
			fmt.Printf("QR Code: %s\n", evt.Code)
			fmt.Println("Please scan this QR code with WhatsApp to connect.")
			continue
		}
		fmt.Println("\n" + q.ToSmallString(false))
		fmt.Println("📱 Please scan the QR code above with WhatsApp:")
		fmt.Println("   1. Open WhatsApp on your phone")
		fmt.Println("   2. Go to Settings > Linked Devices")
		fmt.Println("   3. Tap 'Link a Device'")
		fmt.Println("   4. Scan the QR code shown above")
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// SendMessage sends a simple text message
func (s *Service) SendMessage(ctx context.Context, phoneNumber, message string) error {
	phoneNumber = NormalizePhoneNumber(phoneNumber)

	// Verify the number is on WhatsApp before sending
	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + phoneNumber})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", phoneNumber)
	}
	jid := resp[0].JID

	s.log.Debug().Str("jid", jid.String()).Str("phone", phoneNumber).Msg("Sending message")

	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &message,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", jid.String(), err)
	}
	s.log.Debug().Str("id", sent.ID).Time("timestamp", sent.Timestamp).Msg("Message sent")
	return nil
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	if evt == nil {
		return
	}
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Info().Msg("Logged out from WhatsApp")
	}
}

// handleMessage processes incoming messages
func (s *Service) handleMessage(msg *events.Message) {
	// Skip messages from self and from groups
	if msg.Info.IsFromMe || msg.Info.IsGroup {
		return
	}

	text := MessageText(msg.Message)
	if text == "" {
		return
	}
	sender := senderNumber(msg.Info.Sender)

	if s.messageHandler == nil {
		s.log.Info().Str("sender", sender).Str("message", text).Msg("Received message")
		return
	}
	if err := s.messageHandler(context.Background(), sender, text); err != nil {
		s.log.Error().Err(err).Str("sender", sender).Msg("Error handling message")
	}
}

// MessageText extracts plain text from a message, whether sent as a simple
// conversation or as extended text (replies, links)
func MessageText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if text := m.GetConversation(); text != "" {
		return text
	}
	return m.GetExtendedTextMessage().GetText()
}

func senderNumber(jid types.JID) string {
	return NormalizePhoneNumber(jid.User)
}

// SetMessageHandler sets a custom handler for incoming messages
func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

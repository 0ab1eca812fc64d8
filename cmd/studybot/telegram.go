package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"studymcq"
)

// maxDocumentBytes caps downloads; extracted content is truncated far below this anyway.
const maxDocumentBytes = 5 << 20

// Bot adapts Telegram updates to the assistant.
type Bot struct {
	api       *tgbotapi.BotAPI
	assistant *studymcq.Assistant
	http      *http.Client
}

// NewBot authorises against the Bot API.
func NewBot(token string, assistant *studymcq.Assistant) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	return &Bot{
		api:       api,
		assistant: assistant,
		http:      &http.Client{Timeout: time.Minute},
	}, nil
}

// Run polls for updates until ctx is cancelled. Updates of one user are handled
// strictly in order; different users are handled concurrently.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("[INFO] Authorised on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	queue := newUserQueue()
	defer queue.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			sender, ok := updateSender(update)
			if !ok {
				continue
			}
			queue.Submit(sender, func() { b.handleUpdate(ctx, update) })
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user := studymcq.User{ID: msg.From.ID, Username: msg.From.UserName}
	chatID := msg.Chat.ID

	switch {
	case msg.IsCommand():
		studymcq.VerboseLog("Command /%s from user %d", msg.Command(), user.ID)
		b.sendReplies(chatID, b.assistant.HandleCommand(ctx, user, msg.Command()))

	case msg.Document != nil:
		data, err := b.download(ctx, msg.Document)
		if err != nil {
			log.Printf("[ERROR] Downloading %s for user %d: %v", msg.Document.FileName, user.ID, err)
			b.sendReplies(chatID, []studymcq.Reply{{Text: "❌ Error downloading your file. Please try again."}})
			return
		}
		b.sendTyping(chatID)
		b.sendReplies(chatID, b.assistant.HandleDocument(ctx, user, msg.Document.FileName, data))

	case msg.Text != "":
		b.sendReplies(chatID, b.assistant.HandleText(ctx, user, msg.Text))
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("[WARN] Answering callback: %v", err)
	}
	if callback.Message == nil || callback.From == nil {
		return
	}

	user := studymcq.User{ID: callback.From.ID, Username: callback.From.UserName}
	replies := b.assistant.HandleAction(ctx, user, callback.Data)

	// a pressed keyboard is spent
	spent := tgbotapi.NewEditMessageReplyMarkup(callback.Message.Chat.ID, callback.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(spent); err != nil {
		studymcq.VerboseLog("Clearing keyboard: %v", err)
	}

	b.sendReplies(callback.Message.Chat.ID, replies)
}

func (b *Bot) download(ctx context.Context, doc *tgbotapi.Document) ([]byte, error) {
	if doc.FileSize > maxDocumentBytes {
		return nil, fmt.Errorf("file too large: %d bytes", doc.FileSize)
	}
	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status downloading file: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		studymcq.VerboseLog("Sending chat action: %v", err)
	}
}

func (b *Bot) sendReplies(chatID int64, replies []studymcq.Reply) {
	for _, r := range replies {
		msg := tgbotapi.NewMessage(chatID, r.Text)
		if r.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if len(r.Buttons) > 0 {
			msg.ReplyMarkup = keyboard(r.Buttons)
		}
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("[ERROR] Sending message to chat %d: %v", chatID, err)
		}
	}
}

// Notify implements studymcq.Notifier. Private chats share the user's id.
func (b *Bot) Notify(_ context.Context, owner int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(owner, text)); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

func keyboard(buttons [][]studymcq.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		kb := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			kb = append(kb, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Action.Encode()))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(kb...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

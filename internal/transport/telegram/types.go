// Package telegram connects the dispatcher to the Telegram Bot API.
package telegram

import (
	"context"

	"github.com/abgdnv/orderbot/internal/engine"
)

// Update is the subset of a Bot API update the bot reacts to.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// MessageHandler turns a user message into a reply.
type MessageHandler interface {
	Handle(ctx context.Context, userID, text string) engine.Reply
}

// Sender delivers a reply to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, reply engine.Reply) error
}

type keyboardButton struct {
	Text string `json:"text"`
}

type replyKeyboardMarkup struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type replyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

type sendMessageRequest struct {
	ChatID      int64  `json:"chat_id"`
	Text        string `json:"text"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// keyboard lays options out in rows of columns buttons; columns <= 0 means one per row.
func keyboard(options []string, columns int) [][]keyboardButton {
	if columns <= 0 {
		columns = 1
	}
	rows := make([][]keyboardButton, 0, (len(options)+columns-1)/columns)
	for i := 0; i < len(options); i += columns {
		end := min(i+columns, len(options))
		row := make([]keyboardButton, 0, end-i)
		for _, o := range options[i:end] {
			row = append(row, keyboardButton{Text: o})
		}
		rows = append(rows, row)
	}
	return rows
}

func replyMarkup(reply engine.Reply) any {
	if reply.RemoveKeyboard {
		return replyKeyboardRemove{RemoveKeyboard: true}
	}
	if len(reply.Options) == 0 {
		return nil
	}
	return replyKeyboardMarkup{Keyboard: keyboard(reply.Options, reply.Columns), ResizeKeyboard: true}
}

package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/service"
)

// Handler consumes converted updates.
type Handler interface {
	HandleUpdate(ctx context.Context, upd service.Update)
}

// Poll long-polls the Bot API and feeds updates to h one at a time until ctx
// is cancelled.
func (c *Client) Poll(ctx context.Context, h Handler) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := c.api.GetUpdatesChan(cfg)
	defer c.api.StopReceivingUpdates()

	c.log.Info().Msg("Polling for updates")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Stopped polling")
			return
		case raw, ok := <-updates:
			if !ok {
				return
			}
			upd, ok := ConvertUpdate(raw)
			if !ok {
				continue
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

// ConvertUpdate strips an update down to what the bot handles. Updates
// without a chat or sender are skipped.
func ConvertUpdate(raw tgbotapi.Update) (service.Update, bool) {
	switch {
	case raw.CallbackQuery != nil:
		return convertCallback(raw.UpdateID, raw.CallbackQuery)
	case raw.Message != nil:
		return convertMessage(raw.UpdateID, raw.Message)
	}
	return service.Update{}, false
}

func convertMessage(id int, msg *tgbotapi.Message) (service.Update, bool) {
	if msg.Chat == nil || msg.From == nil {
		return service.Update{}, false
	}
	upd := service.Update{
		ID:        id,
		Room:      roomInfo(msg.Chat),
		From:      sender(msg.From),
		Time:      time.Unix(int64(msg.Date), 0),
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.IsCommand() {
		upd.Command = strings.ToLower(msg.Command())
		upd.Args = msg.CommandArguments()
	}
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		s := sender(reply.From)
		upd.ReplyTo = &s
	}
	return upd, true
}

func convertCallback(id int, cb *tgbotapi.CallbackQuery) (service.Update, bool) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return service.Update{}, false
	}
	return service.Update{
		ID:   id,
		Room: roomInfo(cb.Message.Chat),
		From: sender(cb.From),
		Time: time.Now(),
		Callback: &service.Callback{
			ID:        cb.ID,
			Data:      cb.Data,
			MessageID: cb.Message.MessageID,
		},
	}, true
}

func roomInfo(chat *tgbotapi.Chat) service.RoomInfo {
	title := chat.Title
	if title == "" {
		title = strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	}
	return service.RoomInfo{
		ID:    chat.ID,
		Title: title,
		Type:  roomType(chat.Type),
	}
}

func roomType(t string) models.RoomType {
	switch t {
	case "private":
		return models.RoomTypePrivate
	case "group":
		return models.RoomTypeGroup
	case "supergroup":
		return models.RoomTypeSupergroup
	default:
		return models.RoomTypeUndefined
	}
}

func sender(u *tgbotapi.User) service.Sender {
	return service.Sender{ID: u.ID, FirstName: u.FirstName}
}

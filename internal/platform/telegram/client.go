package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	apperrors "dicers-bot/internal/common/errors"
	"dicers-bot/internal/common/logger"
	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/service"
)

// RPSError is returned when Telegram rate limits the bot.
type RPSError struct {
	Msg        string
	RetryAfter time.Duration
}

func (e *RPSError) Error() string {
	return e.Msg
}

// Client implements service.Transport on top of the Bot API.
type Client struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

func NewClient(token string, debug bool) (*Client, error) {
	log := logger.Component("telegram")
	if err := tgbotapi.SetLogger(botLogger{log: log}); err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 75 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on account")
	return &Client{api: api, log: log}, nil
}

func (c *Client) SendMessage(_ context.Context, roomID int64, text string, markup models.Markup) (int, error) {
	msg := tgbotapi.NewMessage(roomID, text)
	if markup != nil {
		msg.ReplyMarkup = inlineKeyboard(markup)
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, translateError("sendMessage", err)
	}
	return sent.MessageID, nil
}

func (c *Client) EditMessageText(_ context.Context, roomID int64, messageID int, text string, markup models.Markup) error {
	edit := tgbotapi.NewEditMessageText(roomID, messageID, text)
	if markup != nil {
		kb := inlineKeyboard(markup)
		edit.ReplyMarkup = &kb
	}
	_, err := c.api.Request(edit)
	return translateError("editMessageText", err)
}

func (c *Client) ClearMarkup(_ context.Context, roomID int64, messageID int) error {
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	_, err := c.api.Request(tgbotapi.NewEditMessageReplyMarkup(roomID, messageID, empty))
	return translateError("editMessageReplyMarkup", err)
}

func (c *Client) PinMessage(_ context.Context, roomID int64, messageID int) error {
	_, err := c.api.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              roomID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	return translateError("pinChatMessage", err)
}

// UnpinMessage removes the most recent pin of the bot.
func (c *Client) UnpinMessage(_ context.Context, roomID int64) error {
	_, err := c.api.Request(tgbotapi.UnpinChatMessageConfig{ChatID: roomID})
	return translateError("unpinChatMessage", err)
}

func (c *Client) RestrictUser(_ context.Context, roomID, userID int64, until time.Time, perms service.Permissions) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: roomID, UserID: userID},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       perms.SendMessages,
			CanSendMediaMessages:  perms.SendMedia,
			CanSendPolls:          perms.SendPolls,
			CanSendOtherMessages:  perms.SendOther,
			CanAddWebPagePreviews: perms.AddWebPagePreviews,
			CanChangeInfo:         perms.ChangeInfo,
			CanInviteUsers:        perms.InviteUsers,
			CanPinMessages:        perms.PinMessages,
		},
	}
	if !until.IsZero() {
		cfg.UntilDate = until.Unix()
	}
	_, err := c.api.Request(cfg)
	return translateError("restrictChatMember", err)
}

func (c *Client) ListAdministrators(_ context.Context, roomID int64) ([]int64, error) {
	members, err := c.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: roomID},
	})
	if err != nil {
		return nil, translateError("getChatAdministrators", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}
	return ids, nil
}

func (c *Client) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return translateError("answerCallbackQuery", err)
}

func inlineKeyboard(markup models.Markup) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(markup))
	for _, row := range markup {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// translateError maps Bot API failures onto the errors rooms understand.
func translateError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case strings.Contains(apiErr.Message, "message is not modified"):
			return service.ErrNotModified
		case apiErr.Code == http.StatusTooManyRequests:
			return &RPSError{
				Msg:        "Rate limit exceeded",
				RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
			}
		}
	}
	return apperrors.NewTelegramAPIError(operation, err)
}

// botLogger routes library output through zerolog.
type botLogger struct {
	log zerolog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Debug().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"dicers-bot/internal/common/errors"
	"dicers-bot/internal/common/logger"
)

const (
	InitDataHeader = "X-Telegram-Init-Data"
	userKey        = "user"
)

// TelegramInitData validates the Mini App init data signed with botToken and
// stores its user in the context. A zero ttl disables the expiry check.
func TelegramInitData(botToken string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			AbortWithError(c, errors.NewUnauthorizedError("Telegram init data required"))
			return
		}

		if err := initdata.Validate(raw, botToken, ttl); err != nil {
			logger.Debug().Err(err).Str("request_id", RequestIDFrom(c)).Msg("Init data validation failed")
			AbortWithError(c, errors.NewUnauthorizedError("invalid init data"))
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			AbortWithError(c, errors.NewValidationError("init_data", err.Error()))
			return
		}

		c.Set(userKey, parsed.User)
		c.Next()
	}
}

// CurrentUser returns the user stored by TelegramInitData.
func CurrentUser(c *gin.Context) (initdata.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return initdata.User{}, false
	}
	u, ok := v.(initdata.User)
	return u, ok
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"dicers-bot/internal/common/errors"
)

// RequireOwner lets only bot owners through. It must run after
// TelegramInitData.
func RequireOwner(isOwner func(userID int64) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			AbortWithError(c, errors.NewUnauthorizedError("Telegram init data required"))
			return
		}
		if !isOwner(user.ID) {
			AbortWithError(c, errors.NewForbiddenError("owner access required").WithUserID(user.ID))
			return
		}
		c.Next()
	}
}

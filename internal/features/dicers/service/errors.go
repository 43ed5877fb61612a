package service

import (
	stderrors "errors"

	apperrors "dicers-bot/internal/common/errors"
)

var (
	ErrCannotUnattendAfterRoll = apperrors.New(apperrors.ErrCodeCannotUnattendAfterRoll, "attendance is locked after rolling")
	ErrNotAttending            = apperrors.New(apperrors.ErrCodeNotAttending, "only attendees may roll")
	ErrNoCurrentEvent          = apperrors.New(apperrors.ErrCodeNoCurrentEvent, "there is no event right now")
	ErrForbidden               = apperrors.New(apperrors.ErrCodeForbidden, "not allowed to perform this action")
	ErrMainRoomOnly            = apperrors.New(apperrors.ErrCodeMainRoomOnly, "only allowed in the main room")
	ErrUserNotFound            = apperrors.New(apperrors.ErrCodeNotFound, "user not found")
)

// UserMessage is the text shown to a participant for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, ErrCannotUnattendAfterRoll):
		return "Du hast schon gewürfelt, absagen geht nicht mehr."
	case stderrors.Is(err, ErrNotAttending):
		return "Du bist nicht dabei, also würfelst du auch nicht."
	case stderrors.Is(err, ErrNoCurrentEvent):
		return "There is no event right now."
	case stderrors.Is(err, ErrForbidden), stderrors.Is(err, ErrMainRoomOnly):
		return "You're not allowed to perform this action."
	case stderrors.Is(err, ErrUserNotFound):
		return "I don't know that user."
	}
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsUserInput() {
		if reason, ok := appErr.Details["reason"].(string); ok {
			return reason
		}
		return appErr.Message
	}
	return "Something went wrong."
}

package service

import "dicers-bot/internal/features/dicers/models"

// Requirement is the privilege a command needs.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireChatAdmin
	RequireMainRoom
	RequireOwner
)

// Authorization is what the registry knows about the sender of one update.
type Authorization struct {
	RoomType  models.RoomType
	ChatAdmin bool
	MainRoom  bool
	Owner     bool
}

// Allows reports whether the sender meets req. Owners pass every check that
// does not depend on the room; private chats count as administered by their
// only member.
func (a Authorization) Allows(req Requirement) bool {
	switch req {
	case RequireNone:
		return true
	case RequireChatAdmin:
		return a.Owner || a.ChatAdmin || !a.RoomType.IsGroup()
	case RequireMainRoom:
		return a.MainRoom
	case RequireOwner:
		return a.Owner
	default:
		return false
	}
}

// Deny returns the error for a failed req.
func (a Authorization) Deny(req Requirement) error {
	if req == RequireMainRoom {
		return ErrMainRoomOnly
	}
	return ErrForbidden
}

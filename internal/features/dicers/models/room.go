package models

import "strings"

type RoomType string

const (
	RoomTypeUndefined  RoomType = ""
	RoomTypePrivate    RoomType = "private"
	RoomTypeGroup      RoomType = "group"
	RoomTypeSupergroup RoomType = "supergroup"
)

// IsGroup reports whether the room supports pins, admins and restrictions.
func (t RoomType) IsGroup() bool {
	return t == RoomTypeGroup || t == RoomTypeSupergroup
}

// KeyboardState is the interactive message a room currently shows.
type KeyboardState int

const (
	KeyboardNone KeyboardState = iota
	KeyboardAttend
	KeyboardDice
)

func (k KeyboardState) String() string {
	switch k {
	case KeyboardAttend:
		return "ATTEND"
	case KeyboardDice:
		return "DICE"
	default:
		return "NONE"
	}
}

// Room is the state of one chat the bot serves. Users accumulate from
// observed activity and do not mirror platform membership.
type Room struct {
	ID              int64
	Title           string
	Type            RoomType
	Users           map[int64]*User
	CurrentEvent    *Event
	Events          []*Event
	PinnedMessageID int
	CurrentKeyboard KeyboardState
	SpamDetection   bool

	// Messages whose keyboards are kept in sync with the current event.
	AttendMessageID int
	DiceMessageID   int
}

func NewRoom(id int64) *Room {
	return &Room{
		ID:            id,
		Users:         make(map[int64]*User),
		SpamDetection: true,
	}
}

func (r *Room) User(id int64) (*User, bool) {
	u, ok := r.Users[id]
	return u, ok
}

func (r *Room) AddUser(u *User) {
	r.Users[u.ID] = u
}

// UserByName finds a user by case-insensitive name.
func (r *Room) UserByName(name string) (*User, bool) {
	for _, u := range r.UserList() {
		if strings.EqualFold(u.Name, name) {
			return u, true
		}
	}
	return nil, false
}

// UserList returns all known users sorted by name.
func (r *Room) UserList() []*User {
	return SortByName(mapValues(r.Users))
}

// NotVoted returns known users who are neither attendee nor absentee.
func (r *Room) NotVoted() []*User {
	var users []*User
	for _, u := range r.UserList() {
		if r.CurrentEvent == nil || !r.CurrentEvent.HasVoted(u) {
			users = append(users, u)
		}
	}
	return users
}

// EveryoneVoted reports whether a multi-user room has fully answered the poll.
func (r *Room) EveryoneVoted() bool {
	if r.CurrentEvent == nil || len(r.Users) <= 1 {
		return false
	}
	return r.CurrentEvent.VoteCount() == len(r.Users)
}

// CloseCurrentEvent moves the open event into the history.
func (r *Room) CloseCurrentEvent() bool {
	if r.CurrentEvent == nil {
		return false
	}
	r.Events = append(r.Events, r.CurrentEvent)
	r.CurrentEvent = nil
	return true
}

package service

import (
	"time"

	"dicers-bot/internal/features/dicers/models"
)

// Update is one inbound message or button press, already stripped of
// platform specifics.
type Update struct {
	ID        int
	Room      RoomInfo
	From      Sender
	Time      time.Time
	MessageID int
	Text      string

	// Command is set without the leading slash and bot suffix; Args is the
	// rest of the line.
	Command string
	Args    string

	ReplyTo  *Sender
	Callback *Callback
}

type RoomInfo struct {
	ID    int64
	Title string
	Type  models.RoomType
}

type Sender struct {
	ID        int64
	FirstName string
}

type Callback struct {
	ID        string
	Data      string
	MessageID int
}

func (u Update) IsCommand() bool {
	return u.Command != ""
}

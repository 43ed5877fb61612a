package models

import (
	"fmt"
	"strings"

	"dicers-bot/internal/features/dicers/spam"
)

// NoRoll marks a user who has not committed a dice result this round.
const NoRoll = -1

// User is a participant inside one room. Identity is the platform id.
type User struct {
	ID        int64
	Name      string
	Roll      int
	Jumbo     bool
	Alcoholic bool
	Drink     string
	Muted     bool

	// Spamming latches while a spam episode is ongoing; SpamSeverity is the
	// highest severity punished during that episode.
	Spamming     bool
	SpamSeverity spam.Severity

	// RollOffences counts denied roll attempts in the current round.
	RollOffences int

	Messages []spam.Message
}

func NewUser(id int64, name string) *User {
	return &User{
		ID:        id,
		Name:      name,
		Roll:      NoRoll,
		Alcoholic: true,
	}
}

func (u *User) HasRolled() bool {
	return u.Roll != NoRoll
}

// ResetRound clears everything that only lives for one event.
func (u *User) ResetRound() {
	u.Roll = NoRoll
	u.Jumbo = false
	u.RollOffences = 0
}

// RecordMessage appends msg to the history, keeping at most limit entries.
func (u *User) RecordMessage(msg spam.Message, limit int) {
	u.Messages = append(u.Messages, msg)
	if limit > 0 && len(u.Messages) > limit {
		u.Messages = append([]spam.Message(nil), u.Messages[len(u.Messages)-limit:]...)
	}
}

// AttendedEvents returns the events in which the user was an attendee.
func (u *User) AttendedEvents(events []*Event) []*Event {
	var attended []*Event
	for _, e := range events {
		if e.IsAttendee(u) {
			attended = append(attended, e)
		}
	}
	return attended
}

func (u *User) String() string {
	roll := "no roll"
	if u.HasRolled() {
		roll = fmt.Sprintf("%d", u.Roll)
	}
	if u.Jumbo {
		roll += " (+1)"
	}
	muted := "not muted"
	if u.Muted {
		muted = "muted"
	}
	return "<" + strings.Join([]string{u.Name, roll, muted}, " | ") + ">"
}

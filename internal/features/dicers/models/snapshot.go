package models

import (
	"sort"
	"time"
)

// Snapshot is the persisted form of every room. Optional fields are pointers
// so absent values can be told apart from zero values when loading.
type Snapshot struct {
	MainID *int64         `json:"main_id"`
	Rooms  []RoomSnapshot `json:"chats"`
}

type RoomSnapshot struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Type            string          `json:"type,omitempty"`
	SpamDetection   *bool           `json:"spam_detection,omitempty"`
	PinnedMessageID *int            `json:"pinned_message_id"`
	AttendMessageID *int            `json:"attend_message_id,omitempty"`
	DiceMessageID   *int            `json:"dice_message_id,omitempty"`
	CurrentKeyboard string          `json:"current_keyboard,omitempty"`
	CurrentEvent    *EventSnapshot  `json:"current_event"`
	Events          []EventSnapshot `json:"events"`
	Users           []UserSnapshot  `json:"users"`
}

type EventSnapshot struct {
	Timestamp string         `json:"timestamp"`
	Attendees []UserSnapshot `json:"attendees"`
	Absentees []UserSnapshot `json:"absentees"`
}

type UserSnapshot struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Roll      *int    `json:"roll,omitempty"`
	Jumbo     *bool   `json:"jumbo,omitempty"`
	Alcoholic *bool   `json:"alcoholic,omitempty"`
	Muted     *bool   `json:"muted,omitempty"`
	Drink     *string `json:"drink_name"`
}

func (u *User) Snapshot() UserSnapshot {
	roll, jumbo, alcoholic, muted := u.Roll, u.Jumbo, u.Alcoholic, u.Muted
	s := UserSnapshot{
		ID:        u.ID,
		Name:      u.Name,
		Roll:      &roll,
		Jumbo:     &jumbo,
		Alcoholic: &alcoholic,
		Muted:     &muted,
	}
	if u.Drink != "" {
		drink := u.Drink
		s.Drink = &drink
	}
	return s
}

// UserFromSnapshot restores a user, defaulting every missing field.
func UserFromSnapshot(s UserSnapshot) *User {
	u := NewUser(s.ID, s.Name)
	if s.Roll != nil {
		u.Roll = *s.Roll
	}
	if s.Jumbo != nil {
		u.Jumbo = *s.Jumbo
	}
	if s.Alcoholic != nil {
		u.Alcoholic = *s.Alcoholic
	}
	if s.Muted != nil {
		u.Muted = *s.Muted
	}
	if s.Drink != nil {
		u.Drink = *s.Drink
	}
	return u
}

func (e *Event) Snapshot() EventSnapshot {
	s := EventSnapshot{
		Timestamp: e.Timestamp.Format(DateFormat),
		Attendees: make([]UserSnapshot, 0, len(e.Attendees)),
		Absentees: make([]UserSnapshot, 0, len(e.Absentees)),
	}
	for _, u := range sortByID(mapValues(e.Attendees)) {
		s.Attendees = append(s.Attendees, u.Snapshot())
	}
	for _, u := range sortByID(mapValues(e.Absentees)) {
		s.Absentees = append(s.Absentees, u.Snapshot())
	}
	return s
}

// eventFromSnapshot resolves members against known users so the current
// event shares identity with the room's user set.
func eventFromSnapshot(s EventSnapshot, users map[int64]*User, loc *time.Location) *Event {
	e := &Event{
		Attendees: make(map[int64]*User),
		Absentees: make(map[int64]*User),
	}
	if ts, err := time.ParseInLocation(DateFormat, s.Timestamp, loc); err == nil {
		e.Timestamp = ts
	}
	resolve := func(us UserSnapshot) *User {
		if u, ok := users[us.ID]; ok {
			return u
		}
		return UserFromSnapshot(us)
	}
	for _, us := range s.Attendees {
		e.AddAttendee(resolve(us))
	}
	for _, us := range s.Absentees {
		if _, attending := e.Attendees[us.ID]; attending {
			continue
		}
		e.AddAbsentee(resolve(us))
	}
	return e
}

func (r *Room) Snapshot() RoomSnapshot {
	spamDetection := r.SpamDetection
	s := RoomSnapshot{
		ID:              r.ID,
		Title:           r.Title,
		Type:            string(r.Type),
		SpamDetection:   &spamDetection,
		CurrentKeyboard: r.CurrentKeyboard.String(),
		Events:          make([]EventSnapshot, 0, len(r.Events)),
		Users:           make([]UserSnapshot, 0, len(r.Users)),
	}
	s.PinnedMessageID = optionalInt(r.PinnedMessageID)
	s.AttendMessageID = optionalInt(r.AttendMessageID)
	s.DiceMessageID = optionalInt(r.DiceMessageID)
	if r.CurrentEvent != nil {
		ev := r.CurrentEvent.Snapshot()
		s.CurrentEvent = &ev
	}
	for _, e := range r.Events {
		s.Events = append(s.Events, e.Snapshot())
	}
	for _, u := range sortByID(mapValues(r.Users)) {
		s.Users = append(s.Users, u.Snapshot())
	}
	return s
}

// RoomFromSnapshot restores a room. Event dates are read in loc.
func RoomFromSnapshot(s RoomSnapshot, loc *time.Location) *Room {
	r := NewRoom(s.ID)
	r.Title = s.Title
	r.Type = RoomType(s.Type)
	if s.SpamDetection != nil {
		r.SpamDetection = *s.SpamDetection
	}
	if s.PinnedMessageID != nil {
		r.PinnedMessageID = *s.PinnedMessageID
	}
	if s.AttendMessageID != nil {
		r.AttendMessageID = *s.AttendMessageID
	}
	if s.DiceMessageID != nil {
		r.DiceMessageID = *s.DiceMessageID
	}
	for _, us := range s.Users {
		r.AddUser(UserFromSnapshot(us))
	}
	if s.CurrentEvent != nil {
		r.CurrentEvent = eventFromSnapshot(*s.CurrentEvent, r.Users, loc)
		switch s.CurrentKeyboard {
		case KeyboardAttend.String():
			r.CurrentKeyboard = KeyboardAttend
		case KeyboardDice.String():
			r.CurrentKeyboard = KeyboardDice
		}
	}
	for _, es := range s.Events {
		r.Events = append(r.Events, eventFromSnapshot(es, r.Users, loc))
	}
	return r
}

func optionalInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func sortByID(users []*User) []*User {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

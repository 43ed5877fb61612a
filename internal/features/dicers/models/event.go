package models

import (
	"sort"
	"strings"
	"time"
)

// DateFormat is the day format events are stored with.
const DateFormat = "02.01.2006"

// Event is one week's attendance and roll round. A user is in at most one of
// Attendees and Absentees; one who has not voted is in neither.
type Event struct {
	Timestamp time.Time
	Attendees map[int64]*User
	Absentees map[int64]*User
}

// NewEvent creates an event dated the Monday on or after today.
func NewEvent(today time.Time) *Event {
	return &Event{
		Timestamp: NextMonday(today),
		Attendees: make(map[int64]*User),
		Absentees: make(map[int64]*User),
	}
}

// NextMonday returns the date of the next Monday, today included.
func NextMonday(today time.Time) time.Time {
	d := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	daysAhead := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, daysAhead)
}

// AddAttendee moves u into the attendees, out of the absentees.
func (e *Event) AddAttendee(u *User) {
	delete(e.Absentees, u.ID)
	e.Attendees[u.ID] = u
}

// AddAbsentee moves u into the absentees, out of the attendees.
func (e *Event) AddAbsentee(u *User) {
	delete(e.Attendees, u.ID)
	e.Absentees[u.ID] = u
}

// Remove forgets u's vote entirely.
func (e *Event) Remove(u *User) {
	delete(e.Attendees, u.ID)
	delete(e.Absentees, u.ID)
}

func (e *Event) IsAttendee(u *User) bool {
	_, ok := e.Attendees[u.ID]
	return ok
}

func (e *Event) IsAbsentee(u *User) bool {
	_, ok := e.Absentees[u.ID]
	return ok
}

func (e *Event) HasVoted(u *User) bool {
	return e.IsAttendee(u) || e.IsAbsentee(u)
}

// VoteCount is the number of users who answered the poll.
func (e *Event) VoteCount() int {
	return len(e.Attendees) + len(e.Absentees)
}

// AttendeeList returns attendees sorted by name.
func (e *Event) AttendeeList() []*User {
	return SortByName(mapValues(e.Attendees))
}

// AbsenteeList returns absentees sorted by name.
func (e *Event) AbsenteeList() []*User {
	return SortByName(mapValues(e.Absentees))
}

func mapValues(m map[int64]*User) []*User {
	users := make([]*User, 0, len(m))
	for _, u := range m {
		users = append(users, u)
	}
	return users
}

// SortByName orders users by name, ties broken by id so the order is stable.
func SortByName(users []*User) []*User {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name == users[j].Name {
			return users[i].ID < users[j].ID
		}
		return users[i].Name < users[j].Name
	})
	return users
}

// SortByNameFold orders users by case-insensitive name.
func SortByNameFold(users []*User) []*User {
	sort.Slice(users, func(i, j int) bool {
		a, b := strings.ToLower(users[i].Name), strings.ToLower(users[j].Name)
		if a == b {
			return users[i].ID < users[j].ID
		}
		return a < b
	})
	return users
}

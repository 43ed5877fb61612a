package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicers-bot/internal/features/dicers/spam"
)

func TestNextMonday(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	start := time.Date(2024, time.January, 1, 15, 30, 0, 0, berlin)
	for i := 0; i < 400; i++ {
		today := start.AddDate(0, 0, i)
		got := NextMonday(today)
		day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, berlin)

		assert.Equal(t, time.Monday, got.Weekday(), "from %s", today)
		assert.False(t, got.Before(day), "from %s", today)
		assert.False(t, got.After(day.AddDate(0, 0, 6)), "from %s", today)
	}

	monday := time.Date(2024, time.March, 4, 23, 59, 0, 0, berlin)
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, berlin), NextMonday(monday))

	sunday := time.Date(2024, time.March, 10, 8, 0, 0, 0, berlin)
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, berlin), NextMonday(sunday))
}

func TestEventMembershipIsExclusive(t *testing.T) {
	e := NewEvent(time.Now())
	alice := NewUser(1, "alice")

	e.AddAttendee(alice)
	assert.True(t, e.IsAttendee(alice))
	assert.False(t, e.IsAbsentee(alice))

	e.AddAbsentee(alice)
	assert.False(t, e.IsAttendee(alice))
	assert.True(t, e.IsAbsentee(alice))

	e.AddAttendee(alice)
	assert.True(t, e.IsAttendee(alice))
	assert.False(t, e.IsAbsentee(alice))
	assert.Equal(t, 1, e.VoteCount())

	e.Remove(alice)
	assert.False(t, e.HasVoted(alice))
}

func TestRoomEveryoneVoted(t *testing.T) {
	r := NewRoom(-100)
	alice, bob := NewUser(1, "alice"), NewUser(2, "bob")
	r.AddUser(alice)
	r.CurrentEvent = NewEvent(time.Now())

	r.CurrentEvent.AddAttendee(alice)
	assert.False(t, r.EveryoneVoted(), "a single user never counts as everyone")

	r.AddUser(bob)
	assert.False(t, r.EveryoneVoted())
	assert.Equal(t, []*User{bob}, r.NotVoted())

	r.CurrentEvent.AddAbsentee(bob)
	assert.True(t, r.EveryoneVoted())
}

func TestUserRecordMessageIsBounded(t *testing.T) {
	u := NewUser(1, "alice")
	for i := 0; i < 10; i++ {
		u.RecordMessage(spam.Message{ID: i}, 4)
	}
	require.Len(t, u.Messages, 4)
	assert.Equal(t, 6, u.Messages[0].ID)
	assert.Equal(t, 9, u.Messages[3].ID)
}

func TestAttendedEvents(t *testing.T) {
	alice, bob := NewUser(1, "alice"), NewUser(2, "bob")
	first, second := NewEvent(time.Now()), NewEvent(time.Now())
	first.AddAttendee(alice)
	first.AddAbsentee(bob)
	second.AddAttendee(alice)
	second.AddAttendee(bob)

	assert.Len(t, alice.AttendedEvents([]*Event{first, second}), 2)
	assert.Equal(t, []*Event{second}, bob.AttendedEvents([]*Event{first, second}))
}

func TestParseRollChoice(t *testing.T) {
	c, err := ParseRollChoice("dice_4")
	require.NoError(t, err)
	assert.Equal(t, RollChoice{Kind: RollValue, Value: 4}, c)

	c, err = ParseRollChoice(CallbackJumbo)
	require.NoError(t, err)
	assert.Equal(t, RollJumbo, c.Kind)

	c, err = ParseRollChoice(CallbackSober)
	require.NoError(t, err)
	assert.Equal(t, RollNonAlcoholic, c.Kind)

	for _, bad := range []string{"dice_7", "dice_0", "dice_x", "attend_True"} {
		_, err := ParseRollChoice(bad)
		assert.Error(t, err, bad)
	}
}

func TestRoomFromSnapshotDefaultsMissingFields(t *testing.T) {
	raw := `{
		"id": -42,
		"title": "Würfelrunde",
		"current_event": {
			"timestamp": "04.03.2024",
			"attendees": [{"id": 1, "name": "alice"}],
			"absentees": [{"id": 2, "name": "bob"}]
		},
		"events": [],
		"users": [
			{"id": 1, "name": "alice", "roll": 5},
			{"id": 2, "name": "bob"}
		]
	}`
	var s RoomSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	r := RoomFromSnapshot(s, time.UTC)

	assert.True(t, r.SpamDetection)
	bob, ok := r.User(2)
	require.True(t, ok)
	assert.Equal(t, NoRoll, bob.Roll)
	assert.False(t, bob.Jumbo)
	assert.True(t, bob.Alcoholic)
	assert.False(t, bob.Muted)
	assert.Empty(t, bob.Drink)

	alice, _ := r.User(1)
	assert.Equal(t, 5, alice.Roll)
	require.NotNil(t, r.CurrentEvent)
	assert.Same(t, alice, r.CurrentEvent.Attendees[1], "event members share identity with room users")
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), r.CurrentEvent.Timestamp)
}

func TestRoomSnapshotRoundTrip(t *testing.T) {
	r := NewRoom(-7)
	r.Title = "dicers"
	r.Type = RoomTypeSupergroup
	alice := NewUser(1, "alice")
	alice.Roll, alice.Jumbo, alice.Drink = 3, true, "Mojito"
	r.AddUser(alice)
	r.CurrentEvent = NewEvent(time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC))
	r.CurrentEvent.AddAttendee(alice)
	r.CurrentKeyboard = KeyboardDice
	r.DiceMessageID = 99

	data, err := json.Marshal(r.Snapshot())
	require.NoError(t, err)
	var s RoomSnapshot
	require.NoError(t, json.Unmarshal(data, &s))
	restored := RoomFromSnapshot(s, time.UTC)

	assert.Equal(t, r.Title, restored.Title)
	assert.Equal(t, RoomTypeSupergroup, restored.Type)
	assert.Equal(t, KeyboardDice, restored.CurrentKeyboard)
	assert.Equal(t, 99, restored.DiceMessageID)
	got, _ := restored.User(1)
	assert.Equal(t, "Mojito", got.Drink)
	assert.True(t, restored.CurrentEvent.IsAttendee(got))
	assert.Equal(t, time.Monday, restored.CurrentEvent.Timestamp.Weekday())
}

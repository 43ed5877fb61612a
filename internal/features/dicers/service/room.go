package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dicers-bot/internal/common/logger"
	"dicers-bot/internal/features/dicers/models"
)

const everyoneVotedNotice = "Alle haben abgestimmt!"

// Room is the aggregate that owns one chat's event lifecycle. All state
// changes happen under mu, including those made by deferred timers.
type Room struct {
	mu    sync.Mutex
	state *models.Room
	deps  Deps
	log   zerolog.Logger
}

func NewRoom(state *models.Room, deps Deps) *Room {
	return &Room{
		state: state,
		deps:  deps,
		log:   logger.Component("room").With().Int64("room_id", state.ID).Logger(),
	}
}

func (r *Room) ID() int64 {
	return r.state.ID
}

// View runs fn with the room locked. fn must not keep references to the state.
func (r *Room) View(fn func(state *models.Room)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.state)
}

// Touch refreshes the title and type the platform reports for the room.
func (r *Room) Touch(title string, typ models.RoomType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if title != "" {
		r.state.Title = title
	}
	if typ != models.RoomTypeUndefined {
		r.state.Type = typ
	}
}

// EnsureUser returns the room's user with id, creating it on first sight.
func (r *Room) EnsureUser(id int64, name string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.state.User(id); ok {
		if name != "" {
			u.Name = name
		}
		return u
	}
	u := models.NewUser(id, name)
	r.state.AddUser(u)
	r.log.Debug().Int64("user_id", id).Str("name", name).Msg("Added user")
	return u
}

// RemoveUser forgets a user; closed events keep their references.
func (r *Room) RemoveUser(name string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.state.UserByName(name)
	if !ok {
		return nil, ErrUserNotFound.WithDetail("name", name)
	}
	delete(r.state.Users, u.ID)
	if r.state.CurrentEvent != nil {
		r.state.CurrentEvent.Remove(u)
	}
	r.log.Info().Int64("user_id", u.ID).Msg("Removed user")
	return u, nil
}

// SetAttendMessage tracks the message an attend callback arrived on.
func (r *Room) SetAttendMessage(messageID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.AttendMessageID = messageID
}

// SetDiceMessage tracks the message a dice callback arrived on.
func (r *Room) SetDiceMessage(messageID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.DiceMessageID = messageID
}

func (r *Room) SetDrink(u *models.User, drink string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Drink = strings.TrimSpace(drink)
}

// ToggleSpamDetection flips spam detection and returns the new setting.
func (r *Room) ToggleSpamDetection() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.SpamDetection = !r.state.SpamDetection
	return r.state.SpamDetection
}

// Reply sends a plain message to the room.
func (r *Room) Reply(ctx context.Context, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.send(ctx, text, nil)
	return ok
}

func (r *Room) Snapshot() models.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot()
}

// startEvent opens an event unless one is already running.
func (r *Room) startEvent() {
	if r.state.CurrentEvent != nil {
		return
	}
	r.state.CurrentEvent = models.NewEvent(r.now())
	r.log.Info().Str("date", r.state.CurrentEvent.Timestamp.Format(models.DateFormat)).Msg("Started event")
}

// ShowAttend posts and pins the attendance poll, opening an event if needed.
func (r *Room) ShowAttend(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startEvent()
	id, ok := r.send(ctx, r.attendText(), models.AttendMarkup())
	if !ok {
		return false
	}
	r.state.AttendMessageID = id
	r.state.CurrentKeyboard = models.KeyboardAttend
	r.pin(ctx, id)
	return true
}

// ToggleAttend records u's answer to the poll.
func (r *Room) ToggleAttend(ctx context.Context, u *models.User, attends bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev := r.state.CurrentEvent
	if ev == nil {
		r.refreshAttendMessage(ctx)
		return ErrNoCurrentEvent
	}
	firstVote := !ev.HasVoted(u)

	if attends {
		ev.AddAttendee(u)
		if r.deps.Notifier != nil {
			r.deps.Notifier.Attending(ctx, r.state.ID, u)
		}
		if u.Muted {
			r.unmute(ctx, u)
		}
		u.Muted = false
	} else {
		if ev.IsAttendee(u) && u.HasRolled() {
			return ErrCannotUnattendAfterRoll.WithUserID(u.ID)
		}
		ev.AddAbsentee(u)
		r.scheduleAbsenceCheck(u)
		if r.state.CurrentKeyboard == models.KeyboardDice {
			r.refreshDiceMessage(ctx)
		}
	}
	r.log.Info().Int64("user_id", u.ID).Bool("attends", attends).Msg("Toggled attendance")

	r.refreshAttendMessage(ctx)
	if firstVote && r.state.EveryoneVoted() {
		r.send(ctx, everyoneVotedNotice, nil)
	}
	return nil
}

// ShowDice posts and pins the dice keyboard for the running event.
func (r *Room) ShowDice(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.CurrentEvent == nil {
		r.log.Info().Msg("No current event, not showing dice")
		r.send(ctx, "There is no event right now, unable to provide a dice.", nil)
		return false, ErrNoCurrentEvent
	}
	id, ok := r.send(ctx, r.diceText(), models.DiceMarkup())
	if !ok {
		return false, nil
	}
	r.state.DiceMessageID = id
	r.state.CurrentKeyboard = models.KeyboardDice
	r.pin(ctx, id)
	return true, nil
}

// Roll applies a dice keyboard choice. Only attendees may roll; anybody else
// is muted.
func (r *Room) Roll(ctx context.Context, u *models.User, choice models.RollChoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev := r.state.CurrentEvent
	if ev == nil {
		r.refreshDiceMessage(ctx)
		return ErrNoCurrentEvent
	}
	if !ev.IsAttendee(u) {
		u.RollOffences++
		if !u.Muted {
			r.mute(ctx, u, punitiveRollMute(u.RollOffences), "Würfeln ohne dabei zu sein")
		}
		return ErrNotAttending.WithUserID(u.ID)
	}

	switch choice.Kind {
	case models.RollValue:
		u.Roll = choice.Value
	case models.RollJumbo:
		u.Jumbo = true
	case models.RollNormal:
		u.Jumbo = false
	case models.RollAlcoholic:
		u.Alcoholic = true
	case models.RollNonAlcoholic:
		u.Alcoholic = false
	}
	r.log.Info().Int64("user_id", u.ID).Str("user", u.String()).Msg("Rolled")

	r.refreshDiceMessage(ctx)
	return nil
}

// Reset closes the current event and clears the round for every user. It
// reports false if any platform call failed; local state is reset anyway.
func (r *Room) Reset(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.CloseCurrentEvent()
	ok := r.refreshAttendMessage(ctx)
	ok = r.refreshDiceMessage(ctx) && ok
	ok = r.unpin(ctx) && ok
	r.state.PinnedMessageID = 0
	r.state.CurrentKeyboard = models.KeyboardNone

	for _, u := range r.state.UserList() {
		u.ResetRound()
	}
	if failed := r.unmuteAll(ctx); len(failed) > 0 {
		ok = false
	}
	for _, u := range r.state.Users {
		u.Muted = false
	}
	r.log.Info().Int("closed_events", len(r.state.Events)).Bool("ok", ok).Msg("Reset room")
	return ok
}

// AttendedCount is how many closed events u attended.
func (r *Room) AttendedCount(u *models.User) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(u.AttendedEvents(r.state.Events))
}

// refreshAttendMessage re-renders the tracked attend message. Without an
// event the buttons are removed instead. Returns false on transport failure.
func (r *Room) refreshAttendMessage(ctx context.Context) bool {
	id := r.state.AttendMessageID
	if id == 0 {
		return true
	}
	if r.state.CurrentEvent == nil {
		r.state.AttendMessageID = 0
		return r.clearMarkup(ctx, id)
	}
	return r.edit(ctx, id, r.attendText(), models.AttendMarkup())
}

func (r *Room) refreshDiceMessage(ctx context.Context) bool {
	id := r.state.DiceMessageID
	if id == 0 {
		return true
	}
	if r.state.CurrentEvent == nil {
		r.state.DiceMessageID = 0
		return r.clearMarkup(ctx, id)
	}
	return r.edit(ctx, id, r.diceText(), models.DiceMarkup())
}

func (r *Room) send(ctx context.Context, text string, markup models.Markup) (int, bool) {
	id, err := r.deps.Transport.SendMessage(ctx, r.state.ID, text, markup)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to send message")
		return 0, false
	}
	return id, true
}

func (r *Room) edit(ctx context.Context, messageID int, text string, markup models.Markup) bool {
	err := r.deps.Transport.EditMessageText(ctx, r.state.ID, messageID, text, markup)
	if err != nil && !errors.Is(err, ErrNotModified) {
		r.log.Error().Err(err).Int("message_id", messageID).Msg("Failed to edit message")
		return false
	}
	return true
}

func (r *Room) clearMarkup(ctx context.Context, messageID int) bool {
	err := r.deps.Transport.ClearMarkup(ctx, r.state.ID, messageID)
	if err != nil && !errors.Is(err, ErrNotModified) {
		r.log.Warn().Err(err).Int("message_id", messageID).Msg("Failed to clear keyboard")
		return false
	}
	return true
}

// pin replaces any existing pin with messageID. Private chats have no pins.
func (r *Room) pin(ctx context.Context, messageID int) bool {
	if !r.state.Type.IsGroup() {
		return false
	}
	if r.state.PinnedMessageID != 0 {
		r.unpin(ctx)
	}
	if err := r.deps.Transport.PinMessage(ctx, r.state.ID, messageID); err != nil {
		r.log.Warn().Err(err).Int("message_id", messageID).Msg("Pinning message failed")
		return false
	}
	r.state.PinnedMessageID = messageID
	return true
}

func (r *Room) unpin(ctx context.Context) bool {
	if !r.state.Type.IsGroup() {
		return true
	}
	if err := r.deps.Transport.UnpinMessage(ctx, r.state.ID); err != nil {
		r.log.Warn().Err(err).Msg("Failed to unpin message")
		return false
	}
	r.state.PinnedMessageID = 0
	return true
}

func (r *Room) now() time.Time {
	now := r.deps.Clock.Now()
	if r.deps.Settings.Location == nil {
		return now
	}
	return now.In(r.deps.Settings.Location)
}

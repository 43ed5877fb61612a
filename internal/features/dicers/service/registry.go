package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	apperrors "dicers-bot/internal/common/errors"
	"dicers-bot/internal/common/logger"
	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/repository"
	"dicers-bot/internal/features/dicers/spam"
)

type RegistryConfig struct {
	Owners        []int64
	AdminCacheTTL time.Duration
	Version       string
}

// Registry maps chats to rooms, routes inbound updates and runs the
// room-wide sweeps.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[int64]*Room
	mainID *int64

	persistMu sync.Mutex

	owners   map[int64]struct{}
	admins   *cache.Cache
	repo     repository.SnapshotRepository
	deps     Deps
	version  string
	commands map[string]command
	log      zerolog.Logger
}

func NewRegistry(deps Deps, repo repository.SnapshotRepository, cfg RegistryConfig) *Registry {
	ttl := cfg.AdminCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	owners := make(map[int64]struct{}, len(cfg.Owners))
	for _, id := range cfg.Owners {
		owners[id] = struct{}{}
	}
	return &Registry{
		rooms:    make(map[int64]*Room),
		owners:   owners,
		admins:   cache.New(ttl, 2*ttl),
		repo:     repo,
		deps:     deps,
		version:  cfg.Version,
		commands: commandTable(),
		log:      logger.Component("registry"),
	}
}

// Load restores rooms from the repository. A missing or undecodable snapshot
// starts empty; only read failures are returned.
func (g *Registry) Load(ctx context.Context) error {
	snapshot, err := g.repo.Load(ctx)
	if errors.Is(err, repository.ErrNoSnapshot) {
		g.log.Info().Msg("No stored state, starting empty")
		return nil
	}
	if errors.Is(err, repository.ErrCorruptSnapshot) {
		g.log.Warn().Err(err).Msg("Stored state is corrupt, starting empty")
		return nil
	}
	if err != nil {
		return apperrors.NewStorageError("load", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.mainID = snapshot.MainID
	released := 0
	for _, rs := range snapshot.Rooms {
		state := models.RoomFromSnapshot(rs, g.deps.Settings.Location)
		// Unmute timers do not survive a restart. The platform lifts its own
		// restriction, so the local flag is dropped rather than left stuck.
		for _, u := range state.Users {
			if u.Muted {
				u.Muted = false
				released++
			}
		}
		g.rooms[state.ID] = NewRoom(state, g.deps)
	}
	g.log.Info().Int("rooms", len(g.rooms)).Int("released_mutes", released).Msg("Loaded state")
	return nil
}

// Snapshot captures every room, ordered by id.
func (g *Registry) Snapshot() *models.Snapshot {
	rooms := g.Rooms()
	s := &models.Snapshot{Rooms: make([]models.RoomSnapshot, 0, len(rooms))}
	g.mu.RLock()
	if g.mainID != nil {
		id := *g.mainID
		s.MainID = &id
	}
	g.mu.RUnlock()
	for _, r := range rooms {
		s.Rooms = append(s.Rooms, r.Snapshot())
	}
	return s
}

// Persist writes the full snapshot.
func (g *Registry) Persist(ctx context.Context) error {
	g.persistMu.Lock()
	defer g.persistMu.Unlock()
	if err := g.repo.Save(ctx, g.Snapshot()); err != nil {
		g.log.Error().Err(err).Msg("Failed to persist state")
		return apperrors.NewStorageError("save", err)
	}
	return nil
}

// Ping checks the snapshot repository.
func (g *Registry) Ping(ctx context.Context) error {
	return g.repo.Ping(ctx)
}

func (g *Registry) SetMainRoom(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mainID = &id
	g.log.Info().Int64("room_id", id).Msg("Registered main room")
}

func (g *Registry) MainRoomID() (int64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.mainID == nil {
		return 0, false
	}
	return *g.mainID, true
}

func (g *Registry) Room(id int64) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	return r, ok
}

// Rooms returns all rooms ordered by id.
func (g *Registry) Rooms() []*Room {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID() < rooms[j].ID() })
	return rooms
}

func (g *Registry) IsOwner(userID int64) bool {
	_, ok := g.owners[userID]
	return ok
}

func (g *Registry) ensureRoom(info RoomInfo) *Room {
	g.mu.Lock()
	r, ok := g.rooms[info.ID]
	if !ok {
		r = NewRoom(models.NewRoom(info.ID), g.deps)
		g.rooms[info.ID] = r
		g.log.Info().Int64("room_id", info.ID).Str("title", info.Title).Msg("New room")
	}
	g.mu.Unlock()
	r.Touch(info.Title, info.Type)
	return r
}

// HandleUpdate routes one inbound update and persists afterwards, whatever
// the outcome.
func (g *Registry) HandleUpdate(ctx context.Context, upd Update) {
	log := g.log.With().
		Str("trace_id", uuid.NewString()).
		Int64("room_id", upd.Room.ID).
		Int64("user_id", upd.From.ID).
		Logger()
	ctx = log.WithContext(ctx)
	defer func() { _ = g.Persist(ctx) }()

	room := g.ensureRoom(upd.Room)
	user := room.EnsureUser(upd.From.ID, upd.From.FirstName)

	if upd.Callback != nil {
		g.handleCallback(ctx, room, user, upd.Callback)
		return
	}
	if upd.Text != "" {
		severity := room.RecordMessage(ctx, user, spam.Message{Time: upd.Time, ID: upd.MessageID, Text: upd.Text})
		if severity != spam.None {
			log.Debug().Stringer("severity", severity).Msg("Message classified as spam")
		}
	}
	if upd.IsCommand() {
		g.handleCommand(ctx, room, user, upd)
	}
}

func (g *Registry) handleCallback(ctx context.Context, room *Room, user *models.User, cb *Callback) {
	log := zerolog.Ctx(ctx)
	var err error
	switch {
	case cb.Data == models.CallbackAttend || cb.Data == models.CallbackAbsent:
		room.SetAttendMessage(cb.MessageID)
		err = room.ToggleAttend(ctx, user, cb.Data == models.CallbackAttend)
	case strings.HasPrefix(cb.Data, models.CallbackDicePrefix):
		choice, parseErr := models.ParseRollChoice(cb.Data)
		if parseErr != nil {
			err = apperrors.NewValidationError("callback", parseErr.Error())
			break
		}
		room.SetDiceMessage(cb.MessageID)
		err = room.Roll(ctx, user, choice)
	default:
		log.Warn().Str("data", cb.Data).Msg("Unknown callback")
	}

	if err != nil {
		log.Info().Err(err).Str("data", cb.Data).Msg("Callback rejected")
	}
	if answerErr := g.deps.Transport.AnswerCallback(ctx, cb.ID, UserMessage(err)); answerErr != nil {
		log.Warn().Err(answerErr).Msg("Failed to answer callback")
	}
}

func (g *Registry) handleCommand(ctx context.Context, room *Room, user *models.User, upd Update) {
	log := zerolog.Ctx(ctx)
	cmd, ok := g.commands[upd.Command]
	if !ok {
		log.Debug().Str("command", upd.Command).Msg("Ignoring unknown command")
		return
	}

	auth := g.authorize(ctx, upd)
	if !auth.Allows(cmd.requirement) {
		err := auth.Deny(cmd.requirement)
		log.Info().Err(err).Str("command", upd.Command).Msg("Command denied")
		if errors.Is(err, ErrMainRoomOnly) {
			room.Mute(ctx, user, DeterrentMute, "Nur im Hauptchat erlaubt")
		}
		room.Reply(ctx, UserMessage(err))
		return
	}

	cc := &commandContext{registry: g, room: room, user: user, update: upd}
	if err := cmd.run(ctx, cc); err != nil {
		log.Info().Err(err).Str("command", upd.Command).Msg("Command failed")
		room.Reply(ctx, UserMessage(err))
	}
}

func (g *Registry) authorize(ctx context.Context, upd Update) Authorization {
	auth := Authorization{
		RoomType: upd.Room.Type,
		Owner:    g.IsOwner(upd.From.ID),
	}
	if id, ok := g.MainRoomID(); ok && id == upd.Room.ID {
		auth.MainRoom = true
	}
	if upd.Room.Type.IsGroup() {
		auth.ChatAdmin = g.isChatAdmin(ctx, upd.Room.ID, upd.From.ID)
	}
	return auth
}

func (g *Registry) isChatAdmin(ctx context.Context, roomID, userID int64) bool {
	key := strconv.FormatInt(roomID, 10)
	if cached, ok := g.admins.Get(key); ok {
		_, isAdmin := cached.(map[int64]struct{})[userID]
		return isAdmin
	}

	ids, err := g.deps.Transport.ListAdministrators(ctx, roomID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to list administrators")
		return false
	}
	admins := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		admins[id] = struct{}{}
	}
	g.admins.SetDefault(key, admins)
	_, isAdmin := admins[userID]
	return isAdmin
}

// BatchResult summarises a sweep over several rooms.
type BatchResult struct {
	Total  int
	Failed []int64
}

func (b BatchResult) OK() bool {
	return len(b.Failed) == 0
}

func (b BatchResult) Summary(action string) string {
	if b.OK() {
		return fmt.Sprintf("%s: %d/%d rooms", action, b.Total, b.Total)
	}
	ids := make([]string, len(b.Failed))
	for i, id := range b.Failed {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s: %d/%d rooms, failed: %s", action, b.Total-len(b.Failed), b.Total, strings.Join(ids, ", "))
}

func (g *Registry) sweep(action string, rooms []*Room, fn func(*Room) bool) BatchResult {
	res := BatchResult{Total: len(rooms)}
	for _, r := range rooms {
		if !fn(r) {
			res.Failed = append(res.Failed, r.ID())
		}
	}
	g.log.Info().
		Str("action", action).
		Int("total", res.Total).
		Int("failed", len(res.Failed)).
		Msg("Sweep finished")
	return res
}

// ResetAll closes the running event of every room.
func (g *Registry) ResetAll(ctx context.Context) BatchResult {
	return g.sweep("reset", g.Rooms(), func(r *Room) bool {
		return r.Reset(ctx)
	})
}

// OpenAttendAll posts the attendance poll in every group room.
func (g *Registry) OpenAttendAll(ctx context.Context) BatchResult {
	return g.sweep("attend", g.groupRooms(false), func(r *Room) bool {
		return r.ShowAttend(ctx)
	})
}

// OpenDiceAll posts the dice keyboard in every group room with an event.
func (g *Registry) OpenDiceAll(ctx context.Context) BatchResult {
	return g.sweep("dice", g.groupRooms(true), func(r *Room) bool {
		ok, err := r.ShowDice(ctx)
		return ok && err == nil
	})
}

func (g *Registry) groupRooms(withEvent bool) []*Room {
	var rooms []*Room
	for _, r := range g.Rooms() {
		keep := false
		r.View(func(state *models.Room) {
			keep = state.Type.IsGroup() && (!withEvent || state.CurrentEvent != nil)
		})
		if keep {
			rooms = append(rooms, r)
		}
	}
	return rooms
}

func (g *Registry) now() time.Time {
	now := g.deps.Clock.Now()
	if g.deps.Settings.Location == nil {
		return now
	}
	return now.In(g.deps.Settings.Location)
}

// LogNotifier records attendance commitments in the log.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Component("attendance")}
}

func (n *LogNotifier) Attending(_ context.Context, roomID int64, user *models.User) {
	n.log.Info().Int64("room_id", roomID).Int64("user_id", user.ID).Str("name", user.Name).Msg("User attends")
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/repository"
	fileRepo "dicers-bot/internal/features/dicers/repository/file"
)

const (
	mainGroup  = int64(-100)
	otherGroup = int64(-200)
	ownerID    = int64(1)
	adminID    = int64(5)
)

func newTestRegistry(h *harness, repo *memRepository) *Registry {
	h.transport.admins[mainGroup] = []int64{adminID}
	h.transport.admins[otherGroup] = []int64{adminID}
	return NewRegistry(h.deps, repo, RegistryConfig{
		Owners:        []int64{ownerID},
		AdminCacheTTL: time.Minute,
		Version:       "1.2.3",
	})
}

func groupUpdate(roomID, from int64, name, text string) Update {
	return Update{
		Room:      RoomInfo{ID: roomID, Title: "Würfelrunde", Type: models.RoomTypeSupergroup},
		From:      Sender{ID: from, FirstName: name},
		Time:      monday1400,
		MessageID: int(from) * 1000,
		Text:      text,
	}
}

func commandUpdate(roomID, from int64, name, cmd, args string) Update {
	upd := groupUpdate(roomID, from, name, "/"+cmd)
	upd.Command = cmd
	upd.Args = args
	return upd
}

func callback(roomID, from int64, name, id, data string, messageID int) Update {
	upd := groupUpdate(roomID, from, name, "")
	upd.Callback = &Callback{ID: id, Data: data, MessageID: messageID}
	return upd
}

func TestHandleUpdateCreatesRoomAndPersists(t *testing.T) {
	h := newHarness()
	repo := &memRepository{}
	g := newTestRegistry(h, repo)
	ctx := context.Background()

	g.HandleUpdate(ctx, groupUpdate(mainGroup, 2, "bob", "hallo"))
	g.HandleUpdate(ctx, groupUpdate(mainGroup, 3, "carol", "moin"))

	room, ok := g.Room(mainGroup)
	require.True(t, ok)
	room.View(func(s *models.Room) {
		assert.Equal(t, "Würfelrunde", s.Title)
		assert.Equal(t, models.RoomTypeSupergroup, s.Type)
		assert.Len(t, s.Users, 2)
		bob, _ := s.User(2)
		require.NotNil(t, bob)
		assert.Len(t, bob.Messages, 1)
	})
	assert.Equal(t, 2, repo.saves)
	require.NotNil(t, repo.saved)
	assert.Len(t, repo.saved.Rooms, 1)
}

func TestAttendAndRollCallbacks(t *testing.T) {
	h := newHarness()
	g := newTestRegistry(h, &memRepository{})
	ctx := context.Background()

	g.HandleUpdate(ctx, commandUpdate(mainGroup, adminID, "admin", "attend", ""))
	require.Len(t, h.transport.sent, 1)
	pollID := h.transport.sent[0].ID

	g.HandleUpdate(ctx, callback(mainGroup, 2, "bob", "cb1", models.CallbackAttend, pollID))
	g.HandleUpdate(ctx, callback(mainGroup, 3, "carol", "cb2", "dice_4", 999))

	require.Len(t, h.transport.answers, 2)
	assert.Equal(t, answer{CallbackID: "cb1", Text: ""}, h.transport.answers[0])
	assert.Equal(t, UserMessage(ErrNotAttending), h.transport.answers[1].Text)

	room, _ := g.Room(mainGroup)
	room.View(func(s *models.Room) {
		bob, _ := s.User(2)
		carol, _ := s.User(3)
		assert.True(t, s.CurrentEvent.IsAttendee(bob))
		assert.True(t, carol.Muted)
		assert.Equal(t, pollID, s.AttendMessageID)
	})
}

func TestChatAdminCommandsRequireAdmin(t *testing.T) {
	h := newHarness()
	g := newTestRegistry(h, &memRepository{})
	ctx := context.Background()

	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "attend", ""))
	assert.Equal(t, []string{"You're not allowed to perform this action."}, h.transport.texts())
	assert.Empty(t, h.transport.mutes())

	g.HandleUpdate(ctx, commandUpdate(mainGroup, adminID, "admin", "attend", ""))
	assert.Len(t, h.transport.sent, 2)
	assert.Equal(t, 1, h.transport.adminCalls, "administrators are cached")

	g.HandleUpdate(ctx, commandUpdate(mainGroup, ownerID, "owner", "reset", ""))
	assert.Contains(t, h.transport.texts(), "Zurückgesetzt.")
}

func TestMainRoomCommands(t *testing.T) {
	h := newHarness()
	g := newTestRegistry(h, &memRepository{})
	ctx := context.Background()

	g.HandleUpdate(ctx, commandUpdate(otherGroup, 3, "carol", "reset_all", ""))
	mutes := h.transport.mutes()
	require.Len(t, mutes, 1)
	assert.Equal(t, int64(3), mutes[0].UserID)
	assert.Equal(t, monday1400.Add(DeterrentMute), mutes[0].Until)
	assert.Contains(t, h.transport.texts(), "You're not allowed to perform this action.")

	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "register_main", ""))
	_, ok := g.MainRoomID()
	assert.False(t, ok, "only owners may register the main room")

	g.HandleUpdate(ctx, commandUpdate(mainGroup, ownerID, "owner", "register_main", ""))
	id, ok := g.MainRoomID()
	require.True(t, ok)
	assert.Equal(t, mainGroup, id)

	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "reset_all", ""))
	assert.Contains(t, h.transport.texts(), "reset: 2/2 rooms")
}

func TestMuteCommandNeedsReply(t *testing.T) {
	h := newHarness()
	g := newTestRegistry(h, &memRepository{})
	ctx := context.Background()

	g.HandleUpdate(ctx, commandUpdate(mainGroup, adminID, "admin", "mute", ""))
	assert.Contains(t, h.transport.texts(), "Antworte auf eine Nachricht der Person.")

	upd := commandUpdate(mainGroup, adminID, "admin", "mute", "5")
	upd.ReplyTo = &Sender{ID: 2, FirstName: "bob"}
	g.HandleUpdate(ctx, upd)
	mutes := h.transport.mutes()
	require.Len(t, mutes, 1)
	assert.Equal(t, int64(2), mutes[0].UserID)
	assert.Equal(t, monday1400.Add(5*time.Minute), mutes[0].Until)

	upd = commandUpdate(mainGroup, adminID, "admin", "unmute", "")
	upd.ReplyTo = &Sender{ID: 2, FirstName: "bob"}
	g.HandleUpdate(ctx, upd)
	assert.Len(t, h.transport.unmutes(), 1)
}

func TestInformationalCommands(t *testing.T) {
	h := newHarness()
	g := newTestRegistry(h, &memRepository{})
	ctx := context.Background()

	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "drink", " Mojito "))
	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "version", ""))
	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "status", ""))
	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "stats", ""))
	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "server_time", ""))
	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "users", ""))

	assert.Equal(t, []string{
		"bob trinkt Mojito.",
		"1.2.3",
		"[-100] Würfelrunde",
		"bob war 0 Mal dabei.",
		"04.03.2024 14:00:00 UTC",
		"bob",
	}, h.transport.texts())

	room, _ := g.Room(mainGroup)
	room.View(func(s *models.Room) {
		bob, _ := s.User(2)
		assert.Equal(t, "Mojito", bob.Drink)
	})
}

func TestInsultCommands(t *testing.T) {
	h := newHarness()
	g := newTestRegistry(h, &memRepository{})
	g.SetMainRoom(mainGroup)
	ctx := context.Background()

	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "add_insult", "Pfeife"))
	g.HandleUpdate(ctx, commandUpdate(mainGroup, 2, "bob", "add_insult", "Pfeife"))
	upd := commandUpdate(mainGroup, 2, "bob", "insult", "")
	upd.ReplyTo = &Sender{ID: 3, FirstName: "carol"}
	g.HandleUpdate(ctx, upd)

	assert.Equal(t, []string{"Gemerkt.", "Kenn ich schon.", "carol, Pfeife"}, h.transport.texts())
}

func TestRegistryLoadRestoresState(t *testing.T) {
	h := newHarness()
	repo := &memRepository{}
	g := newTestRegistry(h, repo)
	ctx := context.Background()

	g.HandleUpdate(ctx, commandUpdate(mainGroup, ownerID, "owner", "register_main", ""))
	g.HandleUpdate(ctx, commandUpdate(mainGroup, adminID, "admin", "attend", ""))
	g.HandleUpdate(ctx, callback(mainGroup, 2, "bob", "cb", models.CallbackAttend, h.transport.sent[1].ID))

	restored := newTestRegistry(newHarness(), repo)
	require.NoError(t, restored.Load(ctx))

	id, ok := restored.MainRoomID()
	require.True(t, ok)
	assert.Equal(t, mainGroup, id)
	room, ok := restored.Room(mainGroup)
	require.True(t, ok)
	room.View(func(s *models.Room) {
		require.NotNil(t, s.CurrentEvent)
		bob, ok := s.User(2)
		require.True(t, ok)
		assert.True(t, s.CurrentEvent.IsAttendee(bob))
		assert.Equal(t, models.KeyboardAttend, s.CurrentKeyboard)
	})
}

func TestRegistryLoadEmptyAndFailing(t *testing.T) {
	h := newHarness()
	assert.NoError(t, newTestRegistry(h, &memRepository{}).Load(context.Background()))

	err := newTestRegistry(h, &memRepository{loadErr: errBoom}).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}

func TestRegistryLoadCorruptStartsEmpty(t *testing.T) {
	h := newHarness()
	corrupt := fmt.Errorf("%w: unexpected end of JSON input", repository.ErrCorruptSnapshot)
	g := newTestRegistry(h, &memRepository{loadErr: corrupt})

	require.NoError(t, g.Load(context.Background()))
	assert.Empty(t, g.Rooms())
}

func TestRegistryLoadCorruptStateFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"chats": [ {"id": 1, `), 0o644))

	g := NewRegistry(newHarness().deps, fileRepo.NewFileSnapshotRepository(path), RegistryConfig{})
	require.NoError(t, g.Load(ctx))
	assert.Empty(t, g.Rooms())
	_, ok := g.MainRoomID()
	assert.False(t, ok)

	require.NoError(t, g.Persist(ctx))
	kept, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, `{"chats": [ {"id": 1, `, string(kept))
}

func TestRegistryLoadReleasesMutes(t *testing.T) {
	room := models.NewRoom(mainGroup)
	room.Type = models.RoomTypeSupergroup
	bob := models.NewUser(2, "bob")
	bob.Muted = true
	room.AddUser(bob)
	repo := &memRepository{saved: &models.Snapshot{Rooms: []models.RoomSnapshot{room.Snapshot()}}}

	h := newHarness()
	g := newTestRegistry(h, repo)
	require.NoError(t, g.Load(context.Background()))

	restored, ok := g.Room(mainGroup)
	require.True(t, ok)
	var user *models.User
	restored.View(func(s *models.Room) {
		user, _ = s.User(2)
	})
	require.NotNil(t, user)
	assert.False(t, user.Muted)

	assert.True(t, restored.Mute(context.Background(), user, 10*time.Minute, "Spam"))
	assert.Len(t, h.transport.mutes(), 1)
}

func TestSweepsTargetGroupRooms(t *testing.T) {
	h := newHarness()
	g := newTestRegistry(h, &memRepository{})
	ctx := context.Background()
	g.HandleUpdate(ctx, groupUpdate(mainGroup, 2, "bob", "hallo"))
	g.HandleUpdate(ctx, groupUpdate(otherGroup, 3, "carol", "hallo"))
	private := groupUpdate(7, 7, "dave", "hallo")
	private.Room.Type = models.RoomTypePrivate
	g.HandleUpdate(ctx, private)

	assert.Equal(t, BatchResult{Total: 0}, g.OpenDiceAll(ctx))

	res := g.OpenAttendAll(ctx)
	assert.Equal(t, 2, res.Total)
	assert.True(t, res.OK())

	res = g.OpenDiceAll(ctx)
	assert.Equal(t, 2, res.Total)
	assert.True(t, res.OK())

	h.transport.sendErr = errBoom
	res = g.OpenAttendAll(ctx)
	assert.Equal(t, []int64{otherGroup, mainGroup}, res.Failed)

	res = g.ResetAll(ctx)
	assert.Equal(t, 3, res.Total)
	assert.True(t, res.OK())
	for _, r := range g.Rooms() {
		r.View(func(s *models.Room) {
			assert.Nil(t, s.CurrentEvent)
		})
	}
}

func TestBatchSummary(t *testing.T) {
	assert.Equal(t, "reset: 3/3 rooms", BatchResult{Total: 3}.Summary("reset"))
	assert.Equal(t, "reset: 2/3 rooms, failed: -1", BatchResult{Total: 3, Failed: []int64{-1}}.Summary("reset"))
}

func TestAuthorizationAllows(t *testing.T) {
	private := Authorization{RoomType: models.RoomTypePrivate}
	assert.True(t, private.Allows(RequireChatAdmin))
	assert.False(t, private.Allows(RequireMainRoom))
	assert.False(t, private.Allows(RequireOwner))

	member := Authorization{RoomType: models.RoomTypeGroup}
	assert.True(t, member.Allows(RequireNone))
	assert.False(t, member.Allows(RequireChatAdmin))

	owner := Authorization{RoomType: models.RoomTypeGroup, Owner: true}
	assert.True(t, owner.Allows(RequireChatAdmin))
	assert.True(t, owner.Allows(RequireOwner))
	assert.False(t, owner.Allows(RequireMainRoom))
	assert.ErrorIs(t, owner.Deny(RequireMainRoom), ErrMainRoomOnly)
	assert.ErrorIs(t, owner.Deny(RequireOwner), ErrForbidden)
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/repository"
)

type sentMessage struct {
	RoomID int64
	ID     int
	Text   string
	Markup models.Markup
}

type editedMessage struct {
	RoomID    int64
	MessageID int
	Text      string
}

type restriction struct {
	RoomID int64
	UserID int64
	Until  time.Time
	Perms  Permissions
}

type answer struct {
	CallbackID string
	Text       string
}

type fakeTransport struct {
	mu sync.Mutex

	nextID       int
	sent         []sentMessage
	edits        []editedMessage
	cleared      []int
	pins         []int
	unpins       int
	restrictions []restriction
	answers      []answer
	admins       map[int64][]int64
	adminCalls   int

	sendErr     error
	editErr     error
	restrictErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextID: 100, admins: make(map[int64][]int64)}
}

func (f *fakeTransport) SendMessage(_ context.Context, roomID int64, text string, markup models.Markup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{RoomID: roomID, ID: f.nextID, Text: text, Markup: markup})
	return f.nextID, nil
}

func (f *fakeTransport) EditMessageText(_ context.Context, roomID int64, messageID int, text string, _ models.Markup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editedMessage{RoomID: roomID, MessageID: messageID, Text: text})
	return nil
}

func (f *fakeTransport) ClearMarkup(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, messageID)
	return nil
}

func (f *fakeTransport) PinMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, messageID)
	return nil
}

func (f *fakeTransport) UnpinMessage(_ context.Context, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unpins++
	return nil
}

func (f *fakeTransport) RestrictUser(_ context.Context, roomID, userID int64, until time.Time, perms Permissions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restrictErr != nil {
		return f.restrictErr
	}
	f.restrictions = append(f.restrictions, restriction{RoomID: roomID, UserID: userID, Until: until, Perms: perms})
	return nil
}

func (f *fakeTransport) ListAdministrators(_ context.Context, roomID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminCalls++
	return f.admins[roomID], nil
}

func (f *fakeTransport) AnswerCallback(_ context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{CallbackID: callbackID, Text: text})
	return nil
}

// mutes returns restrictions that took permissions away.
func (f *fakeTransport) mutes() []restriction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []restriction
	for _, r := range f.restrictions {
		if r.Perms == MutedPermissions() {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeTransport) unmutes() []restriction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []restriction
	for _, r := range f.restrictions {
		if r.Perms == FullPermissions() {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeTransport) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Text
	}
	return out
}

func (f *fakeTransport) lastEdit() editedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return editedMessage{}
	}
	return f.edits[len(f.edits)-1]
}

type pendingTask struct {
	delay time.Duration
	fn    func()
}

// manualScheduler holds deferred work until the test fires it.
type manualScheduler struct {
	mu      sync.Mutex
	pending []pendingTask
}

func (s *manualScheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, pendingTask{delay: d, fn: fn})
}

func (s *manualScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.pending))
	for i, p := range s.pending {
		out[i] = p.delay
	}
	return out
}

// fireAll runs every pending task, including tasks they schedule.
func (s *manualScheduler) fireAll() {
	for {
		s.mu.Lock()
		tasks := s.pending
		s.pending = nil
		s.mu.Unlock()
		if len(tasks) == 0 {
			return
		}
		for _, t := range tasks {
			t.fn()
		}
	}
}

// fire runs only the tasks scheduled with delay d.
func (s *manualScheduler) fire(d time.Duration) {
	s.mu.Lock()
	var due, rest []pendingTask
	for _, p := range s.pending {
		if p.delay == d {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	s.pending = rest
	s.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeInsults struct {
	known []string
}

func (f *fakeInsults) Random() string {
	if len(f.known) == 0 {
		return "Feigling"
	}
	return f.known[0]
}

func (f *fakeInsults) Add(text string) (bool, error) {
	for _, k := range f.known {
		if k == text {
			return false, nil
		}
	}
	f.known = append(f.known, text)
	return true, nil
}

type memRepository struct {
	mu      sync.Mutex
	saved   *models.Snapshot
	saves   int
	loadErr error
}

func (m *memRepository) Load(_ context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.saved == nil {
		return nil, repository.ErrNoSnapshot
	}
	return m.saved, nil
}

func (m *memRepository) Save(_ context.Context, s *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = s
	m.saves++
	return nil
}

func (m *memRepository) Ping(_ context.Context) error {
	return nil
}

var errBoom = errors.New("boom")

// monday1400 is a Monday afternoon, when the poll usually opens.
var monday1400 = time.Date(2024, time.March, 4, 14, 0, 0, 0, time.UTC)

type harness struct {
	transport *fakeTransport
	scheduler *manualScheduler
	clock     *fixedClock
	insults   *fakeInsults
	deps      Deps
}

func newHarness() *harness {
	h := &harness{
		transport: newFakeTransport(),
		scheduler: &manualScheduler{},
		clock:     &fixedClock{now: monday1400},
		insults:   &fakeInsults{},
	}
	settings := DefaultSettings()
	settings.Location = time.UTC
	h.deps = Deps{
		Transport: h.transport,
		Scheduler: h.scheduler,
		Clock:     h.clock,
		Insults:   h.insults,
		Settings:  settings,
	}
	return h
}

// groupRoom returns a supergroup room with the named users, ids starting at 1.
func (h *harness) groupRoom(names ...string) (*Room, []*models.User) {
	state := models.NewRoom(-100)
	state.Title = "Würfelrunde"
	state.Type = models.RoomTypeSupergroup
	room := NewRoom(state, h.deps)
	users := make([]*models.User, len(names))
	for i, name := range names {
		users[i] = room.EnsureUser(int64(i+1), name)
	}
	return room, users
}

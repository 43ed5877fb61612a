package service

import (
	"context"
	"errors"
	"time"

	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/spam"
)

// ErrNotModified is returned by a Transport when an edit left the message
// unchanged. Rooms treat it as success.
var ErrNotModified = errors.New("message is not modified")

// Permissions a restriction grants to a member.
type Permissions struct {
	SendMessages       bool
	SendMedia          bool
	SendPolls          bool
	SendOther          bool
	AddWebPagePreviews bool
	ChangeInfo         bool
	InviteUsers        bool
	PinMessages        bool
}

func MutedPermissions() Permissions {
	return Permissions{}
}

func FullPermissions() Permissions {
	return Permissions{
		SendMessages:       true,
		SendMedia:          true,
		SendPolls:          true,
		SendOther:          true,
		AddWebPagePreviews: true,
		ChangeInfo:         true,
		InviteUsers:        true,
		PinMessages:        true,
	}
}

// Transport is the messaging platform as seen by rooms. Every method reports
// failure through its error.
type Transport interface {
	SendMessage(ctx context.Context, roomID int64, text string, markup models.Markup) (int, error)
	EditMessageText(ctx context.Context, roomID int64, messageID int, text string, markup models.Markup) error
	ClearMarkup(ctx context.Context, roomID int64, messageID int) error
	PinMessage(ctx context.Context, roomID int64, messageID int) error
	UnpinMessage(ctx context.Context, roomID int64) error
	RestrictUser(ctx context.Context, roomID, userID int64, until time.Time, perms Permissions) error
	ListAdministrators(ctx context.Context, roomID int64) ([]int64, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Scheduler runs fn once after d. Scheduled work cannot be cancelled, so fn
// must re-check state when it fires.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type Clock interface {
	Now() time.Time
}

type InsultSource interface {
	Random() string
	Add(text string) (bool, error)
}

// AttendanceNotifier is told whenever somebody commits to an event, so
// calendars and catalogs can follow along.
type AttendanceNotifier interface {
	Attending(ctx context.Context, roomID int64, user *models.User)
}

// Settings tune room behaviour.
type Settings struct {
	Location          *time.Location
	AbsenceCheckDelay time.Duration
	CurfewHour        int
	EasterEggPair     []string
	EasterEggSuffix   string
	Spam              spam.Config
	HistoryLimit      int
}

func DefaultSettings() Settings {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		loc = time.Local
	}
	return Settings{
		Location:          loc,
		AbsenceCheckDelay: 15 * time.Minute,
		CurfewHour:        21,
		EasterEggPair:     []string{"nadine", "tashina"},
		EasterEggSuffix:   "#dieKurzenSindDabei",
		Spam:              spam.DefaultConfig(),
		HistoryLimit:      100,
	}
}

// Deps are the collaborators shared by all rooms.
type Deps struct {
	Transport Transport
	Scheduler Scheduler
	Clock     Clock
	Insults   InsultSource
	Notifier  AttendanceNotifier
	Settings  Settings
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return systemClock{} }

type timerScheduler struct{}

func (timerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// TimerScheduler backs deferred work with runtime timers.
func TimerScheduler() Scheduler { return timerScheduler{} }

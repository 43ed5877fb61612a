package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/spam"
)

const (
	rollMuteBase = time.Minute
	rollMuteCap  = time.Hour

	// DeterrentMute is applied to members who invoke main-room operations elsewhere.
	DeterrentMute = 15 * time.Minute
)

// Mute restricts u for d. A user who is already muted is left alone.
func (r *Room) Mute(ctx context.Context, u *models.User, d time.Duration, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mute(ctx, u, d, reason)
}

// Unmute lifts every restriction from u.
func (r *Room) Unmute(ctx context.Context, u *models.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unmute(ctx, u)
}

// UnmuteAll lifts restrictions for every known user and returns those the
// platform refused.
func (r *Room) UnmuteAll(ctx context.Context) []*models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unmuteAll(ctx)
}

func (r *Room) mute(ctx context.Context, u *models.User, d time.Duration, reason string) bool {
	if u.Muted {
		return true
	}
	if !r.state.Type.IsGroup() {
		r.log.Debug().Int64("user_id", u.ID).Msg("Cannot mute in private room")
		return false
	}
	if d <= 0 {
		return false
	}

	until := r.now().Add(d)
	if err := r.deps.Transport.RestrictUser(ctx, r.state.ID, u.ID, until, MutedPermissions()); err != nil {
		r.log.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to mute user")
		return false
	}
	u.Muted = true
	r.log.Info().
		Int64("user_id", u.ID).
		Dur("duration", d).
		Str("reason", reason).
		Msg("Muted user")

	r.send(ctx, muteNotice(u, d, reason), nil)

	// The platform lifts the restriction on its own; this only mirrors it.
	r.deps.Scheduler.After(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		u.Muted = false
		r.log.Debug().Int64("user_id", u.ID).Msg("Mute expired")
	})
	return true
}

func (r *Room) unmute(ctx context.Context, u *models.User) bool {
	if r.state.Type.IsGroup() {
		err := r.deps.Transport.RestrictUser(ctx, r.state.ID, u.ID, time.Time{}, FullPermissions())
		if err != nil {
			r.log.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to unmute user")
			return false
		}
	}
	u.Muted = false
	r.log.Info().Int64("user_id", u.ID).Msg("Unmuted user")
	return true
}

func (r *Room) unmuteAll(ctx context.Context) []*models.User {
	var failed []*models.User
	for _, u := range r.state.UserList() {
		if !r.unmute(ctx, u) {
			failed = append(failed, u)
		}
	}
	if len(failed) > 0 {
		r.log.Warn().Int("failed", len(failed)).Msg("Some users could not be unmuted")
	}
	return failed
}

// scheduleAbsenceCheck mutes u until curfew if they are still absent once the
// delay has passed. The check cannot be cancelled; it re-reads membership.
func (r *Room) scheduleAbsenceCheck(u *models.User) {
	r.deps.Scheduler.After(r.deps.Settings.AbsenceCheckDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		ev := r.state.CurrentEvent
		if ev == nil || !ev.IsAbsentee(u) {
			return
		}
		d := r.untilCurfew()
		if d <= 0 {
			r.log.Debug().Int64("user_id", u.ID).Msg("Past curfew, skipping absence mute")
			return
		}
		reason := ""
		if r.deps.Insults != nil {
			reason = r.deps.Insults.Random()
		}
		r.mute(context.Background(), u, d, reason)
	})
}

func (r *Room) untilCurfew() time.Duration {
	now := r.now()
	curfew := time.Date(now.Year(), now.Month(), now.Day(), r.deps.Settings.CurfewHour, 0, 0, 0, now.Location())
	return curfew.Sub(now)
}

// RecordMessage stores msg in u's history and, with spam detection enabled in
// a group, classifies it. A verdict only mutes once per spam episode.
func (r *Room) RecordMessage(ctx context.Context, u *models.User, msg spam.Message) spam.Severity {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.RecordMessage(msg, r.deps.Settings.HistoryLimit)
	if !r.state.SpamDetection || !r.state.Type.IsGroup() {
		return spam.None
	}

	severity := spam.Classify(u.Messages, r.now(), r.deps.Settings.Spam)
	if severity == spam.None {
		u.Spamming = false
		u.SpamSeverity = spam.None
		return severity
	}
	if u.Spamming && severity <= u.SpamSeverity {
		return severity
	}

	u.Spamming = true
	u.SpamSeverity = severity
	r.log.Info().Int64("user_id", u.ID).Stringer("severity", severity).Msg("Spam detected")
	r.mute(ctx, u, spam.MuteDuration(severity), "Spam")
	return severity
}

// punitiveRollMute doubles with every offence in the round, starting at a
// minute and capped at an hour.
func punitiveRollMute(offences int) time.Duration {
	if offences < 1 {
		offences = 1
	}
	d := rollMuteBase
	for i := 1; i < offences; i++ {
		d *= 2
		if d >= rollMuteCap {
			return rollMuteCap
		}
	}
	return d
}

func muteNotice(u *models.User, d time.Duration, reason string) string {
	now := time.Now()
	span := strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", ""))
	if reason == "" {
		return fmt.Sprintf("%s ist für %s stumm.", u.Name, span)
	}
	return fmt.Sprintf("%s ist für %s stumm: %s", u.Name, span, reason)
}

package spam

import (
	"sort"
	"time"
)

// Severity of a detected spam pattern. Higher values are punished harder.
type Severity int

const (
	None Severity = iota
	Consecutive
	Different
	Same
)

func (s Severity) String() string {
	switch s {
	case Consecutive:
		return "CONSECUTIVE"
	case Different:
		return "DIFFERENT"
	case Same:
		return "SAME"
	default:
		return "NONE"
	}
}

// Message is one recorded chat message of a user.
type Message struct {
	Time time.Time
	// ID is the platform sequence number of the message inside its chat.
	ID   int
	Text string
}

type Config struct {
	CheckTimeframe time.Duration

	DifferentMessageLimit     int
	DifferentMessageTimeframe time.Duration

	ConsecutiveMessageLimit int
	ConsecutiveTimeframe    time.Duration

	SameMessageLimit     int
	SameMessageTimeframe time.Duration
}

func DefaultConfig() Config {
	return Config{
		CheckTimeframe:            60 * time.Second,
		DifferentMessageLimit:     15,
		DifferentMessageTimeframe: 2 * time.Hour,
		ConsecutiveMessageLimit:   8,
		ConsecutiveTimeframe:      5 * time.Minute,
		SameMessageLimit:          3,
		SameMessageTimeframe:      2 * time.Hour,
	}
}

// MuteDuration maps a severity to its mute length. None still yields a short
// floor for callers that want to mute regardless.
func MuteDuration(s Severity) time.Duration {
	switch s {
	case Consecutive:
		return 30 * time.Minute
	case Different:
		return time.Hour
	case Same:
		return 2 * time.Hour
	default:
		return 30 * time.Second
	}
}

// Classify inspects the messages sent within cfg.CheckTimeframe before now.
// The first matching rule wins: Different, Consecutive, Same.
func Classify(messages []Message, now time.Time, cfg Config) Severity {
	recent := make([]Message, 0, len(messages))
	for _, m := range messages {
		if now.Sub(m.Time) <= cfg.CheckTimeframe {
			recent = append(recent, m)
		}
	}
	if len(recent) == 0 {
		return None
	}
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].Time.Equal(recent[j].Time) {
			return recent[i].ID < recent[j].ID
		}
		return recent[i].Time.Before(recent[j].Time)
	})

	switch {
	case isDifferent(recent, cfg):
		return Different
	case isConsecutive(recent, cfg):
		return Consecutive
	case isSame(recent, cfg):
		return Same
	}
	return None
}

func isDifferent(msgs []Message, cfg Config) bool {
	if len(msgs) <= cfg.DifferentMessageLimit {
		return false
	}
	return span(msgs) < cfg.DifferentMessageTimeframe
}

func isConsecutive(msgs []Message, cfg Config) bool {
	size := cfg.ConsecutiveMessageLimit
	if size <= 0 {
		return false
	}
	for start := 0; start+size <= len(msgs); start += size {
		window := msgs[start : start+size]
		if unbrokenRun(window) && span(window) < cfg.ConsecutiveTimeframe {
			return true
		}
	}
	return false
}

// unbrokenRun reports whether the ids of window are exactly min..max, meaning
// nobody else posted in between.
func unbrokenRun(window []Message) bool {
	lo, hi := int64(window[0].ID), int64(window[0].ID)
	var sum int64
	for _, m := range window {
		id := int64(m.ID)
		sum += id
		if id < lo {
			lo = id
		}
		if id > hi {
			hi = id
		}
	}
	if hi-lo+1 != int64(len(window)) {
		return false
	}
	return sum == hi*(hi+1)/2-(lo-1)*lo/2
}

func isSame(msgs []Message, cfg Config) bool {
	byText := make(map[string][]Message)
	for _, m := range msgs {
		byText[m.Text] = append(byText[m.Text], m)
	}
	for _, group := range byText {
		if len(group) > cfg.SameMessageLimit && span(group) < cfg.SameMessageTimeframe {
			return true
		}
	}
	return false
}

// span expects msgs ordered by time.
func span(msgs []Message) time.Duration {
	return msgs[len(msgs)-1].Time.Sub(msgs[0].Time)
}

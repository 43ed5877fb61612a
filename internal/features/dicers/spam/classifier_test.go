package spam

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2024, time.March, 4, 18, 0, 0, 0, time.UTC)

// wideConfig keeps the defaults but looks back far enough to see the whole
// scenario.
func wideConfig() Config {
	cfg := DefaultConfig()
	cfg.CheckTimeframe = 3 * time.Hour
	return cfg
}

func TestClassifyDifferent(t *testing.T) {
	var msgs []Message
	for i := 0; i < 16; i++ {
		msgs = append(msgs, Message{
			Time: base.Add(time.Duration(i) * 2 * time.Minute),
			ID:   100 + i*3,
			Text: fmt.Sprintf("message %d", i),
		})
	}
	now := msgs[len(msgs)-1].Time

	assert.Equal(t, Different, Classify(msgs, now, wideConfig()))
}

func TestClassifyConsecutive(t *testing.T) {
	var msgs []Message
	for i := 0; i < 8; i++ {
		msgs = append(msgs, Message{
			Time: base.Add(time.Duration(i) * 25 * time.Second),
			ID:   500 + i,
			Text: fmt.Sprintf("line %d", i),
		})
	}
	now := base.Add(3 * time.Minute)

	assert.Equal(t, Consecutive, Classify(msgs, now, wideConfig()))
}

func TestClassifyConsecutiveInterleaved(t *testing.T) {
	var msgs []Message
	for i := 0; i < 8; i++ {
		id := 500 + i
		if i >= 4 {
			// somebody else posted message 504
			id++
		}
		msgs = append(msgs, Message{
			Time: base.Add(time.Duration(i) * 20 * time.Second),
			ID:   id,
			Text: fmt.Sprintf("line %d", i),
		})
	}

	assert.Equal(t, None, Classify(msgs, base.Add(3*time.Minute), wideConfig()))
}

func TestClassifyConsecutiveTooSlow(t *testing.T) {
	var msgs []Message
	for i := 0; i < 8; i++ {
		msgs = append(msgs, Message{
			Time: base.Add(time.Duration(i) * time.Minute),
			ID:   500 + i,
			Text: fmt.Sprintf("line %d", i),
		})
	}

	assert.Equal(t, None, Classify(msgs, base.Add(7*time.Minute), wideConfig()))
}

func TestClassifySame(t *testing.T) {
	msgs := []Message{
		{Time: base, ID: 10, Text: "hallo"},
		{Time: base.Add(15 * time.Minute), ID: 20, Text: "hallo"},
		{Time: base.Add(30 * time.Minute), ID: 30, Text: "hallo"},
		{Time: base.Add(45 * time.Minute), ID: 40, Text: "hallo"},
	}

	assert.Equal(t, Same, Classify(msgs, base.Add(time.Hour), wideConfig()))
}

func TestClassifyNone(t *testing.T) {
	msgs := []Message{
		{Time: base, ID: 10, Text: "a"},
		{Time: base.Add(5 * time.Minute), ID: 20, Text: "b"},
		{Time: base.Add(10 * time.Minute), ID: 30, Text: "c"},
	}

	assert.Equal(t, None, Classify(msgs, base.Add(10*time.Minute), wideConfig()))
	assert.Equal(t, None, Classify(nil, base, DefaultConfig()))
}

func TestClassifyIgnoresMessagesOutsideCheckTimeframe(t *testing.T) {
	var msgs []Message
	for i := 0; i < 16; i++ {
		msgs = append(msgs, Message{Time: base.Add(time.Duration(i) * time.Second), ID: i * 2, Text: "same"})
	}

	assert.Equal(t, Different, Classify(msgs, base.Add(30*time.Second), DefaultConfig()))
	assert.Equal(t, None, Classify(msgs, base.Add(10*time.Minute), DefaultConfig()))
}

func TestClassifyDifferentWinsOverSame(t *testing.T) {
	var msgs []Message
	for i := 0; i < 16; i++ {
		msgs = append(msgs, Message{Time: base.Add(time.Duration(i) * time.Second), ID: i + 1, Text: "spam"})
	}

	assert.Equal(t, Different, Classify(msgs, base.Add(20*time.Second), DefaultConfig()))
}

func TestMuteDuration(t *testing.T) {
	assert.Equal(t, 30*time.Minute, MuteDuration(Consecutive))
	assert.Equal(t, time.Hour, MuteDuration(Different))
	assert.Equal(t, 2*time.Hour, MuteDuration(Same))
	assert.Equal(t, 30*time.Second, MuteDuration(None))
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "SAME", Same.String())
	assert.Equal(t, "NONE", Severity(42).String())
}

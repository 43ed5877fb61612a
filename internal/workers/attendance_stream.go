package workers

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"dicers-bot/internal/common/logger"
	"dicers-bot/internal/features/dicers/models"
)

const (
	DefaultAttendanceStream = "dicers:attendance"

	streamMaxLen  = 1000
	streamTimeout = 2 * time.Second
)

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// AttendanceStream publishes attendance commitments to a Redis stream for
// downstream consumers such as calendar sync.
type AttendanceStream struct {
	rdb    streamAdder
	stream string
	now    func() time.Time
	log    zerolog.Logger
}

func NewAttendanceStream(rdb redis.UniversalClient, stream string) *AttendanceStream {
	return newAttendanceStream(rdb, stream)
}

func newAttendanceStream(rdb streamAdder, stream string) *AttendanceStream {
	if stream == "" {
		stream = DefaultAttendanceStream
	}
	return &AttendanceStream{
		rdb:    rdb,
		stream: stream,
		now:    time.Now,
		log:    logger.Component("attendance_stream"),
	}
}

// Attending appends one entry. Failures are logged and never reach the room.
func (s *AttendanceStream) Attending(ctx context.Context, roomID int64, user *models.User) {
	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	id, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"room_id": strconv.FormatInt(roomID, 10),
			"user_id": strconv.FormatInt(user.ID, 10),
			"name":    user.Name,
			"drink":   user.Drink,
			"at":      s.now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		s.log.Warn().Err(err).
			Int64("room_id", roomID).
			Int64("user_id", user.ID).
			Msg("Failed to publish attendance")
		return
	}

	s.log.Debug().Str("entry_id", id).Int64("room_id", roomID).Int64("user_id", user.ID).Msg("Published attendance")
}

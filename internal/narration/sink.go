package narration

import (
	"context"
	"fmt"
	"io"
	"time"
)

// PacedSink "plays" audio by waiting for its duration at a fixed byte rate.
// If Out is set the raw audio is written to it as well.
type PacedSink struct {
	BytesPerSecond int
	Out            io.Writer
}

// Duration returns how long n bytes take to play.
func (s PacedSink) Duration(n int) time.Duration {
	if s.BytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(s.BytesPerSecond)
}

func (s PacedSink) Play(ctx context.Context, audio []byte) error {
	if s.Out != nil {
		if _, err := s.Out.Write(audio); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
	}

	timer := time.NewTimer(s.Duration(len(audio)))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

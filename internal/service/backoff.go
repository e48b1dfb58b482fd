package service

import (
	"time"

	"github.com/mtlprog/worklens/internal/config"
)

// NextSyncDelay doubles the previous poll delay, capped at the configured
// maximum. The cap keeps long-running jobs from starving while bounding
// pressure on the AI service.
func NextSyncDelay(previous time.Duration) time.Duration {
	next := previous * 2
	if next > config.MaxSyncDelay {
		return config.MaxSyncDelay
	}
	return next
}

package metrics

import (
	"context"
	"time"
)

type pollFunc = func(ctx context.Context) error

// RecordPollerDuration wraps a poll method so every run is timed under name
// and successful runs move the last-success gauge forward.
func RecordPollerDuration(name string, poll pollFunc) pollFunc {
	return func(ctx context.Context) error {
		startTime := time.Now()
		err := poll(ctx)

		outcome := Success
		if err != nil {
			outcome = Error
		} else {
			pollerLastSuccessGauge.WithLabelValues(name).SetToCurrentTime()
		}
		pollerDurationHistogram.WithLabelValues(name, outcome.String()).Observe(time.Since(startTime).Seconds())

		return err
	}
}

package utils

import (
	"context"
	"time"
)

// StartUploadCleaner launches a background goroutine that runs sweep every
// interval until ctx is done. It is best-effort and logs failures.
func StartUploadCleaner(ctx context.Context, interval time.Duration, sweep func(context.Context) (int, error)) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if _, err := sweep(ctx); err != nil {
				Sugar.Warnf("upload cleaner failed: %v", err)
			}
		}
	}()
}

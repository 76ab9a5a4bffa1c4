package async

import (
	"context"
	"time"
)

// Debounce events fired over a channel by a specified duration, ensuring no
// more than one of these events is handled within the timeframe of the
// interval. File watchers can fire thousands of events in a short span, so
// their handlers run through this.
func Debounce(ctx context.Context, interval time.Duration, eventsChan <-chan interface{}, handler func(interface{})) {
	for event := range eventsChan {
	loop:
		for {
			timer := time.NewTimer(interval)
			select {
			case event = <-eventsChan:
				timer.Stop()
			case <-timer.C:
				// We handle the event only if the timer expires, meaning no
				// other event arrived within the debounce interval.
				handler(event)
				break loop
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}
}

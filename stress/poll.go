package stress

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"gitlab.com/slon/syncprim/oneshot"
)

// PollReceive waits for a message on r by polling IsReady every interval,
// giving up when ctx is done. The primitives have no timeouts of their own;
// this is how a caller bounds the wait.
func PollReceive[T any](ctx context.Context, clock clockwork.Clock, r *oneshot.SharedReceiver[T], interval time.Duration) (T, error) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for !r.IsReady() {
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ticker.Chan():
		}
	}
	return r.Receive(), nil
}

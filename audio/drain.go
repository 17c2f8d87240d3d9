package audio

import (
	"context"
	"sync"
	"time"
)

// drainTimeout bounds how long Close waits for queued audio to play out.
const drainTimeout = 5 * time.Second

// waitDrained waits on cond until drained reports true or timeout passes, and
// returns the final drained result. cond.L must be held.
func waitDrained(cond *sync.Cond, drained func() bool, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer stop()

	for !drained() && ctx.Err() == nil {
		cond.Wait()
	}
	return drained()
}

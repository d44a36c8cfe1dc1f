package health

import "sync/atomic"

var notReady atomic.Bool

// SetReady flips the readiness gate. While the gate is closed, Ready
// reports 503 without probing dependencies, so load balancers drain
// the instance before it stops serving.
func SetReady(ready bool) {
	notReady.Store(!ready)
}

func isReady() bool {
	return !notReady.Load()
}

package interfaces

import "time"

// WaitObserver receives the outcome of every finished wait
type WaitObserver interface {
	ObserveWait(operation string, outcome string, elapsed time.Duration)
}

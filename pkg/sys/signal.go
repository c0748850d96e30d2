package sys

import (
	"os"
	"os/signal"
)

const sigsChanBufferSize = 8

// NotifyStop returns a channel on which the signals asking the process to
// stop get delivered, and a function that stops the delivery.
func NotifyStop() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, sigsChanBufferSize)
	signal.Notify(ch, stopSignals...)
	return ch, func() { signal.Stop(ch) }
}

package testutil

import "sync"

// DecorationMessage names one recorded hook or dispatch call.
type DecorationMessage string

const (
	MessageStartEffect   DecorationMessage = "startEffect"
	MessageDispatchEvent DecorationMessage = "dispatchEvent"
	MessageFinishEffect  DecorationMessage = "finishEffect"
)

// DecorationSpy records the order of decoration hooks and dispatches.
//
// Thread-safety: safe for concurrent use.
type DecorationSpy struct {
	mu       sync.Mutex
	messages []DecorationMessage
}

// StartEffect records MessageStartEffect.
func (d *DecorationSpy) StartEffect() { d.record(MessageStartEffect) }

// DispatchEvent records MessageDispatchEvent.
func (d *DecorationSpy) DispatchEvent() { d.record(MessageDispatchEvent) }

// FinishEffect records MessageFinishEffect.
func (d *DecorationSpy) FinishEffect() { d.record(MessageFinishEffect) }

// Messages returns a copy of the recorded messages.
func (d *DecorationSpy) Messages() []DecorationMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DecorationMessage(nil), d.messages...)
}

// CallCount returns the number of recorded messages.
func (d *DecorationSpy) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

func (d *DecorationSpy) record(m DecorationMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, m)
}

package dispatch

import "sync"

// Event is an out-of-band notification emitted when an invoked command
// fails. Delivery is best-effort: events are dropped rather than ever
// blocking or failing the primary response.
type Event struct {
	EventType string
	Service   string
	Command   string
	Message   string
}

// Notifier fans failure events out to a delivery callback through a bounded
// queue. Publish never blocks; when the queue is full the event is dropped.
type Notifier struct {
	ch        chan Event
	closeOnce sync.Once
	done      chan struct{}
}

// NewNotifier starts a notifier with the given queue depth. The deliver
// callback runs on a single background goroutine; a panic inside it is not
// recovered, so callbacks are expected to handle their own failures.
func NewNotifier(depth int, deliver func(Event)) *Notifier {
	if depth <= 0 {
		depth = 64
	}
	n := &Notifier{
		ch:   make(chan Event, depth),
		done: make(chan struct{}),
	}
	go func() {
		defer close(n.done)
		for ev := range n.ch {
			deliver(ev)
		}
	}()
	return n
}

// Publish enqueues the event if there is room and drops it otherwise.
func (n *Notifier) Publish(ev Event) {
	if n == nil {
		return
	}
	select {
	case n.ch <- ev:
	default:
	}
}

// Close stops the notifier and waits for queued events to drain.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.closeOnce.Do(func() { close(n.ch) })
	<-n.done
}

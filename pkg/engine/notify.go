// ABOUTME: Ordered delivery of controller notifications
// ABOUTME: Queues callbacks under the control lock and runs them one at a time outside it
package engine

import "sync"

// notifier runs callbacks in the order they were posted. Only one goroutine
// delivers at a time; a flush that finds a delivery in progress leaves its
// callbacks to that goroutine, so a callback may call back into the
// controller without deadlocking.
type notifier struct {
	mu         sync.Mutex
	queue      []func()
	delivering bool
}

// post queues callbacks. Callers hold the control lock so queue order
// matches transition order.
func (n *notifier) post(fns ...func()) {
	n.mu.Lock()
	n.queue = append(n.queue, fns...)
	n.mu.Unlock()
}

// flush delivers queued callbacks unless another goroutine already is
func (n *notifier) flush() {
	n.mu.Lock()
	if n.delivering {
		n.mu.Unlock()
		return
	}
	n.delivering = true
	for len(n.queue) > 0 {
		fn := n.queue[0]
		n.queue[0] = nil
		n.queue = n.queue[1:]
		n.mu.Unlock()
		fn()
		n.mu.Lock()
	}
	n.delivering = false
	n.mu.Unlock()
}

package collection

import "fmt"

// Notices collects user-facing informational messages emitted while working
// with a collection, e.g. when a requested quantity is raised to a product's
// minimum order quantity. Business-rule adjustments are notices, not errors.
type Notices struct {
	messages []string
}

func NewNotices() *Notices {
	return &Notices{}
}

// Addf queues a formatted message for display.
func (n *Notices) Addf(format string, args ...any) {
	if n == nil {
		return
	}
	n.messages = append(n.messages, fmt.Sprintf(format, args...))
}

// Drain returns all queued messages and empties the queue.
func (n *Notices) Drain() []string {
	if n == nil {
		return nil
	}
	out := n.messages
	n.messages = nil
	return out
}

package snapshot

// fifo is an unbounded, strictly ordered, single-producer/single-consumer
// queue of message values. It backs every directed channel in the topology
// (Node->Node, Observer->Node, Node->Observer). The contract is exactly
// spec.md's: enqueue appends at the tail, dequeue removes from the head,
// nonEmpty is a non-destructive emptiness test, and no operation ever
// reorders or drops an entry. Backpressure is explicitly not part of the
// contract (spec.md §4.1), so the backing store is an ordinary growable
// slice rather than anything bounded.
//
// fifo carries no synchronization of its own: every caller in this package
// reaches it only while holding Controller.mu, per the single coarse lock
// discipline described in spec.md §5.
type fifo struct {
	items []message
}

// enqueue appends m at the tail of the queue.
func (f *fifo) enqueue(m message) {
	f.items = append(f.items, m)
}

// dequeue removes and returns the message at the head of the queue. The
// second return value is false if the queue was empty, in which case the
// zero message is returned and the queue is unchanged.
func (f *fifo) dequeue() (message, bool) {
	if len(f.items) == 0 {
		return message{}, false
	}
	m := f.items[0]
	f.items = f.items[1:]
	return m, true
}

// nonEmpty reports whether the queue currently holds at least one message.
func (f *fifo) nonEmpty() bool {
	return len(f.items) > 0
}

// len reports the number of messages currently queued.
func (f *fifo) len() int {
	return len(f.items)
}

package mqtt

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable, oldest
// first, up to a fixed capacity. When full the oldest message is dropped.
// Callers synchronize.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

// push queues msg. It returns true for the first drop since the last drain.
func (o *outbox) push(msg bufferedMsg) bool {
	if len(o.msgs) < o.capacity {
		o.msgs = append(o.msgs, msg)
		return false
	}
	copy(o.msgs, o.msgs[1:])
	o.msgs[len(o.msgs)-1] = msg
	o.dropped++
	return o.dropped == 1
}

// drain empties the outbox, returning the queued messages and how many were
// dropped since the previous drain.
func (o *outbox) drain() (msgs []bufferedMsg, dropped int) {
	if len(o.msgs) > 0 {
		msgs = make([]bufferedMsg, len(o.msgs))
		copy(msgs, o.msgs)
	}
	dropped = o.dropped
	o.msgs = o.msgs[:0]
	o.dropped = 0
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}

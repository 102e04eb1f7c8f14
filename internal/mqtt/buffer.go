package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// msgQueue is a bounded FIFO holding messages while the broker is
// unreachable. When full, the oldest message is discarded. Not safe for
// concurrent use — the publisher synchronizes around it.
type msgQueue struct {
	msgs    []bufferedMsg
	max     int
	dropped int // total messages discarded since startup
}

func newMsgQueue(max int) *msgQueue {
	return &msgQueue{max: max}
}

func (q *msgQueue) push(msg bufferedMsg) {
	if len(q.msgs) == q.max {
		if q.dropped == 0 {
			log.Printf("mqtt: offline queue full (%d messages), dropping oldest", q.max)
		}
		q.dropped++
		copy(q.msgs, q.msgs[1:])
		q.msgs[len(q.msgs)-1] = msg
		return
	}
	q.msgs = append(q.msgs, msg)
}

// drainAll removes and returns every queued message, oldest first.
func (q *msgQueue) drainAll() []bufferedMsg {
	if len(q.msgs) == 0 {
		return nil
	}
	out := q.msgs
	q.msgs = nil
	return out
}

func (q *msgQueue) len() int {
	return len(q.msgs)
}

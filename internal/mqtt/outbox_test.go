package mqtt

import (
	"testing"
)

func pushN(o *outbox, from, to int) (drops int) {
	for i := from; i < to; i++ {
		if o.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}}) {
			drops++
		}
	}
	return drops
}

func payloads(msgs []bufferedMsg) []byte {
	out := make([]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.payload[0]
	}
	return out
}

func TestOutboxEmptyDrain(t *testing.T) {
	msgs, dropped := newOutbox(10).drain()
	if msgs != nil || dropped != 0 {
		t.Errorf("expected nothing from empty drain, got %d items, %d dropped", len(msgs), dropped)
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(10)
	pushN(o, 0, 5)

	msgs, dropped := o.drain()
	if string(payloads(msgs)) != string([]byte{0, 1, 2, 3, 4}) {
		t.Errorf("payloads: got %v", payloads(msgs))
	}
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
	if again, _ := o.drain(); again != nil {
		t.Errorf("expected nil from second drain, got %d items", len(again))
	}
}

func TestOutboxDropsOldest(t *testing.T) {
	o := newOutbox(5)
	if drops := pushN(o, 0, 8); drops != 1 {
		t.Errorf("expected first drop reported once, got %d", drops)
	}

	msgs, dropped := o.drain()
	if string(payloads(msgs)) != string([]byte{3, 4, 5, 6, 7}) {
		t.Errorf("payloads: got %v, want the newest five", payloads(msgs))
	}
	if dropped != 3 {
		t.Errorf("dropped: got %d, want 3", dropped)
	}
}

func TestOutboxDrainResetsDropReport(t *testing.T) {
	o := newOutbox(1)
	if o.push(bufferedMsg{topic: "t"}) {
		t.Error("first push into empty outbox should not drop")
	}
	if !o.push(bufferedMsg{topic: "t"}) {
		t.Error("expected drop on full outbox")
	}
	o.drain()
	o.push(bufferedMsg{topic: "t"})
	if !o.push(bufferedMsg{topic: "t"}) {
		t.Error("expected drop to be reported again after drain")
	}
}

func TestOutboxReuseAfterDrain(t *testing.T) {
	o := newOutbox(5)
	pushN(o, 0, 3)
	first, _ := o.drain()
	pushN(o, 10, 14)
	second, _ := o.drain()

	if string(payloads(first)) != string([]byte{0, 1, 2}) {
		t.Errorf("first drain: got %v", payloads(first))
	}
	if string(payloads(second)) != string([]byte{10, 11, 12, 13}) {
		t.Errorf("second drain: got %v", payloads(second))
	}
}

func TestOutboxLen(t *testing.T) {
	o := newOutbox(10)
	pushN(o, 0, 2)
	if o.len() != 2 {
		t.Errorf("expected len 2, got %d", o.len())
	}
	o.drain()
	if o.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", o.len())
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(10)
	o.push(bufferedMsg{
		topic:    "home/okay-to-wake/state",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	msgs, _ := o.drain()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 item, got %d", len(msgs))
	}
	m := msgs[0]
	if m.topic != "home/okay-to-wake/state" || string(m.payload) != `{"test":true}` || m.qos != 1 || !m.retained {
		t.Errorf("fields changed: %+v", m)
	}
}

func TestOutboxMinimumCapacity(t *testing.T) {
	o := newOutbox(0)
	o.push(bufferedMsg{topic: "a"})
	o.push(bufferedMsg{topic: "b"})
	msgs, _ := o.drain()
	if len(msgs) != 1 || msgs[0].topic != "b" {
		t.Errorf("expected only the newest message, got %+v", msgs)
	}
}

package bus

// Subscriber receives messages of the kinds it subscribed to. Subscribers
// are compared by identity, so implementations are usually pointers.
type Subscriber interface {
	Notify(msg Message)
}

// Broker fans messages out to subscribers. Delivery is synchronous and
// follows subscription order. Subscribers may publish while handling a
// message; nested messages are delivered before Publish returns.
type Broker struct {
	seq   int
	subs  map[Kind][]entry
	order map[Subscriber]int
}

type entry struct {
	seq int
	sub Subscriber
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subs:  make(map[Kind][]entry),
		order: make(map[Subscriber]int),
	}
}

// Subscribe registers s for the given kinds. A subscriber keeps the
// position of its first subscription for every kind it adds later.
func (b *Broker) Subscribe(s Subscriber, kinds ...Kind) {
	seq, ok := b.order[s]
	if !ok {
		b.seq++
		seq = b.seq
		b.order[s] = seq
	}
	for _, k := range kinds {
		list := b.subs[k]
		dup := false
		for _, e := range list {
			if e.sub == s {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		pos := len(list)
		for i, e := range list {
			if e.seq > seq {
				pos = i
				break
			}
		}
		list = append(list, entry{})
		copy(list[pos+1:], list[pos:])
		list[pos] = entry{seq: seq, sub: s}
		b.subs[k] = list
	}
}

// Unsubscribe removes s from the given kinds, or from all kinds when none
// are given.
func (b *Broker) Unsubscribe(s Subscriber, kinds ...Kind) {
	if len(kinds) == 0 {
		for k := range b.subs {
			kinds = append(kinds, k)
		}
	}
	for _, k := range kinds {
		list := b.subs[k]
		for i, e := range list {
			if e.sub == s {
				b.subs[k] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(b.subs[k]) == 0 {
			delete(b.subs, k)
		}
	}
	for _, list := range b.subs {
		for _, e := range list {
			if e.sub == s {
				return
			}
		}
	}
	delete(b.order, s)
}

// Publish delivers one message.
func (b *Broker) Publish(msg Message) {
	list := b.subs[msg.Kind()]
	if len(list) == 0 {
		return
	}
	snapshot := make([]entry, len(list))
	copy(snapshot, list)
	for _, e := range snapshot {
		e.sub.Notify(msg)
	}
}

// PublishBulk delivers messages in order as one round.
func (b *Broker) PublishBulk(msgs []Message) {
	for _, msg := range msgs {
		b.Publish(msg)
	}
}

package stock

import "time"

const (
	TopicAdded   = "stock:added"
	TopicUpdated = "stock:updated"
	TopicSold    = "stock:sold"
	TopicZeroed  = "stock:zeroed"
	TopicDeleted = "stock:deleted"
)

var Topics = []string{TopicAdded, TopicUpdated, TopicSold, TopicZeroed, TopicDeleted}

// Event is published after a ledger transaction commits.
type Event struct {
	Topic     string
	ProductID int64
	Name      string
	Quantity  int
	Delta     int
	At        time.Time
}

func (l *Ledger) publish(ev Event) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(ev.Topic, ev)
}

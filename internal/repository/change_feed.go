package repository

import (
	"sync"
	"time"
)

type Collection string

const (
	CollectionTaskProgress      Collection = "task_progress"
	CollectionChecklistProgress Collection = "checklist_progress"
)

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent describes one row-level write. Key is the non-user half of the
// row's primary key (task id or checklist item id).
type ChangeEvent struct {
	Collection Collection
	Op         ChangeOp
	UserID     string
	Key        string
	At         time.Time
}

// ChangeFilter narrows a subscription. Empty fields match everything.
type ChangeFilter struct {
	UserID string
}

func (f ChangeFilter) matches(ev ChangeEvent) bool {
	return f.UserID == "" || f.UserID == ev.UserID
}

// subscriberBuffer bounds how many events a slow subscriber may lag behind
// before further events are dropped.
const subscriberBuffer = 16

type subscriber struct {
	collection Collection
	filter     ChangeFilter
	ch         chan ChangeEvent
}

// ChangeFeed is an in-process publish/subscribe hub for row-level changes.
// Publishing never blocks the writer: a subscriber whose buffer is full misses
// the event and must fall back to an authoritative read.
type ChangeFeed struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	now    func() time.Time
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{
		subs: make(map[int]*subscriber),
		now:  time.Now,
	}
}

// Subscribe registers interest in one collection. The returned cancel func
// closes the channel and is safe to call more than once.
func (f *ChangeFeed) Subscribe(collection Collection, filter ChangeFilter) (<-chan ChangeEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	sub := &subscriber{
		collection: collection,
		filter:     filter,
		ch:         make(chan ChangeEvent, subscriberBuffer),
	}
	f.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish fans the event out to matching subscribers. A nil feed is a no-op
// so repositories can run without one.
func (f *ChangeFeed) Publish(ev ChangeEvent) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if ev.At.IsZero() {
		ev.At = f.now()
	}
	for _, sub := range f.subs {
		if sub.collection != ev.Collection || !sub.filter.matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Subscriber is full; drop rather than block the writer.
		}
	}
}

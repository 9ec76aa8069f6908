package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "vendibook/internal/app/outbox"
	"vendibook/internal/app/uow"
	"vendibook/internal/infra/outbox"
)

type outboxEntry struct {
	msg       outbox.Message
	state     string
	next      time.Time
	lastError string
	seq       int
}

// Outbox keeps event records in memory. Records added inside a memory unit of
// work become visible to the relay only when that unit commits.
type Outbox struct {
	mu      sync.Mutex
	entries map[string]*outboxEntry
	seq     int
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[string]*outboxEntry), now: func() time.Time { return time.Now().UTC() }}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	publish := func() { o.enqueue(record) }
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && mu.onCommit(publish) {
			return nil
		}
	}
	publish()
	return nil
}

// Flush is a no-op: visibility follows the unit of work.
func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) enqueue(record appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.entries[record.ID]; exists {
		return
	}
	o.seq++
	o.entries[record.ID] = &outboxEntry{
		msg: outbox.Message{
			ID:         record.ID,
			Name:       record.Name,
			Payload:    append([]byte(nil), record.Payload...),
			OccurredAt: record.OccurredAt,
			Aggregate:  record.Aggregate,
			Headers:    record.Headers,
		},
		state: outbox.StateNew,
		next:  o.now(),
		seq:   o.seq,
	}
}

// Claim hands out the oldest due record.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*outbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	var pick *outboxEntry
	for _, e := range o.entries {
		if e.state != outbox.StateNew && e.state != outbox.StateFailed {
			continue
		}
		if e.next.After(now) {
			continue
		}
		if pick == nil || e.seq < pick.seq {
			pick = e
		}
	}
	if pick == nil {
		return nil, nil
	}
	pick.state = outbox.StateClaimed
	msg := pick.msg
	return &msg, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok {
		e.state = outbox.StateSent
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok {
		e.state = outbox.StateFailed
		e.next = next
		e.lastError = errMsg
		e.msg.Attempts++
	}
	return nil
}

// Pending lists the names of records not yet relayed, oldest first.
func (o *Outbox) Pending() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	entries := make([]*outboxEntry, 0, len(o.entries))
	for _, e := range o.entries {
		if e.state != outbox.StateSent {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.msg.Name
	}
	return names
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ outbox.Store     = (*Outbox)(nil)
)

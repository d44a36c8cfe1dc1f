package submission

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/p5portal/backend-portal/internal/obs"
)

type itemUpdater interface {
	UpdateItem(ctx context.Context, it Item) error
}

// Coalescer debounces item writes. Admins tab through price fields
// quickly, so each item's latest state is held back for Delay and only
// the final version hits the database.
type Coalescer struct {
	Inner   itemUpdater
	Delay   time.Duration
	Timeout time.Duration
	OnError func(itemID int64, err error)
	// OnPersist runs after a queued write lands, from fire and Flush.
	OnPersist func(item Item)

	mu      sync.Mutex
	pending map[int64]*pendingWrite
}

type pendingWrite struct {
	timer *time.Timer
	item  Item
}

// Schedule queues the item for writing after Delay. A newer state for
// the same item replaces the queued one and restarts the delay.
func (c *Coalescer) Schedule(it Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.pending = make(map[int64]*pendingWrite)
	}
	if p, ok := c.pending[it.ID]; ok {
		p.item = it
		p.timer.Reset(c.delay())
		return
	}
	p := &pendingWrite{item: it}
	id := it.ID
	p.timer = time.AfterFunc(c.delay(), func() { c.fire(id) })
	c.pending[id] = p
}

// Pending reports the queued state of an item, if any.
func (c *Coalescer) Pending(itemID int64) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[itemID]; ok {
		return p.item, true
	}
	return Item{}, false
}

// Cancel drops a queued write without flushing it.
func (c *Coalescer) Cancel(itemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[itemID]; ok {
		p.timer.Stop()
		delete(c.pending, itemID)
	}
}

// Flush writes every queued item immediately. Used on shutdown.
func (c *Coalescer) Flush(ctx context.Context) error {
	c.mu.Lock()
	items := make([]Item, 0, len(c.pending))
	for id, p := range c.pending {
		p.timer.Stop()
		items = append(items, p.item)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	var joined error
	for _, it := range items {
		if err := c.Inner.UpdateItem(ctx, it); err != nil {
			joined = errors.Join(joined, err)
			continue
		}
		if c.OnPersist != nil {
			c.OnPersist(it)
		}
	}
	return joined
}

func (c *Coalescer) fire(itemID int64) {
	c.mu.Lock()
	p, ok := c.pending[itemID]
	if !ok {
		c.mu.Unlock()
		return
	}
	it := p.item
	delete(c.pending, itemID)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
	defer cancel()
	if err := c.Inner.UpdateItem(ctx, it); err != nil {
		if c.OnError != nil {
			c.OnError(itemID, err)
		}
		return
	}
	if obs.CoalescedWriteTotal != nil {
		obs.CoalescedWriteTotal.Inc()
	}
	if c.OnPersist != nil {
		c.OnPersist(it)
	}
}

func (c *Coalescer) delay() time.Duration {
	if c.Delay > 0 {
		return c.Delay
	}
	return 600 * time.Millisecond
}

func (c *Coalescer) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 5 * time.Second
}

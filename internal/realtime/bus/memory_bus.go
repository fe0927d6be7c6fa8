package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

// memoryBus fans events out to in-process forwarders. Used when REDIS_ADDR is unset.
type memoryBus struct {
	log    *logger.Logger
	mu     sync.RWMutex
	subs   map[int]chan TransferEvent
	nextID int
	closed bool
}

const memoryBufferSize = 64

func NewMemoryBus(log *logger.Logger) Bus {
	return &memoryBus{
		log:  log.With("service", "MemoryTransferBus"),
		subs: map[int]chan TransferEvent{},
	}
}

// Publish never blocks; a forwarder whose buffer is full misses the event.
func (b *memoryBus) Publish(ctx context.Context, evt TransferEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("memory transfer bus closed")
	}
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.log.Warn("dropping transfer event for slow subscriber", "subscriber", id, "transaction_ref", evt.TransactionRef)
		}
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onEvent func(evt TransferEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("memory transfer bus closed")
	}
	id := b.nextID
	b.nextID++
	ch := make(chan TransferEvent, memoryBufferSize)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.unsubscribe(id)
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				onEvent(evt)
			}
		}
	}()
	return nil
}

func (b *memoryBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}

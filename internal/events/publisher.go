// Package events publishes accepted-bid notifications to a Redis stream so
// side processes (indexers, notification fan-out) can follow settlements
// without polling the store. Payloads are msgpack-encoded.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrNilClient is returned when no redis client is supplied.
	ErrNilClient = errors.New("events: redis client cannot be nil")

	// ErrEmptyStream is returned when no stream key is supplied.
	ErrEmptyStream = errors.New("events: stream key cannot be empty")

	// ErrClosed is returned when publishing after Close.
	ErrClosed = errors.New("events: publisher closed")
)

// BidEvent is the payload appended to the stream when a bid settles an
// auction.
type BidEvent struct {
	AuctionID string
	Bidder    string
	Amount    uint64
	Clearing  uint64
	Height    uint64
}

// MarshalBinary encodes the event with msgpack for the stream field value.
func (e BidEvent) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(e)
}

// UnmarshalBinary decodes a msgpack stream payload.
func (e *BidEvent) UnmarshalBinary(data []byte) error {
	return msgpack.Unmarshal(data, e)
}

// Publisher appends bid events to one Redis stream from a background
// goroutine, so settlement never blocks on the broker.
type Publisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger

	mu     sync.Mutex
	buf    chan BidEvent
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewPublisher creates a publisher for the given stream key.
func NewPublisher(client *redis.Client, stream string, logger *slog.Logger) (*Publisher, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if stream == "" {
		return nil, ErrEmptyStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		client: client,
		stream: stream,
		logger: logger.With(slog.String("stream", stream)),
		buf:    make(chan BidEvent, 256),
		cancel: cancel,
	}
	p.wg.Add(1)
	go p.run(ctx)
	return p, nil
}

func (p *Publisher) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.buf:
			id, err := p.client.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				Values: map[string]any{
					"auction_id": ev.AuctionID,
					"event":      ev,
				},
			}).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				p.logger.Error("publish bid event failed", "auction", ev.AuctionID, "err", err)
				continue
			}
			p.logger.Debug("bid event published", "auction", ev.AuctionID, "message_id", id)
		}
	}
}

// Publish enqueues an event. Drops it if the buffer is full rather than
// blocking bid processing.
func (p *Publisher) Publish(ev BidEvent) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case p.buf <- ev:
	default:
		p.logger.Warn("event buffer full, dropping bid event", "auction", ev.AuctionID)
	}
	return nil
}

// Close stops the background goroutine. Buffered events not yet flushed
// are discarded.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

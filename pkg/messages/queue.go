// Package messages queues outbound messages for best-effort delivery
// through the message router.
package messages

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Sudo-Ivan/Ren-Browser/pkg/metrics"
	"github.com/Sudo-Ivan/Ren-Browser/pkg/rns"
)

var ErrQueueFull = errors.New("message queue full")

// Outbound is one queued message.
type Outbound struct {
	ID              string    `json:"id"`
	DestinationHash string    `json:"destinationHash"`
	Content         string    `json:"content"`
	Title           string    `json:"title,omitempty"`
	QueuedAt        time.Time `json:"queuedAt"`
}

// Queue accepts messages and drains them through the router on a worker
// goroutine, so HTTP handlers never block on delivery.
type Queue struct {
	router rns.MessageRouter
	ch     chan Outbound
}

func NewQueue(router rns.MessageRouter, capacity int) *Queue {
	if capacity <= 0 {
		capacity = 16
	}
	return &Queue{router: router, ch: make(chan Outbound, capacity)}
}

// Enqueue validates the destination and adds the message to the queue.
func (q *Queue) Enqueue(destinationHash, content, title string) (Outbound, error) {
	if _, err := hex.DecodeString(destinationHash); err != nil {
		return Outbound{}, fmt.Errorf("invalid destination hash %q: %w", destinationHash, err)
	}
	msg := Outbound{
		ID:              uuid.NewString(),
		DestinationHash: destinationHash,
		Content:         content,
		Title:           title,
		QueuedAt:        time.Now(),
	}
	select {
	case q.ch <- msg:
		metrics.MessagesQueued.Inc()
		return msg, nil
	default:
		return Outbound{}, ErrQueueFull
	}
}

// Run drains the queue until stop is closed. Delivery failures are logged
// and dropped; the router handles its own retries and propagation.
func (q *Queue) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case msg := <-q.ch:
			destinationHash, err := hex.DecodeString(msg.DestinationHash)
			if err != nil {
				continue
			}
			if err := q.router.Send(destinationHash, msg.Content, msg.Title); err != nil {
				log.Printf("messages: send %s to %s failed: %v", msg.ID, msg.DestinationHash, err)
				continue
			}
			log.Printf("messages: sent %s to %s", msg.ID, msg.DestinationHash)
		}
	}
}

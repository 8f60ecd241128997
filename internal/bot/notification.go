package bot

import (
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/divar-watcher/internal/domain/events"
	"github.com/maxaizer/divar-watcher/internal/domain/models"
	"github.com/maxaizer/divar-watcher/internal/logger"
	log "github.com/sirupsen/logrus"
	"strings"
	"sync"
)

const maxPendingPerChat = 500

func (b *Bot) onListingFound(event events.ListingFound) {
	chatID := int64(event.SubscriberID)
	listing := event.Listing
	b.outbox.enqueue(chatID, func() { b.deliverListing(chatID, listing) })
}

// deliverListing sends the photo with caption and falls back to plain text.
// Failures are only logged, the listing stays seen.
func (b *Bot) deliverListing(chatID int64, listing models.Listing) {

	text := formatListing(listing)

	if listing.HasImage() {
		photo := botApi.NewPhoto(chatID, botApi.FileURL(listing.ImageURL))
		photo.Caption = text
		_, err := b.api.Send(photo)
		if err == nil {
			return
		}
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Warnf("failed to send photo for %s, sending text instead: %v", listing.ID, err)
	}

	_, _ = sendWithLogError(b.api, botApi.NewMessage(chatID, text))
}

func formatListing(listing models.Listing) string {
	return strings.Join([]string{
		"title: " + listing.Title,
		"deposit: " + listing.DepositText,
		"rent: " + listing.RentText,
		"link: " + listing.Link,
	}, "\n")
}

// outbox runs queued tasks of one chat in order, each chat on its own goroutine.
// enqueue never blocks, so a stuck chat only delays itself.
type outbox struct {
	name   string
	mu     sync.Mutex
	queues map[int64]*chatQueue
	wg     sync.WaitGroup
	closed bool
}

type chatQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
}

func newOutbox(name string) *outbox {
	return &outbox{name: name, queues: make(map[int64]*chatQueue)}
}

// enqueue reports false when the task was dropped because the outbox is closed
// or the chat already has maxPendingPerChat tasks waiting.
func (o *outbox) enqueue(chatID int64, task func()) bool {

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		log.Warnf("%s closed, dropping task for chat %d", o.name, chatID)
		return false
	}

	queue, ok := o.queues[chatID]
	if !ok {
		queue = newChatQueue()
		o.queues[chatID] = queue
		o.wg.Add(1)
		go o.drain(queue)
	}
	o.mu.Unlock()

	if !queue.push(task) {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("%s for chat %d is full, dropping task", o.name, chatID)
		return false
	}
	return true
}

func (o *outbox) drain(queue *chatQueue) {
	defer o.wg.Done()
	for {
		task, ok := queue.pop()
		if !ok {
			return
		}
		task()
	}
}

// close runs everything already queued and returns.
func (o *outbox) close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		for _, queue := range o.queues {
			queue.close()
		}
	}
	o.mu.Unlock()

	o.wg.Wait()
}

func newChatQueue() *chatQueue {
	q := &chatQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *chatQueue) push(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.pending) >= maxPendingPerChat {
		return false
	}
	q.pending = append(q.pending, task)
	q.cond.Signal()
	return true
}

// pop waits for a task. It returns false once the queue is closed and empty.
func (q *chatQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.pending) == 0 {
		return nil, false
	}

	task := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return task, true
}

func (q *chatQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Package stream hands per-situation reveal channels from the goroutine
// revealing generated text to an observing consumer, so a presentation
// layer can follow character-by-character updates without polling the
// message log.
package stream

// Update is one step of a streaming reveal: the sender of the message
// being revealed and its content revealed so far.
type Update struct {
	Sender  string
	Content string
	// Done marks the final update for a message.
	Done bool
}

// producerBuffer is the capacity of the channel a reveal publishes on.
// Sends never block the reveal loop; updates beyond the buffer are
// dropped for a lagging consumer, which only coarsens the animation.
const producerBuffer = 256

type opening struct {
	key string
	ch  chan Update
}

type watchRequest struct {
	key   string
	reply chan chan Update
}

// Broker passes a reveal channel from a producing situation to the first
// watcher. Subsequent watchers block until the reveal is closed so that
// they can fall back to reading the finished message log instead.
type Broker struct {
	stopCh  chan struct{}
	openCh  chan opening
	closeCh chan string
	watchCh chan watchRequest
}

// NewBroker creates a Broker. Call Run in a goroutine and Stop to end it.
func NewBroker() *Broker {
	return &Broker{
		stopCh:  make(chan struct{}),
		openCh:  make(chan opening),
		closeCh: make(chan string),
		watchCh: make(chan watchRequest),
	}
}

// Run listens for open, close, and watch events until Stop is called.
// It blocks, so it should be called in a goroutine.
func (b *Broker) Run() {
	open := map[string]chan Update{}
	watchers := map[string][]chan chan Update{}
	for {
		select {
		case <-b.stopCh:
			return

		case req := <-b.watchCh:
			ch := open[req.key]
			if ch == nil {
				// No reveal in flight for this key; the closed reply
				// tells the watcher to read the log directly.
				close(req.reply)
				break
			}
			if watchers[req.key] == nil {
				// The first watcher gets the live channel.
				watchers[req.key] = []chan chan Update{req.reply}
				req.reply <- ch
			} else {
				// Later watchers wait until the reveal is closed.
				watchers[req.key] = append(watchers[req.key], req.reply)
			}

		case o := <-b.openCh:
			open[o.key] = o.ch

		case key := <-b.closeCh:
			delete(open, key)
			if list := watchers[key]; len(list) > 1 {
				for _, reply := range list[1:] {
					close(reply)
				}
			}
			delete(watchers, key)
		}
	}
}

// Stop ends the Run loop.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Open registers a reveal under key and returns the channel to send
// updates on. The producer must call Close with the same key when done.
func (b *Broker) Open(key string) chan Update {
	ch := make(chan Update, producerBuffer)
	b.openCh <- opening{key: key, ch: ch}
	return ch
}

// Close closes the reveal channel under key and releases its watchers.
func (b *Broker) Close(key string, ch chan Update) {
	close(ch)
	b.closeCh <- key
}

// Watch subscribes to the reveal under key. The returned channel yields
// the live update channel, or is closed if no reveal is in flight (or
// once the in-flight reveal finishes, for watchers past the first).
func (b *Broker) Watch(key string) chan chan Update {
	reply := make(chan chan Update, 1)
	b.watchCh <- watchRequest{key: key, reply: reply}
	return reply
}

// Send delivers an update without blocking the reveal loop. Updates are
// dropped when the consumer lags behind the buffer.
func Send(ch chan<- Update, u Update) {
	select {
	case ch <- u:
	default:
	}
}

package broker

type publication[TID comparable, TPayload any] struct {
	ID      TID
	Payload TPayload
}

type subscription[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan TPayload
}

// Hub fans payloads published under an ID out to every current subscriber of that ID.
//
// Delivery is best effort. A subscriber whose buffer is full misses the payload instead of blocking the
// publisher, so payloads should be hints to re-read state rather than the state itself. This suits
// pushing "something changed" notifications through SSE where the HTTP handler re-renders from the
// source of truth.
type Hub[TID comparable, TPayload any] struct {
	bufferSize         int
	stopChannel        chan struct{}
	publishChannel     chan publication[TID, TPayload]
	subscribeChannel   chan subscription[TID, TPayload]
	unsubscribeChannel chan subscription[TID, TPayload]
}

// NewHub creates a new Hub whose subscriber channels buffer up to bufferSize payloads. Call Start in a
// goroutine and Stop when done.
func NewHub[TID comparable, TPayload any](bufferSize int) *Hub[TID, TPayload] {
	return &Hub[TID, TPayload]{
		bufferSize:         bufferSize,
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan publication[TID, TPayload]),
		subscribeChannel:   make(chan subscription[TID, TPayload]),
		unsubscribeChannel: make(chan subscription[TID, TPayload]),
	}
}

// Start handles publications and subscriptions until Stop is called. Subscriber channels still open at
// that point are closed.
func (b *Hub[TID, TPayload]) Start() {
	subscribers := map[TID]map[chan TPayload]struct{}{}
	for {
		select {
		case <-b.stopChannel:
			for _, channels := range subscribers {
				for c := range channels {
					close(c)
				}
			}
			return

		case s := <-b.subscribeChannel:
			if subscribers[s.ID] == nil {
				subscribers[s.ID] = map[chan TPayload]struct{}{}
			}
			subscribers[s.ID][s.Channel] = struct{}{}

		case s := <-b.unsubscribeChannel:
			channels := subscribers[s.ID]
			if _, ok := channels[s.Channel]; !ok {
				break
			}
			delete(channels, s.Channel)
			close(s.Channel)
			if len(channels) == 0 {
				delete(subscribers, s.ID)
			}

		case p := <-b.publishChannel:
			for c := range subscribers[p.ID] {
				select {
				case c <- p.Payload:
				default:
				}
			}
		}
	}
}

// Stop the goroutine that handles the hub.
func (b *Hub[TID, TPayload]) Stop() {
	close(b.stopChannel)
}

// Subscription receives the payloads published under ID on C.
type Subscription[TID comparable, TPayload any] struct {
	ID TID
	C  <-chan TPayload
	c  chan TPayload
}

// Subscribe registers for every payload published under id from now on. C is closed by Unsubscribe or
// Stop.
func (b *Hub[TID, TPayload]) Subscribe(id TID) *Subscription[TID, TPayload] {
	c := make(chan TPayload, b.bufferSize)
	select {
	case b.subscribeChannel <- subscription[TID, TPayload]{ID: id, Channel: c}:
	case <-b.stopChannel:
		close(c)
	}
	return &Subscription[TID, TPayload]{ID: id, C: c, c: c}
}

// Unsubscribe removes the subscription and closes its channel. Unsubscribing twice is harmless.
func (b *Hub[TID, TPayload]) Unsubscribe(sub *Subscription[TID, TPayload]) {
	select {
	case b.unsubscribeChannel <- subscription[TID, TPayload]{ID: sub.ID, Channel: sub.c}:
	case <-b.stopChannel:
	}
}

// Publish sends payload to the current subscribers of id. It returns once the hub has taken the payload.
func (b *Hub[TID, TPayload]) Publish(id TID, payload TPayload) {
	select {
	case b.publishChannel <- publication[TID, TPayload]{ID: id, Payload: payload}:
	case <-b.stopChannel:
	}
}

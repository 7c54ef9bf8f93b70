package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
)

// Broadcaster fans domain events out to connected SSE clients. Emit never
// blocks; slow clients drop events.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan core.Event]struct{}
}

var _ core.EventEmitter = (*Broadcaster)(nil)

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan core.Event]struct{})}
}

func (b *Broadcaster) Emit(evt core.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default: // drop for slow clients
		}
	}
}

func (b *Broadcaster) subscribe() chan core.Event {
	ch := make(chan core.Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) unsubscribe(ch chan core.Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

func registerEventsAPI(g *echo.Group, jwt echo.MiddlewareFunc, broadcaster *Broadcaster) {
	if broadcaster == nil {
		return
	}
	g.GET("/events", streamEvents(broadcaster), jwt)
}

func streamEvents(b *Broadcaster) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		res := ctx.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("Connection", "keep-alive")
		res.WriteHeader(http.StatusOK)
		res.Flush()

		ch := b.subscribe()
		defer b.unsubscribe(ch)

		for {
			select {
			case <-ctx.Request().Context().Done():
				return nil
			case evt, ok := <-ch:
				if !ok {
					return nil
				}
				data, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				if _, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
					return nil
				}
				res.Flush()
			}
		}
	}
}

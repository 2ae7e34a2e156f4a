package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// EventSource feeds the compositor from the xgbutil event queue.
//
// xevent.Read exits the process when asked to block on a closed connection,
// so blocking reads go straight to the protocol connection.
type EventSource struct {
	xu *xgbutil.XUtil
}

// NewEventSource returns an EventSource reading from conn.
func NewEventSource(conn *Connection) *EventSource {
	return &EventSource{xu: conn.XUtil}
}

// NextEvent blocks until an event or error is available. It returns nil, nil
// once the connection has been closed.
func (s *EventSource) NextEvent() (xgb.Event, xgb.Error) {
	if xevent.Empty(s.xu) {
		ev, err := s.xu.Conn().WaitForEvent()
		if ev == nil && err == nil {
			return nil, nil
		}
		xevent.Enqueue(s.xu, ev, err)
	}
	return xevent.Dequeue(s.xu)
}

// Queued drains whatever the connection has already received into the queue
// and reports its length.
func (s *EventSource) Queued() int {
	xevent.Read(s.xu, false)
	return len(xevent.Peek(s.xu))
}

package runner

import (
	"context"

	"github.com/riftload/riftload/internal/transport"
	"github.com/riftload/riftload/pkg/value"
)

// dispatchDepth is the bounded channel depth spec.md §5 mandates for
// the dispatcher's event queue, matching
// original_source/src/event_loop.rs's channel(32).
const dispatchDepth = 32

// EventContext is the per-chain travelling record: which step just
// completed (or is about to run) plus the variables accumulated so
// far (spec.md §3).
type EventContext struct {
	ScenarioID int
	Vars       map[string]value.Value
}

// Delivery is a completed response (or submission error) paired with
// the EventContext it travelled with, handed back to the Runner.
type Delivery struct {
	Ctx  EventContext
	Resp *transport.Response
	Err  error
}

// Command is the dispatcher's closed event variant:
// SendMessage submits a request and reports back on Reply;
// Terminate tells the dispatcher to stop and drop its connection.
type Command interface{ isCommand() }

// SendMessage asks the dispatcher to submit Req and forward the
// resulting Delivery to Reply.
type SendMessage struct {
	Ctx   EventContext
	Req   *transport.Request
	Reply chan<- Delivery
}

// Terminate asks the dispatcher to stop consuming events.
type Terminate struct{}

func (SendMessage) isCommand() {}
func (Terminate) isCommand()   {}

// Dispatcher owns the worker's one HTTP/2 connection and is the only
// goroutine that calls Submit on it (spec.md §5: "the dispatcher that
// consumes events and submits requests").
type Dispatcher struct {
	conn     *transport.Conn
	commands chan Command
}

// NewDispatcher returns a Dispatcher bound to conn with the mandated
// depth-32 command queue.
func NewDispatcher(conn *transport.Conn) *Dispatcher {
	return &Dispatcher{conn: conn, commands: make(chan Command, dispatchDepth)}
}

// Commands returns the send-only side of the dispatcher's queue.
func (d *Dispatcher) Commands() chan<- Command { return d.commands }

// Run consumes commands until a Terminate is received or the context
// is cancelled. Each SendMessage spawns a short goroutine that awaits
// the response future and forwards the Delivery — this is the "short
// task that merely forwards the result" from spec.md §5.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-d.commands:
			if !ok {
				return
			}
			switch c := cmd.(type) {
			case SendMessage:
				go func(c SendMessage) {
					resp, err := d.conn.Submit(ctx, c.Req)
					c.Reply <- Delivery{Ctx: c.Ctx, Resp: resp, Err: err}
				}(c)
			case Terminate:
				return
			}
		}
	}
}

// ABOUTME: connection wraps one accepted TCP stream with its tokeniser and outbound queue
// ABOUTME: A dedicated writer goroutine drains outbound lines so a slow client can't stall the reactor
package ioreactor

import (
	"log"
	"net"
	"sync"

	"github.com/resonate-protocol/playd/internal/response"
	"github.com/resonate-protocol/playd/internal/tokeniser"
)

// outboundQueueSize bounds how many packed lines may be pending delivery
// to one connection before further sends to it are dropped.
const outboundQueueSize = 64

// connection is a single client's TCP stream plus its incremental line
// tokeniser. Its ClientId is stable for its lifetime and never reused
// while it is live.
type connection struct {
	id   response.ClientId
	conn net.Conn
	tok  *tokeniser.Tokeniser

	out chan string

	// mu guards closed: send and close must never race each other, or a
	// broadcast landing mid-disconnect could send on a closed channel.
	mu     sync.Mutex
	closed bool

	// onWriteError is invoked at most once, the first time a write to
	// this connection fails, so the reactor can schedule its removal.
	onWriteError func()
}

func newConnection(netConn net.Conn) *connection {
	return &connection{
		conn: netConn,
		tok:  tokeniser.New(),
		out:  make(chan string, outboundQueueSize),
	}
}

// send queues a packed line for delivery. If the outbound queue is full,
// or the connection has already been closed, the line is dropped and send
// reports false: a slow or dead client must never block the reactor
// thread, and must never panic it either.
func (c *connection) send(line string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.out <- line:
		return true
	default:
		return false
	}
}

// writeLoop drains c.out to the socket until it is closed or a write
// fails.
func (c *connection) writeLoop() {
	for line := range c.out {
		if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
			log.Printf("ioreactor: write error on connection %d: %v", c.id, err)
			if c.onWriteError != nil {
				c.onWriteError()
			}
			return
		}
	}
}

// close tears down the connection's outbound queue and socket. Safe to
// call more than once, and safe to race against send: both take mu, so a
// send either completes before close closes c.out or observes closed and
// drops the line instead of writing to a closed channel.
func (c *connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
	_ = c.conn.Close()
}

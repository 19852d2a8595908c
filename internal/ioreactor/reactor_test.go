package ioreactor

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/resonate-protocol/playd/internal/audiosink"
	"github.com/resonate-protocol/playd/internal/audiosource"
	"github.com/resonate-protocol/playd/internal/player"
)

const dialTimeout = 2 * time.Second

func startTestReactor(t *testing.T) (*Reactor, string) {
	t.Helper()

	registry := audiosource.Registry{}
	p := player.New(0, registry, audiosink.BuildTestSink)
	r := New(p)

	go func() {
		if err := r.Run("127.0.0.1", 0); err != nil {
			t.Logf("reactor run: %v", err)
		}
	}()

	select {
	case <-r.Ready():
	case <-time.After(dialTimeout):
		t.Fatal("reactor never became ready")
	}

	t.Cleanup(r.Shutdown)
	return r, r.Addr().String()
}

func dialAndGreet(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	br := bufio.NewReader(conn)
	// Greeting: OHAI, IAMA, EJECT (no file loaded yet).
	for i := 0; i < 3; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			t.Fatalf("reading greeting line %d: %v", i, err)
		}
	}
	return conn, br
}

func TestGreetingOnConnect(t *testing.T) {
	_, addr := startTestReactor(t)

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	br := bufio.NewReader(conn)
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := line[:len("! OHAI")]; got != "! OHAI" {
		t.Fatalf("first line = %q, want prefix %q", line, "! OHAI")
	}
}

func TestUnicastAckDoesNotReachOtherClients(t *testing.T) {
	_, addr := startTestReactor(t)

	connA, brA := dialAndGreet(t, addr)
	connB, brB := dialAndGreet(t, addr)
	_ = connB

	if _, err := connA.Write([]byte("t1 eject\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	line, err := brA.ReadString('\n')
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if want := "t1 ACK OK eject\n"; line != want {
		t.Fatalf("got %q, want %q", line, want)
	}

	// B should not receive anything from A's unicast ACK. Give the
	// reactor a moment to (incorrectly) deliver it, then check B's
	// connection has nothing pending.
	connB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, err = brB.ReadString('\n')
	if err == nil {
		t.Fatalf("connection B unexpectedly received a line after A's unicast ack")
	}
}

// TestQuitShutsDownAllConnections exercises quit's propagation: the ack
// goes only to the requester, but the subsequent player-dead tick brings
// the whole reactor down, closing every connection including bystanders.
func TestQuitShutsDownAllConnections(t *testing.T) {
	_, addr := startTestReactor(t)

	connA, brA := dialAndGreet(t, addr)
	connB, brB := dialAndGreet(t, addr)

	if _, err := connA.Write([]byte("t1 quit\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	ackA, err := brA.ReadString('\n')
	if err != nil {
		t.Fatalf("read ack on A: %v", err)
	}
	if want := "t1 ACK OK quit\n"; ackA != want {
		t.Fatalf("got %q, want %q", ackA, want)
	}

	connB.SetReadDeadline(time.Now().Add(dialTimeout))
	if _, err := brB.ReadString('\n'); err == nil {
		t.Fatalf("expected connection B to be closed once the player died")
	}
}

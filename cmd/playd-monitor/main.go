// ABOUTME: playd-monitor is a read-only TUI client for playd's own control protocol
// ABOUTME: It dogfoods the wire protocol: dial, greet, and render every broadcast live
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/resonate-protocol/playd/internal/tokeniser"
)

var (
	host = flag.String("host", "127.0.0.1", "playd host to connect to")
	port = flag.Int("port", 1350, "playd control port to connect to")
)

func main() {
	flag.Parse()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "playd-monitor: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	m := newModel(addr)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go readLoop(conn, p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "playd-monitor: %v\n", err)
		os.Exit(1)
	}
}

// readLoop tokenises playd's responses and forwards each parsed line to
// the bubbletea program as a lineMsg, until the connection closes.
func readLoop(conn net.Conn, p *tea.Program) {
	tok := tokeniser.New()
	reader := bufio.NewReader(conn)
	buf := make([]byte, 4096)

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			lines, tokErr := tok.Feed(string(buf[:n]))
			if tokErr != nil {
				p.Send(disconnectedMsg{err: tokErr})
				return
			}
			for _, line := range lines {
				p.Send(lineMsg(line))
			}
		}
		if err != nil {
			p.Send(disconnectedMsg{err: err})
			return
		}
	}
}

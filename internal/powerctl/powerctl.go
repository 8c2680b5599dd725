// Package powerctl signals remote hosts to power down.
//
// Managed servers run a small UDP listener that shuts the machine down when
// it receives the literal payload "true". This package owns the client side
// of that contract.
package powerctl

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Payload is the datagram body the remote listener acts on.
const Payload = "true"

// Sender emits shutdown datagrams.
type Sender struct {
	// Timeout bounds the socket setup and write.
	Timeout time.Duration
}

// New returns a Sender with a sensible write timeout.
func New() *Sender {
	return &Sender{Timeout: 2 * time.Second}
}

// SignalShutdown sends one shutdown datagram to ip:port. Delivery is
// fire-and-forget: the listener does not acknowledge, so a nil error only
// means the datagram left this host.
func (s *Sender) SignalShutdown(ip string, port int) error {
	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	conn, err := net.DialTimeout("udp", addr, s.Timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetWriteDeadline(time.Now().Add(s.Timeout))
	if _, err := conn.Write([]byte(Payload)); err != nil {
		return fmt.Errorf("send shutdown signal to %s: %w", addr, err)
	}
	return nil
}

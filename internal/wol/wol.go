// Package wol dispatches Wake-on-LAN magic packets.
package wol

import (
	"fmt"
	"net"
	"time"
)

const payloadSize = 6 + 16*6

// MagicPacket builds the canonical wake frame: six 0xFF bytes followed by
// the target MAC repeated sixteen times.
func MagicPacket(mac net.HardwareAddr) ([]byte, error) {
	if len(mac) != 6 {
		return nil, fmt.Errorf("magic packet requires a 48-bit MAC, got %d bytes", len(mac))
	}
	packet := make([]byte, 0, payloadSize)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, mac...)
	}
	return packet, nil
}

// Actuator sends wake signals to a fixed broadcast address. It performs no
// rate limiting or in-flight de-duplication: waking is an idempotent
// hardware operation and every explicit call sends a fresh signal.
type Actuator struct {
	// BroadcastAddr is the UDP target, e.g. "255.255.255.255:9".
	BroadcastAddr string

	// Timeout bounds the socket setup and write.
	Timeout time.Duration
}

// New creates an Actuator for the given broadcast address.
func New(broadcastAddr string) *Actuator {
	return &Actuator{
		BroadcastAddr: broadcastAddr,
		Timeout:       2 * time.Second,
	}
}

// Wake broadcasts one magic packet for mac. A malformed MAC or any socket
// failure returns the underlying error; the caller decides how to record
// the outcome.
func (a *Actuator) Wake(mac string) error {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("parse mac %q: %w", mac, err)
	}
	packet, err := MagicPacket(hw)
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("udp", a.BroadcastAddr, a.Timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", a.BroadcastAddr, err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetWriteDeadline(time.Now().Add(a.Timeout))
	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("send magic packet: %w", err)
	}
	return nil
}

// Package receiver implements the UDP receiver (spec.md §4.D) and node
// instance (§4.E): binding every resolved address, one goroutine per
// socket, and the registry + config a node owns end to end.
package receiver

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"

	"github.com/ingestd/statsd-node/internal/aggregation"
	"github.com/ingestd/statsd-node/internal/selfstats"
)

// maxDatagramSize bounds one read to 4095 payload bytes: the remaining
// byte of the C plugin's 4096-byte buffer was reserved for a NUL
// terminator Go strings don't need (spec.md §6 "Max datagram 4 KiB;
// longer datagrams are truncated at 4095 bytes").
const maxDatagramSize = 4095

// Logger is the narrow leveled-logging contract this package needs;
// telegraf.Logger (and logging.Logger) satisfy it structurally.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger is used when a Node is built without an explicit Logger.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Node owns one independent ingestion instance: its config, its
// registry, its bound sockets, and its receive goroutines. A node's
// registry mutex is never shared with any other node (spec.md §4.E).
type Node struct {
	Config   Config
	Registry *aggregation.Registry

	log   Logger
	stats *selfstats.Stats

	conns []*net.UDPConn
	wg    sync.WaitGroup
	done  chan struct{}
}

// NewNode constructs a node. stats may be nil (no self-instrumentation).
func NewNode(cfg Config, log Logger, stats *selfstats.Stats) *Node {
	if log == nil {
		log = noopLogger{}
	}
	return &Node{
		Config:   cfg.WithDefaults(),
		Registry: aggregation.NewRegistry(),
		log:      log,
		stats:    stats,
		done:     make(chan struct{}),
	}
}

// Start resolves every address for (Host, Port), binds a UDP socket per
// address, and spawns one receive goroutine per socket. Unusable
// addresses are logged and skipped; if none bind, Start fails
// (spec.md §4.D, §7).
func (n *Node) Start() error {
	addrs, err := resolveListenAddrs(n.Config.Host, n.Config.Port)
	if err != nil {
		return pkgerrors.Wrapf(err, "statsd: resolve %s:%s", n.Config.Host, n.Config.Port)
	}

	var bindErrs *multierror.Error
	for _, addr := range addrs {
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			bindErrs = multierror.Append(bindErrs, pkgerrors.Wrapf(err, "bind %s", addr))
			n.log.Errorf("statsd: unable to bind %s: %v", addr, err)
			continue
		}
		n.conns = append(n.conns, conn)
	}

	if len(n.conns) == 0 {
		if err := bindErrs.ErrorOrNil(); err != nil {
			return pkgerrors.Wrapf(err, "statsd: node %q: no usable listening socket", n.Config.NodeName)
		}
		return pkgerrors.Errorf("statsd: node %q: no usable listening socket for %s:%s",
			n.Config.NodeName, n.Config.Host, n.Config.Port)
	}

	for _, conn := range n.conns {
		n.wg.Add(1)
		go func(c *net.UDPConn) {
			defer n.wg.Done()
			n.receiveLoop(c)
		}(conn)
	}
	return nil
}

// Conns exposes the node's bound sockets, chiefly so tests can discover
// the ephemeral port a ":0" listen address resolved to.
func (n *Node) Conns() []*net.UDPConn {
	return n.conns
}

// Stop signals every receive goroutine to exit by closing its socket
// (the idiomatic Go equivalent of a cancellation signal — a blocked
// ReadFromUDP returns immediately with a "closed network connection"
// error) and joins them.
func (n *Node) Stop() {
	select {
	case <-n.done:
		return // already stopped
	default:
		close(n.done)
	}
	for _, c := range n.conns {
		c.Close()
	}
	n.wg.Wait()
}

// receiveLoop is one socket's receive task. Cancellation is only
// honored between datagrams: the loop checks n.done before each
// blocking read, never mid-parse, so a partial update can never leave a
// metric half-consumed (spec.md §5).
func (n *Node) receiveLoop(conn *net.UDPConn) {
	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-n.done:
			return
		default:
		}

		nRead, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isClosedConnError(err) {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			n.log.Errorf("statsd: recv(2) failed: %v", err)
			return
		}

		if n.stats != nil {
			n.stats.ObservePacket(nRead)
		}
		n.handleDatagram(buf[:nRead])
	}
}

// handleDatagram splits a datagram on '\n', skips empty lines, and
// parses+applies each remaining line. This is the non-cancellable
// region of spec.md §4.D: it contains no suspension or cancellation
// point, so a whole datagram is always handled atomically with respect
// to Stop.
func (n *Node) handleDatagram(data []byte) {
	start := time.Now()
	for _, raw := range bytes.Split(data, []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		update, err := aggregation.ParseLine(string(raw))
		if err != nil {
			if n.stats != nil {
				n.stats.ObserveParseError()
			}
			n.log.Errorf("statsd: unable to parse line %q: %v", raw, err)
			continue
		}
		update.ApplyTo(n.Registry)
	}
	if n.stats != nil {
		n.stats.ObserveParseDuration(time.Since(start))
	}
}

func isClosedConnError(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}

// resolveListenAddrs performs a passive, datagram-socket address
// resolution of (host, port): every IP address host resolves to, each
// paired with port (a service name or a number), so the node can bind
// one socket per address (spec.md §4.D).
func resolveListenAddrs(host, port string) ([]*net.UDPAddr, error) {
	portNum, err := net.DefaultResolver.LookupPort(context.Background(), "udp", port)
	if err != nil {
		return nil, err
	}

	ips, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return nil, err
	}

	addrs := make([]*net.UDPAddr, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, &net.UDPAddr{IP: ip.IP, Port: portNum, Zone: ip.Zone})
	}
	return addrs, nil
}

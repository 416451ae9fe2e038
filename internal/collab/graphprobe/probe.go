// Package graphprobe checks live reachability of the graph backend.
package graphprobe

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// Probe dials the graph backend's bolt endpoint with a short timeout.
// It is invoked once per query; results are never cached because
// reachability can change between calls.
type Probe struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	logger  *zap.Logger
}

// New builds a Probe for addr (host:port).
func New(addr string, timeout time.Duration, logger *zap.Logger) *Probe {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := &net.Dialer{Timeout: timeout}
	return &Probe{
		addr:    addr,
		timeout: timeout,
		dial:    dialer.DialContext,
		logger:  logger,
	}
}

// Reachable reports whether a TCP connection to the backend succeeds
// within the probe timeout.
func (p *Probe) Reachable(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(dialCtx, "tcp", p.addr)
	if err != nil {
		p.logger.Debug("graph backend unreachable", zap.String("addr", p.addr), zap.Error(err))
		return false
	}
	if err := conn.Close(); err != nil {
		p.logger.Debug("probe connection close failed", zap.Error(err))
	}
	return true
}

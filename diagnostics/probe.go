package diagnostics

import (
	"context"
	"net"
	"time"
)

const defaultProbeTimeout = 3 * time.Second

// Dialer reports connectivity by opening a TCP connection to a well known
// address, usually the API host.
type Dialer struct {
	Address string
	Timeout time.Duration
}

// Connected reports whether Address accepts connections. Failing to
// connect means offline and is not an error.
func (d *Dialer) Connected(ctx context.Context) (bool, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return false, nil
	}

	return true, conn.Close()
}

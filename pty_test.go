//go:build linux

package serialhost_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	"github.com/thabofletcher/serialhost"
)

// TestHostOverPty drives the host end to end against a pseudo-terminal
// pair: the master side plays the device, the slave side is the hosted
// port.
func TestHostOverPty(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	var mu sync.Mutex
	var received strings.Builder

	cfg := serialhost.Config{
		PortName:    slave.Name(),
		BaudRate:    serialhost.Baud115200,
		DataBits:    serialhost.DataBits8,
		Parity:      serialhost.ParityNone,
		StopBits:    serialhost.StopBits1,
		ReadTimeout: 20 * time.Millisecond,
		LineEnding:  "\n",
		OnData: func(text string) {
			mu.Lock()
			received.WriteString(text)
			mu.Unlock()
		},
	}

	host, err := serialhost.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = host.Close() })

	// Device to handler.
	_, err = master.Write([]byte("hello from the wire"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received.String() == "hello from the wire"
	}, 3*time.Second, 10*time.Millisecond, "handler never saw the device bytes")

	// Host to device.
	host.WriteLine("ping")
	buf := make([]byte, 64)
	require.NoError(t, master.SetReadDeadline(time.Now().Add(3*time.Second)))
	n, err := master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping\n", string(buf[:n]))

	snap := host.MetricsSnapshot()
	require.GreaterOrEqual(t, snap.Opens, int64(1))
	require.Equal(t, int64(len("hello from the wire")), snap.BytesRead)

	require.NoError(t, host.Close())
}

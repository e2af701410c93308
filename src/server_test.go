package seawolf

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixServerPublishes(t *testing.T) {
	var fs, err = fix_server_start(0, log.New(io.Discard))
	require.NoError(t, err)
	defer fs.close()

	var conn, dial_err = net.Dial("tcp", fs.listener.Addr().String())
	require.NoError(t, dial_err)
	defer conn.Close()

	/* Wait for the accept loop to register us. */
	require.Eventually(t, func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return len(fs.clients) == 1
	}, time.Second, 5*time.Millisecond)

	fs.publish(41.5, -70.67, -12.25)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var line, read_err = bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, read_err)
	assert.Equal(t, "41.500000,-70.670000,-12.25\n", line)
}

func TestFixServerDropsDeadClients(t *testing.T) {
	var fs, err = fix_server_start(0, log.New(io.Discard))
	require.NoError(t, err)
	defer fs.close()

	var conn, dial_err = net.Dial("tcp", fs.listener.Addr().String())
	require.NoError(t, dial_err)

	require.Eventually(t, func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return len(fs.clients) == 1
	}, time.Second, 5*time.Millisecond)

	conn.Close()

	/* The first write after the close may still land in the socket
	   buffer; keep publishing until the server notices. */
	require.Eventually(t, func() bool {
		fs.publish(0, 0, 0)
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return len(fs.clients) == 0
	}, time.Second, 10*time.Millisecond)
}

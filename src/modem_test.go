package seawolf

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
 * The modem end of a pty pair stands in for the real hardware.  A
 * short read deadline gives the same poll-timeout behavior as the
 * serial port's 100 ms VTIME.
 */

type test_port struct {
	f *os.File
}

func (p test_port) Read(b []byte) (int, error) {
	if err := p.f.SetReadDeadline(time.Now().Add(20 * time.Millisecond)); err != nil {
		return 0, err
	}

	var n, err = p.f.Read(b)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, nil
	}

	return n, err
}

func (p test_port) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p test_port) Close() error                { return p.f.Close() }

func test_modem(t *testing.T) (*modem_session, *os.File) {
	t.Helper()

	var ptmx, tty, err = pty.Open()
	require.NoError(t, err)

	t.Cleanup(func() {
		ptmx.Close()
		tty.Close()
	})

	var ms = new_modem_session(test_port{f: tty}, 1500,
		2*time.Millisecond,   /* repeat_rate */
		500*time.Millisecond) /* reply_timeout */

	return ms, ptmx
}

func read_command(t *testing.T, ptmx *os.File, n int) string {
	t.Helper()

	var buf = make([]byte, n)
	require.NoError(t, ptmx.SetReadDeadline(time.Now().Add(time.Second)))

	var got = 0
	for got < n {
		var k, err = ptmx.Read(buf[got:])
		require.NoError(t, err)
		got += k
	}

	return string(buf)
}

func TestSendWritesCommandVerbatim(t *testing.T) {
	var ms, ptmx = test_modem(t)

	require.NoError(t, ms.ping(17))
	assert.Equal(t, "$P017", read_command(t, ptmx, 5))

	require.NoError(t, ms.broadcast("hi"))
	assert.Equal(t, "$B02hi", read_command(t, ptmx, 6))
}

func TestStatusTransaction(t *testing.T) {
	var ms, ptmx = test_modem(t)

	go func() {
		read_command(t, ptmx, 2) /* $? */
		ptmx.Write([]byte("#A042V32768\r\n"))
	}()

	var msg = ms.status()
	require.NotNil(t, msg)
	assert.Equal(t, MSG_STATUS, msg.kind)
	assert.Equal(t, 42, msg.src)
	assert.InDelta(t, 7.5, msg.voltage, 1e-9)
}

func TestSendWaitIgnoresOtherPrefixes(t *testing.T) {
	var ms, ptmx = test_modem(t)

	go func() {
		read_command(t, ptmx, 2)
		/* Chatter first, then the reply we're after. */
		ptmx.Write([]byte("R017T10000\n"))
		ptmx.Write([]byte("#A042\n"))
	}()

	var msg = ms.status()
	require.NotNil(t, msg)
	assert.Equal(t, MSG_STATUS, msg.kind)
}

/* A modem that never answers: every poll times out, writes are counted. */

type mute_port struct {
	mu     sync.Mutex
	writes int
	out    strings.Builder
}

func (p *mute_port) Read(b []byte) (int, error) { return 0, nil }

func (p *mute_port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writes++
	p.out.Write(b)

	return len(b), nil
}

func (p *mute_port) Close() error { return nil }

func TestSendWaitTimesOut(t *testing.T) {
	var port = &mute_port{}
	var ms = new_modem_session(port, 1500, 2*time.Millisecond, 100*time.Millisecond)

	var t0 = time.Now()
	var msg = ms.send_wait(cmd_status(), "A", 1)

	assert.Nil(t, msg)
	assert.GreaterOrEqual(t, time.Since(t0), 100*time.Millisecond)

	/* However long the wait, the command goes out exactly once. */
	port.mu.Lock()
	defer port.mu.Unlock()
	assert.Equal(t, 1, port.writes)
	assert.Equal(t, "$?", port.out.String())
}

func TestPingWaitCollectsAckAndRange(t *testing.T) {
	var ms, ptmx = test_modem(t)

	go func() {
		read_command(t, ptmx, 5) /* $P017 */
		ptmx.Write([]byte("#P017\n"))
		ptmx.Write([]byte("R017T10000\n"))
	}()

	var msg = ms.ping_wait(17)
	require.NotNil(t, msg)
	assert.Equal(t, MSG_RANGE, msg.kind)
	assert.Equal(t, 17, msg.src)
	assert.InDelta(t, 468.75, msg.distance, 1e-9)
}

func TestReadLineStripsLineEndings(t *testing.T) {
	var ms, ptmx = test_modem(t)

	ptmx.Write([]byte("#A042\r\n"))

	/* Give the pty a moment to carry the bytes across. */
	var line string
	var err error
	for i := 0; i < 50; i++ {
		line, err = ms.read_line()
		require.NoError(t, err)
		if line != "" {
			break
		}
	}

	assert.Equal(t, "#A042", line)
}

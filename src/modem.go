package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Session layer for the acoustic modem.
 *
 * Description:	Owns the modem's serial port and provides the two ways
 *		of talking to it:
 *
 *		send		fire and forget.  Used by whichever task
 *				is the designated writer so the reader
 *				task can keep draining responses.
 *
 *		send_wait	a synchronous transaction: write once,
 *				then collect responses until enough
 *				lines with the right prefix arrive or
 *				the reply timeout runs out.
 *
 *		The session itself has no locking.  The port is half
 *		duplex and the node runtime guarantees structurally that
 *		exactly one task writes and exactly one task reads; see
 *		the mode table in node.go.
 *
 *---------------------------------------------------------------*/

import (
	"strings"
	"time"
)

type modem_session struct {
	fd serial_port

	sound_speed  float64       /* m/s, for ranging returns */
	repeat_rate  time.Duration /* pause between polls in a transaction */
	reply_timeout time.Duration
}

func new_modem_session(fd serial_port, sound_speed float64, repeat_rate time.Duration, reply_timeout time.Duration) *modem_session {
	return &modem_session{
		fd:            fd,
		sound_speed:   sound_speed,
		repeat_rate:   repeat_rate,
		reply_timeout: reply_timeout,
	}
}

/* Fire and forget.  The command goes out as-is, no terminator. */

func (ms *modem_session) send(cmd string) error {
	return serial_port_write(ms.fd, cmd)
}

/* One read poll.  "" means nothing arrived this time around. */

func (ms *modem_session) read_line() (string, error) {
	return serial_port_read_line(ms.fd)
}

func (ms *modem_session) parse(line string) *message {
	return parse_message(line, ms.sound_speed)
}

/*-------------------------------------------------------------------
 *
 * Name:        send_wait
 *
 * Purpose:     Write a command and wait for its response(s).
 *
 * Inputs:	cmd		- Command to send.  "" to only listen.
 *
 *		prefixes	- Frame prefixes that count as a match,
 *				  e.g. "A" for a status reply or "PR"
 *				  for a ping.  "" matches any frame.
 *
 *		n		- How many matching lines to wait for.
 *				  A ping is two: the local acknowledgment
 *				  and then the ranging return.
 *
 * Returns:	The last matching line that parsed.  nil if the timeout
 *		ran out before n lines matched, or the port died.
 *
 * Description:	The command goes out exactly once.  Acoustic round
 *		trips take far longer than a poll tick, and re-sending
 *		a ping while the first one is still in the water would
 *		start a second ranging transaction.
 *
 *		The modem paces itself; polling flat out just burns the
 *		CPU of a small computer on battery.  Sleep repeat_rate
 *		between polls, the same pacing the cyclic tasks use.
 *
 *---------------------------------------------------------------*/

func (ms *modem_session) send_wait(cmd string, prefixes string, n int) *message {

	if cmd != "" {
		if err := ms.send(cmd); err != nil {
			return nil
		}
	}

	var t0 = time.Now()
	var matched = 0
	var last *message

	for matched < n && time.Since(t0) < ms.reply_timeout {

		var line, err = ms.read_line()
		if err != nil {
			return nil
		}

		if line != "" && (prefixes == "" || strings.IndexByte(prefixes, frame_prefix(line)) >= 0) {
			matched++
			if m := ms.parse(line); m != nil {
				last = m
			}
		}

		time.Sleep(ms.repeat_rate)
	}

	if matched < n {
		return nil
	}

	return last
}

/*
 * Convenience wrappers.  Thin; all the behavior is above.
 */

func (ms *modem_session) status() *message {
	return ms.send_wait(cmd_status(), "A", 1)
}

func (ms *modem_session) set_address(address int) *message {
	return ms.send_wait(cmd_set_address(address), "A", 1)
}

func (ms *modem_session) broadcast(data string) error {
	return ms.send(cmd_broadcast(data))
}

func (ms *modem_session) unicast(data string, target int) error {
	return ms.send(cmd_unicast(data, target))
}

/* Fire and forget ping.  The reader task picks up the return. */

func (ms *modem_session) ping(target int) error {
	return ms.send(cmd_ping(target))
}

/* Ping and wait for the ranging return: acknowledgment, then range. */

func (ms *modem_session) ping_wait(target int) *message {
	return ms.send_wait(cmd_ping(target), "PR", 2)
}

func (ms *modem_session) close() {
	serial_port_close(ms.fd)
}

package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to serial ports.
 *
 * Description:	Both the acoustic modem and the optional GPS receiver
 *		look like ordinary serial devices, 9600 8-N-1.  Reads
 *		are polled with a short timeout so a task can notice
 *		its port going away instead of blocking forever.
 *
 *---------------------------------------------------------------*/

import (
	"time"

	"github.com/pkg/term"
)

/*
 * Tasks poll their port rather than blocking indefinitely.  100 ms is
 * short enough for pacing and long enough not to spin.
 */

const SERIAL_READ_TIMEOUT = 100 * time.Millisecond

/*
 * What a task needs from a port: bytes in, bytes out, and a way for the
 * whole thing to end.  A Read of (0, nil) means the poll timed out with
 * nothing waiting; an error means the port is gone and the task should
 * wind up.  *term.Term satisfies this, and so does anything file-like,
 * which is what the tests use.
 */

type serial_port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

/*-------------------------------------------------------------------
 *
 * Name:	serial_port_open
 *
 * Purpose:	Open a serial port.
 *
 * Inputs:	devicename	- Usually /dev/tty-something.
 *
 *		baud		- Speed.  9600 for the hardware we have.
 *
 * Returns: 	Handle for serial port, or an error.
 *
 *---------------------------------------------------------------*/

func serial_port_open(devicename string, baud int) (serial_port, error) {

	var fd, err = term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, err
	}

	if err := fd.SetSpeed(baud); err != nil {
		fd.Close()
		return nil, err
	}

	if err := fd.SetReadTimeout(SERIAL_READ_TIMEOUT); err != nil {
		fd.Close()
		return nil, err
	}

	return fd, nil
}

/*-------------------------------------------------------------------
 *
 * Name:	serial_port_read_line
 *
 * Purpose:	Collect one newline terminated line from a port.
 *
 * Inputs:	fd	- An open serial port.
 *
 * Returns:	The line without its CR / LF, or "" if the poll came up
 *		empty.  A non-nil error means the port is gone.
 *
 * Description:	Bytes trickle in at 9600 baud so we accumulate one at a
 *		time.  If the sender stalls mid-line for a full timeout
 *		we hand back the fragment; the frame parser will throw
 *		it away, the same as any other noise.
 *
 *---------------------------------------------------------------*/

func serial_port_read_line(fd serial_port) (string, error) {

	var line []byte
	var buf [1]byte

	for {
		var n, err = fd.Read(buf[:])
		if err != nil {
			return "", err
		}

		if n == 0 {
			/* Poll timeout. */
			return string(line), nil
		}

		switch buf[0] {
		case '\n':
			return string(line), nil
		case '\r':
			/* swallow */
		default:
			line = append(line, buf[0])
		}
	}
}

func serial_port_write(fd serial_port, data string) error {
	var _, err = fd.Write([]byte(data))
	return err
}

func serial_port_close(fd serial_port) {
	fd.Close()
}

package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Frame and unframe lines on the acoustic modem link.
 *
 * Description:	The modem speaks newline terminated ASCII.  Commands we
 *		send start with '$'.  Frames we receive start with '#'
 *		(responses and traffic) or 'R' (a ranging return).
 *
 *		Commands:
 *
 *			$?		query status
 *			$Axxx		set our address to xxx
 *			$Bnn<data>	broadcast nn bytes of data
 *			$UxxxNN<data>	send nn bytes of data to xxx
 *			$Pxxx		range ping to xxx
 *
 *		Everything the modem gives back is parsed into a message
 *		struct by parse_message below.  Unrecognized or mangled
 *		lines come back as nil and the caller is expected to
 *		carry on; bad bytes on the water are routine, not errors.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
)

type msg_kind int

const (
	MSG_STATUS        msg_kind = iota /* #Axxx or #AxxxVnnnnn */
	MSG_BROADCAST_ACK                 /* #Bnn - modem took our broadcast */
	MSG_BROADCAST                     /* #BxxxNN<data> - traffic from xxx */
	MSG_UNICAST                       /* #Unn<data> - traffic for us */
	MSG_RANGE                         /* RxxxTnnnnn - ranging return */
)

type message struct {
	kind msg_kind

	src int /* Sender address.  ADDR_UNKNOWN for unicast. */

	length  int    /* Payload length claimed by the frame. */
	payload string /* Broadcast / unicast data. */

	voltage  float64 /* Volts, status only.  G_UNKNOWN if not reported. */
	distance float64 /* Meters, range only. */
}

/*
 * Command builders.  All fields are zero padded decimal.
 */

func cmd_status() string {
	return "$?"
}

func cmd_set_address(address int) string {
	return fmt.Sprintf("$A%03d", address)
}

func cmd_broadcast(data string) string {
	return fmt.Sprintf("$B%02d%s", len(data), data)
}

func cmd_unicast(data string, target int) string {
	return fmt.Sprintf("$U%03d%02d%s", target, len(data), data)
}

func cmd_ping(target int) string {
	return fmt.Sprintf("$P%03d", target)
}

/*
 * The dispatch character of a received line: the letter after '#', or
 * the leading 'R' of a ranging return.  0 if the line fits neither.
 */

func frame_prefix(line string) byte {

	if len(line) >= 2 && line[0] == '#' {
		return line[1]
	}
	if len(line) >= 1 && line[0] == 'R' {
		return 'R'
	}

	return 0
}

/* Fixed width decimal field, digits only.  Rejects "1 2" and "-12". */

func parse_decimal(text string) (int, bool) {

	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, false
		}
	}

	var n, err = strconv.Atoi(text)
	if err != nil {
		return 0, false
	}

	return n, true
}

/*------------------------------------------------------------------
 *
 * Name:        parse_message
 *
 * Purpose:     Take one line as it came off the serial port and turn it
 *		into a message.
 *
 * Inputs:      line		- The line, already stripped of CR / LF.
 *
 *		sound_speed	- Meters per second, for converting a
 *				  ranging return's travel time ticks.
 *
 * Returns:     The parsed message, or nil for anything we don't
 *		recognize.  Never panics, whatever the input.
 *
 *----------------------------------------------------------------*/

func parse_message(line string, sound_speed float64) *message {

	switch frame_prefix(line) {

	case 'A':
		/* #Axxx, or #AxxxVnnnnn with the supply voltage. */
		if len(line) <= 5 {
			var src, ok = parse_decimal(line[2:])
			if !ok {
				return nil
			}
			return &message{kind: MSG_STATUS, src: src, voltage: G_UNKNOWN}
		}
		if len(line) < 11 || line[5] != 'V' {
			return nil
		}
		var src, src_ok = parse_decimal(line[2:5])
		var raw, raw_ok = parse_decimal(line[6:11])
		if !src_ok || !raw_ok {
			return nil
		}
		return &message{kind: MSG_STATUS, src: src, voltage: float64(raw) * 15. / 65536.}

	case 'B':
		/* Short form #Bnn is the modem acknowledging our own
		   broadcast.  Long form #BxxxNN<data> is traffic. */
		if len(line) <= 4 {
			var n, ok = parse_decimal(line[2:])
			if !ok {
				return nil
			}
			return &message{kind: MSG_BROADCAST_ACK, length: n, voltage: G_UNKNOWN}
		}
		if len(line) < 7 {
			return nil
		}
		var src, src_ok = parse_decimal(line[2:5])
		var n, n_ok = parse_decimal(line[5:7])
		if !src_ok || !n_ok {
			return nil
		}
		return &message{kind: MSG_BROADCAST, src: src, length: n, payload: line[7:], voltage: G_UNKNOWN}

	case 'U':
		/* #Unn<data>.  The modem doesn't say who it came from. */
		if len(line) < 4 {
			return nil
		}
		var n, ok = parse_decimal(line[2:4])
		if !ok {
			return nil
		}
		return &message{kind: MSG_UNICAST, src: ADDR_UNKNOWN, length: n, payload: line[4:], voltage: G_UNKNOWN}

	case 'R':
		/* RxxxTnnnnn.  nnnnn is two-way travel time in ticks. */
		if len(line) < 10 || line[4] != 'T' {
			return nil
		}
		var src, src_ok = parse_decimal(line[1:4])
		var ticks, ticks_ok = parse_decimal(line[5:10])
		if !src_ok || !ticks_ok {
			return nil
		}
		return &message{
			kind:     MSG_RANGE,
			src:      src,
			voltage:  G_UNKNOWN,
			distance: sound_speed * RANGE_TICK_SECONDS * float64(ticks),
		}
	}

	return nil
}

/* Human readable form for the report mode. */

func (m *message) String() string {

	switch m.kind {
	case MSG_STATUS:
		if m.voltage == G_UNKNOWN {
			return fmt.Sprintf("status: node %03d", m.src)
		}
		return fmt.Sprintf("status: node %03d, voltage %.2fV", m.src, m.voltage)
	case MSG_BROADCAST_ACK:
		return fmt.Sprintf("broadcast accepted, %d bytes", m.length)
	case MSG_BROADCAST:
		return fmt.Sprintf("broadcast from %03d: %q", m.src, m.payload)
	case MSG_UNICAST:
		return fmt.Sprintf("unicast: %q", m.payload)
	case MSG_RANGE:
		return fmt.Sprintf("range from %03d: %.2f m", m.src, m.distance)
	}

	return "unknown message"
}

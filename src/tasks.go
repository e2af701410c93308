package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	The long-running tasks that make up each mode.
 *
 * Description:	Any number of these can run together as long as:
 *
 *		- no two tasks write the same serial port, and
 *		- no two tasks read from the same serial port.
 *
 *		Each task therefore only reads or only writes, and only
 *		one port.  The table in node.go assigns the roles and
 *		startup checks them.
 *
 *		Every loop ends the same way: the port stops answering,
 *		the task returns, the process winds down.  There is no
 *		other way to stop one, on purpose.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/lestrrat-go/strftime"
)

/* Uniform jitter in [0, randomize) seconds, to keep nodes that were
   switched on together from pinging in lockstep forever. */

func (n *node_s) jitter() time.Duration {
	if n.settings.Randomize <= 0 {
		return 0
	}
	return time.Duration(rand.Float64() * n.settings.Randomize * float64(time.Second))
}

/*-------------------------------------------------------------------
 *
 * Name:        active_ping
 *
 * Purpose:     Cycle over the passive beacons and send ranging pings.
 *
 * Description:	Writer on the acoustic modem port.  Fire and forget:
 *		the ranging returns come back to active_listen, which
 *		is the one draining the port.  At least range_rate
 *		seconds pass between pings, plus jitter.
 *
 *---------------------------------------------------------------*/

func (n *node_s) active_ping() {

	if len(n.passive_beacons) == 0 {
		n.log.Error("no passive beacons configured, nothing to ping")
		return
	}

	var deadline = time.Now()

	for i := 0; ; i = (i + 1) % len(n.passive_beacons) {
		var target = n.passive_beacons[i]

		for time.Until(deadline) > 0 {
			time.Sleep(5 * time.Millisecond)
		}

		if err := n.modem.ping(target); err != nil {
			n.log.Error("modem port lost", "task", "ranging_cycler", "error", err)
			return
		}

		deadline = time.Now().Add(seconds(n.settings.RangeRate) + n.jitter())
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        active_listen
 *
 * Purpose:     Drain the modem port, keep the tables current, and
 *		re-solve for our position after every update.
 *
 * Description:	Reader on the acoustic modem port.  Two frame kinds
 *		matter: a broadcast whose payload is a 16 hex character
 *		position, and a ranging return.  Everything else is
 *		logged and dropped.  Frames from addresses we don't
 *		know are dropped too; a beacon that isn't in the config
 *		file can't be used for navigation anyway.
 *
 *---------------------------------------------------------------*/

func (n *node_s) active_listen() {

	for {
		var line, err = n.modem.read_line()
		if err != nil {
			n.log.Error("modem port lost", "task", "ingest_and_solve", "error", err)
			return
		}
		if line == "" {
			continue
		}

		var msg = n.modem.parse(line)
		if msg == nil {
			n.log.Debug("dropping unrecognized line", "line", line)
			continue
		}

		switch msg.kind {

		case MSG_BROADCAST:
			if !is_hex(msg.payload) {
				/* Some other chatter, like the debug timer. */
				continue
			}
			var loc, known = n.locs[msg.src]
			if !known {
				n.log.Debug("position from unknown beacon", "src", msg.src)
				continue
			}
			var lat, lon, ok = decode_ll(msg.payload)
			if !ok {
				continue
			}
			loc.lat = lat
			loc.lon = lon
			n.log.Info("beacon position", "src", msg.src,
				"lat", fmt.Sprintf("%.5f", lat), "lon", fmt.Sprintf("%.5f", lon))

		case MSG_RANGE:
			if _, known := n.locs[msg.src]; !known {
				n.log.Debug("range from unknown beacon", "src", msg.src)
				continue
			}
			n.dists[msg.src] = msg.distance
			n.log.Info("range", "src", msg.src, "meters", fmt.Sprintf("%.2f", msg.distance))

		default:
			n.log.Debug("ignoring frame", "message", msg.String())
			continue
		}

		n.try_solve()
	}
}

/*
 * Re-estimate our position if enough beacons have reported a range.
 * Fewer than three leaves x,y under-constrained, so don't bother; the
 * previous fix stands.
 */

func (n *node_s) try_solve() {

	if len(n.dists) < 3 {
		return
	}

	var prev *position_s
	if lat, lon, z, ok := n.own_position(); ok {
		prev = &position_s{lat: lat, lon: lon, z: z}
	}

	var fix = n.mlat.solve(n.locs, n.dists, prev)
	if fix.lat == G_UNKNOWN {
		return
	}

	n.pos_mu.Lock()
	n.lat = fix.lat
	n.lon = fix.lon
	n.z = fix.z
	n.pos_mu.Unlock()

	n.log.Info("fix", "lat", fmt.Sprintf("%.5f", fix.lat),
		"lon", fmt.Sprintf("%.5f", fix.lon), "z", fmt.Sprintf("%.2f", fix.z))

	if n.fixes != nil {
		n.fixes.publish(fix.lat, fix.lon, fix.z)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        passive_broadcast
 *
 * Purpose:     Tell the neighborhood where we are, over and over.
 *
 * Description:	Writer on the acoustic modem port.  The position is
 *		whatever the config file said, unless a GPS or pressure
 *		collaborator has updated it since.
 *
 *---------------------------------------------------------------*/

func (n *node_s) passive_broadcast() {

	for {
		var lat, lon, _, ok = n.own_position()

		if ok {
			if err := n.modem.broadcast(encode_ll(lat, lon)); err != nil {
				n.log.Error("modem port lost", "task", "position_broadcaster", "error", err)
				return
			}
		}

		time.Sleep(seconds(n.settings.BroadcastRate) + n.jitter())
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        passive_gps
 *
 * Purpose:     Feed GPS sentences to the parsing collaborator and
 *		apply whatever positions come back.
 *
 * Description:	Reader on the GPS port, never the modem.  Sentence
 *		grammar is not our department: lines go to gps_parse if
 *		anyone installed one.  GPS receivers emit junk bytes at
 *		power-up, so unparseable lines are routine.
 *
 *---------------------------------------------------------------*/

func (n *node_s) passive_gps() {

	for {
		var line, err = serial_port_read_line(n.gps)
		if err != nil {
			n.log.Error("GPS port lost", "task", "gps_ingest", "error", err)
			return
		}
		if line == "" {
			continue
		}

		if n.gps_parse == nil {
			n.log.Debug("GPS sentence", "line", line)
			continue
		}

		if lat, lon, ok := n.gps_parse(line); ok {
			n.set_own_latlon(lat, lon)
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        monitor_pressure
 *
 * Purpose:     Track our depth from the pressure sensor.
 *
 * Description:	Reader on the pressure port.  Scaling from pressure to
 *		depth belongs to the collaborator behind pressure_parse.
 *
 *---------------------------------------------------------------*/

func (n *node_s) monitor_pressure() {

	for {
		var line, err = serial_port_read_line(n.pressure)
		if err != nil {
			n.log.Error("pressure port lost", "task", "pressure_monitor", "error", err)
			return
		}
		if line == "" || n.pressure_parse == nil {
			continue
		}

		if z, ok := n.pressure_parse(line); ok {
			n.set_own_depth(z)
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        debug_report
 *
 * Purpose:     Print every frame the modem gives us.  Diagnostic.
 *
 *---------------------------------------------------------------*/

func (n *node_s) debug_report() {

	for {
		var line, err = n.modem.read_line()
		if err != nil {
			n.log.Error("modem port lost", "task", "debug_report", "error", err)
			return
		}
		if line == "" {
			continue
		}

		if msg := n.modem.parse(line); msg != nil {
			fmt.Println(msg.String())
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        debug_timer
 *
 * Purpose:     Periodically put the wall clock time on the air.
 *		Handy for checking the channel with a second node in
 *		report mode.
 *
 *---------------------------------------------------------------*/

func (n *node_s) debug_timer() {

	for {
		var now, err = strftime.Format("%H:%M:%S", time.Now())
		if err != nil {
			n.log.Error("formatting time", "error", err)
			return
		}

		var send_err error
		if n.timer_target == ADDR_UNKNOWN {
			send_err = n.modem.broadcast(now)
		} else {
			send_err = n.modem.unicast(now, n.timer_target)
		}
		if send_err != nil {
			n.log.Error("modem port lost", "task", "debug_timer", "error", send_err)
			return
		}

		time.Sleep(n.timer_period)
	}
}

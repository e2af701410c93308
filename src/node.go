package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	The beacon node itself: state, startup, mode selection.
 *
 * Description:	One node_s value owns everything for the life of the
 *		process: settings, serial ports, the beacon tables and
 *		the current fix.  Nothing lives at package scope.
 *
 *		After initialization the node runs one of five modes,
 *		each a fixed set of tasks from the table below.  Every
 *		task declares which port it reads and which it writes;
 *		startup refuses any combination that would put two
 *		readers or two writers on the same port.  That check is
 *		what lets the modem session get away with no locking on
 *		a half duplex line.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const MODE_SET = "set"
const MODE_TIMER = "timer"
const MODE_REPORT = "report"

type port_role int

const (
	PORT_NONE port_role = iota
	PORT_MODEM
	PORT_GPS
	PORT_PRESSURE
)

type task_s struct {
	name   string
	reads  port_role
	writes port_role
	run    func(*node_s)
}

type node_s struct {
	config   *Config
	settings *Settings

	address int
	mode    string

	modem    *modem_session
	gps      serial_port /* nil unless configured */
	pressure serial_port /* nil unless configured */

	mlat *mlat_solver

	/* The network, as this node knows it. */

	passive_beacons []int                  /* ping targets, cyclic order */
	locs            map[int]*position_s    /* last known position per passive beacon */
	dists           map[int]float64        /* last measured slant range, meters */

	/*
	 * Our own position.  In passive mode it's where we were put (or
	 * what GPS says); in active mode it's the current fix.  GPS and
	 * pressure collaborators write it from their own tasks, the
	 * broadcaster reads it, hence the lock.
	 */

	pos_mu sync.Mutex
	lat    float64
	lon    float64
	z      float64

	fixes *fix_server /* nil unless fix_port is configured */

	/*
	 * External collaborator surfaces.  GPS sentence grammar and
	 * pressure-to-depth scaling are somebody else's problem; these
	 * get a raw line and may return an update.
	 */

	gps_parse      func(line string) (lat float64, lon float64, ok bool)
	pressure_parse func(line string) (z float64, ok bool)

	/* Timer mode arguments. */

	timer_period time.Duration
	timer_target int /* ADDR_UNKNOWN means broadcast */

	log *log.Logger
}

/*
 * Which tasks run in which mode.  Optional tasks (GPS, pressure) are
 * appended at startup when their port is configured.  "set" runs no
 * tasks at all.
 */

func mode_tasks(mode string) []task_s {

	switch mode {
	case MODE_ACTIVE:
		return []task_s{
			{name: "ranging_cycler", writes: PORT_MODEM, run: (*node_s).active_ping},
			{name: "ingest_and_solve", reads: PORT_MODEM, run: (*node_s).active_listen},
		}
	case MODE_PASSIVE:
		return []task_s{
			{name: "position_broadcaster", writes: PORT_MODEM, run: (*node_s).passive_broadcast},
		}
	case MODE_TIMER:
		return []task_s{
			{name: "debug_timer", writes: PORT_MODEM, run: (*node_s).debug_timer},
			{name: "debug_report", reads: PORT_MODEM, run: (*node_s).debug_report},
		}
	case MODE_REPORT:
		return []task_s{
			{name: "debug_report", reads: PORT_MODEM, run: (*node_s).debug_report},
		}
	}

	return nil
}

/* Two tasks on the same end of the same port is a misconfiguration. */

func validate_tasks(tasks []task_s) error {

	var readers = map[port_role]string{}
	var writers = map[port_role]string{}

	for _, t := range tasks {
		if t.reads != PORT_NONE {
			if other, taken := readers[t.reads]; taken {
				return fmt.Errorf("tasks %s and %s would both read the same port", other, t.name)
			}
			readers[t.reads] = t.name
		}
		if t.writes != PORT_NONE {
			if other, taken := writers[t.writes]; taken {
				return fmt.Errorf("tasks %s and %s would both write the same port", other, t.name)
			}
			writers[t.writes] = t.name
		}
	}

	return nil
}

/*------------------------------------------------------------------
 *
 * Name:        node_init
 *
 * Purpose:     Bring the node up to the point where tasks can start.
 *
 * Inputs:      config	- The validated network description.
 *
 *		mode	- Requested mode, or "" to use whatever the
 *			  config file says for our address.
 *
 * Returns:     The ready node, or an error.  Errors here are fatal;
 *		after this returns the node recovers from everything.
 *
 * Description:	Open the modem port, ask the modem who we are, check
 *		that the config file agrees, project every configured
 *		beacon position into degrees, and open whatever other
 *		ports our entry asks for.
 *
 *----------------------------------------------------------------*/

func node_init(config *Config, mode string) (*node_s, error) {

	var n = &node_s{
		config:       config,
		settings:     &config.Settings,
		lat:          G_UNKNOWN,
		lon:          G_UNKNOWN,
		z:            G_UNKNOWN,
		timer_target: ADDR_UNKNOWN,
		log:          log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true}),
	}

	var fd, err = serial_port_open(config.Settings.SerialModem, SERIAL_BAUD)
	if err != nil {
		return nil, fmt.Errorf("opening modem port %s: %w", config.Settings.SerialModem, err)
	}

	n.modem = new_modem_session(fd,
		config.Settings.SoundSpeed,
		seconds(config.Settings.RepeatRate),
		seconds(config.Settings.ReplyTimeout))

	var status = n.modem.status()
	if status == nil {
		n.modem.close()
		return nil, fmt.Errorf("modem on %s did not answer a status query", config.Settings.SerialModem)
	}

	n.address = status.src
	if status.voltage == G_UNKNOWN {
		n.log.Info("connected to modem", "address", n.address)
	} else {
		n.log.Info("connected to modem", "address", n.address, "voltage", fmt.Sprintf("%.2fV", status.voltage))
	}

	var self = config.Modems[n.address]

	n.mode = mode
	if n.mode == "" {
		if self == nil {
			n.modem.close()
			return nil, fmt.Errorf("modem address %03d is not in the config file and no mode was given", n.address)
		}
		n.mode = self.Mode
	}

	n.mlat = new_mlat_solver(&config.Settings)
	n.passive_beacons = config.passive_addresses()
	n.locs = map[int]*position_s{}
	n.dists = map[int]float64{}

	for _, address := range n.passive_beacons {
		var p, perr = n.resolve_position(config.Modems[address])
		if perr != nil {
			n.modem.close()
			return nil, fmt.Errorf("modem %03d: %w", address, perr)
		}
		n.locs[address] = p
	}

	/* A passive beacon starts out knowing where it was put. */

	if n.mode == MODE_PASSIVE && self != nil {
		var p, perr = n.resolve_position(self)
		if perr != nil {
			n.modem.close()
			return nil, fmt.Errorf("modem %03d: %w", n.address, perr)
		}
		n.lat, n.lon, n.z = p.lat, p.lon, p.z
	}

	if self != nil && self.SerialGPS != "" {
		n.log.Info("opening GPS port", "device", self.SerialGPS)
		n.gps, err = serial_port_open(self.SerialGPS, SERIAL_BAUD)
		if err != nil {
			n.modem.close()
			return nil, fmt.Errorf("opening GPS port %s: %w", self.SerialGPS, err)
		}
	}

	if self != nil && self.SerialPressure != "" {
		n.log.Info("opening pressure port", "device", self.SerialPressure)
		n.pressure, err = serial_port_open(self.SerialPressure, SERIAL_BAUD)
		if err != nil {
			n.modem.close()
			return nil, fmt.Errorf("opening pressure port %s: %w", self.SerialPressure, err)
		}
	}

	if config.Settings.FixPort > 0 && n.mode == MODE_ACTIVE {
		n.fixes, err = fix_server_start(config.Settings.FixPort, n.log)
		if err != nil {
			n.modem.close()
			return nil, fmt.Errorf("starting fix server: %w", err)
		}
	}

	return n, nil
}

/* Turn a config entry into degrees, whatever spelling it used. */

func (n *node_s) resolve_position(m *ModemConfig) (*position_s, error) {

	switch {
	case m.UTM != "":
		var lat, lon, err = utm_to_ll(m.UTM)
		if err != nil {
			return nil, err
		}
		return &position_s{lat: lat, lon: lon, z: m.Z}, nil

	case n.settings.Coords == COORDS_LOCAL:
		var lat, lon = n.mlat.to_geodetic(*m.X, *m.Y)
		return &position_s{lat: lat, lon: lon, z: m.Z}, nil

	default:
		return &position_s{lat: *m.Lat, lon: *m.Lon, z: m.Z}, nil
	}
}

/*------------------------------------------------------------------
 *
 * Name:        node_run
 *
 * Purpose:     Run the node in its selected mode until the ports die.
 *
 * Inputs:      args	- Leftover command line arguments; "set" takes
 *			  the new address, "timer" a period and an
 *			  optional unicast target.
 *
 *----------------------------------------------------------------*/

func (n *node_s) node_run(args []string) error {

	n.log.Info("starting", "mode", n.mode)

	if n.mode == MODE_SET {
		return n.run_set(args)
	}

	if n.mode == MODE_TIMER {
		if err := n.parse_timer_args(args); err != nil {
			return err
		}
	}

	var tasks = mode_tasks(n.mode)
	if tasks == nil {
		return fmt.Errorf("unknown mode %q", n.mode)
	}

	if n.mode == MODE_PASSIVE && n.gps != nil {
		tasks = append(tasks, task_s{name: "gps_ingest", reads: PORT_GPS, run: (*node_s).passive_gps})
	}
	if (n.mode == MODE_ACTIVE || n.mode == MODE_PASSIVE) && n.pressure != nil {
		tasks = append(tasks, task_s{name: "pressure_monitor", reads: PORT_PRESSURE, run: (*node_s).monitor_pressure})
	}

	if err := validate_tasks(tasks); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t task_s) {
			defer wg.Done()
			n.log.Info("task started", "task", t.name)
			t.run(n)
			n.log.Info("task finished", "task", t.name)
		}(t)
	}

	/* Tasks only return when their port is closed or lost. */

	wg.Wait()

	return nil
}

func (n *node_s) run_set(args []string) error {

	if len(args) < 1 {
		return fmt.Errorf("set mode needs the new address")
	}

	var address int
	if _, err := fmt.Sscanf(args[0], "%d", &address); err != nil || !is_valid_address(address) {
		return fmt.Errorf("bad address %q: want an integer %d-%d", args[0], ADDR_MIN, ADDR_MAX)
	}

	var reply = n.modem.set_address(address)
	if reply == nil {
		return fmt.Errorf("modem did not acknowledge the address change")
	}

	n.log.Info("modem address set", "address", reply.src)

	return nil
}

func (n *node_s) parse_timer_args(args []string) error {

	if len(args) < 1 {
		return fmt.Errorf("timer mode needs a period in seconds")
	}

	var period float64
	if _, err := fmt.Sscanf(args[0], "%f", &period); err != nil || period <= 0 {
		return fmt.Errorf("bad timer period %q", args[0])
	}

	/*
	 * The timer's writes are fire and forget with no serial pacing of
	 * their own, so the whole period is spent asleep between timestamps.
	 */

	n.timer_period = seconds(period)

	if len(args) > 1 {
		var target int
		if _, err := fmt.Sscanf(args[1], "%d", &target); err != nil || !is_valid_address(target) {
			return fmt.Errorf("bad timer target %q", args[1])
		}
		n.timer_target = target
	}

	return nil
}

/*
 * Run is the whole program: load the file, bring the node up, run the
 * mode until the ports die.  Everything before the tasks start is
 * fatal; nothing after is.
 */

func Run(config_file string, mode string, args []string) error {

	var config, err = config_load(config_file)
	if err != nil {
		return err
	}

	n, err := node_init(config, mode)
	if err != nil {
		return err
	}

	return n.node_run(args)
}

/* Position accessors shared between tasks and collaborators. */

func (n *node_s) own_position() (float64, float64, float64, bool) {
	n.pos_mu.Lock()
	defer n.pos_mu.Unlock()
	return n.lat, n.lon, n.z, n.lat != G_UNKNOWN && n.lon != G_UNKNOWN
}

func (n *node_s) set_own_latlon(lat float64, lon float64) {
	n.pos_mu.Lock()
	n.lat = lat
	n.lon = lon
	n.pos_mu.Unlock()
}

func (n *node_s) set_own_depth(z float64) {
	n.pos_mu.Lock()
	n.z = z
	n.pos_mu.Unlock()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

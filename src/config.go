package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Read the network description from a file.
 *
 * Description:	One YAML file describes the whole acoustic network:
 *		shared settings, then one entry per modem keyed by its
 *		3 digit address.  Every node in the water carries the
 *		same file and finds its own role by asking its modem
 *		for its address.
 *
 *		Everything here is loaded once at startup, validated,
 *		and then never written again.  Anything wrong with the
 *		file is fatal before any task starts; after startup the
 *		node stays up no matter what arrives on the wire.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tzneal/coordconv"
	"gopkg.in/yaml.v3"
)

const MODE_ACTIVE = "active"
const MODE_PASSIVE = "passive"

const COORDS_LOCAL = "local"
const COORDS_LATLON = "latlon"

const DEFAULT_MODEM_DEVICE = "/dev/ttyBeacon"

type Settings struct {
	Coords string   `yaml:"coords"` /* "local" or "latlon" */
	Lat0   *float64 `yaml:"lat0"`   /* projection origin, latlon mode */
	Lon0   *float64 `yaml:"lon0"`

	SoundSpeed    float64 `yaml:"sound_speed"`    /* m/s */
	RangeRate     float64 `yaml:"range_rate"`     /* seconds between pings */
	RepeatRate    float64 `yaml:"repeat_rate"`    /* poll pacing, seconds */
	BroadcastRate float64 `yaml:"broadcast_rate"` /* passive period, seconds */
	ReplyTimeout  float64 `yaml:"reply_timeout"`  /* seconds */
	Randomize     float64 `yaml:"randomize"`      /* jitter amplitude, seconds */

	SerialModem string `yaml:"serial_modem"` /* defaults to /dev/ttyBeacon */
	FixPort     int    `yaml:"fix_port"`     /* TCP port for fix clients, 0 = off */
}

type ModemConfig struct {
	Mode string `yaml:"mode"` /* "active" or "passive" */

	/* Passive position, one of three spellings. */
	Lat *float64 `yaml:"lat"` /* degrees, coords: latlon */
	Lon *float64 `yaml:"lon"`
	X   *float64 `yaml:"x"` /* meters, coords: local */
	Y   *float64 `yaml:"y"`
	UTM string   `yaml:"utm"` /* "19T 306130 4726010", any coords mode */

	Z float64 `yaml:"z"` /* depth, negative meters below sea level */

	SerialGPS      string `yaml:"serial_gps"`      /* optional device path */
	SerialPressure string `yaml:"serial_pressure"` /* optional device path */
}

type Config struct {
	Settings Settings             `yaml:"settings"`
	Modems   map[int]*ModemConfig `yaml:"modems"`
}

/*------------------------------------------------------------------
 *
 * Name:        config_load
 *
 * Purpose:     Read and validate the network description.
 *
 * Inputs:      filename	- Path to the YAML file.
 *
 * Returns:     The validated configuration, or an error describing the
 *		first problem found.
 *
 *----------------------------------------------------------------*/

func config_load(filename string) (*Config, error) {

	var raw, err = os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if c.Settings.SerialModem == "" {
		c.Settings.SerialModem = DEFAULT_MODEM_DEVICE
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) validate() error {

	var s = &c.Settings

	switch s.Coords {
	case COORDS_LOCAL:
	case COORDS_LATLON:
		if s.Lat0 == nil || s.Lon0 == nil {
			return fmt.Errorf("coords: latlon requires lat0 and lon0")
		}
	default:
		return fmt.Errorf("coords must be %q or %q, not %q", COORDS_LOCAL, COORDS_LATLON, s.Coords)
	}

	if s.SoundSpeed <= 0 {
		return fmt.Errorf("sound_speed must be positive")
	}
	if s.RangeRate <= 0 || s.RepeatRate <= 0 || s.BroadcastRate <= 0 || s.ReplyTimeout <= 0 {
		return fmt.Errorf("range_rate, repeat_rate, broadcast_rate and reply_timeout must all be positive")
	}
	if s.Randomize < 0 {
		return fmt.Errorf("randomize must not be negative")
	}

	if len(c.Modems) == 0 {
		return fmt.Errorf("no modems defined")
	}

	for address, m := range c.Modems {
		if !is_valid_address(address) {
			return fmt.Errorf("modem address %d out of range %d-%d", address, ADDR_MIN, ADDR_MAX)
		}

		switch m.Mode {
		case MODE_ACTIVE:
		case MODE_PASSIVE:
			if err := m.validate_position(s.Coords); err != nil {
				return fmt.Errorf("modem %03d: %w", address, err)
			}
		default:
			return fmt.Errorf("modem %03d: mode must be %q or %q, not %q", address, MODE_ACTIVE, MODE_PASSIVE, m.Mode)
		}
	}

	return nil
}

/* A passive beacon has to sit somewhere. */

func (m *ModemConfig) validate_position(coords string) error {

	if m.UTM != "" {
		var _, _, err = utm_to_ll(m.UTM)
		return err
	}

	switch coords {
	case COORDS_LOCAL:
		if m.X == nil || m.Y == nil {
			return fmt.Errorf("passive beacon needs x and y (or utm) with coords: local")
		}
	case COORDS_LATLON:
		if m.Lat == nil || m.Lon == nil {
			return fmt.Errorf("passive beacon needs lat and lon (or utm) with coords: latlon")
		}
	}

	return nil
}

/* Passive addresses in a stable order for the ranging cycle. */

func (c *Config) passive_addresses() []int {

	var addresses []int
	for address, m := range c.Modems {
		if m.Mode == MODE_PASSIVE {
			addresses = append(addresses, address)
		}
	}
	sort.Ints(addresses)

	return addresses
}

/*------------------------------------------------------------------
 *
 * Name:        utm_to_ll
 *
 * Purpose:     Convert a "zone easting northing" position from the
 *		survey sheet into degrees.
 *
 * Inputs:      text	- e.g. "19T 306130 4726010".  The latitudinal
 *			  band letter is optional; without it the
 *			  northern hemisphere is assumed.
 *
 * Returns:     Latitude, longitude in degrees, or an error.
 *
 *----------------------------------------------------------------*/

func utm_to_ll(text string) (float64, float64, error) {

	var fields = strings.Fields(text)
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("utm position %q: want \"zone easting northing\"", text)
	}

	var zone_str = fields[0]
	var hemisphere = coordconv.HemisphereNorth

	if len(zone_str) > 0 {
		var band = zone_str[len(zone_str)-1]
		if band >= 'A' && band <= 'Z' {
			if !strings.ContainsRune("CDEFGHJKLMNPQRSTUVWX", rune(band)) {
				return 0, 0, fmt.Errorf("utm position %q: bad latitudinal band %q", text, string(band))
			}
			if band < 'N' {
				hemisphere = coordconv.HemisphereSouth
			}
			zone_str = zone_str[:len(zone_str)-1]
		}
	}

	var zone, easting, northing float64
	var zone_err, east_err, north_err error

	_, zone_err = fmt.Sscanf(zone_str, "%f", &zone)
	_, east_err = fmt.Sscanf(fields[1], "%f", &easting)
	_, north_err = fmt.Sscanf(fields[2], "%f", &northing)

	if zone_err != nil || east_err != nil || north_err != nil {
		return 0, 0, fmt.Errorf("utm position %q: unparseable numbers", text)
	}

	var latlng, err = coordconv.DefaultUTMConverter.ConvertToGeodetic(coordconv.UTMCoord{
		Zone:       int(zone),
		Hemisphere: hemisphere,
		Easting:    easting,
		Northing:   northing,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("utm position %q: %w", text, err)
	}

	return latlng.Lat.Degrees(), latlng.Lng.Degrees(), nil
}

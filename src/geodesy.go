package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Encode and decode latitude / longitude for transmission.
 *
 * Description:	The acoustic channel is slow and message payloads are
 *		short, so positions travel as a fixed width hex degrees /
 *		minutes / seconds form rather than printable decimals.
 *
 *		One signed decimal degree value becomes 8 hex characters:
 *
 *			2 hex digits	integer degrees, unsigned
 *			2 hex digits	integer arc-minutes
 *			3 hex digits	arc-seconds scaled to 0...0xfff
 *			1 hex digit	sign, low bit set means negative
 *
 *		A lat,lon pair is two of these back to back, 16 characters.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"strconv"
)

/* Arc-seconds are carried as a fraction of a minute scaled to 12 bits. */

const sec_scale = 0xfff

/*------------------------------------------------------------------
 *
 * Name:        encode_decimal_deg
 *
 * Purpose:     Convert one signed decimal degree value to the 8 hex
 *		character wire form.
 *
 * Inputs:      deg	- Degrees, roughly -180 to +180.
 *
 * Returns:     8 lowercase hex characters.
 *
 * Description:	Conversions truncate rather than round so that the
 *		encoding matches what other beacons in the water put
 *		on the air.  Worst case error is one scaled arc-second,
 *		about 4 millionths of a degree.
 *
 *----------------------------------------------------------------*/

func encode_decimal_deg(deg float64) string {

	var sign = 0
	if math.Signbit(deg) {
		sign = 1
		deg = -deg
	}

	var d = int(deg)
	var dmin = (deg - float64(d)) * 60.
	var m = int(dmin)
	var s = int((dmin - float64(m)) * sec_scale)

	return fmt.Sprintf("%02x%02x%03x%01x", d, m, s, sign)
}

/*------------------------------------------------------------------
 *
 * Name:        decode_decimal_deg
 *
 * Purpose:     Convert the 8 hex character wire form back to degrees.
 *
 * Inputs:      text	- Exactly 8 hex characters.
 *
 * Returns:     Decimal degrees and true, or 0 and false if the text
 *		isn't parseable.
 *
 *----------------------------------------------------------------*/

func decode_decimal_deg(text string) (float64, bool) {

	if len(text) != 8 {
		return 0, false
	}

	var d, derr = strconv.ParseUint(text[0:2], 16, 16)
	var m, merr = strconv.ParseUint(text[2:4], 16, 16)
	var s, serr = strconv.ParseUint(text[4:7], 16, 16)
	var sign, gerr = strconv.ParseUint(text[7:8], 16, 8)

	if derr != nil || merr != nil || serr != nil || gerr != nil {
		return 0, false
	}

	var deg = float64(d) + float64(m)/60. + (float64(s)*60./sec_scale)/3600.

	if sign&1 != 0 {
		deg = -deg
	}

	return deg, true
}

/* A lat,lon pair on the air: latitude first, then longitude. */

func encode_ll(lat float64, lon float64) string {
	return encode_decimal_deg(lat) + encode_decimal_deg(lon)
}

func decode_ll(text string) (float64, float64, bool) {

	if len(text) != 16 {
		return 0, 0, false
	}

	var lat, lat_ok = decode_decimal_deg(text[0:8])
	var lon, lon_ok = decode_decimal_deg(text[8:16])

	if !lat_ok || !lon_ok {
		return 0, 0, false
	}

	return lat, lon, true
}

/*
 * Broadcast payloads that are not positions (the debug timer sends
 * clock text, for example) must never be mistaken for one.  A position
 * payload is exactly 16 hex characters.
 */

func is_hex(text string) bool {

	if len(text) == 0 {
		return false
	}

	for _, c := range text {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}

	return true
}

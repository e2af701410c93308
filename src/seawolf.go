package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Constants and small shared definitions used all over.
 *
 *---------------------------------------------------------------*/

/*
 * Value for unknown or unset floating point numbers (latitude, longitude,
 * depth, voltage).  Zero is a perfectly good coordinate so we need a
 * sentinel well outside any plausible range.
 */

const G_UNKNOWN = -999999

/*
 * Node addresses are 3 decimal digits on the wire.
 */

const ADDR_MIN = 0
const ADDR_MAX = 999

/* Source address when the incoming frame doesn't carry one. */

const ADDR_UNKNOWN = -1

/*
 * Travel time to distance conversion.  The modem reports two-way travel
 * time in units of 62.5 us; halving that gives 3.125e-5 seconds of one-way
 * travel per tick.
 */

const RANGE_TICK_SECONDS = 3.125e-5

/* Serial line settings for the acoustic modem and the GPS receiver. */

const SERIAL_BAUD = 9600

func is_valid_address(a int) bool {
	return a >= ADDR_MIN && a <= ADDR_MAX
}

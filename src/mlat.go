package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	True-range multilateration.
 *
 * Description:	The active beacon knows where the passive beacons are
 *		(they say so themselves, over the acoustic channel) and
 *		how far away each one is (from ranging pings).  Its own
 *		position is the point whose distances to the beacons
 *		best match the measured ranges.
 *
 *		Geodetic coordinates are no good for that arithmetic, so
 *		positions go through an azimuthal equidistant projection
 *		centered on the configured origin and everything happens
 *		in meters until the very end.  With coords: local the
 *		origin is 0 N 0 E and configured x,y positions are taken
 *		as already projected.
 *
 *		The fit itself is a small damped Gauss-Newton (i.e.
 *		Levenberg-Marquardt) on the range residuals, with the
 *		depth clamped to -100...0 m.  Three unknowns, a handful
 *		of measurements; it converges in a few steps or it was
 *		never going to.
 *
 *---------------------------------------------------------------*/

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
	"gonum.org/v1/gonum/mat"
)

/* WGS84 mean earth radius, meters. */

const EARTH_RADIUS = 6371008.8

/* Depth limits: at the surface or up to 100 m below it. */

const DEPTH_MIN = -100.
const DEPTH_MAX = 0.

/* Default depth guess when we know nothing better. */

const DEPTH_GUESS = -10.

const SOLVE_MAX_ITERATIONS = 50
const SOLVE_FTOL = 1e-4

/* A known place in the water. */

type position_s struct {
	lat float64 /* degrees */
	lon float64 /* degrees */
	z   float64 /* negative meters below sea level */
}

type mlat_solver struct {
	origin s2.LatLng
}

func new_mlat_solver(s *Settings) *mlat_solver {

	var origin = s2.LatLngFromDegrees(0, 0)
	if s.Coords == COORDS_LATLON {
		origin = s2.LatLngFromDegrees(*s.Lat0, *s.Lon0)
	}

	return &mlat_solver{origin: origin}
}

/*------------------------------------------------------------------
 *
 * Name:        to_local
 *
 * Purpose:     Project degrees to meters east / north of the origin.
 *
 * Description:	Azimuthal equidistant: distance along the great circle
 *		from the origin is preserved exactly, which is the one
 *		property that matters when the measurements are ranges.
 *
 *----------------------------------------------------------------*/

func (ml *mlat_solver) to_local(lat float64, lon float64) (float64, float64) {

	var ll = s2.LatLngFromDegrees(lat, lon)
	var c = ll.Distance(ml.origin).Radians()

	var phi0 = ml.origin.Lat.Radians()
	var phi = ll.Lat.Radians()
	var dlon = ll.Lng.Radians() - ml.origin.Lng.Radians()

	var az = math.Atan2(
		math.Sin(dlon)*math.Cos(phi),
		math.Cos(phi0)*math.Sin(phi)-math.Sin(phi0)*math.Cos(phi)*math.Cos(dlon),
	)

	return EARTH_RADIUS * c * math.Sin(az), EARTH_RADIUS * c * math.Cos(az)
}

func (ml *mlat_solver) to_geodetic(x float64, y float64) (float64, float64) {

	var rho = math.Hypot(x, y)
	if rho == 0 {
		return ml.origin.Lat.Degrees(), ml.origin.Lng.Degrees()
	}

	var c = rho / EARTH_RADIUS
	var phi0 = ml.origin.Lat.Radians()
	var lam0 = ml.origin.Lng.Radians()

	var phi = math.Asin(math.Cos(c)*math.Sin(phi0) + y*math.Sin(c)*math.Cos(phi0)/rho)
	var lam = lam0 + math.Atan2(
		x*math.Sin(c),
		rho*math.Cos(c)*math.Cos(phi0)-y*math.Sin(c)*math.Sin(phi0),
	)

	return phi * 180. / math.Pi, lam * 180. / math.Pi
}

/* Root-mean-square mismatch between candidate point and measurements. */

func rms_residual(x [3]float64, points [][3]float64, dists []float64) float64 {

	var sum float64
	for i, p := range points {
		var r = distance3(x, p) - dists[i]
		sum += r * r
	}

	return math.Sqrt(sum / float64(len(points)))
}

func distance3(a [3]float64, b [3]float64) float64 {
	var dx = a[0] - b[0]
	var dy = a[1] - b[1]
	var dz = a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func clamp_depth(z float64) float64 {
	return math.Min(DEPTH_MAX, math.Max(DEPTH_MIN, z))
}

/*------------------------------------------------------------------
 *
 * Name:        solve
 *
 * Purpose:     Estimate our position from beacon positions and ranges.
 *
 * Inputs:      locs	- Last known position per passive beacon.
 *
 *		dists	- Measured slant range per passive beacon,
 *			  meters.  Beacons with no measurement yet are
 *			  simply absent.
 *
 *		prev	- Previous fix to start the fit from, or nil.
 *			  Without one, start at the centroid of the
 *			  beacons, 10 m down.
 *
 * Returns:     The estimated position, never worse than the starting
 *		point.  Never fails: under-constrained input still gets
 *		a best effort fit, and with no measurements the
 *		starting point comes straight back.  With no
 *		measurements and no previous fix, every field is
 *		G_UNKNOWN.
 *
 *----------------------------------------------------------------*/

func (ml *mlat_solver) solve(locs map[int]*position_s, dists map[int]float64, prev *position_s) position_s {

	/* Collect usable measurements in address order. */

	var addresses []int
	for address := range locs {
		if _, ok := dists[address]; ok {
			addresses = append(addresses, address)
		}
	}
	sort.Ints(addresses)

	var points [][3]float64
	var measured []float64
	for _, address := range addresses {
		var p = locs[address]
		var px, py = ml.to_local(p.lat, p.lon)
		points = append(points, [3]float64{px, py, p.z})
		measured = append(measured, dists[address])
	}

	/* Starting point. */

	var x [3]float64

	switch {
	case prev != nil:
		x[0], x[1] = ml.to_local(prev.lat, prev.lon)
		x[2] = clamp_depth(prev.z)
	case len(points) > 0:
		for _, p := range points {
			x[0] += p[0]
			x[1] += p[1]
		}
		x[0] /= float64(len(points))
		x[1] /= float64(len(points))
		x[2] = DEPTH_GUESS
	default:
		return position_s{lat: G_UNKNOWN, lon: G_UNKNOWN, z: G_UNKNOWN}
	}

	if len(points) > 0 {
		x = ml.minimize(x, points, measured)
	}

	var lat, lon = ml.to_geodetic(x[0], x[1])

	return position_s{lat: lat, lon: lon, z: clamp_depth(x[2])}
}

/*
 * Levenberg-Marquardt on the range residuals.  Steps are only ever
 * accepted when they lower the RMS, so the result is never worse than
 * the starting point.
 */

func (ml *mlat_solver) minimize(x0 [3]float64, points [][3]float64, measured []float64) [3]float64 {

	var m = len(points)
	var x = x0
	var f = rms_residual(x, points, measured)
	var damping = 1e-3

	for iter := 0; iter < SOLVE_MAX_ITERATIONS; iter++ {

		/* Jacobian rows are unit vectors from beacon to candidate. */

		var jac = mat.NewDense(m, 3, nil)
		var res = mat.NewVecDense(m, nil)

		for i, p := range points {
			var d = distance3(x, p)
			if d > 0 {
				jac.Set(i, 0, (x[0]-p[0])/d)
				jac.Set(i, 1, (x[1]-p[1])/d)
				jac.Set(i, 2, (x[2]-p[2])/d)
			}
			res.SetVec(i, d-measured[i])
		}

		var normal mat.Dense
		normal.Mul(jac.T(), jac)

		var rhs mat.VecDense
		rhs.MulVec(jac.T(), res)
		rhs.ScaleVec(-1, &rhs)

		for i := 0; i < 3; i++ {
			normal.Set(i, i, normal.At(i, i)+damping)
		}

		var step mat.VecDense
		if err := step.SolveVec(&normal, &rhs); err != nil {
			/* Singular geometry; take what we have. */
			break
		}

		var xn = [3]float64{
			x[0] + step.AtVec(0),
			x[1] + step.AtVec(1),
			clamp_depth(x[2] + step.AtVec(2)),
		}

		var fn = rms_residual(xn, points, measured)

		if fn < f {
			var improved = f - fn
			x = xn
			f = fn
			damping = math.Max(damping/10, 1e-9)
			if improved < SOLVE_FTOL {
				break
			}
		} else {
			damping *= 10
			if damping > 1e9 {
				break
			}
		}
	}

	return x
}

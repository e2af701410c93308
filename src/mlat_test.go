package seawolf

import (
	"math"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func local_solver() *mlat_solver {
	return new_mlat_solver(&Settings{Coords: COORDS_LOCAL})
}

func latlon_solver(lat0 float64, lon0 float64) *mlat_solver {
	return new_mlat_solver(&Settings{Coords: COORDS_LATLON, Lat0: &lat0, Lon0: &lon0})
}

func TestProjectionRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var ml = latlon_solver(
			rapid.Float64Range(-60, 60).Draw(t, "lat0"),
			rapid.Float64Range(-179, 179).Draw(t, "lon0"),
		)

		/* Points within a few km of the origin, like a real network. */
		var x = rapid.Float64Range(-5000, 5000).Draw(t, "x")
		var y = rapid.Float64Range(-5000, 5000).Draw(t, "y")

		var lat, lon = ml.to_geodetic(x, y)
		var xr, yr = ml.to_local(lat, lon)

		assert.InDelta(t, x, xr, 0.01)
		assert.InDelta(t, y, yr, 0.01)
	})
}

/* The projection's one promise: distance from the origin is preserved. */

func TestProjectionEquidistant(t *testing.T) {
	var ml = latlon_solver(41.5, -70.67)

	var x, y = ml.to_local(41.52, -70.65)
	var planar = math.Hypot(x, y)

	var great_circle = s2.LatLngFromDegrees(41.52, -70.65).
		Distance(s2.LatLngFromDegrees(41.5, -70.67)).Radians() * EARTH_RADIUS

	assert.InDelta(t, great_circle, planar, 1e-6)
}

func TestProjectionOrigin(t *testing.T) {
	var ml = local_solver()

	var x, y = ml.to_local(0, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	var lat, lon = ml.to_geodetic(0, 0)
	assert.InDelta(t, 0, lat, 1e-12)
	assert.InDelta(t, 0, lon, 1e-12)
}

/*
 * Build a three beacon network in local coordinates, with exact ranges
 * from a known point, and check the solver finds it.
 */

func test_network(ml *mlat_solver, truth [3]float64) (map[int]*position_s, map[int]float64) {

	var corners = [][3]float64{
		{0, 0, -5},
		{100, 0, -5},
		{0, 100, -5},
	}

	var locs = map[int]*position_s{}
	var dists = map[int]float64{}

	for i, p := range corners {
		var lat, lon = ml.to_geodetic(p[0], p[1])
		locs[10+i] = &position_s{lat: lat, lon: lon, z: p[2]}
		dists[10+i] = distance3(truth, p)
	}

	return locs, dists
}

func TestSolveThreeBeacons(t *testing.T) {
	var ml = local_solver()
	var truth = [3]float64{50, 50, -5}

	var locs, dists = test_network(ml, truth)

	var fix = ml.solve(locs, dists, nil)
	require.NotEqual(t, float64(G_UNKNOWN), fix.lat)

	var x, y = ml.to_local(fix.lat, fix.lon)
	assert.InDelta(t, truth[0], x, 0.5)
	assert.InDelta(t, truth[1], y, 0.5)
	assert.InDelta(t, truth[2], fix.z, 0.5)
}

/* Starting at the answer, the solver must stay there. */

func TestSolveFixpoint(t *testing.T) {
	var ml = local_solver()
	var truth = [3]float64{50, 50, -5}

	var locs, dists = test_network(ml, truth)

	var lat, lon = ml.to_geodetic(truth[0], truth[1])
	var fix = ml.solve(locs, dists, &position_s{lat: lat, lon: lon, z: truth[2]})

	var x, y = ml.to_local(fix.lat, fix.lon)
	assert.InDelta(t, truth[0], x, 0.1)
	assert.InDelta(t, truth[1], y, 0.1)
	assert.InDelta(t, truth[2], fix.z, 0.1)
}

/* The fit never leaves the RMS worse than where it started. */

func TestSolveMonotoneImprovement(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var ml = local_solver()

		var locs, _ = test_network(ml, [3]float64{50, 50, -5})

		/* Noisy, even inconsistent, measurements. */
		var dists = map[int]float64{}
		for address := range locs {
			dists[address] = rapid.Float64Range(1, 500).Draw(t, "dist")
		}

		var guess = position_s{
			lat: 0,
			lon: 0,
			z:   rapid.Float64Range(-100, 0).Draw(t, "z0"),
		}
		guess.lat, guess.lon = ml.to_geodetic(
			rapid.Float64Range(-200, 200).Draw(t, "x0"),
			rapid.Float64Range(-200, 200).Draw(t, "y0"),
		)

		var points [][3]float64
		var measured []float64
		for address, p := range locs {
			var x, y = ml.to_local(p.lat, p.lon)
			points = append(points, [3]float64{x, y, p.z})
			measured = append(measured, dists[address])
		}

		var gx, gy = ml.to_local(guess.lat, guess.lon)
		var before = rms_residual([3]float64{gx, gy, guess.z}, points, measured)

		var fix = ml.solve(locs, dists, &guess)
		var fx, fy = ml.to_local(fix.lat, fix.lon)
		var after = rms_residual([3]float64{fx, fy, fix.z}, points, measured)

		assert.LessOrEqual(t, after, before+1e-6)
	})
}

func TestSolveDepthBound(t *testing.T) {
	var ml = local_solver()

	/* Ranges that would pull the estimate above the surface. */
	var locs, _ = test_network(ml, [3]float64{50, 50, -5})
	var dists = map[int]float64{}
	for address := range locs {
		dists[address] = 200
	}

	var fix = ml.solve(locs, dists, nil)
	assert.GreaterOrEqual(t, fix.z, DEPTH_MIN)
	assert.LessOrEqual(t, fix.z, DEPTH_MAX)
}

func TestSolveDegenerate(t *testing.T) {
	var ml = local_solver()

	/* No measurements at all, no previous fix. */
	var fix = ml.solve(map[int]*position_s{}, map[int]float64{}, nil)
	assert.EqualValues(t, G_UNKNOWN, fix.lat)

	/* One beacon, one range: under-constrained but must not blow up. */
	var locs = map[int]*position_s{7: {lat: 0, lon: 0, z: -5}}
	var dists = map[int]float64{7: 100}
	fix = ml.solve(locs, dists, nil)
	assert.NotEqual(t, float64(G_UNKNOWN), fix.lat)
	assert.GreaterOrEqual(t, fix.z, DEPTH_MIN)
	assert.LessOrEqual(t, fix.z, DEPTH_MAX)
}

/* Beacons configured in meters end up where they were put. */

func TestLocalCoordinatesAgree(t *testing.T) {
	var ml = local_solver()

	var lat, lon = ml.to_geodetic(100, 200)
	var x, y = ml.to_local(lat, lon)

	assert.InDelta(t, 100, x, 0.01)
	assert.InDelta(t, 200, y, 0.01)
}

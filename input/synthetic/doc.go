// Package synthetic generates demo readings when no device is attached.
//
// Every Interval (2s by default) the generator publishes one reading for
// the configured sample. Channel values start from a per-sample baseline,
// scale with the simulated motor speeds and carry uniform jitter plus a
// slow sine drift:
//
//	factor = m1/100*0.6 + m2/100*0.4
//	co_m   = base_co*(0.6+factor*0.6) + U(-2.5,2.5) + sin(n*0.03)*1.5
//
// M1 steps through 20, 40, 60, 80 and 100 percent, advancing every 10
// readings; M2 stays at 50. Motor status for both motors follows every 5th
// reading and calibration progress 5/10 then 10/10 follows the first two.
//
// Generated readings go straight to the bus. They are already smooth enough
// for demos and skip the normalizer.
package synthetic

// Package sim produces the cosmetic metric drift shown on the dashboard.
//
// A Simulator is an explicitly seeded random walk over moisture, temperature
// and humidity. Every Step nudges each reading by a small bounded delta and
// clamps it into its display range:
//
//	moisture     [20, 80] %
//	temperature  [20, 35] °C
//	humidity     [40, 90] %
//
// While irrigation is running moisture gains an extra 0.5 per step.
// Nothing here models real soil physics; two Simulators built with the same
// seed produce the same sequence, which is what the tests rely on.
package sim

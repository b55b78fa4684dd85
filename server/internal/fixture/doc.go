// Package fixture holds the embedded demo DashboardDocument.
//
// One JSON file per key lives under data/ and is compiled into the binary.
// Load assembles them into a types.Document and regenerates
// dashboard.chartData from a seeded generator, so the chart differs between
// process starts but is constant for the lifetime of a process.
package fixture

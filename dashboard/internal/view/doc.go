// Package view holds the per-view data lifecycle of the dashboard client.
//
// A View loads one key of the dashboard document when mounted:
//
//	Idle -> Loading -> Ready | Failed
//
// Unmount cancels the in-flight request, and nothing is applied after it
// returns. A cancelled request is dropped silently rather than reported as
// a failure. Nothing is retried.
//
// Dashboard adds the simulated sensor drift and the irrigation toggle on top
// of a View for the dashboard key; Schedule adds a local toggle of recurring
// cycles. Both edit their working copy only; nothing is written back.
package view

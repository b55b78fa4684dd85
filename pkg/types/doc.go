// Package types defines the Go types shared by the fieldwatch server and the
// dashboard client: the closed set of document keys, the schema-less
// DashboardDocument, and the JSON envelopes exchanged over /api.
package types

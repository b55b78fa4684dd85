// Package fetch is the dashboard's HTTP client for the fieldwatch Key-Value
// API. Every call takes a context so a view can abandon it on unmount; a
// cancelled call is reported through IsAborted, never as a failure.
//
// The client never retries. Responses may be the {key, data} envelope or
// the bare sub-document; Fetch returns the sub-document either way.
package fetch

package api

// errorResponse is the JSON body for non-404 error responses.
type errorResponse struct {
	Error string `json:"error"`
}

// Error messages for failures that are not a missing key.
const (
	msgMethodNotAllowed = "method not allowed"
	msgUnavailable      = "store unavailable"
	msgInternal         = "internal error"
)

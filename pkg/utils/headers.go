package utils

// Account credential headers shared by the edge client and the core middleware.
const (
	AccountIDHeader    = "X-Gappy-Account-Id"
	AccountTokenHeader = "X-Gappy-Account-Token"
)

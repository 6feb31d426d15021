package copilot

import "errors"

// Pipeline error taxonomy. Safety rejections are terminal and never retried.
// Upstream failures degrade locally: they surface in logs and audit
// classification, never to the caller.
var (
	ErrInputRejected             = errors.New("input rejected by safety checks")
	ErrOutputRejected            = errors.New("output rejected by safety checks")
	ErrUpstreamTimeout           = errors.New("upstream call timed out")
	ErrUpstreamUnavailable       = errors.New("upstream service unavailable")
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")
	ErrInternal                  = errors.New("internal copilot error")
)

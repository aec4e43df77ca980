package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// CountResult is returned by bulk operations.
type CountResult struct {
	Count int64 `json:"count"`
}

// ResetResult reports a bulk quantity reset. Count covers the signboards that
// were zeroed even when Failures is not empty.
type ResetResult struct {
	Count    int64          `json:"count"`
	Failures []ResetFailure `json:"failures,omitempty"`
}

type ResetFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

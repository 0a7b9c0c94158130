package types

// SuccessEnvelope wraps every 2xx JSON body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a failed request. Code is one of the
// stable identifiers from pkg/errors (VALIDATION_ERROR, NOT_FOUND, ...);
// Details carries per-field validation info when present.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx JSON body as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

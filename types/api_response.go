package types

// StandardResponse is the envelope every API endpoint answers with.
type StandardResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo is the machine-readable part of a failed response.
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Type    string `json:"type"`
	Details string `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// MetaInfo carries pagination for list endpoints.
type MetaInfo struct {
	RequestID string `json:"request_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	Total     int    `json:"total,omitempty"`
}

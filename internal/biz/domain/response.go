package domain

import "time"

// ErrorCode flags a failed generation on a Response
type ErrorCode string

const (
	ErrorCodeNone          ErrorCode = ""
	ErrorCodeMissingAPIKey ErrorCode = "MISSING_API_KEY"
	ErrorCodeAPIError      ErrorCode = "API_ERROR"
	ErrorCodeRateLimit     ErrorCode = "RATE_LIMIT"
	ErrorCodeParseError    ErrorCode = "PARSE_ERROR"
)

// Generation is the outcome of one completion call. It is always well formed;
// failures carry an ErrorCode instead of an error value.
type Generation struct {
	Suggestion string
	Confidence float64
	Reasoning  string
	ErrorCode  ErrorCode
}

// Failed checks if the generation produced no usable suggestion
func (g Generation) Failed() bool {
	return g.ErrorCode != ErrorCodeNone || g.Suggestion == ""
}

// FailedGeneration returns a placeholder result for the given code
func FailedGeneration(code ErrorCode, reasoning string) Generation {
	return Generation{ErrorCode: code, Reasoning: reasoning}
}

// Response is a generated reply attempt for a message. Attempt 1 is created
// with the message; regeneration adds a new attempt instead of mutating one.
type Response struct {
	ID                string
	MessageID         string
	Attempt           int
	SuggestedResponse string
	FinalResponse     string
	ConfidenceScore   float64
	Reasoning         string
	ErrorCode         ErrorCode
	WasEdited         bool
	WasApproved       *bool
	CreatedAt         time.Time
	ApprovedAt        *time.Time
}

// NewResponse builds a response attempt, clamping the confidence into [0,1]
func NewResponse(id, messageID string, attempt int, gen Generation, now time.Time) *Response {
	return &Response{
		ID:                id,
		MessageID:         messageID,
		Attempt:           attempt,
		SuggestedResponse: gen.Suggestion,
		ConfidenceScore:   ClampConfidence(gen.Confidence),
		Reasoning:         gen.Reasoning,
		ErrorCode:         gen.ErrorCode,
		CreatedAt:         now,
	}
}

// ClampConfidence clamps c into [0,1]; NaN becomes 0
func ClampConfidence(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// MessageWithResponse pairs a message with its latest response attempt
type MessageWithResponse struct {
	Message  *Message
	Response *Response
}

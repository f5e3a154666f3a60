package inquire

// ValidationError reports an answer refused by a question's validator.
// It is recoverable: the question is asked again.
type ValidationError struct {
	// Question is the name of the question whose answer was refused.
	Question string
	// Reason is the human-readable explanation sent to the peer.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Question == "" {
		return "validate error: " + e.Reason
	}
	return "validate error: " + e.Question + ": " + e.Reason
}

// Reject returns the error a Validator uses to refuse an answer. An empty
// reason is replaced by "invalid value for <name>".
func Reject(reason string) error {
	return &ValidationError{Reason: reason}
}

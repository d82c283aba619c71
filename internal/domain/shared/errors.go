package shared

// DomainError is a coded error raised by domain and application logic.
// The code is stable vocabulary for the HTTP layer; the message is for
// humans.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a coded error. Codes are bare names; the wire
// layer maps them into its ERR_ namespace.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Sentinels shared across bounded contexts. Anything more specific is
// minted where it is raised.
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrStoreNotConnected = NewDomainError("STORE_NOT_CONNECTED", "Store has no active platform credential")
)

package domain

import "time"

// CompletionTermStatus lifecycle of a completion term
type CompletionTermStatus string

const (
	CompletionPending   CompletionTermStatus = "pending"
	CompletionAccepted  CompletionTermStatus = "accepted"
	CompletionContested CompletionTermStatus = "contested"
	CompletionEscalated CompletionTermStatus = "escalated"
)

// AcceptanceMethod способ подтверждения завершения работ клиентом
type AcceptanceMethod string

const (
	MethodPin       AcceptanceMethod = "pin"
	MethodSignature AcceptanceMethod = "signature"
)

// CompletionTerm record of the client accepting (or contesting) the
// provider's claim that work is complete
type CompletionTerm struct {
	ID                   int64
	ServiceRequestID     int64
	ServiceAppointmentID int64
	ProviderID           int64
	ClientID             int64
	Status               CompletionTermStatus
	AcceptedWithMethod   *AcceptanceMethod

	// PIN хранится только хешем (bcrypt)
	PinHash           *string
	PinExpiresAtUTC   *time.Time
	PinFailedAttempts int

	AcceptedAtUTC         *time.Time
	AcceptedSignatureName *string

	ContestedAtUTC *time.Time
	ContestReason  *string

	EscalatedAtUTC *time.Time

	Summary *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal returns true once the term can no longer change
func (t *CompletionTerm) IsTerminal() bool {
	return t.Status == CompletionAccepted || t.Status == CompletionEscalated
}

// IsPinExpired returns true if the PIN deadline passed
func (t *CompletionTerm) IsPinExpired(now time.Time) bool {
	return t.PinExpiresAtUTC != nil && now.After(*t.PinExpiresAtUTC)
}

// IsPinLocked returns true after too many failed attempts
func (t *CompletionTerm) IsPinLocked(maxAttempts int) bool {
	return t.PinFailedAttempts >= maxAttempts
}

package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
)

// Step names one position in the onboarding flow. Steps advance only on a
// successful step result; a validation failure re-prompts without moving.
type Step string

const (
	StepAwaitName       Step = "await_name"
	StepConfirmRegister Step = "confirm_register"
	StepAwaitPhone      Step = "await_phone"
	StepAwaitAddress    Step = "await_address"
	StepAwaitEmail      Step = "await_email"
	StepReady           Step = "ready"
)

// Field names one collected customer field.
type Field string

const (
	FieldName    Field = "name"
	FieldPhone   Field = "phone_number"
	FieldAddress Field = "address"
	FieldEmail   Field = "email"
)

var (
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("conversation id is empty")
)

// Session is the per-conversation scratchpad: onboarding position, partially
// collected fields and the resolved customer. Exactly one session exists per
// conversation and only the turn holding the conversation lock mutates it.
type Session struct {
	ConversationID string `json:"conversation_id"`

	Step      Step             `json:"step"`
	Collected map[Field]string `json:"collected,omitempty"`

	CustomerID int64 `json:"customer_id,omitempty"`

	// Pending queues fields to re-collect after handoff, when a confirm or
	// customer-details turn found the stored record incomplete.
	Pending       []Field          `json:"pending,omitempty"`
	PendingIntent contractx.Intent `json:"pending_intent,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(conversationID string, now time.Time) *Session {
	return &Session{
		ConversationID: conversationID,
		Step:           StepAwaitName,
		Collected:      make(map[Field]string, 4),
		UpdatedAt:      now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) SetField(f Field, v string) {
	if s.Collected == nil {
		s.Collected = make(map[Field]string, 4)
	}
	s.Collected[f] = v
}

func (s *Session) Field(f Field) string {
	if s.Collected == nil {
		return ""
	}
	return s.Collected[f]
}

// Ready reports whether onboarding has handed off and no field re-collection
// is in flight, i.e. the next message goes to the classifier.
func (s *Session) Ready() bool {
	return s != nil && s.Step == StepReady && len(s.Pending) == 0
}

// NextPending returns the field currently being re-collected.
func (s *Session) NextPending() (Field, bool) {
	if s == nil || len(s.Pending) == 0 {
		return "", false
	}
	return s.Pending[0], true
}

// PopPending removes the head of the re-collection queue.
func (s *Session) PopPending() {
	if s == nil || len(s.Pending) == 0 {
		return
	}
	s.Pending = s.Pending[1:]
	if len(s.Pending) == 0 {
		s.Pending = nil
	}
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.ConversationID == "" {
		return ErrInvalidSession
	}
	switch s.Step {
	case StepAwaitName, StepConfirmRegister, StepAwaitPhone, StepAwaitAddress, StepAwaitEmail, StepReady:
	default:
		return fmt.Errorf("unknown step %q", s.Step)
	}
	// No order action may run without a resolved customer.
	if s.Step == StepReady && s.CustomerID == 0 {
		return errors.New("ready session must have a customer id")
	}
	if len(s.Pending) > 0 && s.Step != StepReady {
		return errors.New("pending fields require a ready session")
	}
	return nil
}

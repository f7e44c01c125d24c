// Package onboarding drives the customer identification flow: ask name,
// check the directory, and for unknown customers collect phone, address and
// email before persisting the record and handing off to order taking.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
	replyx "github.com/ordertalk/ordertalk/dialog/reply"
	statex "github.com/ordertalk/ordertalk/dialog/state"
	validatex "github.com/ordertalk/ordertalk/dialog/validate"
)

type Flow struct {
	directory contractx.Directory
}

func New(directory contractx.Directory) (*Flow, error) {
	if directory == nil {
		return nil, errors.New("customer directory is required")
	}
	return &Flow{directory: directory}, nil
}

// Advance runs one onboarding turn against the session's current step. A
// failed validation re-prompts without a transition; each step moves forward
// only on a successful result.
func (f *Flow) Advance(ctx context.Context, sess *statex.Session, text string) (string, error) {
	if sess == nil {
		return "", statex.ErrNilSession
	}
	input := strings.TrimSpace(text)

	switch sess.Step {
	case statex.StepAwaitName:
		return f.stepName(ctx, sess, input)
	case statex.StepConfirmRegister:
		return f.stepConfirmRegister(sess, input)
	case statex.StepAwaitPhone:
		return f.stepPhone(sess, input)
	case statex.StepAwaitAddress:
		return f.stepAddress(sess, input)
	case statex.StepAwaitEmail:
		return f.stepEmail(ctx, sess, input)
	default:
		return "", fmt.Errorf("onboarding cannot advance from step %q", sess.Step)
	}
}

func (f *Flow) stepName(ctx context.Context, sess *statex.Session, input string) (string, error) {
	name := strings.ToLower(input)
	if name == "" {
		return replyx.Greeting, nil
	}

	sess.SetField(statex.FieldName, name)

	customer, err := f.directory.Find(ctx, name)
	switch {
	case err == nil:
		sess.CustomerID = customer.ID
		sess.Step = statex.StepReady
		return replyx.WelcomeBack(customer.Name), nil
	case errors.Is(err, contractx.ErrNotFound):
		sess.Step = statex.StepConfirmRegister
		return replyx.ConfirmRegister(name), nil
	default:
		return "", fmt.Errorf("directory lookup: %w", err)
	}
}

func (f *Flow) stepConfirmRegister(sess *statex.Session, input string) (string, error) {
	switch parseYesNo(input) {
	case yes:
		sess.Step = statex.StepAwaitPhone
		return replyx.PromptPhone, nil
	case no:
		// Declining registration returns to the name step; the flow never
		// proceeds to order taking with this branch unresolved.
		delete(sess.Collected, statex.FieldName)
		sess.Step = statex.StepAwaitName
		return replyx.DeclinedRegistration, nil
	default:
		return replyx.YesNoReprompt, nil
	}
}

func (f *Flow) stepPhone(sess *statex.Session, input string) (string, error) {
	if ok, msg := validatex.Phone(input); !ok {
		return msg, nil
	}
	sess.SetField(statex.FieldPhone, input)
	sess.Step = statex.StepAwaitAddress
	return replyx.PromptAddress, nil
}

func (f *Flow) stepAddress(sess *statex.Session, input string) (string, error) {
	if input == "" {
		return replyx.PromptAddress, nil
	}
	sess.SetField(statex.FieldAddress, input)
	sess.Step = statex.StepAwaitEmail
	return replyx.PromptEmail, nil
}

func (f *Flow) stepEmail(ctx context.Context, sess *statex.Session, input string) (string, error) {
	if ok, msg := validatex.Email(input); !ok {
		return msg, nil
	}
	sess.SetField(statex.FieldEmail, input)

	name := sess.Field(statex.FieldName)
	id, err := f.directory.Create(ctx,
		name,
		sess.Field(statex.FieldPhone),
		sess.Field(statex.FieldAddress),
		input,
	)
	if err != nil {
		return "", fmt.Errorf("persist customer: %w", err)
	}

	sess.CustomerID = id
	sess.Step = statex.StepReady
	return replyx.Registered(name), nil
}

// CollectMissing handles one turn of post-handoff field re-collection. It
// returns done=true once the pending queue is empty so the caller can resume
// the intent that triggered the branch.
func (f *Flow) CollectMissing(ctx context.Context, sess *statex.Session, text string) (bool, string, error) {
	field, ok := sess.NextPending()
	if !ok {
		return true, "", nil
	}

	value := strings.TrimSpace(text)
	switch field {
	case statex.FieldPhone:
		if ok, msg := validatex.Phone(value); !ok {
			return false, msg, nil
		}
	case statex.FieldEmail:
		if ok, msg := validatex.Email(value); !ok {
			return false, msg, nil
		}
	default:
		if value == "" {
			return false, replyx.PromptFor(field), nil
		}
	}

	if err := f.directory.Complete(ctx, sess.CustomerID, map[string]string{string(field): value}); err != nil {
		return false, "", fmt.Errorf("complete customer field: %w", err)
	}

	sess.PopPending()
	if next, more := sess.NextPending(); more {
		return false, replyx.PromptFor(next), nil
	}
	return true, "", nil
}

type answer int

const (
	unclear answer = iota
	yes
	no
)

func parseYesNo(input string) answer {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "yeah", "yep", "sure", "ok", "okay":
		return yes
	case "no", "n", "nope", "nah":
		return no
	default:
		return unclear
	}
}

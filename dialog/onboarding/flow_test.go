package onboarding

import (
	"context"
	"strings"
	"testing"
	"time"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
	replyx "github.com/ordertalk/ordertalk/dialog/reply"
	statex "github.com/ordertalk/ordertalk/dialog/state"
)

type fakeDirectory struct {
	customers map[string]*contractx.Customer
	nextID    int64
	createErr error
	completed map[string]string
}

func newFakeDirectory(existing ...*contractx.Customer) *fakeDirectory {
	d := &fakeDirectory{
		customers: make(map[string]*contractx.Customer),
		nextID:    100,
		completed: make(map[string]string),
	}
	for _, c := range existing {
		d.customers[strings.ToLower(c.Name)] = c
	}
	return d
}

func (d *fakeDirectory) Find(_ context.Context, name string) (*contractx.Customer, error) {
	c, ok := d.customers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, contractx.ErrNotFound
	}
	return c, nil
}

func (d *fakeDirectory) Get(_ context.Context, id int64) (*contractx.Customer, error) {
	for _, c := range d.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, contractx.ErrNotFound
}

func (d *fakeDirectory) Create(_ context.Context, name, phone, address, email string) (int64, error) {
	if d.createErr != nil {
		return 0, d.createErr
	}
	d.nextID++
	c := &contractx.Customer{
		ID:          d.nextID,
		Name:        strings.ToLower(strings.TrimSpace(name)),
		PhoneNumber: phone,
		Address:     address,
		Email:       email,
	}
	d.customers[c.Name] = c
	return c.ID, nil
}

func (d *fakeDirectory) Complete(_ context.Context, id int64, fields map[string]string) error {
	for k, v := range fields {
		d.completed[k] = v
	}
	for _, c := range d.customers {
		if c.ID != id {
			continue
		}
		for k, v := range fields {
			switch k {
			case "phone_number":
				if c.PhoneNumber == "" {
					c.PhoneNumber = v
				}
			case "address":
				if c.Address == "" {
					c.Address = v
				}
			case "email":
				if c.Email == "" {
					c.Email = v
				}
			}
		}
	}
	return nil
}

func newTestFlow(t *testing.T, dir *fakeDirectory) *Flow {
	t.Helper()
	flow, err := New(dir)
	if err != nil {
		t.Fatalf("new flow: %v", err)
	}
	return flow
}

func advance(t *testing.T, flow *Flow, sess *statex.Session, text string) string {
	t.Helper()
	reply, err := flow.Advance(context.Background(), sess, text)
	if err != nil {
		t.Fatalf("advance %q: %v", text, err)
	}
	return reply
}

func TestOnboardingNewCustomerFullPath(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	flow := newTestFlow(t, dir)
	sess := statex.NewSession("conv-1", time.Now())

	reply := advance(t, flow, sess, "Alice")
	if sess.Step != statex.StepConfirmRegister {
		t.Fatalf("unexpected step: %q", sess.Step)
	}
	if !strings.Contains(reply, "register") {
		t.Fatalf("expected registration question, got %q", reply)
	}

	advance(t, flow, sess, "yes")
	if sess.Step != statex.StepAwaitPhone {
		t.Fatalf("unexpected step: %q", sess.Step)
	}

	advance(t, flow, sess, "0123456789")
	if sess.Step != statex.StepAwaitAddress {
		t.Fatalf("unexpected step: %q", sess.Step)
	}

	advance(t, flow, sess, "12 Oak Street")
	if sess.Step != statex.StepAwaitEmail {
		t.Fatalf("unexpected step: %q", sess.Step)
	}

	reply = advance(t, flow, sess, "alice@example.com")
	if sess.Step != statex.StepReady {
		t.Fatalf("unexpected step: %q", sess.Step)
	}
	if sess.CustomerID == 0 {
		t.Fatal("customer id must be set before handoff")
	}
	if !strings.Contains(reply, replyx.Menu) {
		t.Fatalf("handoff must emit the order menu, got %q", reply)
	}

	created := dir.customers["alice"]
	if created == nil {
		t.Fatal("customer was not persisted")
	}
	if created.PhoneNumber != "0123456789" || created.Email != "alice@example.com" {
		t.Fatalf("persisted customer incomplete: %+v", created)
	}
}

func TestOnboardingExistingCustomerCaseInsensitive(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(&contractx.Customer{
		ID: 7, Name: "alice", PhoneNumber: "0123456789", Address: "12 oak st", Email: "a@b.com",
	})
	flow := newTestFlow(t, dir)

	for _, name := range []string{"alice", "ALICE", "Alice"} {
		sess := statex.NewSession("conv-"+name, time.Now())
		reply := advance(t, flow, sess, name)
		if sess.Step != statex.StepReady {
			t.Fatalf("name %q: expected handoff, got step %q", name, sess.Step)
		}
		if sess.CustomerID != 7 {
			t.Fatalf("name %q: resolved wrong customer %d", name, sess.CustomerID)
		}
		if !strings.Contains(reply, replyx.Menu) {
			t.Fatalf("name %q: expected menu, got %q", name, reply)
		}
	}
}

func TestOnboardingInvalidPhoneReprompts(t *testing.T) {
	t.Parallel()

	flow := newTestFlow(t, newFakeDirectory())
	sess := statex.NewSession("conv-1", time.Now())
	sess.Step = statex.StepAwaitPhone
	sess.SetField(statex.FieldName, "alice")

	reply := advance(t, flow, sess, "12345")
	if sess.Step != statex.StepAwaitPhone {
		t.Fatalf("invalid phone must not advance, got step %q", sess.Step)
	}
	if !strings.Contains(reply, "Invalid phone number") {
		t.Fatalf("expected rejection message, got %q", reply)
	}

	advance(t, flow, sess, "0123456789")
	if sess.Step != statex.StepAwaitAddress {
		t.Fatalf("valid phone must advance, got step %q", sess.Step)
	}
}

func TestOnboardingInvalidEmailReprompts(t *testing.T) {
	t.Parallel()

	flow := newTestFlow(t, newFakeDirectory())
	sess := statex.NewSession("conv-1", time.Now())
	sess.Step = statex.StepAwaitEmail
	sess.SetField(statex.FieldName, "alice")

	reply := advance(t, flow, sess, "not-an-email")
	if sess.Step != statex.StepAwaitEmail {
		t.Fatalf("invalid email must not advance, got step %q", sess.Step)
	}
	if !strings.Contains(reply, "Invalid email") {
		t.Fatalf("expected rejection message, got %q", reply)
	}
}

func TestOnboardingDeclineRegistrationResets(t *testing.T) {
	t.Parallel()

	flow := newTestFlow(t, newFakeDirectory())
	sess := statex.NewSession("conv-1", time.Now())

	advance(t, flow, sess, "bob")
	reply := advance(t, flow, sess, "no")

	if sess.Step != statex.StepAwaitName {
		t.Fatalf("decline must return to the name step, got %q", sess.Step)
	}
	if sess.Field(statex.FieldName) != "" {
		t.Fatal("declined name must be discarded")
	}
	if reply != replyx.DeclinedRegistration {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestOnboardingUnclearAnswerReprompts(t *testing.T) {
	t.Parallel()

	flow := newTestFlow(t, newFakeDirectory())
	sess := statex.NewSession("conv-1", time.Now())

	advance(t, flow, sess, "bob")
	reply := advance(t, flow, sess, "maybe later")

	if sess.Step != statex.StepConfirmRegister {
		t.Fatalf("unclear answer must hold the step, got %q", sess.Step)
	}
	if reply != replyx.YesNoReprompt {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestCollectMissingValidatesAndCompletes(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(&contractx.Customer{ID: 7, Name: "alice", PhoneNumber: "0123456789", Address: "12 oak st"})
	flow := newTestFlow(t, dir)

	sess := statex.NewSession("conv-1", time.Now())
	sess.Step = statex.StepReady
	sess.CustomerID = 7
	sess.Pending = []statex.Field{statex.FieldEmail}

	done, prompt, err := flow.CollectMissing(context.Background(), sess, "nope")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if done {
		t.Fatal("invalid email must not finish the queue")
	}
	if !strings.Contains(prompt, "Invalid email") {
		t.Fatalf("expected rejection, got %q", prompt)
	}

	done, _, err = flow.CollectMissing(context.Background(), sess, "alice@example.com")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !done {
		t.Fatal("valid email must drain the queue")
	}
	if dir.completed["email"] != "alice@example.com" {
		t.Fatalf("email was not persisted: %v", dir.completed)
	}
}

func TestCollectMissingMultipleFields(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(&contractx.Customer{ID: 7, Name: "alice"})
	flow := newTestFlow(t, dir)

	sess := statex.NewSession("conv-1", time.Now())
	sess.Step = statex.StepReady
	sess.CustomerID = 7
	sess.Pending = []statex.Field{statex.FieldPhone, statex.FieldEmail}

	done, prompt, err := flow.CollectMissing(context.Background(), sess, "0123456789")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if done {
		t.Fatal("queue still has the email field")
	}
	if prompt != replyx.PromptEmail {
		t.Fatalf("expected email prompt, got %q", prompt)
	}
}

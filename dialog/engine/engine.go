// Package engine runs one conversation turn end to end: strict per-
// conversation serialization, onboarding advancement, intent classification
// and dispatch, and session persistence after the turn's mutations succeed.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/ordertalk/ordertalk/dialog/contract"
	dispatchx "github.com/ordertalk/ordertalk/dialog/dispatch"
	onboardingx "github.com/ordertalk/ordertalk/dialog/onboarding"
	replyx "github.com/ordertalk/ordertalk/dialog/reply"
	statex "github.com/ordertalk/ordertalk/dialog/state"
)

var (
	ErrEmptyConversation = errors.New("conversation id is empty")
	ErrEmptyMessage      = errors.New("message is empty")
)

type Engine struct {
	sessions   statex.Store
	flow       *onboardingx.Flow
	classifier contractx.Classifier
	dispatcher *dispatchx.Dispatcher

	locks sync.Map // conversation id -> *sync.Mutex
	now   func() time.Time
}

func New(
	sessions statex.Store,
	directory contractx.Directory,
	carts contractx.CartStore,
	classifier contractx.Classifier,
) (*Engine, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}

	flow, err := onboardingx.New(directory)
	if err != nil {
		return nil, err
	}
	dispatcher, err := dispatchx.New(carts, directory)
	if err != nil {
		return nil, err
	}

	return &Engine{
		sessions:   sessions,
		flow:       flow,
		classifier: classifier,
		dispatcher: dispatcher,
		now:        time.Now,
	}, nil
}

// HandleMessage processes one inbound message and returns the outbound reply.
// Collaborator failures never escape a turn: they are logged and surfaced as
// a single generic reply, with the session left in its pre-turn state. The
// returned error is reserved for caller misuse (empty ids or text).
func (e *Engine) HandleMessage(ctx context.Context, conversationID, text string) (out string, err error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return "", ErrEmptyConversation
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	// One turn at a time per conversation; a second message waits for the
	// first turn's state mutations and reply to complete.
	mu := e.lockFor(conversationID)
	mu.Lock()
	defer mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("conversation_id", conversationID).Any("panic", r).Msg("turn panicked")
			out, err = replyx.SomethingWrong, nil
		}
	}()

	reply, turnErr := e.runTurn(ctx, conversationID, text)
	if turnErr != nil {
		log.Error().Err(turnErr).Str("conversation_id", conversationID).Msg("turn failed")
		return replyx.SomethingWrong, nil
	}
	return reply, nil
}

func (e *Engine) runTurn(ctx context.Context, conversationID, text string) (string, error) {
	sess, created, err := e.loadOrCreate(ctx, conversationID)
	if err != nil {
		return "", err
	}

	// A brand-new conversation gets the greeting; the triggering message is
	// not consumed as a name.
	if created {
		if err := e.save(ctx, sess); err != nil {
			return "", err
		}
		return replyx.Greeting, nil
	}

	var (
		reply    string
		teardown bool
	)
	switch {
	case sess.Step != statex.StepReady:
		reply, err = e.flow.Advance(ctx, sess, text)
	case len(sess.Pending) > 0:
		reply, err = e.collectPending(ctx, sess, text)
	default:
		reply, teardown, err = e.dispatchTurn(ctx, sess, text)
	}
	if err != nil {
		return "", err
	}

	if teardown {
		if err := e.sessions.Delete(ctx, conversationID); err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("session teardown failed")
		}
		return reply, nil
	}

	if err := e.save(ctx, sess); err != nil {
		return "", err
	}
	return reply, nil
}

func (e *Engine) dispatchTurn(ctx context.Context, sess *statex.Session, text string) (string, bool, error) {
	ci, err := e.classifier.Classify(ctx, text)
	if err != nil {
		// Classification failure is recoverable: the turn completes with a
		// generic apology and no store mutation.
		log.Warn().Err(err).Str("conversation_id", sess.ConversationID).Msg("classification failed")
		ci = contractx.ClassifiedIntent{Intent: contractx.IntentUnrecognized}
	}

	result, err := e.dispatcher.Dispatch(ctx, sess.CustomerID, ci)
	if err != nil {
		return "", false, err
	}

	if len(result.Missing) > 0 {
		sess.Pending = result.Missing
		sess.PendingIntent = ci.Intent
	}
	return result.Reply, result.EndConversation, nil
}

func (e *Engine) collectPending(ctx context.Context, sess *statex.Session, text string) (string, error) {
	done, prompt, err := e.flow.CollectMissing(ctx, sess, text)
	if err != nil {
		return "", err
	}
	if !done {
		return prompt, nil
	}

	// All fields collected; resume the intent that branched into onboarding.
	resumed := sess.PendingIntent
	sess.PendingIntent = ""
	result, err := e.dispatcher.Dispatch(ctx, sess.CustomerID, contractx.ClassifiedIntent{Intent: resumed})
	if err != nil {
		return "", err
	}
	if len(result.Missing) > 0 {
		sess.Pending = result.Missing
		sess.PendingIntent = resumed
	}
	return result.Reply, nil
}

func (e *Engine) loadOrCreate(ctx context.Context, conversationID string) (*statex.Session, bool, error) {
	sess, err := e.sessions.Load(ctx, conversationID)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, statex.ErrStateNotFound) {
		return nil, false, err
	}
	return statex.NewSession(conversationID, e.now()), true, nil
}

func (e *Engine) save(ctx context.Context, sess *statex.Session) error {
	sess.Touch(e.now())
	if err := sess.Validate(); err != nil {
		return err
	}
	return e.sessions.Save(ctx, sess)
}

func (e *Engine) lockFor(conversationID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

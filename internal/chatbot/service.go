package chatbot

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"trackitnow-backend/internal/logging"
	"trackitnow-backend/internal/metrics"
	"trackitnow-backend/internal/store"
)

// DefaultSessionID is used when the caller does not name a session.
const DefaultSessionID = "default"

// Service ties the classifier, the dispatcher and the session context store
// into one chat turn.
type Service struct {
	classifier *Classifier
	dispatcher *Dispatcher
	contexts   store.ContextStore
	logger     zerolog.Logger
}

func NewService(classifier *Classifier, dispatcher *Dispatcher, contexts store.ContextStore) *Service {
	return &Service{
		classifier: classifier,
		dispatcher: dispatcher,
		contexts:   contexts,
		logger:     logging.WithComponent("chatbot"),
	}
}

// Chat answers one message. A non-nil error is a *Failure; callers decide how
// to surface it (the HTTP adapter still answers 200 with FailureReply).
//
// A session waiting for a tracking code leaves that state on its next
// message, whatever that message turns out to be.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (string, error) {
	question := strings.TrimSpace(message)
	if question == "" {
		return PromptReply, nil
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	sc, err := s.contexts.Get(ctx, sessionID)
	if err != nil {
		metrics.ChatFailuresTotal.WithLabelValues(string(ActionUnresolved)).Inc()
		return "", &Failure{Action: ActionUnresolved, Err: err}
	}

	intent := s.classifier.Classify(question, sc)
	if sc.AwaitingCode() && intent.Action != ActionUnresolved {
		sc = sc.Clone()
		delete(sc, store.KeyAwaitingCode)
	}
	s.logger.Debug().
		Str("session", sessionID).
		Str("action", string(intent.Action)).
		Bool("awaiting_code", sc.AwaitingCode()).
		Msg("classified message")

	reply, rerr := s.dispatcher.Respond(ctx, intent, question, sc)
	metrics.ChatMessagesTotal.WithLabelValues(string(intent.Action)).Inc()

	if err := s.contexts.Set(ctx, sessionID, reply.Context); err != nil && rerr == nil {
		rerr = &Failure{Action: intent.Action, Err: err}
	}
	if rerr != nil {
		var f *Failure
		if !errors.As(rerr, &f) {
			f = &Failure{Action: intent.Action, Err: rerr}
		}
		metrics.ChatFailuresTotal.WithLabelValues(string(f.Action)).Inc()
		s.logger.Warn().Err(f.Err).Str("action", string(f.Action)).Msg("chat turn failed")
		return "", f
	}
	return reply.Text, nil
}

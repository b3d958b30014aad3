package sasl

import (
	"time"

	"go.uber.org/zap"

	"github.com/maxpert/sasl-go/metrics"
)

// SessionState tracks where an exchange stands.
type SessionState int

const (
	StateNotStarted SessionState = iota
	StateInProgress
	StateComplete
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateInProgress:
		return "in-progress"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepOutcome is the result of one session step.
type StepOutcome struct {
	// Payload holds bytes that must be relayed to the peer. nil means there
	// is nothing to send; an empty non-nil payload is a real, empty message
	// that must still be sent. A payload can accompany an error (the
	// OAUTHBEARER failure acknowledgment) and must be relayed before the
	// caller acts on the error.
	Payload []byte

	// Done reports that the exchange finished from this side's perspective.
	Done bool
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithLogger attaches a logger. Sessions log state transitions only; no
// payload bytes and no credential material ever reach the log.
func WithLogger(log *zap.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches a Prometheus collector.
func WithMetrics(c *metrics.Collector) SessionOption {
	return func(s *Session) { s.collector = c }
}

// Session drives one mechanism instance through its exchange. It is a
// sequential state machine: not safe for concurrent use, but independent
// sessions share nothing and may run in parallel. Once finished, stepping
// again is a protocol violation, with a single sanctioned exception for the
// OAUTHBEARER failure handshake (see Step).
type Session struct {
	client    Client
	server    Server
	role      string
	state     SessionState
	steps     int
	err       error
	begun     time.Time
	log       *zap.Logger
	collector *metrics.Collector
}

// lateChallengeClient is implemented by client mechanisms whose exchange can
// be reopened by a server challenge after the client sent its final
// response. OAUTHBEARER is the only such mechanism: its server signals
// failure through a JSON challenge that the client must acknowledge.
type lateChallengeClient interface {
	acceptsLateChallenge() bool
	failure() error
}

// NewClientSession wraps a client mechanism in a session.
func NewClientSession(c Client, opts ...SessionOption) *Session {
	s := &Session{client: c, role: "client", log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServerSession wraps a server mechanism in a session.
func NewServerSession(srv Server, opts ...SessionOption) *Session {
	s := &Session{server: srv, role: "server", log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mechanism returns the wrapped mechanism's name.
func (s *Session) Mechanism() string {
	if s.client != nil {
		return s.client.Name()
	}
	return s.server.Name()
}

// State returns the current session state.
func (s *Session) State() SessionState { return s.state }

// Steps returns the number of mechanism steps taken so far.
func (s *Session) Steps() int { return s.steps }

// Finished reports whether the session reached Complete or Failed.
func (s *Session) Finished() bool {
	return s.state == StateComplete || s.state == StateFailed
}

// Err returns the terminal error of a failed session, nil otherwise.
func (s *Session) Err() error { return s.err }

// Step advances the exchange.
//
// For a client session, input is the most recent server challenge; it must
// be nil or empty on the first step of a client-first mechanism
// (ANONYMOUS, EXTERNAL, PLAIN, OAUTHBEARER), and carries the first server
// challenge for a server-first one (LOGIN). For a server session, input is
// the most recent client response, nil until the client has sent anything.
//
// Stepping a finished session returns a protocol violation, with one
// exception: a completed OAUTHBEARER client session accepts the server's
// JSON failure challenge, answers it with the mandatory control-A
// acknowledgment in the outcome payload, and fails with
// ErrAuthenticationFailed.
func (s *Session) Step(input []byte) (StepOutcome, error) {
	if s.client != nil {
		return s.clientStep(input)
	}
	return s.serverStep(input)
}

func (s *Session) clientStep(input []byte) (StepOutcome, error) {
	switch s.state {
	case StateComplete:
		if lc, ok := s.client.(lateChallengeClient); ok && lc.acceptsLateChallenge() && input != nil {
			s.state = StateInProgress
			s.log.Debug("sasl exchange reopened by late challenge",
				zap.String("mechanism", s.Mechanism()))
			return s.clientChallenge(input)
		}
		return StepOutcome{}, errProtocol(s.Mechanism(), "step on a finished session")
	case StateFailed:
		return StepOutcome{}, errProtocol(s.Mechanism(), "step on a finished session")
	case StateNotStarted:
		s.begin()
		ir, err := s.client.Start()
		if err != nil {
			return StepOutcome{}, s.fail(err)
		}
		s.state = StateInProgress
		if ir == nil {
			// Server-first mechanism. Without a challenge yet there is
			// nothing to produce; with one, consume it right away.
			if input == nil {
				return StepOutcome{}, nil
			}
			return s.clientChallenge(input)
		}
		if len(input) > 0 {
			return StepOutcome{}, s.fail(errProtocol(s.Mechanism(),
				"client-first mechanism received a challenge on the first step"))
		}
		s.observeStep()
		done := s.client.Done()
		if done {
			s.complete()
		}
		return StepOutcome{Payload: ir, Done: done}, nil
	default:
		return s.clientChallenge(input)
	}
}

func (s *Session) clientChallenge(challenge []byte) (StepOutcome, error) {
	response, err := s.client.Next(challenge)
	s.observeStep()
	if err != nil {
		return StepOutcome{}, s.fail(err)
	}
	if lc, ok := s.client.(lateChallengeClient); ok {
		if ferr := lc.failure(); ferr != nil {
			// The acknowledgment still has to reach the peer.
			return StepOutcome{Payload: response, Done: true}, s.fail(ferr)
		}
	}
	done := s.client.Done()
	if done {
		s.complete()
	}
	return StepOutcome{Payload: response, Done: done}, nil
}

func (s *Session) serverStep(input []byte) (StepOutcome, error) {
	switch s.state {
	case StateComplete, StateFailed:
		return StepOutcome{}, errProtocol(s.Mechanism(), "step on a finished session")
	case StateNotStarted:
		s.begin()
		s.state = StateInProgress
	}
	challenge, done, err := s.server.Next(input)
	s.observeStep()
	if err != nil {
		return StepOutcome{Payload: challenge}, s.fail(err)
	}
	if done {
		s.complete()
	}
	return StepOutcome{Payload: challenge, Done: done}, nil
}

func (s *Session) begin() {
	s.begun = time.Now()
	s.collector.RecordExchangeStarted(s.Mechanism(), s.role)
	s.log.Debug("sasl exchange started",
		zap.String("mechanism", s.Mechanism()),
		zap.String("role", s.role))
}

func (s *Session) observeStep() {
	s.steps++
	s.collector.RecordStep(s.Mechanism(), s.role)
	s.log.Debug("sasl step",
		zap.String("mechanism", s.Mechanism()),
		zap.String("role", s.role),
		zap.Int("step", s.steps))
}

func (s *Session) complete() {
	s.state = StateComplete
	s.collector.RecordExchangeFinished(s.Mechanism(), s.role, "ok", time.Since(s.begun))
	s.log.Debug("sasl exchange complete",
		zap.String("mechanism", s.Mechanism()),
		zap.String("role", s.role),
		zap.Int("steps", s.steps))
}

func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.err = err
	s.collector.RecordExchangeFinished(s.Mechanism(), s.role, "failed", time.Since(s.begun))
	s.log.Debug("sasl exchange failed",
		zap.String("mechanism", s.Mechanism()),
		zap.String("role", s.role),
		zap.Int("steps", s.steps),
		zap.Error(err))
	return err
}

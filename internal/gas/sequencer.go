// Package gas sequences gas estimation requests so that only the result of
// the latest request is ever applied.
package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/form"
)

// Sequencer errors.
var (
	ErrNotReady         = errors.New("estimate inputs are incomplete or invalid")
	ErrStale            = errors.New("estimate superseded by a newer request")
	ErrEstimationFailed = errors.New("gas estimation failed")
)

// Estimator is the node-side gas estimation call.
type Estimator interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Request is the input of one estimate.
type Request struct {
	From     string
	To       string     // contract address; empty for a deployment
	Function *abi.Entry // function, or constructor for a deployment
	Params   []any
	Clean    bool     // all params validated
	Value    *big.Int // wei
	Code     []byte   // deployment bytecode; nil for a call
}

// RequestFor builds a request from a form snapshot.
func RequestFor(st form.State, to string, code []byte) Request {
	return Request{
		From:     st.From,
		To:       to,
		Function: st.Function,
		Params:   st.Values(),
		Clean:    st.ParamsClean(),
		Value:    st.Value,
		Code:     code,
	}
}

// Ready reports whether the request may be sent to the node.
func (r Request) Ready() bool {
	return r.Function != nil && r.Clean
}

// State is the estimate state of one wizard. A successful estimate replaces
// the numbers wholesale; a failure only sets Err.
type State struct {
	ID        uint64 // request that produced Estimated/Adjusted
	Estimated uint64
	Adjusted  uint64
	Err       error
	Pending   bool
}

// HasEstimate reports whether any estimate has succeeded yet.
func (s State) HasEstimate() bool {
	return s.ID != 0
}

// Sequencer issues estimates and applies their results in request order.
// Each request gets a monotonically increasing id; a result is applied only
// if its id is still the latest issued.
type Sequencer struct {
	est        Estimator
	multiplier *big.Rat
	rounding   Rounding
	gasCap     uint64
	logger     hclog.Logger

	mu     sync.Mutex
	latest uint64
	state  State
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithMultiplier sets the safety multiplier applied to raw estimates.
func WithMultiplier(m *big.Rat) Option {
	return func(s *Sequencer) { s.multiplier = new(big.Rat).Set(m) }
}

// WithRounding sets how the adjusted estimate is rounded to whole gas.
func WithRounding(r Rounding) Option {
	return func(s *Sequencer) { s.rounding = r }
}

// WithGasCap sets the gas limit the node may use while estimating.
func WithGasCap(gas uint64) Option {
	return func(s *Sequencer) { s.gasCap = gas }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// NewSequencer creates a sequencer with a 1.2 multiplier and nearest rounding.
func NewSequencer(est Estimator, opts ...Option) *Sequencer {
	s := &Sequencer{
		est:        est,
		multiplier: big.NewRat(6, 5),
		rounding:   RoundNearest,
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("gas")
	return s
}

// State returns the current estimate state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Estimate runs one estimate for req and returns the resulting state.
//
// If req is not ready no call is made, ErrNotReady is returned and any
// in-flight request becomes stale. If a newer request was issued while this
// one was in flight, ErrStale is returned and the state is left alone.
// A failed call wraps ErrEstimationFailed and keeps the previous numbers.
func (s *Sequencer) Estimate(ctx context.Context, req Request) (State, error) {
	s.mu.Lock()
	s.latest++
	id := s.latest
	if !req.Ready() {
		s.state.Pending = false
		st := s.state
		s.mu.Unlock()
		return st, ErrNotReady
	}
	s.state.Pending = true
	s.mu.Unlock()

	gas, err := s.call(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.latest {
		s.logger.Trace("discarding stale estimate", "id", id, "latest", s.latest)
		return s.state, ErrStale
	}
	s.state.Pending = false
	if err != nil {
		s.state.Err = fmt.Errorf("%w: %v", ErrEstimationFailed, err)
		s.logger.Warn("estimateGas", "error", err)
		return s.state, s.state.Err
	}

	adjusted := Adjust(gas, s.multiplier, s.rounding)
	s.logger.Debug("estimateGas", "received", gas, "adjusted", adjusted)
	s.state = State{ID: id, Estimated: gas, Adjusted: adjusted}
	return s.state, nil
}

func (s *Sequencer) call(ctx context.Context, req Request) (uint64, error) {
	msg, err := CallMsg(req, s.gasCap)
	if err != nil {
		return 0, err
	}
	return s.est.EstimateGas(ctx, msg)
}

// CallMsg encodes req into the message sent to the node. gasCap of zero
// leaves the limit to the node.
func CallMsg(req Request, gasCap uint64) (ethereum.CallMsg, error) {
	msg := ethereum.CallMsg{
		From:  common.HexToAddress(req.From),
		Gas:   gasCap,
		Value: req.Value,
	}
	var err error
	if req.Code != nil {
		msg.Data, err = abi.EncodeDeploy(req.Code, req.Function, req.Params)
	} else {
		to := common.HexToAddress(req.To)
		msg.To = &to
		msg.Data, err = abi.EncodeCall(*req.Function, req.Params)
	}
	if err != nil {
		return ethereum.CallMsg{}, err
	}
	return msg, nil
}

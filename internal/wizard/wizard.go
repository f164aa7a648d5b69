// Package wizard drives the deploy, execute and add-contract wizards. Each
// wizard owns one form store, one gas sequencer and one step controller and
// exposes a flat key/value surface that any front end can render.
package wizard

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/chain"
	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/form"
	"github.com/Mohsinsiddi/w3wizard/internal/gas"
)

// Wizard errors.
var (
	ErrNotReady          = errors.New("wizard is not ready to submit")
	ErrSubmissionFailed  = errors.New("submission failed")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnknownOption     = errors.New("unknown option")
	ErrReadOnly          = errors.New("field is read-only")
	ErrRequired          = errors.New("required")
	ErrInvalidCode       = errors.New("invalid bytecode")
	ErrDuplicateContract = errors.New("contract already in watch list")
)

// Field keys shared by the wizards. Parameter fields are "param.<index>".
const (
	KeyFrom        = "from"
	KeyAmount      = "amount"
	KeyFunction    = "function"
	KeySearch      = "search"
	KeyName        = "name"
	KeyDescription = "description"
	KeyABI         = "abi"
	KeyContract    = "contract"
	KeyCode        = "code"
	KeyKind        = "kind"
	KeyAddress     = "address"
	KeyTags        = "tags"

	paramPrefix = "param."
)

// ParamKey returns the field key of parameter i.
func ParamKey(i int) string {
	return paramPrefix + strconv.Itoa(i)
}

// Submitter hands a validated transaction to the node. *contract.Sender
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req chain.TxRequest) (string, error)
}

// Notifier receives submission failures.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(error)

// Notify calls f(err).
func (f NotifierFunc) Notify(err error) { f(err) }

// Registry is the watch list. *contract.Registry satisfies it.
type Registry interface {
	Has(address string) bool
	Add(e config.ContractEntry) error
	Save() error
}

// FieldKind tells a front end how to render a field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldSelect
	FieldMultiline
)

// FieldView is one rendered field.
type FieldView struct {
	Key      string
	Label    string
	Value    string
	Hint     string // type or format hint
	Err      error
	ReadOnly bool
	Kind     FieldKind
	Options  []string // FieldSelect only
}

// View is everything a front end needs to draw the current step.
type View struct {
	Title     string
	Steps     []string
	Step      int
	Fields    []FieldView
	ShowGas   bool
	Gas       gas.State
	Warning   string // non-blocking, e.g. a failed estimate
	Err       error  // last submission failure
	CanNext   bool
	CanSubmit bool
	Summary   []string // confirm step lines
}

// Wizard is the surface shared by all three wizards.
type Wizard interface {
	View() View
	// Set applies value to the field with the given key. reestimate is true
	// when the change warrants a new gas estimate. Field validation errors are
	// kept in the view; err is only for unknown or read-only keys.
	Set(key, value string) (reestimate bool, err error)
	Next() error
	Prev()
	// Submit hands the finished request to its collaborator. It returns
	// ErrNotReady unless the wizard is valid.
	Submit(ctx context.Context) (string, error)
	// EstimateRequest snapshots the current inputs for Estimate.
	EstimateRequest() gas.Request
	Estimate(ctx context.Context, req gas.Request) (gas.State, error)
}

// Deps are the collaborators a wizard needs. Sequencer is required for the
// transaction wizards, Registry for the add-contract wizard.
type Deps struct {
	Sequencer *gas.Sequencer
	Submitter Submitter
	Notifier  Notifier
	Registry  Registry
	Validator *abi.Validator
	Logger    hclog.Logger
}

func (d Deps) logger(name string) hclog.Logger {
	if d.Logger == nil {
		return hclog.NewNullLogger()
	}
	return d.Logger.Named("wizard").Named(name)
}

func (d Deps) validator() *abi.Validator {
	if d.Validator != nil {
		return d.Validator
	}
	v, _ := abi.NewValidator(0)
	return v
}

// txBase is the part the execute and deploy wizards share: a form store, a
// gas sequencer and a submitter.
type txBase struct {
	ctl       *Controller
	store     *form.Store
	seq       *gas.Sequencer
	submitter Submitter
	notifier  Notifier
	logger    hclog.Logger
	lastErr   error

	// due is set by the store subscription when a change calls for a new
	// estimate, and cleared by takeDue.
	due bool
}

func newTxBase(ctl *Controller, from string, d Deps, name string) txBase {
	return txBase{
		ctl:       ctl,
		store:     form.NewStore(from),
		seq:       d.Sequencer,
		submitter: d.Submitter,
		notifier:  d.Notifier,
		logger:    d.logger(name),
	}
}

// observe subscribes b to its own store. It must be called once b has its
// final address.
func (b *txBase) observe() {
	b.store.Subscribe(func(st form.State, c form.Change) {
		if needsEstimate(st, c) {
			b.due = true
		}
	})
}

// needsEstimate decides whether a store change calls for a new estimate.
// Parameter edits always do, even invalid ones: the sequencer then makes no
// call and retires any estimate in flight for the old inputs. A sender or
// amount change only counts once it validates.
func needsEstimate(st form.State, c form.Change) bool {
	switch {
	case c.Reset, len(c.Fields) > 0:
		return true
	case c.From:
		return st.FromErr == nil
	case c.Amount:
		return st.AmountErr == nil
	}
	return false
}

// takeDue reports whether an estimate became due since the last call.
func (b *txBase) takeDue() bool {
	due := b.due
	b.due = false
	return due
}

// Store exposes the form store.
func (b *txBase) Store() *form.Store { return b.store }

func (b *txBase) Next() error { return b.ctl.Next() }
func (b *txBase) Prev()       { b.ctl.Prev() }

func (b *txBase) Estimate(ctx context.Context, req gas.Request) (gas.State, error) {
	return b.seq.Estimate(ctx, req)
}

// gasLimit is the adjusted estimate when a current one exists, else fallback.
func (b *txBase) gasLimit(fallback uint64) uint64 {
	st := b.seq.State()
	if st.HasEstimate() && !st.Pending && st.Err == nil {
		return st.Adjusted
	}
	return fallback
}

func (b *txBase) send(ctx context.Context, req chain.TxRequest) (string, error) {
	b.logger.Debug("submitting", "from", req.From, "to", req.To, "gas", req.Gas, "value", req.Value)
	hash, err := b.submitter.Submit(ctx, req)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		b.lastErr = err
		if b.notifier != nil {
			b.notifier.Notify(err)
		}
		b.logger.Error("submission failed", "error", err)
		return "", err
	}
	b.lastErr = nil
	return hash, nil
}

// setCommon handles the from, amount and param.N keys. ok is false for any
// other key.
func (b *txBase) setCommon(key, value string, amountEditable bool) (ok bool, err error) {
	switch {
	case key == KeyFrom:
		b.store.SetFrom(value)
		return true, nil
	case key == KeyAmount:
		if !amountEditable {
			return true, fmt.Errorf("%w: %s", ErrReadOnly, key)
		}
		b.store.SetAmount(value)
		return true, nil
	case strings.HasPrefix(key, paramPrefix):
		i, perr := strconv.Atoi(strings.TrimPrefix(key, paramPrefix))
		if perr != nil || i < 0 || i >= len(b.store.State().Fields) {
			return true, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
		b.store.SetValue(i, value)
		return true, nil
	}
	return false, nil
}

func (b *txBase) paramViews() []FieldView {
	st := b.store.State()
	out := make([]FieldView, 0, len(st.Fields))
	for i, f := range st.Fields {
		out = append(out, FieldView{
			Key:   ParamKey(i),
			Label: f.Label(i),
			Value: displayValue(f),
			Hint:  f.Param.Type,
			Err:   f.Err,
			Kind:  FieldText,
		})
	}
	return out
}

func (b *txBase) fromView() FieldView {
	st := b.store.State()
	return FieldView{Key: KeyFrom, Label: "From", Value: st.From, Hint: "address", Err: st.FromErr}
}

func (b *txBase) amountView() FieldView {
	st := b.store.State()
	return FieldView{Key: KeyAmount, Label: "Amount", Value: st.Amount, Hint: "ETH", Err: st.AmountErr}
}

func (b *txBase) gasWarning() string {
	if err := b.seq.State().Err; err != nil {
		return err.Error()
	}
	return ""
}

// displayValue is what the user typed, or the default before any edit.
// Composite defaults render as JSON arrays, the form they are entered in.
func displayValue(f form.Field) string {
	if f.Raw != "" || f.Err != nil {
		return f.Raw
	}
	return formatValue(f.Value, false)
}

func formatValue(v any, nested bool) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		if nested {
			return strconv.Quote(v)
		}
		return v
	case []byte:
		if len(v) == 0 && !nested {
			return ""
		}
		s := "0x" + hex.EncodeToString(v)
		if nested {
			return strconv.Quote(s)
		}
		return s
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = formatValue(e, true)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprint(v)
}

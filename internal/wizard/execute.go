package wizard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/chain"
	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/gas"
)

// Execute calls a state-changing function of a watched contract. It has a
// single step.
type Execute struct {
	txBase
	contract  config.ContractEntry
	functions []abi.Entry
	search    string
}

// NewExecute opens the execute wizard on c with from as the sender. The
// first function by name is selected.
func NewExecute(c config.ContractEntry, from string, d Deps) (*Execute, error) {
	var fns []abi.Entry
	for _, e := range c.ABI {
		if e.Type == abi.KindFunction && !e.IsConstant() {
			fns = append(fns, e)
		}
	}
	if len(fns) == 0 {
		return nil, fmt.Errorf("contract %s has no state-changing functions", c.Name)
	}
	sort.SliceStable(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })

	w := &Execute{
		txBase:    newTxBase(NewController([]string{"Execute"}, nil), from, d, "execute"),
		contract:  c,
		functions: fns,
	}
	w.observe()
	w.selectFunction(&w.functions[0])
	w.takeDue()
	return w, nil
}

// Functions returns the selectable functions matching the current search.
func (w *Execute) Functions() []abi.Entry {
	if w.search == "" {
		return w.functions
	}
	needle := strings.ToLower(w.search)
	var out []abi.Entry
	for _, fn := range w.functions {
		if strings.Contains(strings.ToLower(fn.Name), needle) {
			out = append(out, fn)
		}
	}
	return out
}

// Set implements Wizard.
func (w *Execute) Set(key, value string) (bool, error) {
	switch key {
	case KeySearch:
		w.search = strings.TrimSpace(value)
		return false, nil
	case KeyFunction:
		for i := range w.functions {
			if w.functions[i].Signature() == value {
				w.selectFunction(&w.functions[i])
				return w.takeDue(), nil
			}
		}
		return false, fmt.Errorf("%w: function %q", ErrUnknownOption, value)
	}
	fn := w.store.State().Function
	ok, err := w.setCommon(key, value, fn != nil && fn.IsPayable())
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return w.takeDue(), err
}

// selectFunction resets the form to fn with every parameter at its default,
// including when fn is already selected.
func (w *Execute) selectFunction(fn *abi.Entry) {
	w.store.SelectFunction(fn)
	if !fn.IsPayable() {
		w.store.SetAmount("0")
	}
}

// View implements Wizard.
func (w *Execute) View() View {
	st := w.store.State()

	fns := w.Functions()
	options := make([]string, len(fns))
	for i, fn := range fns {
		options[i] = fn.Signature()
	}
	selected := ""
	if st.Function != nil {
		selected = st.Function.Signature()
	}

	fields := []FieldView{
		{Key: KeySearch, Label: "Search", Value: w.search, Hint: "filter by name"},
		{Key: KeyFunction, Label: "Function", Value: selected, Kind: FieldSelect, Options: options},
		w.fromView(),
	}
	fields = append(fields, w.paramViews()...)
	if st.Function != nil && st.Function.IsPayable() {
		fields = append(fields, w.amountView())
	}

	return View{
		Title:     fmt.Sprintf("Execute %s (%s)", w.contract.Name, w.contract.Address),
		Steps:     w.ctl.Titles(),
		Step:      w.ctl.Step(),
		Fields:    fields,
		ShowGas:   true,
		Gas:       w.seq.State(),
		Warning:   w.gasWarning(),
		Err:       w.lastErr,
		CanSubmit: st.Valid(),
	}
}

// EstimateRequest implements Wizard.
func (w *Execute) EstimateRequest() gas.Request {
	return gas.RequestFor(w.store.State(), w.contract.Address, nil)
}

// Submit encodes the call and hands it to the submitter. The gas limit is
// the adjusted estimate, or config.GasLimitContractCall when there is none.
func (w *Execute) Submit(ctx context.Context) (string, error) {
	st := w.store.State()
	if !st.Valid() {
		return "", ErrNotReady
	}
	data, err := abi.EncodeCall(*st.Function, st.Values())
	if err != nil {
		return "", fmt.Errorf("%w: encoding call: %v", ErrNotReady, err)
	}
	return w.send(ctx, chain.TxRequest{
		From:  st.From,
		To:    w.contract.Address,
		Data:  data,
		Value: st.Value,
		Gas:   w.gasLimit(config.GasLimitContractCall),
	})
}

// Contract returns the contract being executed.
func (w *Execute) Contract() config.ContractEntry { return w.contract }

package wizard

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/chain"
	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/contract"
	"github.com/Mohsinsiddi/w3wizard/internal/gas"
)

// Deploy steps.
const (
	DeployDetails = iota
	DeployParameters
	DeployConfirm
)

// Deploy creates a contract from an ABI (or combined compiler output) and
// bytecode. Steps: details, constructor parameters, confirm.
type Deploy struct {
	txBase
	validator *abi.Validator

	name        string
	description string

	abiText string
	doc     *abi.Document
	abiErr  error

	code    []byte
	codeRaw string
	codeErr error
}

// NewDeploy opens the deploy wizard with from as the sender.
func NewDeploy(from string, d Deps) *Deploy {
	w := &Deploy{
		txBase:    newTxBase(nil, from, d, "deploy"),
		validator: d.validator(),
		abiErr:    ErrRequired,
		codeErr:   ErrRequired,
	}
	w.ctl = NewController([]string{"Details", "Parameters", "Confirm"}, w.gate)
	w.observe()
	return w
}

func (w *Deploy) gate(step int) error {
	switch step {
	case DeployDetails:
		return w.detailsErr()
	case DeployParameters:
		return w.store.State().Err()
	}
	return nil
}

func (w *Deploy) nameErr() error {
	if strings.TrimSpace(w.name) == "" {
		return ErrRequired
	}
	return nil
}

// detailsErr collects the errors of the details step.
func (w *Deploy) detailsErr() error {
	var result *multierror.Error
	if err := w.nameErr(); err != nil {
		result = multierror.Append(result, fmt.Errorf("name: %w", err))
	}
	if w.abiErr != nil {
		result = multierror.Append(result, fmt.Errorf("abi: %w", w.abiErr))
	}
	if w.codeErr != nil {
		result = multierror.Append(result, fmt.Errorf("code: %w", w.codeErr))
	}
	if err := w.store.State().FromErr; err != nil {
		result = multierror.Append(result, fmt.Errorf("from: %w", err))
	}
	return result.ErrorOrNil()
}

// Valid reports whether every step validates.
func (w *Deploy) Valid() bool {
	return w.detailsErr() == nil && w.store.State().Valid()
}

func (w *Deploy) combined() bool {
	return w.doc != nil && w.doc.IsCombined()
}

func (w *Deploy) constructorPayable() bool {
	fn := w.store.State().Function
	return fn != nil && fn.IsPayable()
}

// Set implements Wizard.
func (w *Deploy) Set(key, value string) (bool, error) {
	switch key {
	case KeyName:
		w.name = value
		return false, nil
	case KeyDescription:
		w.description = value
		return false, nil
	case KeyABI:
		w.abiText = value
		doc, err := w.validator.Validate(value)
		if err != nil {
			w.doc, w.abiErr = nil, err
			w.store.SelectFunction(nil)
			return w.takeDue(), nil
		}
		w.abiErr = nil
		w.applyDocument(doc)
		return w.takeDue(), nil
	case KeyContract:
		if !w.combined() {
			return false, fmt.Errorf("%w: %s", ErrReadOnly, key)
		}
		doc, err := w.doc.SelectByName(value)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnknownOption, err)
		}
		w.applyDocument(doc)
		return w.takeDue(), nil
	case KeyCode:
		if w.combined() {
			return false, fmt.Errorf("%w: %s", ErrReadOnly, key)
		}
		// The bytecode lives outside the form store.
		w.setCode(value)
		return w.codeErr == nil, nil
	}
	ok, err := w.setCommon(key, value, w.constructorPayable())
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return w.takeDue(), err
}

// applyDocument takes the constructor of doc and, for combined output, its
// bytecode and contract name.
func (w *Deploy) applyDocument(doc *abi.Document) {
	w.doc = doc
	if doc.IsCombined() {
		w.setCode(doc.Code())
		if strings.TrimSpace(w.name) == "" {
			w.name = doc.ContractName()
		}
	}

	ctor := doc.Constructor()
	if ctor == nil {
		ctor = &abi.Entry{Type: abi.KindConstructor}
	}
	w.store.SelectFunction(ctor)
	if !ctor.IsPayable() {
		w.store.SetAmount("0")
	}
}

func (w *Deploy) setCode(raw string) {
	w.codeRaw = raw
	w.code, w.codeErr = parseCode(raw)
}

// parseCode accepts non-empty hex bytecode with or without 0x.
func parseCode(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, ErrRequired
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return b, nil
}

// View implements Wizard.
func (w *Deploy) View() View {
	v := View{
		Title:     "Deploy contract",
		Steps:     w.ctl.Titles(),
		Step:      w.ctl.Step(),
		Gas:       w.seq.State(),
		Warning:   w.gasWarning(),
		Err:       w.lastErr,
		CanSubmit: w.Valid(),
	}

	switch w.ctl.Step() {
	case DeployDetails:
		v.Fields = []FieldView{
			{Key: KeyName, Label: "Name", Value: w.name, Err: w.nameErr()},
			{Key: KeyDescription, Label: "Description", Value: w.description},
			w.fromView(),
			{Key: KeyABI, Label: "ABI", Value: w.abiText, Hint: "ABI array or combined compiler output", Err: w.abiErr, Kind: FieldMultiline},
		}
		if w.combined() {
			names := make([]string, len(w.doc.Contracts))
			for i, c := range w.doc.Contracts {
				names[i] = c.Name
			}
			v.Fields = append(v.Fields, FieldView{
				Key: KeyContract, Label: "Contract", Value: w.doc.ContractName(), Kind: FieldSelect, Options: names,
			})
		}
		v.Fields = append(v.Fields, FieldView{
			Key: KeyCode, Label: "Code", Value: w.codeRaw, Hint: "hex bytecode", Err: w.codeErr,
			ReadOnly: w.combined(), Kind: FieldMultiline,
		})
		v.CanNext = w.detailsErr() == nil

	case DeployParameters:
		v.ShowGas = true
		v.Fields = w.paramViews()
		if w.constructorPayable() {
			v.Fields = append(v.Fields, w.amountView())
		}
		v.CanNext = w.store.State().Valid()

	case DeployConfirm:
		v.ShowGas = true
		v.Summary = w.summary()
	}
	return v
}

func (w *Deploy) summary() []string {
	st := w.store.State()
	lines := []string{
		"Name:        " + w.name,
		"From:        " + st.From,
	}
	if w.combined() {
		lines = append(lines, "Contract:    "+w.doc.ContractName())
	}
	if st.Function != nil {
		lines = append(lines, "Constructor: "+st.Function.Label())
	}
	lines = append(lines,
		"Value:       "+chain.WeiToETH(st.Value)+" ETH",
		fmt.Sprintf("Code:        %d bytes", len(w.code)),
	)
	return lines
}

// EstimateRequest implements Wizard. Without valid details the request is
// never ready.
func (w *Deploy) EstimateRequest() gas.Request {
	req := gas.RequestFor(w.store.State(), "", w.code)
	if w.abiErr != nil || w.codeErr != nil {
		req.Clean = false
	}
	return req
}

// Submit deploys the contract. The gas limit is the adjusted estimate, or
// config.GasLimitContractDeploy when there is none.
func (w *Deploy) Submit(ctx context.Context) (string, error) {
	if !w.Valid() {
		return "", ErrNotReady
	}
	st := w.store.State()
	data, err := abi.EncodeDeploy(w.code, st.Function, st.Values())
	if err != nil {
		return "", fmt.Errorf("%w: encoding deployment: %v", ErrNotReady, err)
	}
	return w.send(ctx, chain.TxRequest{
		From:  st.From,
		Data:  data,
		Value: st.Value,
		Gas:   w.gasLimit(config.GasLimitContractDeploy),
	})
}

// Entry is the watch-list entry for the deployed contract at address.
func (w *Deploy) Entry(address string) config.ContractEntry {
	var entries []abi.Entry
	if w.doc != nil {
		entries = w.doc.Entries
	}
	return config.ContractEntry{
		Address:     address,
		Name:        strings.TrimSpace(w.name),
		Description: w.description,
		Kind:        contract.KindCustom,
		ABI:         entries,
		AddedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

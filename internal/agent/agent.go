// Package agent answers one chat turn: resolve the intent, preview transfers,
// and describe what the wallet should do next.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/tjfontaine/sui-agent/internal/contacts"
	"github.com/tjfontaine/sui-agent/internal/domain"
	"github.com/tjfontaine/sui-agent/internal/risk"
	"github.com/tjfontaine/sui-agent/internal/seal"
)

// Move call targets the wallet uses to build staking transactions.
const (
	TargetRequestAddStake      = "0x3::sui_system::request_add_stake"
	TargetRequestWithdrawStake = "0x3::sui_system::request_withdraw_stake"
)

// IntentResolver turns a message into a typed intent.
type IntentResolver interface {
	Resolve(ctx context.Context, message string, context map[string]any) domain.ResolvedIntent
}

// Ledger supplies balances and gas estimates in smallest units.
type Ledger interface {
	Balance(ctx context.Context, owner string, token domain.Token) (string, error)
	EstimateGas(ctx context.Context) (string, error)
}

// AddressBook is the part of contacts.Book the agent uses.
type AddressBook interface {
	Save(ctx context.Context, owner, proof string, rec domain.ContactRecord) (string, error)
	List(ctx context.Context, owner, proof string) ([]domain.ContactRecord, error)
	Resolve(ctx context.Context, owner, proof, name string) (string, error)
}

// ChatRequest is one user turn.
type ChatRequest struct {
	Message     string         `json:"message"`
	UserAddress string         `json:"user_address,omitempty"`
	Signature   string         `json:"signature,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// TransactionData is what the wallet needs to build the transaction itself.
// Amount is an integer in the token's smallest unit; Decimals is how many of
// its digits are fractional.
type TransactionData struct {
	Action        string `json:"action"`
	Recipient     string `json:"recipient,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Token         string `json:"token,omitempty"`
	Decimals      int    `json:"decimals,omitempty"`
	Target        string `json:"target,omitempty"`
}

// ChatResponse is the agent's answer to one turn.
type ChatResponse struct {
	Intent          domain.ResolvedIntent `json:"intent"`
	DryRun          *domain.DryRunSummary `json:"dry_run,omitempty"`
	ReadyToExecute  bool                  `json:"ready_to_execute"`
	Message         string                `json:"message"`
	TransactionData *TransactionData      `json:"transaction_data,omitempty"`
}

// Option configures an Agent.
type Option func(*Agent)

// WithLedger sets the balance and gas source.
func WithLedger(l Ledger) Option {
	return func(a *Agent) { a.ledger = l }
}

// WithAddressBook enables contact lookups and saves.
func WithAddressBook(b AddressBook) Option {
	return func(a *Agent) { a.book = b }
}

// WithAddressBookTarget sets the Move call used to create an address book.
func WithAddressBookTarget(target string) Option {
	return func(a *Agent) { a.bookTarget = target }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// Agent orchestrates a chat turn. It never signs or submits anything.
type Agent struct {
	resolver   IntentResolver
	ledger     Ledger
	book       AddressBook
	bookTarget string
	logger     *slog.Logger
}

// New creates an Agent.
func New(resolver IntentResolver, opts ...Option) *Agent {
	a := &Agent{resolver: resolver, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Chat resolves req and prepares the response. Expected failures are turned
// into messages; only a cancelled context interrupts the turn.
func (a *Agent) Chat(ctx context.Context, req ChatRequest) ChatResponse {
	userContext := req.Context
	if req.UserAddress != "" {
		userContext = maps.Clone(req.Context)
		if userContext == nil {
			userContext = map[string]any{}
		}
		userContext["user_address"] = req.UserAddress
	}

	intent := a.resolver.Resolve(ctx, req.Message, userContext)
	resp := ChatResponse{Intent: intent}
	if intent.NeedsClarification {
		resp.Message = intent.ClarificationPrompt
		return resp
	}

	switch p := intent.Parameters.(type) {
	case domain.TransferParams:
		a.transfer(ctx, req, p, &resp)
	case domain.BalanceParams:
		a.balance(ctx, req, p, &resp)
	case domain.StakeParams:
		resp.Message = fmt.Sprintf("Ready to stake %s %s. Choose a validator in your wallet to continue.", risk.DisplayAmount(p.Amount, p.Token), p.Token)
		resp.TransactionData = &TransactionData{Action: intent.Action.String(), Amount: p.Amount, Token: string(p.Token), Decimals: p.Token.Decimals(), Target: TargetRequestAddStake}
	case domain.UnstakeParams:
		resp.Message = fmt.Sprintf("Ready to withdraw %s %s from staking. Pick the stake to withdraw in your wallet.", risk.DisplayAmount(p.Amount, p.Token), p.Token)
		resp.TransactionData = &TransactionData{Action: intent.Action.String(), Amount: p.Amount, Token: string(p.Token), Decimals: p.Token.Decimals(), Target: TargetRequestWithdrawStake}
	case domain.StakeInfoParams:
		resp.Message = "Your staked SUI is shown in the staking tab of your wallet."
	case domain.ResolveContactParams:
		a.resolveContact(ctx, req, p, &resp)
	case domain.CreateAddressBookParams:
		resp.Message = "Approve the transaction in your wallet to create your address book."
		resp.TransactionData = &TransactionData{Action: intent.Action.String(), Target: a.bookTarget}
	case domain.SaveContactParams:
		a.saveContact(ctx, req, p, &resp)
	case domain.ListContactsParams:
		a.listContacts(ctx, req, &resp)
	default:
		resp.Message = "I can't help with that yet."
	}
	return resp
}

func (a *Agent) transfer(ctx context.Context, req ChatRequest, p domain.TransferParams, resp *ChatResponse) {
	name := ""
	if p.RecipientIsContactName {
		name = p.Recipient
		addr, msg := a.lookup(ctx, req, name)
		if msg != "" {
			resp.Message = msg
			return
		}
		p.Recipient = addr
	}

	summary := a.dryRun(ctx, req.UserAddress, p)
	resp.DryRun = &summary
	resp.ReadyToExecute = summary.RiskTier != domain.RiskHigh
	resp.TransactionData = &TransactionData{
		Action:        domain.ActionTransfer.String(),
		Recipient:     p.Recipient,
		RecipientName: name,
		Amount:        p.Amount,
		Token:         string(p.Token),
		Decimals:      p.Token.Decimals(),
	}

	to := p.Recipient
	if name != "" {
		to = name
	}
	if resp.ReadyToExecute {
		resp.Message = fmt.Sprintf("Ready to send %s %s to %s. Estimated gas: %s SUI. Please confirm.",
			summary.AmountDisplay, summary.Token, to, summary.GasFeeDisplay)
	} else {
		resp.Message = fmt.Sprintf("I can't recommend sending %s %s to %s: %s",
			summary.AmountDisplay, summary.Token, to, strings.Join(summary.Warnings, " "))
	}
}

func (a *Agent) dryRun(ctx context.Context, sender string, p domain.TransferParams) domain.DryRunSummary {
	if sender == "" {
		return risk.Degraded(p, errors.New("sender address is required"))
	}
	if a.ledger == nil {
		return risk.Degraded(p, errors.New("ledger is not configured"))
	}
	balance, err := a.ledger.Balance(ctx, sender, p.Token)
	if err != nil {
		a.logger.Warn("balance lookup failed", slog.String("error", err.Error()))
		return risk.Degraded(p, err)
	}
	gas, err := a.ledger.EstimateGas(ctx)
	if err != nil {
		a.logger.Warn("gas estimate failed", slog.String("error", err.Error()))
		return risk.Degraded(p, err)
	}
	return risk.Assess(domain.ActionTransfer, p, balance, gas)
}

// lookup resolves a contact name. A non-empty message means the lookup did
// not produce an address and explains why.
func (a *Agent) lookup(ctx context.Context, req ChatRequest, name string) (string, string) {
	if msg := a.needsBook(req); msg != "" {
		return "", msg
	}
	addr, err := a.book.Resolve(ctx, req.UserAddress, req.Signature, name)
	if err != nil {
		return "", a.bookError(err, name)
	}
	return addr, ""
}

func (a *Agent) needsBook(req ChatRequest) string {
	switch {
	case a.book == nil:
		return "The address book is not available right now."
	case req.UserAddress == "" || req.Signature == "":
		return "Connect and sign with your wallet so I can open your address book."
	}
	return ""
}

func (a *Agent) bookError(err error, name string) string {
	switch {
	case errors.Is(err, contacts.ErrNotFound):
		return fmt.Sprintf("I couldn't find a contact named %q. You can save one with their address first.", name)
	case errors.Is(err, seal.ErrDecryption):
		return "That signature can't unlock your address book."
	case errors.Is(err, seal.ErrProofRequired):
		return "Connect and sign with your wallet so I can open your address book."
	case errors.Is(err, contacts.ErrInvalidContact):
		return strings.TrimPrefix(err.Error(), "contacts: ")
	}
	a.logger.Error("address book failure", slog.String("error", err.Error()))
	return "Something went wrong with your address book. Please try again."
}

func (a *Agent) balance(ctx context.Context, req ChatRequest, p domain.BalanceParams, resp *ChatResponse) {
	if req.UserAddress == "" || a.ledger == nil {
		resp.Message = "Connect your wallet so I can check your balance."
		return
	}
	bal, err := a.ledger.Balance(ctx, req.UserAddress, p.Token)
	if err != nil {
		a.logger.Warn("balance lookup failed", slog.String("error", err.Error()))
		resp.Message = "I couldn't read your balance right now. Please try again."
		return
	}
	resp.Message = fmt.Sprintf("Your %s balance is %s.", p.Token, risk.DisplayAmount(bal, p.Token))
}

func (a *Agent) resolveContact(ctx context.Context, req ChatRequest, p domain.ResolveContactParams, resp *ChatResponse) {
	addr, msg := a.lookup(ctx, req, p.Name)
	if msg != "" {
		resp.Message = msg
		return
	}
	resp.Message = fmt.Sprintf("%s's address is %s.", p.Name, addr)
}

func (a *Agent) saveContact(ctx context.Context, req ChatRequest, p domain.SaveContactParams, resp *ChatResponse) {
	if msg := a.needsBook(req); msg != "" {
		resp.Message = msg
		return
	}
	rec := domain.ContactRecord{Key: p.Key, DisplayName: p.Name, Address: p.Address}
	if strings.TrimSpace(p.Notes) != "" {
		notes := p.Notes
		rec.Notes = &notes
	}
	if _, err := a.book.Save(ctx, req.UserAddress, req.Signature, rec); err != nil {
		resp.Message = a.bookError(err, p.Name)
		return
	}
	resp.Message = fmt.Sprintf("Saved %s to your address book.", p.Name)
}

func (a *Agent) listContacts(ctx context.Context, req ChatRequest, resp *ChatResponse) {
	if msg := a.needsBook(req); msg != "" {
		resp.Message = msg
		return
	}
	records, err := a.book.List(ctx, req.UserAddress, req.Signature)
	if err != nil {
		resp.Message = a.bookError(err, "")
		return
	}
	if len(records) == 0 {
		resp.Message = "Your address book is empty."
		return
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.DisplayName
	}
	resp.Message = fmt.Sprintf("You have %d contacts: %s.", len(records), strings.Join(names, ", "))
}

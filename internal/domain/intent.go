package domain

// Confidence values assigned by the resolver. They are display-only.
const (
	ConfidenceSelected  = 0.95
	ConfidenceAmbiguous = 0.5
	ConfidenceFailed    = 0.0
)

// Parameters is the per-action argument union. Only the variants in this
// package implement it.
type Parameters interface {
	Action() ActionKind
}

// TransferParams are the arguments of transfer_token. Amount is a decimal
// integer string in the token's smallest unit.
type TransferParams struct {
	Recipient              string `json:"recipient"`
	Amount                 string `json:"amount"`
	Token                  Token  `json:"token"`
	RecipientIsContactName bool   `json:"is_contact_name"`
}

// ResolveContactParams are the arguments of resolve_contact.
type ResolveContactParams struct {
	Name string `json:"name"`
}

// BalanceParams are the arguments of get_balance.
type BalanceParams struct {
	Token Token `json:"token"`
}

// StakeParams are the arguments of stake_token.
type StakeParams struct {
	Amount string `json:"amount"`
	Token  Token  `json:"token"`
}

// UnstakeParams are the arguments of unstake_token.
type UnstakeParams struct {
	Amount string `json:"amount"`
	Token  Token  `json:"token"`
}

// StakeInfoParams are the arguments of get_stake_info.
type StakeInfoParams struct {
	Token Token `json:"token"`
}

// CreateAddressBookParams has no fields.
type CreateAddressBookParams struct{}

// SaveContactParams are the arguments of save_contact.
type SaveContactParams struct {
	Key     string `json:"contact_key"`
	Name    string `json:"contact_name"`
	Address string `json:"contact_address"`
	Notes   string `json:"notes"`
}

// ListContactsParams has no fields.
type ListContactsParams struct{}

func (TransferParams) Action() ActionKind          { return ActionTransfer }
func (ResolveContactParams) Action() ActionKind    { return ActionResolveContact }
func (BalanceParams) Action() ActionKind           { return ActionGetBalance }
func (StakeParams) Action() ActionKind             { return ActionStake }
func (UnstakeParams) Action() ActionKind           { return ActionUnstake }
func (StakeInfoParams) Action() ActionKind         { return ActionGetStakeInfo }
func (CreateAddressBookParams) Action() ActionKind { return ActionCreateAddressBook }
func (SaveContactParams) Action() ActionKind       { return ActionSaveContact }
func (ListContactsParams) Action() ActionKind      { return ActionListContacts }

// ResolvedIntent is the outcome of resolving one message.
//
// NeedsClarification is true exactly when Action is ActionAmbiguous or
// ActionUnknown. Confidence is zero exactly when Action is ActionUnknown.
// Callers route on Action and NeedsClarification only.
type ResolvedIntent struct {
	Action              ActionKind `json:"action"`
	Confidence          float64    `json:"confidence"`
	Parameters          Parameters `json:"parameters,omitempty"`
	NeedsClarification  bool       `json:"needs_clarification"`
	ClarificationPrompt string     `json:"clarification_prompt,omitempty"`
	Rationale           string     `json:"rationale,omitempty"`
}

// Transfer returns the transfer arguments when the intent is a complete
// transfer.
func (r ResolvedIntent) Transfer() (TransferParams, bool) {
	if r.Action != ActionTransfer || r.NeedsClarification {
		return TransferParams{}, false
	}
	p, ok := r.Parameters.(TransferParams)
	return p, ok
}

// Unresolved builds the failure outcome. prompt is shown to the user.
func Unresolved(prompt, rationale string) ResolvedIntent {
	return ResolvedIntent{
		Action:              ActionUnknown,
		Confidence:          ConfidenceFailed,
		NeedsClarification:  true,
		ClarificationPrompt: prompt,
		Rationale:           rationale,
	}
}

// Ambiguous builds the clarification outcome.
func Ambiguous(prompt, rationale string) ResolvedIntent {
	return ResolvedIntent{
		Action:              ActionAmbiguous,
		Confidence:          ConfidenceAmbiguous,
		NeedsClarification:  true,
		ClarificationPrompt: prompt,
		Rationale:           rationale,
	}
}

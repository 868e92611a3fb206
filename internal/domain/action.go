// Package domain holds the typed vocabulary shared by the resolver, the risk
// assessor, the address book and the HTTP surface.
package domain

import (
	"fmt"
	"strings"
)

// ActionKind is the closed set of actions a message can resolve to.
// The zero value is ActionUnknown.
type ActionKind uint8

const (
	ActionUnknown ActionKind = iota
	ActionTransfer
	ActionResolveContact
	ActionGetBalance
	ActionStake
	ActionUnstake
	ActionGetStakeInfo
	ActionCreateAddressBook
	ActionSaveContact
	ActionListContacts
	ActionAmbiguous

	actionCount
)

var actionNames = [actionCount]string{
	ActionUnknown:           "unknown",
	ActionTransfer:          "transfer_token",
	ActionResolveContact:    "resolve_contact",
	ActionGetBalance:        "get_balance",
	ActionStake:             "stake_token",
	ActionUnstake:           "unstake_token",
	ActionGetStakeInfo:      "get_stake_info",
	ActionCreateAddressBook: "create_address_book",
	ActionSaveContact:       "save_contact",
	ActionListContacts:      "list_contacts",
	ActionAmbiguous:         "ambiguous",
}

// String returns the wire name of the action.
func (a ActionKind) String() string {
	if a >= actionCount {
		return actionNames[ActionUnknown]
	}
	return actionNames[a]
}

// MarshalText implements encoding.TextMarshaler.
func (a ActionKind) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ActionKind) UnmarshalText(text []byte) error {
	kind, ok := ParseActionKind(string(text))
	if !ok {
		return fmt.Errorf("unknown action %q", text)
	}
	*a = kind
	return nil
}

// ParseActionKind maps a wire name to its ActionKind.
func ParseActionKind(s string) (ActionKind, bool) {
	for i, name := range actionNames {
		if name == s {
			return ActionKind(i), true
		}
	}
	return ActionUnknown, false
}

// Token is a supported coin.
type Token string

const (
	TokenSUI  Token = "SUI"
	TokenUSDC Token = "USDC"
)

// NativeToken pays gas and is the default when a message names no token.
const NativeToken = TokenSUI

// ParseToken accepts a token symbol case-insensitively.
func ParseToken(s string) (Token, error) {
	switch Token(strings.ToUpper(strings.TrimSpace(s))) {
	case TokenSUI:
		return TokenSUI, nil
	case TokenUSDC:
		return TokenUSDC, nil
	}
	return "", fmt.Errorf("unsupported token %q", s)
}

// Decimals is the fixed decimal scale of the token's smallest unit.
func (t Token) Decimals() int {
	if t == TokenUSDC {
		return 6
	}
	return 9
}

// IsNative reports whether gas is paid from this token's balance.
func (t Token) IsNative() bool {
	return t == NativeToken
}

// AddressPrefix marks a literal wallet address.
const AddressPrefix = "0x"

// IsAddress reports whether s is written as a wallet address rather than a
// contact name.
func IsAddress(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), AddressPrefix)
}

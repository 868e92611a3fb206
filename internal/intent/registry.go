// Package intent turns a free-text request into one of the fixed wallet
// actions by asking an OpenAI model to pick a strictly typed tool.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tjfontaine/sui-agent/internal/api/openai"
	"github.com/tjfontaine/sui-agent/internal/domain"
)

// Tool is one entry of the catalogue offered to the model.
type Tool struct {
	Name        string
	Action      domain.ActionKind
	Description string
	Schema      map[string]any
}

var tokenEnum = []any{string(domain.TokenSUI), string(domain.TokenUSDC)}
var nativeEnum = []any{string(domain.NativeToken)}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func enum(values []any, desc string) map[string]any {
	return map[string]any{"type": "string", "enum": values, "description": desc}
}

// object builds a closed object schema where every property is required.
// Strict function calling rejects schemas that leave anything optional.
func object(props map[string]any, order ...string) map[string]any {
	required := make([]any, 0, len(order))
	for _, name := range order {
		required = append(required, name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

var catalogue = []Tool{
	{
		Name:        "transfer_token",
		Action:      domain.ActionTransfer,
		Description: "Transfer tokens (SUI or USDC) to a recipient address or contact name",
		Schema: object(map[string]any{
			"recipient":       str("Recipient's wallet address (0x...) or contact name if mentioned"),
			"amount":          str("Amount to transfer in the token's smallest unit (MIST for SUI) as a whole number string (e.g., '1000000000')"),
			"token":           enum(tokenEnum, "Token type to transfer"),
			"is_contact_name": map[string]any{"type": "boolean", "description": "True if recipient is a contact name (like 'Mom'), False if it's an address"},
		}, "recipient", "amount", "token", "is_contact_name"),
	},
	{
		Name:        "resolve_contact",
		Action:      domain.ActionResolveContact,
		Description: "Look up a contact's wallet address by their name",
		Schema: object(map[string]any{
			"name": str("Contact's display name (e.g., 'Mom', 'Boss', 'Alice')"),
		}, "name"),
	},
	{
		Name:        "get_balance",
		Action:      domain.ActionGetBalance,
		Description: "Check the balance of a specific token in the user's wallet",
		Schema: object(map[string]any{
			"token": enum(tokenEnum, "Token type to check balance for"),
		}, "token"),
	},
	{
		Name:        "stake_token",
		Action:      domain.ActionStake,
		Description: "Stake (lock) SUI tokens in the staking pool to earn rewards",
		Schema: object(map[string]any{
			"amount": str("Amount of SUI to stake in MIST as a whole number string (e.g., '1000000000')"),
			"token":  enum(nativeEnum, "Token type to stake (currently only SUI is supported)"),
		}, "amount", "token"),
	},
	{
		Name:        "unstake_token",
		Action:      domain.ActionUnstake,
		Description: "Unstake (withdraw) SUI tokens from the staking pool",
		Schema: object(map[string]any{
			"amount": str("Amount of SUI to unstake in MIST as a whole number string (e.g., '500000000')"),
			"token":  enum(nativeEnum, "Token type to unstake (currently only SUI is supported)"),
		}, "amount", "token"),
	},
	{
		Name:        "get_stake_info",
		Action:      domain.ActionGetStakeInfo,
		Description: "Check how much SUI the user has staked in the staking pool",
		Schema: object(map[string]any{
			"token": enum(nativeEnum, "Token type to check stake info for (currently only SUI is supported)"),
		}, "token"),
	},
	{
		Name:        "create_address_book",
		Action:      domain.ActionCreateAddressBook,
		Description: "Create a new on-chain address book for storing contacts. This is a one-time operation.",
		Schema:      object(map[string]any{}),
	},
	{
		Name:        "save_contact",
		Action:      domain.ActionSaveContact,
		Description: "Save a contact to the user's address book with a name and wallet address",
		Schema: object(map[string]any{
			"contact_key":     str("Short key for the contact (e.g., 'alice', 'mom', 'boss'). Lowercase, no spaces."),
			"contact_name":    str("Display name for the contact (e.g., 'Alice Smith', 'Mom')"),
			"contact_address": str("Contact's Sui wallet address (starting with 0x)"),
			"notes":           str("Optional notes about the contact, empty string if none"),
		}, "contact_key", "contact_name", "contact_address", "notes"),
	},
	{
		Name:        "list_contacts",
		Action:      domain.ActionListContacts,
		Description: "List all contacts saved in the user's address book",
		Schema:      object(map[string]any{}),
	},
}

// ActionForTool maps a tool name to its action. Names outside the catalogue
// map to ActionUnknown.
func ActionForTool(name string) domain.ActionKind {
	for _, t := range catalogue {
		if t.Name == name {
			return t.Action
		}
	}
	return domain.ActionUnknown
}

// Catalogue returns the tool definitions in their fixed order.
func Catalogue() []Tool {
	out := make([]Tool, len(catalogue))
	copy(out, catalogue)
	return out
}

// Registry holds the compiled argument schemas for every tool.
type Registry struct {
	tools   []openai.Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry compiles the catalogue.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		tools:   make([]openai.Tool, 0, len(catalogue)),
		schemas: make(map[string]*jsonschema.Schema, len(catalogue)),
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	for _, t := range catalogue {
		raw, err := json.Marshal(t.Schema)
		if err != nil {
			return nil, fmt.Errorf("intent: marshal schema %s: %w", t.Name, err)
		}
		url := "mem://tools/" + t.Name + ".json"
		if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
			return nil, fmt.Errorf("intent: add schema %s: %w", t.Name, err)
		}
		schema, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("intent: compile schema %s: %w", t.Name, err)
		}
		r.schemas[t.Name] = schema
		r.tools = append(r.tools, openai.Tool{
			Type: "function",
			Function: openai.FunctionTool{
				Name:        t.Name,
				Description: t.Description,
				Strict:      true,
				Parameters:  t.Schema,
			},
		})
	}
	return r, nil
}

// Tools returns the catalogue in OpenAI request form.
func (r *Registry) Tools() []openai.Tool {
	return r.tools
}

// Validate checks decoded tool arguments against the tool's schema.
func (r *Registry) Validate(name string, args any) error {
	schema, ok := r.schemas[name]
	if !ok {
		return fmt.Errorf("intent: unknown tool %q", name)
	}
	if err := schema.Validate(args); err != nil {
		return fmt.Errorf("intent: arguments for %s do not match schema: %w", name, err)
	}
	return nil
}

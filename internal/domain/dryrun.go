package domain

// RiskTier is the coarse safety signal of a dry run.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// DryRunSummary previews a transfer. It is built per request and never stored.
type DryRunSummary struct {
	Description          string   `json:"action_description"`
	Recipient            string   `json:"recipient"`
	AmountDisplay        string   `json:"amount"`
	Token                Token    `json:"token"`
	GasFeeDisplay        string   `json:"estimated_gas_fee"`
	BalanceBeforeDisplay string   `json:"sender_balance_before"`
	BalanceAfterDisplay  string   `json:"sender_balance_after"`
	RiskTier             RiskTier `json:"risk_level"`
	Warnings             []string `json:"warnings"`
}

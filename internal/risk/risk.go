// Package risk computes the dry-run preview shown before a transfer is built.
package risk

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tjfontaine/sui-agent/internal/domain"
)

// Warnings attached to a summary.
const (
	WarnInsufficient = "Insufficient balance for this transaction!"
	WarnLowBalance   = "Low balance warning: Consider keeping more SUI for future transactions"
	WarnMostBalance  = "You're sending most of your balance!"
)

// gasDecimals is the scale of gas figures, which are always in the native token.
const gasDecimals = 9

// fallbackGasDisplay is shown when the real estimate could not be used.
const fallbackGasDisplay = "0.002"

// SafetyMultiple is how many gas fees should stay in the balance after a
// transfer before it is considered low.
const SafetyMultiple = 10

// Assess previews a transfer of params given the sender's balance and the
// estimated gas, both decimal integers in smallest units.
//
// All risk arithmetic runs on exact integers before anything is formatted.
// Assess never fails; inputs it cannot use produce a high-risk summary whose
// warning names the problem.
func Assess(action domain.ActionKind, params domain.Parameters, senderBalance, estimatedGas string) domain.DryRunSummary {
	transfer, _ := params.(domain.TransferParams)
	if action != domain.ActionTransfer {
		return Degraded(transfer, fmt.Errorf("no dry run for action %s", action))
	}
	if params == nil || params.Action() != domain.ActionTransfer {
		return Degraded(transfer, errors.New("missing transfer parameters"))
	}

	token, err := domain.ParseToken(string(transfer.Token))
	if err != nil {
		return Degraded(transfer, err)
	}
	amount, err := parseUnits("amount", transfer.Amount)
	if err != nil {
		return Degraded(transfer, err)
	}
	balance, err := parseUnits("balance", senderBalance)
	if err != nil {
		return Degraded(transfer, err)
	}
	gas, err := parseUnits("gas", estimatedGas)
	if err != nil {
		return Degraded(transfer, err)
	}

	total := new(big.Int).Set(amount)
	if token.IsNative() {
		total.Add(total, gas)
	}
	after := new(big.Int).Sub(balance, total)

	tier, warnings := classify(after, gas)
	if mostOfBalance(amount, balance) {
		warnings = append(warnings, WarnMostBalance)
	}

	amountDisplay := formatUnits(amount, token.Decimals(), 4)
	return domain.DryRunSummary{
		Description:          fmt.Sprintf("Transfer %s %s to %s", amountDisplay, token, transfer.Recipient),
		Recipient:            transfer.Recipient,
		AmountDisplay:        amountDisplay,
		Token:                token,
		GasFeeDisplay:        formatUnits(gas, gasDecimals, 6),
		BalanceBeforeDisplay: formatUnits(balance, token.Decimals(), 4),
		BalanceAfterDisplay:  formatUnits(after, token.Decimals(), 4),
		RiskTier:             tier,
		Warnings:             warnings,
	}
}

// classify maps the post-transfer balance to exactly one tier.
func classify(after, gas *big.Int) (domain.RiskTier, []string) {
	if after.Sign() < 0 {
		return domain.RiskHigh, []string{WarnInsufficient}
	}
	margin := new(big.Int).Mul(gas, big.NewInt(SafetyMultiple))
	if after.Cmp(margin) < 0 {
		return domain.RiskMedium, []string{WarnLowBalance}
	}
	return domain.RiskLow, []string{}
}

// mostOfBalance reports amount > 0.9 * balance without leaving integers.
func mostOfBalance(amount, balance *big.Int) bool {
	lhs := new(big.Int).Mul(amount, big.NewInt(10))
	rhs := new(big.Int).Mul(balance, big.NewInt(9))
	return lhs.Cmp(rhs) > 0
}

func parseUnits(field, s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q: not an integer", field, s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q: negative", field, s)
	}
	return n, nil
}

// formatUnits renders n / 10^decimals with a fixed number of fraction digits.
func formatUnits(n *big.Int, decimals, digits int) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(n, scale).FloatString(digits)
}

// Degraded is the summary returned when a dry run cannot be computed. It is
// always high risk.
func Degraded(p domain.TransferParams, err error) domain.DryRunSummary {
	recipient := p.Recipient
	if recipient == "" {
		recipient = "Unknown"
	}
	amount := p.Amount
	if amount == "" {
		amount = "0"
	}
	token, perr := domain.ParseToken(string(p.Token))
	if perr != nil {
		token = domain.NativeToken
	}
	return domain.DryRunSummary{
		Description:          "Transfer to " + recipient,
		Recipient:            recipient,
		AmountDisplay:        amount,
		Token:                token,
		GasFeeDisplay:        fallbackGasDisplay,
		BalanceBeforeDisplay: "Unknown",
		BalanceAfterDisplay:  "Unknown",
		RiskTier:             domain.RiskHigh,
		Warnings:             []string{"Error calculating summary: " + err.Error()},
	}
}

// DisplayAmount formats a smallest-unit amount of token with four fraction
// digits. Unparseable input is returned unchanged.
func DisplayAmount(amount string, token domain.Token) string {
	n, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return amount
	}
	return formatUnits(n, token.Decimals(), 4)
}

package domain

import (
	"encoding/json"
	"testing"
)

func TestActionKind_RoundTripNames(t *testing.T) {
	for a := ActionUnknown; a < actionCount; a++ {
		got, ok := ParseActionKind(a.String())
		if !ok || got != a {
			t.Errorf("ParseActionKind(%q) = %v, %v; want %v", a.String(), got, ok, a)
		}
	}

	if _, ok := ParseActionKind("swap_token"); ok {
		t.Error("ParseActionKind accepted an action outside the catalogue")
	}
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		in      string
		want    Token
		wantErr bool
	}{
		{"SUI", TokenSUI, false},
		{"usdc", TokenUSDC, false},
		{" Sui ", TokenSUI, false},
		{"BTC", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseToken(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseToken(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseToken(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToken_Decimals(t *testing.T) {
	if TokenSUI.Decimals() != 9 {
		t.Errorf("SUI decimals = %d, want 9", TokenSUI.Decimals())
	}
	if TokenUSDC.Decimals() != 6 {
		t.Errorf("USDC decimals = %d, want 6", TokenUSDC.Decimals())
	}
	if !TokenSUI.IsNative() || TokenUSDC.IsNative() {
		t.Error("only SUI should be native")
	}
}

func TestIsAddress(t *testing.T) {
	if !IsAddress("0xabc") {
		t.Error("0xabc should be an address")
	}
	if IsAddress("Mom") {
		t.Error("Mom should be a contact name")
	}
}

func TestResolvedIntent_JSON(t *testing.T) {
	ri := ResolvedIntent{
		Action:     ActionTransfer,
		Confidence: ConfidenceSelected,
		Parameters: TransferParams{Recipient: "Mom", Amount: "100", Token: TokenSUI, RecipientIsContactName: true},
	}

	data, err := json.Marshal(ri)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["action"] != "transfer_token" {
		t.Errorf("action = %v, want transfer_token", decoded["action"])
	}
	params, ok := decoded["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("parameters missing: %s", data)
	}
	if params["recipient"] != "Mom" || params["is_contact_name"] != true {
		t.Errorf("unexpected parameters: %v", params)
	}
}

func TestResolvedIntent_Transfer(t *testing.T) {
	ok := ResolvedIntent{Action: ActionTransfer, Parameters: TransferParams{Recipient: "0x1"}}
	if _, found := ok.Transfer(); !found {
		t.Error("Transfer() should return params for a complete transfer")
	}

	pending := ok
	pending.NeedsClarification = true
	if _, found := pending.Transfer(); found {
		t.Error("Transfer() should refuse an intent awaiting clarification")
	}
}

func TestUnresolvedAndAmbiguous(t *testing.T) {
	u := Unresolved("try again", "boom")
	if u.Action != ActionUnknown || u.Confidence != 0 || !u.NeedsClarification {
		t.Errorf("Unresolved() = %+v", u)
	}

	a := Ambiguous("how much?", "")
	if a.Action != ActionAmbiguous || a.Confidence != 0.5 || !a.NeedsClarification {
		t.Errorf("Ambiguous() = %+v", a)
	}
}

package tokens

import (
	"errors"
	"testing"

	"github.com/tiktoken-go/tokenizer"
)

func TestEstimator_CountText(t *testing.T) {
	e := NewEstimator()

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hi", 1},
		{"Send 100 SUI to Mom", 4},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := e.CountText("any", tt.text)
			if err != nil {
				t.Fatalf("CountText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CountText(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestOpenAICounter_CountText(t *testing.T) {
	c := NewOpenAICounter()

	n, err := c.CountText("gpt-4o", "Send 100 SUI to Mom")
	if err != nil {
		t.Fatalf("CountText() error = %v", err)
	}
	if n < 3 || n > 12 {
		t.Errorf("CountText() = %d, want a small positive count", n)
	}

	longer, err := c.CountText("gpt-4o", "Send 100 SUI to Mom and then stake 50 SUI with the default validator")
	if err != nil {
		t.Fatalf("CountText() error = %v", err)
	}
	if longer <= n {
		t.Errorf("longer text counted %d tokens, shorter %d", longer, n)
	}
}

func TestOpenAICounter_SupportsModel(t *testing.T) {
	c := NewOpenAICounter()

	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-4o-mini", true},
		{"o3-mini", true},
		{"claude-3-5-sonnet", false},
	}

	for _, tt := range tests {
		if got := c.SupportsModel(tt.model); got != tt.want {
			t.Errorf("SupportsModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestModelToEncoding(t *testing.T) {
	if got := modelToEncoding("gpt-4o"); got != tokenizer.O200kBase {
		t.Errorf("gpt-4o encoding = %v", got)
	}
	if got := modelToEncoding("gpt-3.5-turbo"); got != tokenizer.Cl100kBase {
		t.Errorf("gpt-3.5-turbo encoding = %v", got)
	}
}

type failingCounter struct{}

func (failingCounter) CountText(string, string) (int, error) { return 0, errors.New("boom") }
func (failingCounter) SupportsModel(string) bool             { return true }

func TestRegistry_FallsBackOnError(t *testing.T) {
	r := &Registry{fallback: NewEstimator()}
	r.Register(failingCounter{})

	got, err := r.CountText("gpt-4o", "abcdefgh")
	if err != nil {
		t.Fatalf("CountText() error = %v", err)
	}
	if got != 2 {
		t.Errorf("CountText() = %d, want estimator result 2", got)
	}
}

func TestRegistry_NoCounter(t *testing.T) {
	r := &Registry{}
	if _, err := r.CountText("x", "y"); err == nil {
		t.Error("expected error with no counters and no fallback")
	}
	if r.SupportsModel("x") {
		t.Error("SupportsModel() = true with no counters")
	}
	r.Register(NewOpenAICounter())
	if !r.SupportsModel("gpt-4o-mini") || r.SupportsModel("claude-3") {
		t.Error("SupportsModel() should follow the registered counters")
	}
	r.SetFallback(NewEstimator())
	if !r.SupportsModel("claude-3") {
		t.Error("SupportsModel() should be true once a fallback is set")
	}
}

func TestModelMatcher(t *testing.T) {
	m := NewModelMatcher([]string{"gpt-"}, []string{"davinci"})
	if !m.Matches("gpt-5") || !m.Matches("davinci") || m.Matches("claude") {
		t.Error("ModelMatcher mismatched")
	}
}

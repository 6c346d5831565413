package strategy

import (
	"errors"
	"math"
	"testing"

	"hindsight/internal/domain"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string                                         { return s.name }
func (s *stubStrategy) CanExecute(domain.Signal, domain.MarketSnapshot) bool { return false }
func (s *stubStrategy) Performance([]domain.Trade) domain.StrategyStats      { return domain.StrategyStats{} }
func (s *stubStrategy) Parameters() Parameters                               { return Parameters{} }
func (s *stubStrategy) SetParameters(u Parameters) (Parameters, error)       { return Parameters{}.Merge(u) }
func (s *stubStrategy) AnalyzeExit(domain.Position, domain.MarketSnapshot) (ExitAnalysis, error) {
	return ExitAnalysis{}, nil
}
func (s *stubStrategy) AnalyzeEntry(domain.Signal, domain.MarketSnapshot) (EntryAnalysis, error) {
	return EntryAnalysis{Action: domain.ActionHold}, nil
}
func (s *stubStrategy) PositionSize(EntryAnalysis, Account, domain.MarketSnapshot) (PositionSize, error) {
	return PositionSize{}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := &stubStrategy{name: "test-strategy"}

	r.Register(s)

	got, ok := r.Get("test-strategy")
	if !ok {
		t.Fatal("Get returned false for registered strategy")
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Get returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestRegistryLookup_Unknown(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "alpha"})

	if _, err := r.Lookup("alpha"); err != nil {
		t.Fatalf("Lookup(alpha) returned error: %v", err)
	}
	_, err := r.Lookup("weekly")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("Lookup(weekly) error = %v, want ErrUnknownStrategy", err)
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "beta"})
	r.Register(&stubStrategy{name: "alpha"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func TestParametersMerge(t *testing.T) {
	base := Parameters{ParamTargetProfit: 2, ParamStopLoss: 1}

	merged, err := base.Merge(Parameters{ParamStopLoss: 0.5})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if merged[ParamStopLoss] != 0.5 || merged[ParamTargetProfit] != 2 {
		t.Errorf("Merge = %v, want stop_loss=0.5 target_profit=2", merged)
	}
	// The receiver is never modified.
	if base[ParamStopLoss] != 1 {
		t.Errorf("base stop_loss = %v after Merge, want 1", base[ParamStopLoss])
	}
}

func TestParametersMerge_Rejects(t *testing.T) {
	base := Parameters{ParamTargetProfit: 2}

	_, err := base.Merge(Parameters{ParamTargetProfit: 3, "leverage": 10})
	if !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("Merge error = %v, want ErrUnknownParameter", err)
	}
	if base[ParamTargetProfit] != 2 {
		t.Error("rejected update must not be partially applied")
	}

	if _, err := base.Merge(Parameters{ParamTargetProfit: math.NaN()}); err == nil {
		t.Error("Merge accepted a NaN value")
	}
}

package optimize

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindsight/internal/domain"
	"hindsight/internal/engine"
	"hindsight/internal/strategy"
	"hindsight/internal/strategy/builtins"
)

func wave(n int) []domain.PriceRecord {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.PriceRecord, n)
	for i := range out {
		out[i] = domain.PriceRecord{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Price:     100 + 10*math.Sin(float64(i)/15) + 0.05*float64(i),
			Volume:    1000,
		}
	}
	return out
}

func TestGridValidate(t *testing.T) {
	assert.ErrorIs(t, Grid{}.Validate(), ErrEmptyGrid)
	assert.ErrorIs(t, Grid{{Name: "stop_loss"}}.Validate(), ErrEmptyGrid)
	assert.NoError(t, Grid{{Name: "stop_loss", Values: []float64{1}}}.Validate())
}

func TestGridCombinations(t *testing.T) {
	g := Grid{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{10, 20, 30}},
	}
	combos := g.Combinations()
	require.Len(t, combos, 6)
	assert.Equal(t, 6, g.Size())
	assert.Equal(t, strategy.Parameters{"a": 1, "b": 10}, combos[0])
	assert.Equal(t, strategy.Parameters{"a": 1, "b": 20}, combos[1])
	assert.Equal(t, strategy.Parameters{"a": 2, "b": 30}, combos[5])
}

func TestSearchFindsMaximumSharpe(t *testing.T) {
	prices := wave(400)
	eng := engine.New(engine.DefaultOptions(), nil)
	s := builtins.NewDayTrading()

	grid := Grid{
		{Name: strategy.ParamTargetProfit, Values: []float64{1, 2, 4}},
		{Name: strategy.ParamStopLoss, Values: []float64{0.5, 1, 2}},
		{Name: strategy.ParamMaxHoldTime, Values: []float64{3600, 8 * 3600}},
	}
	out, err := New(eng, nil).Search(context.Background(), s, grid, prices)
	require.NoError(t, err)
	require.Len(t, out.Evaluations, grid.Size())
	require.NotNil(t, out.Best)

	for _, ev := range out.Evaluations {
		require.NoError(t, ev.Err)
		assert.LessOrEqual(t, ev.SharpeRatio, out.BestSharpe)
	}

	// The strategy is left configured with the winner, and re-running it
	// reproduces the winning Sharpe ratio exactly.
	for name, v := range out.BestParameters {
		assert.Equal(t, v, s.Parameters()[name])
	}
	again, err := eng.Run(prices, s)
	require.NoError(t, err)
	assert.Equal(t, out.BestSharpe, again.SharpeRatio)
}

func TestSearchEmptyGrid(t *testing.T) {
	_, err := New(engine.New(engine.DefaultOptions(), nil), nil).Search(context.Background(), builtins.NewScalping(), nil, wave(10))
	assert.True(t, errors.Is(err, ErrEmptyGrid))
}

func TestSearchRecordsFailedCombinations(t *testing.T) {
	s := builtins.NewScalping()
	before := s.Parameters()

	grid := Grid{{Name: "leverage", Values: []float64{2, 3}}}
	out, err := New(engine.New(engine.DefaultOptions(), nil), nil).Search(context.Background(), s, grid, wave(50))
	require.NoError(t, err)
	require.Len(t, out.Evaluations, 2)
	for _, ev := range out.Evaluations {
		assert.ErrorIs(t, ev.Err, strategy.ErrUnknownParameter)
	}
	assert.Nil(t, out.Best)
	assert.Equal(t, before, s.Parameters())
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := builtins.NewSwingTrading()
	before := s.Parameters()
	grid := Grid{{Name: strategy.ParamStopLoss, Values: []float64{1, 2}}}
	_, err := New(engine.New(engine.DefaultOptions(), nil), nil).Search(ctx, s, grid, wave(50))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, s.Parameters())
}

// locked refuses every parameter change, including the restore.
type locked struct{ builtins.Reject }

var errLocked = errors.New("parameters are locked")

func (locked) Parameters() strategy.Parameters { return strategy.Parameters{strategy.ParamStopLoss: 1} }
func (locked) SetParameters(strategy.Parameters) (strategy.Parameters, error) {
	return nil, errLocked
}

func TestSearchReportsFailedRestore(t *testing.T) {
	opt := New(engine.New(engine.DefaultOptions(), nil), nil)
	grid := Grid{{Name: strategy.ParamStopLoss, Values: []float64{1, 2}}}

	out, err := opt.Search(context.Background(), locked{}, grid, wave(50))
	assert.ErrorIs(t, err, errLocked)
	assert.Nil(t, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = opt.Search(ctx, locked{}, grid, wave(50))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errLocked)
}

// ---------------------------------------------------------------------------
// Compare
// ---------------------------------------------------------------------------

type panicky struct{ builtins.Reject }

func (panicky) Name() string { return "panicky" }
func (panicky) CanExecute(domain.Signal, domain.MarketSnapshot) bool {
	panic("indicator exploded")
}

func TestCompareAllBuiltins(t *testing.T) {
	reg := builtins.NewRegistry()
	eng := engine.New(engine.DefaultOptions(), nil)

	out, err := Compare(context.Background(), reg, nil, eng, wave(200), 3)
	require.NoError(t, err)
	require.Len(t, out, len(reg.List()))
	for name, c := range out {
		require.NoError(t, c.Err, name)
		assert.Equal(t, name, c.Result.Strategy)
	}
	assert.Zero(t, out[builtins.NameReject].Result.TotalTrades)
}

func TestCompareIsolatesFailures(t *testing.T) {
	reg := builtins.NewRegistry()
	reg.Register(panicky{})
	eng := engine.New(engine.DefaultOptions(), nil)

	out, err := Compare(context.Background(), reg, []string{"panicky", builtins.NameDayTrading}, eng, wave(100), 2)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Nil(t, out["panicky"].Result)
	assert.ErrorContains(t, out["panicky"].Err, "indicator exploded")
	assert.NoError(t, out[builtins.NameDayTrading].Err)
	assert.NotNil(t, out[builtins.NameDayTrading].Result)
}

func TestCompareUnknownStrategy(t *testing.T) {
	_, err := Compare(context.Background(), builtins.NewRegistry(), []string{"weekly"},
		engine.New(engine.DefaultOptions(), nil), wave(10), 1)
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)
}

func TestCompareMatchesSequentialRuns(t *testing.T) {
	reg := builtins.NewRegistry()
	eng := engine.New(engine.DefaultOptions(), nil)
	prices := wave(150)

	parallel, err := Compare(context.Background(), reg, nil, eng, prices, 4)
	require.NoError(t, err)
	for name, c := range parallel {
		s, err := reg.Lookup(name)
		require.NoError(t, err)
		seq, err := eng.Run(prices, s)
		require.NoError(t, err)
		assert.Equal(t, seq.Equity, c.Result.Equity, name)
	}
}

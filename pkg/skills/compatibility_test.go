package skills

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

func historyRows(required, tech string, productive, total int) []models.HistoricalDispatch {
	rows := make([]models.HistoricalDispatch, 0, total)
	for i := 0; i < total; i++ {
		rows = append(rows, models.HistoricalDispatch{
			DispatchID:       "H",
			RequiredSkill:    required,
			TechPrimarySkill: tech,
			Productive:       i < productive,
		})
	}
	return rows
}

func TestTable_ExactMatchAlwaysOne(t *testing.T) {
	table := NewTable(zerolog.Nop())

	// Even with a poor historical record, exact matches score 1.0.
	table.Train(historyRows("Fiber ONT installation", "Fiber ONT installation", 1, 10))

	assert.Equal(t, 1.0, table.Score("Fiber ONT installation", "Fiber ONT installation"))
	// Unseen skill, exact match still holds by definition.
	assert.Equal(t, 1.0, table.Score("Copper repair", "Copper repair"))
}

func TestTable_SmallSampleGetsPrior(t *testing.T) {
	table := NewTable(zerolog.Nop())
	table.Train(historyRows("A", "B", 2, 2))

	assert.Equal(t, 0.3, table.Score("A", "B"))
}

func TestTable_LearnedScoreScalesWithRate(t *testing.T) {
	table := NewTable(zerolog.Nop())

	var history []models.HistoricalDispatch
	// Exact-match baseline of 0.8.
	history = append(history, historyRows("A", "A", 8, 10)...)
	// Strong cross pair: rate 0.8 equals the baseline.
	history = append(history, historyRows("A", "B", 8, 10)...)
	// Weak cross pair: rate 0.2.
	history = append(history, historyRows("A", "C", 2, 10)...)
	table.Train(history)

	strong := table.Score("A", "B")
	weak := table.Score("A", "C")

	// clip(0.3 + 0.7*0.8/0.8) = 1.0 -> clipped at 0.95
	assert.InDelta(t, 0.95, strong, 1e-9)
	// clip(0.3 + 0.7*0.25) = 0.475
	assert.InDelta(t, 0.475, weak, 1e-9)
	assert.Greater(t, strong, weak)
}

func TestTable_MonotoneInSuccessRate(t *testing.T) {
	table := NewTable(zerolog.Nop())

	var history []models.HistoricalDispatch
	history = append(history, historyRows("A", "A", 5, 10)...)
	history = append(history, historyRows("A", "B", 9, 10)...)
	history = append(history, historyRows("A", "C", 4, 10)...)
	table.Train(history)

	assert.GreaterOrEqual(t, table.Score("A", "B"), table.Score("A", "C"))
	// A well-sampled pair with a higher rate never scores below the
	// small-sample prior of a sibling pair.
	assert.GreaterOrEqual(t, table.Score("A", "B"), 0.3)
}

func TestTable_ReversedLookup(t *testing.T) {
	table := NewTable(zerolog.Nop())
	table.Train(historyRows("A", "B", 9, 10))

	// Only (A,B) was learned with enough samples; (B,A) should find it.
	assert.Equal(t, table.Score("A", "B"), table.Score("B", "A"))
}

func TestTable_UnknownPairFallback(t *testing.T) {
	table := NewTable(zerolog.Nop())

	var history []models.HistoricalDispatch
	history = append(history, historyRows("A", "A", 8, 10)...)
	history = append(history, historyRows("A", "B", 8, 10)...)
	table.Train(history)

	score := table.Score("X", "Y")
	assert.GreaterOrEqual(t, score, 0.2)
	assert.LessOrEqual(t, score, 0.6)
}

func TestTable_MissingInputs(t *testing.T) {
	table := NewTable(zerolog.Nop())
	table.Train(nil)

	assert.Equal(t, 0.3, table.Score("", "B"))
	assert.Equal(t, 0.3, table.Score("A", ""))
}

func TestTable_BaselineDefaultsWithoutExactMatches(t *testing.T) {
	table := NewTable(zerolog.Nop())
	table.Train(historyRows("A", "B", 5, 10))

	require.True(t, table.Trained())
	assert.Equal(t, 0.5, table.Baseline())
	// rate 0.5 against baseline 0.5: clip(0.3 + 0.7) = 0.95 (clipped)
	assert.InDelta(t, 0.95, table.Score("A", "B"), 1e-9)
}

func TestTable_ScoreRange(t *testing.T) {
	table := NewTable(zerolog.Nop())

	var history []models.HistoricalDispatch
	history = append(history, historyRows("A", "A", 1, 10)...)
	history = append(history, historyRows("A", "B", 10, 10)...)
	history = append(history, historyRows("A", "C", 0, 10)...)
	table.Train(history)

	for _, pair := range [][2]string{{"A", "A"}, {"A", "B"}, {"A", "C"}, {"Z", "Q"}} {
		score := table.Score(pair[0], pair[1])
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

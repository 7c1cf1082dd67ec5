package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade_Perfect(t *testing.T) {
	answers := map[string]string{"q1": "b", "q2": "b", "q3": "b", "q4": "b", "q5": "b", "q6": "b"}
	res := DefaultKey().Grade(answers)
	assert.Equal(t, Result{Correct: 6, Total: 6}, res)
	assert.Equal(t, "Score: 6/6 — Perfect! 🏆", res.String())
}

func TestGrade_AllWrong(t *testing.T) {
	answers := map[string]string{"q1": "a", "q2": "c", "q3": "a", "q4": "d", "q5": "a", "q6": "c"}
	assert.Equal(t, "Score: 0/6 — Give it another go.", DefaultKey().Grade(answers).String())
}

func TestGrade_Tiers(t *testing.T) {
	tests := []struct {
		correct int
		want    string
	}{
		{6, TierPerfect},
		{5, TierNice},
		{4, TierNice},
		{3, TierRetry},
		{0, TierRetry},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Result{Correct: tt.correct, Total: 6}.Tier(), "%d correct", tt.correct)
	}
}

func TestGrade_MissingAndExtra(t *testing.T) {
	res := DefaultKey().Grade(map[string]string{"q1": "b", "q2": "B", "q9": "b"})
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 6, res.Total)
}

func TestQuestions_Sorted(t *testing.T) {
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5", "q6"}, DefaultKey().Questions())
}

func TestParseAnswers(t *testing.T) {
	got, err := ParseAnswers("q1=b, q2=a,,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q1": "b", "q2": "a"}, got)

	_, err = ParseAnswers("q1")
	assert.Error(t, err)
}

func TestDefaultQuestions_MatchKey(t *testing.T) {
	key := DefaultKey()
	qs := DefaultQuestions()
	require.Len(t, qs, len(key))
	for i, q := range qs {
		assert.Equal(t, key.Questions()[i], q.ID)
		assert.Len(t, q.Choices, 4, q.ID)
		assert.NotEmpty(t, q.Prompt, q.ID)
	}
	assert.Equal(t, "a", Letter(0))
	assert.Equal(t, "d", Letter(3))
}

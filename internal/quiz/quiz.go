// Package quiz grades the multiple-choice ripeness quiz.
package quiz

import (
	"fmt"
	"sort"
	"strings"
)

// Tier messages.
const (
	TierPerfect = "Perfect! 🏆"
	TierNice    = "Nice!"
	TierRetry   = "Give it another go."
)

// niceScore is the minimum correct count for TierNice.
const niceScore = 4

// AnswerKey maps question IDs to the correct choice.
type AnswerKey map[string]string

// DefaultKey returns the key for the six-question quiz.
func DefaultKey() AnswerKey {
	return AnswerKey{
		"q1": "b",
		"q2": "b",
		"q3": "b",
		"q4": "b",
		"q5": "b",
		"q6": "b",
	}
}

// Question is one multiple-choice question. Choices are lettered a, b, c, ...
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
}

// Letter returns the answer letter for choice index i.
func Letter(i int) string { return string(rune('a' + i)) }

// DefaultQuestions returns the six questions graded by DefaultKey.
func DefaultQuestions() []Question {
	return []Question{
		{"q1", "Which mean hue range does the heuristic call ripe yellow?",
			[]string{"Below 25°", "25° to 75°", "Above 75°", "Any hue"}},
		{"q2", "Why are very dark and very bright pixels left out of the averages?",
			[]string{"They are slow to read", "Shadows and glare carry no reliable hue", "They are always background", "The decoder drops them"}},
		{"q3", "What does the trainable model learn from?",
			[]string{"The file name", "Color histograms of labeled images", "The image size", "The heuristic label"}},
		{"q4", "How many labeled samples are needed before training?",
			[]string{"One", "At least six", "Exactly three", "None"}},
		{"q5", "What does the confidence percentage mean?",
			[]string{"Accuracy over all bananas", "The model's probability for its top class", "The mean hue", "The number of samples"}},
		{"q6", "Where are your labeled samples kept?",
			[]string{"On a server forever", "Only for this session", "In a cookie", "Inside the image file"}},
	}
}

// Questions returns the question IDs in order.
func (k AnswerKey) Questions() []string {
	ids := make([]string, 0, len(k))
	for id := range k {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Result is a graded submission.
type Result struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Grade counts answers matching the key exactly. Unanswered and unknown
// questions score nothing.
func (k AnswerKey) Grade(answers map[string]string) Result {
	res := Result{Total: len(k)}
	for id, want := range k {
		if got, ok := answers[id]; ok && got == want {
			res.Correct++
		}
	}
	return res
}

// Tier returns the encouragement message for the score.
func (r Result) Tier() string {
	switch {
	case r.Total > 0 && r.Correct == r.Total:
		return TierPerfect
	case r.Correct >= niceScore:
		return TierNice
	default:
		return TierRetry
	}
}

func (r Result) String() string {
	return fmt.Sprintf("Score: %d/%d — %s", r.Correct, r.Total, r.Tier())
}

// ParseAnswers parses "q1=b,q2=a" style pairs.
func ParseAnswers(s string) (map[string]string, error) {
	answers := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, choice, ok := strings.Cut(pair, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid answer %q, want question=choice", pair)
		}
		answers[strings.TrimSpace(id)] = strings.TrimSpace(choice)
	}
	return answers, nil
}

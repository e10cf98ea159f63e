package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func question(id string, typ model.QuestionType, answer string, points int, options ...string) model.Question {
	q := model.Question{Type: typ, CorrectAnswer: answer, Points: points, Options: options}
	q.ID = id
	q.Text = "题目 " + id
	return q
}

func TestDecodeAnswerKey(t *testing.T) {
	tests := []struct {
		name    string
		q       model.Question
		want    AnswerKey
		wantErr bool
	}{
		{"multiple choice", question("1", model.MultipleChoice, "2", 1, "A", "B", "C"), MultipleChoiceKey{Options: []string{"A", "B", "C"}, Index: 2}, false},
		{"index out of range", question("2", model.MultipleChoice, "3", 1, "A", "B", "C"), nil, true},
		{"negative index", question("3", model.MultipleChoice, "-1", 1, "A"), nil, true},
		{"no options", question("4", model.MultipleChoice, "0", 1), nil, true},
		{"not a number", question("5", model.MultipleChoice, "B", 1, "A", "B"), nil, true},
		{"true", question("6", model.TrueFalse, "true", 1), TrueFalseKey{Value: true}, false},
		{"false", question("7", model.TrueFalse, "false", 1), TrueFalseKey{Value: false}, false},
		{"capitalised boolean", question("8", model.TrueFalse, "True", 1), nil, true},
		{"short answer", question("9", model.ShortAnswer, "Paris", 1), ShortAnswerKey{Text: "Paris"}, false},
		{"empty short answer", question("10", model.ShortAnswer, "", 1), nil, true},
		{"unknown type", question("11", model.QuestionType("essay"), "x", 1), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DecodeAnswerKey(&tt.q)
			if tt.wantErr {
				assert.ErrorIs(t, err, util.ErrInvalidAnswerKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
			assert.Equal(t, tt.q.CorrectAnswer, EncodeAnswerKey(key))
		})
	}
}

func TestGradeSubmission(t *testing.T) {
	questions := []model.Question{
		question("mc", model.MultipleChoice, "1", 2, "北京", "上海"),
		question("tf", model.TrueFalse, "true", 1),
		question("sa", model.ShortAnswer, "42", 3),
	}

	t.Run("all correct", func(t *testing.T) {
		out := GradeSubmission(questions, map[string]string{"mc": " 上海 ", "tf": "true", "sa": "42 "})
		assert.Equal(t, 6, out.Score)
		assert.Equal(t, 6, out.TotalPoints)
		assert.Equal(t, 100.0, out.Percentage)
		require.Len(t, out.Evaluations, 3)
		assert.Equal(t, "上海", out.Evaluations[0].CorrectAnswer)
	})

	t.Run("true false is exact", func(t *testing.T) {
		out := GradeSubmission(questions, map[string]string{"tf": "True"})
		assert.False(t, out.Evaluations[1].IsCorrect)
		out = GradeSubmission(questions, map[string]string{"tf": " true"})
		assert.False(t, out.Evaluations[1].IsCorrect)
	})

	t.Run("multiple choice trims but keeps case", func(t *testing.T) {
		abc := []model.Question{question("abc", model.MultipleChoice, "1", 1, "a", "b", "c")}
		for answer, want := range map[string]bool{"b": true, " b ": true, "B": false, "a": false} {
			out := GradeSubmission(abc, map[string]string{"abc": answer})
			assert.Equal(t, want, out.Evaluations[0].IsCorrect, "answer %q", answer)
		}
	})

	t.Run("multiple choice compares option text", func(t *testing.T) {
		out := GradeSubmission(questions, map[string]string{"mc": "1"})
		assert.False(t, out.Evaluations[0].IsCorrect)
	})

	t.Run("missing answers score zero", func(t *testing.T) {
		out := GradeSubmission(questions, nil)
		assert.Equal(t, 0, out.Score)
		assert.Equal(t, 6, out.TotalPoints)
		assert.Equal(t, 0.0, out.Percentage)
	})

	t.Run("partial", func(t *testing.T) {
		out := GradeSubmission(questions, map[string]string{"sa": "42"})
		assert.Equal(t, 3, out.Score)
		assert.InDelta(t, 50.0, out.Percentage, 0.001)
		assert.Equal(t, 3, out.Evaluations[2].PointsEarned)
	})

	t.Run("invalid key is graded incorrect", func(t *testing.T) {
		broken := []model.Question{question("x", model.MultipleChoice, "9", 4, "A")}
		out := GradeSubmission(broken, map[string]string{"x": "A"})
		assert.False(t, out.Evaluations[0].IsCorrect)
		assert.Equal(t, 4, out.TotalPoints)
	})

	t.Run("no points", func(t *testing.T) {
		out := GradeSubmission([]model.Question{question("z", model.ShortAnswer, "a", 0)}, map[string]string{"z": "a"})
		assert.Equal(t, 0.0, out.Percentage)
	})
}

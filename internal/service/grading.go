package service

import (
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"strconv"
	"strings"
)

// AnswerKey 按题型区分的标准答案
type AnswerKey interface {
	Type() model.QuestionType
	// Matches 判断提交的原始答案是否正确
	Matches(submitted string) bool
	// Display 返回展示给学生的标准答案文本
	Display() string
}

// MultipleChoiceKey 选择题按下标存储，评分时解析为选项原文
type MultipleChoiceKey struct {
	Options []string
	Index   int
}

func (k MultipleChoiceKey) Type() model.QuestionType { return model.MultipleChoice }

func (k MultipleChoiceKey) Matches(submitted string) bool {
	return strings.TrimSpace(submitted) == k.Options[k.Index]
}

func (k MultipleChoiceKey) Display() string { return k.Options[k.Index] }

type TrueFalseKey struct {
	Value bool
}

func (k TrueFalseKey) Type() model.QuestionType { return model.TrueFalse }

// Matches 区分大小写，不做 trim
func (k TrueFalseKey) Matches(submitted string) bool {
	return submitted == k.Display()
}

func (k TrueFalseKey) Display() string { return strconv.FormatBool(k.Value) }

type ShortAnswerKey struct {
	Text string
}

func (k ShortAnswerKey) Type() model.QuestionType { return model.ShortAnswer }

func (k ShortAnswerKey) Matches(submitted string) bool {
	return strings.TrimSpace(submitted) == k.Text
}

func (k ShortAnswerKey) Display() string { return k.Text }

// DecodeAnswerKey 从题目的存储字段还原标准答案
func DecodeAnswerKey(q *model.Question) (AnswerKey, error) {
	switch q.Type {
	case model.MultipleChoice:
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("%w: multiple choice question has no options", util.ErrInvalidAnswerKey)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(q.CorrectAnswer))
		if err != nil || idx < 0 || idx >= len(q.Options) {
			return nil, fmt.Errorf("%w: option index %q out of range", util.ErrInvalidAnswerKey, q.CorrectAnswer)
		}
		return MultipleChoiceKey{Options: q.Options, Index: idx}, nil
	case model.TrueFalse:
		switch q.CorrectAnswer {
		case "true":
			return TrueFalseKey{Value: true}, nil
		case "false":
			return TrueFalseKey{Value: false}, nil
		}
		return nil, fmt.Errorf("%w: true/false answer must be \"true\" or \"false\"", util.ErrInvalidAnswerKey)
	case model.ShortAnswer:
		if q.CorrectAnswer == "" {
			return nil, fmt.Errorf("%w: short answer is empty", util.ErrInvalidAnswerKey)
		}
		return ShortAnswerKey{Text: q.CorrectAnswer}, nil
	}
	return nil, fmt.Errorf("%w: unknown question type %q", util.ErrInvalidAnswerKey, q.Type)
}

// EncodeAnswerKey 把标准答案写回题目的存储字段
func EncodeAnswerKey(key AnswerKey) string {
	if mc, ok := key.(MultipleChoiceKey); ok {
		return strconv.Itoa(mc.Index)
	}
	return key.Display()
}

// GradeOutcome 一次提交的评分结果
type GradeOutcome struct {
	Evaluations []model.QuestionEvaluation `json:"evaluations"`
	Score       int                        `json:"score"`
	TotalPoints int                        `json:"totalPoints"`
	Percentage  float64                    `json:"percentage"`
}

// GradeSubmission 逐题比对答案，答对得满分，否则 0 分。
// 标准答案无法解析的题目按答错处理，但仍计入总分。
func GradeSubmission(questions []model.Question, answers map[string]string) GradeOutcome {
	outcome := GradeOutcome{Evaluations: make([]model.QuestionEvaluation, 0, len(questions))}

	for i := range questions {
		q := &questions[i]
		submitted := answers[q.ID]
		eval := model.QuestionEvaluation{
			QuestionID:      q.ID,
			QuestionText:    q.Text,
			Type:            q.Type,
			SubmittedAnswer: submitted,
			Points:          q.Points,
		}

		if key, err := DecodeAnswerKey(q); err == nil {
			eval.CorrectAnswer = key.Display()
			eval.IsCorrect = key.Matches(submitted)
		}
		if eval.IsCorrect {
			eval.PointsEarned = q.Points
		}

		outcome.Score += eval.PointsEarned
		outcome.TotalPoints += q.Points
		outcome.Evaluations = append(outcome.Evaluations, eval)
	}

	if outcome.TotalPoints > 0 {
		outcome.Percentage = float64(outcome.Score) / float64(outcome.TotalPoints) * 100
	}
	return outcome
}

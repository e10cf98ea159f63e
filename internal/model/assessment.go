package model

import (
	"gorm.io/datatypes"
)

type ContentType string

const (
	ContentChapter  ContentType = "chapter"
	ContentQuiz     ContentType = "quiz"
	ContentHomework ContentType = "homework"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// swagger:model Quiz
type Quiz struct {
	ContentBase
	TimeLimit   int `gorm:"default:0" json:"timeLimit"` // 分钟，0 表示不限时
	MaxAttempts int `gorm:"default:0" json:"maxAttempts"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model Homework
type Homework struct {
	ContentBase
	MaxAttempts int `gorm:"default:0" json:"maxAttempts"`
}

func (Homework) TableName() string {
	return "homeworks"
}

// Question 测验与作业共用的题目表，ParentType 区分归属。
// CorrectAnswer 的含义取决于 Type：选择题为选项下标，判断题为 "true"/"false"，简答题为原文。
type Question struct {
	UUIDBase
	ParentType    ContentType                 `gorm:"size:20;index:idx_question_parent;not null" json:"parentType"`
	ParentID      string                      `gorm:"type:varchar(36);index:idx_question_parent;not null" json:"parentId"`
	Type          QuestionType                `gorm:"size:30;not null" json:"type"`
	Text          string                      `gorm:"type:text;not null" json:"text"`
	ImageURL      string                      `gorm:"size:512" json:"imageUrl,omitempty"`
	Options       datatypes.JSONSlice[string] `json:"options,omitempty"`
	CorrectAnswer string                      `gorm:"type:text" json:"correctAnswer"`
	Points        int                         `gorm:"not null" json:"points"`
	Position      int                         `gorm:"default:0" json:"position"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionEvaluation 单题评分结果，作为成绩快照的一部分存储
type QuestionEvaluation struct {
	QuestionID      string       `json:"questionId"`
	QuestionText    string       `json:"questionText"`
	Type            QuestionType `json:"type"`
	SubmittedAnswer string       `json:"submittedAnswer"`
	CorrectAnswer   string       `json:"correctAnswer"`
	IsCorrect       bool         `json:"isCorrect"`
	Points          int          `json:"points"`
	PointsEarned    int          `json:"pointsEarned"`
}

// ResultBase 一次已提交作答的不可变快照
type ResultBase struct {
	UUIDBase
	UserID      uint                                    `gorm:"index;not null" json:"userId"`
	CourseID    string                                  `gorm:"index;type:varchar(36);not null" json:"courseId"`
	Score       int                                     `gorm:"not null" json:"score"`
	TotalPoints int                                     `gorm:"not null" json:"totalPoints"`
	Percentage  float64                                 `gorm:"not null" json:"percentage"`
	Attempt     int                                     `gorm:"default:1" json:"attempt"`
	Evaluations datatypes.JSONSlice[QuestionEvaluation] `json:"evaluations"`
}

type QuizResult struct {
	ResultBase
	QuizID string `gorm:"index;type:varchar(36);not null" json:"quizId"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}

type HomeworkResult struct {
	ResultBase
	HomeworkID string `gorm:"index;type:varchar(36);not null" json:"homeworkId"`
}

func (HomeworkResult) TableName() string {
	return "homework_results"
}

// AllModels 供自动迁移与测试建表使用
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&BalanceTransaction{},
		&Course{},
		&Purchase{},
		&Chapter{},
		&Attachment{},
		&UserProgress{},
		&ChapterView{},
		&Quiz{},
		&Homework{},
		&Question{},
		&QuizResult{},
		&HomeworkResult{},
	}
}

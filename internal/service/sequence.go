package service

import (
	"lms_backend/internal/model"
	"sort"
)

// SequenceItem 课程内容序列中的一项
type SequenceItem struct {
	ID          string            `json:"id"`
	Type        model.ContentType `json:"type"`
	Position    int               `json:"position"`
	Title       string            `json:"title"`
	IsPublished bool              `json:"isPublished"`
}

// Sequence 按 position 排好序的混合内容列表
type Sequence []SequenceItem

var typeOrder = map[model.ContentType]int{
	model.ContentChapter:  0,
	model.ContentQuiz:     1,
	model.ContentHomework: 2,
}

func itemOf(base model.ContentBase, t model.ContentType) SequenceItem {
	return SequenceItem{
		ID:          base.ID,
		Type:        t,
		Position:    base.Position,
		Title:       base.Title,
		IsPublished: base.IsPublished,
	}
}

// BuildSequence 合并章节、测验、作业并按 position 排序，
// position 相同时依次按类型、ID 排序以保证结果稳定
func BuildSequence(chapters []model.Chapter, quizzes []model.Quiz, homeworks []model.Homework) Sequence {
	seq := make(Sequence, 0, len(chapters)+len(quizzes)+len(homeworks))
	for i := range chapters {
		seq = append(seq, itemOf(chapters[i].ContentBase, model.ContentChapter))
	}
	for i := range quizzes {
		seq = append(seq, itemOf(quizzes[i].ContentBase, model.ContentQuiz))
	}
	for i := range homeworks {
		seq = append(seq, itemOf(homeworks[i].ContentBase, model.ContentHomework))
	}

	sort.Slice(seq, func(i, j int) bool {
		a, b := seq[i], seq[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.Type != b.Type {
			return typeOrder[a.Type] < typeOrder[b.Type]
		}
		return a.ID < b.ID
	})
	return seq
}

func (s Sequence) IndexOf(t model.ContentType, id string) int {
	for i, item := range s {
		if item.Type == t && item.ID == id {
			return i
		}
	}
	return -1
}

// Neighbors 返回当前项的前一项和后一项，首尾处为 nil。
// 当前项不在序列中时两者都为 nil。
func (s Sequence) Neighbors(t model.ContentType, id string) (prev, next *SequenceItem) {
	idx := s.IndexOf(t, id)
	if idx < 0 {
		return nil, nil
	}
	if idx > 0 {
		p := s[idx-1]
		prev = &p
	}
	if idx < len(s)-1 {
		n := s[idx+1]
		next = &n
	}
	return prev, next
}

// Navigation 内容详情页附带的前后导航信息
type Navigation struct {
	PreviousID   *string            `json:"previousChapterId"`
	PreviousType *model.ContentType `json:"previousContentType"`
	NextID       *string            `json:"nextChapterId"`
	NextType     *model.ContentType `json:"nextContentType"`
}

func (s Sequence) Navigation(t model.ContentType, id string) Navigation {
	var nav Navigation
	prev, next := s.Neighbors(t, id)
	if prev != nil {
		nav.PreviousID = &prev.ID
		nav.PreviousType = &prev.Type
	}
	if next != nil {
		nav.NextID = &next.ID
		nav.NextType = &next.Type
	}
	return nav
}

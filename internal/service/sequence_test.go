package service

import (
	"lms_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func content(id string, position int) model.ContentBase {
	b := model.ContentBase{Position: position, Title: id, IsPublished: true}
	b.ID = id
	return b
}

func TestBuildSequenceOrdering(t *testing.T) {
	seq := BuildSequence(
		[]model.Chapter{{ContentBase: content("c2", 3)}, {ContentBase: content("c1", 1)}},
		[]model.Quiz{{ContentBase: content("q1", 2)}, {ContentBase: content("q2", 3)}},
		[]model.Homework{{ContentBase: content("h1", 3)}, {ContentBase: content("h0", 0)}},
	)

	var got []string
	for _, item := range seq {
		got = append(got, item.ID)
	}
	assert.Equal(t, []string{"h0", "c1", "q1", "c2", "q2", "h1"}, got)
}

func TestSequenceNavigation(t *testing.T) {
	seq := BuildSequence(
		[]model.Chapter{{ContentBase: content("c1", 1)}, {ContentBase: content("c2", 3)}},
		[]model.Quiz{{ContentBase: content("q1", 2)}},
		nil,
	)

	nav := seq.Navigation(model.ContentChapter, "c1")
	assert.Nil(t, nav.PreviousID)
	require.NotNil(t, nav.NextID)
	assert.Equal(t, "q1", *nav.NextID)
	assert.Equal(t, model.ContentQuiz, *nav.NextType)

	nav = seq.Navigation(model.ContentQuiz, "q1")
	assert.Equal(t, "c1", *nav.PreviousID)
	assert.Equal(t, "c2", *nav.NextID)

	nav = seq.Navigation(model.ContentChapter, "c2")
	assert.Equal(t, "q1", *nav.PreviousID)
	assert.Nil(t, nav.NextID)

	// 同一 ID 但类型不同视为不在序列中
	nav = seq.Navigation(model.ContentHomework, "c1")
	assert.Nil(t, nav.PreviousID)
	assert.Nil(t, nav.NextID)
}

func TestSequenceSingleItem(t *testing.T) {
	seq := BuildSequence([]model.Chapter{{ContentBase: content("only", 1)}}, nil, nil)
	prev, next := seq.Neighbors(model.ContentChapter, "only")
	assert.Nil(t, prev)
	assert.Nil(t, next)
	assert.Equal(t, -1, seq.IndexOf(model.ContentChapter, "missing"))
}

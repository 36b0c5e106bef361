package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodesAreUnique(t *testing.T) {
	for _, c := range []Category{Activity, Respiratory} {
		seen := make(map[int]bool)
		for _, cl := range c.Classes {
			assert.False(t, seen[cl.Code], "%s: duplicate code %d", c.Type, cl.Code)
			seen[cl.Code] = true
		}
		assert.Equal(t, UndefinedCode, c.Undefined().Code)
	}
}

func TestFind(t *testing.T) {
	assert.Equal(t, "Walking", Activity.Find(3).Label)
	assert.Equal(t, "SITTING_STANDING", Activity.Find(10).Name)
	assert.True(t, Activity.Find(42).IsUndefined())
	assert.Equal(t, "Social Signals", Respiratory.Find(3).Label)
	assert.True(t, Respiratory.Find(4).IsUndefined())
}

func TestParse(t *testing.T) {
	cl, err := Activity.Parse(" 4")
	require.NoError(t, err)
	assert.Equal(t, Running, cl)

	cl, err = Respiratory.Parse("-1")
	require.NoError(t, err)
	assert.True(t, cl.IsUndefined())

	_, err = Activity.Parse("walking")
	assert.Error(t, err)
}

func TestDefinedAndLabels(t *testing.T) {
	assert.Len(t, Activity.Defined(), 11)
	assert.Len(t, Respiratory.Defined(), 4)
	assert.Equal(t, "Undefined", Respiratory.Labels()[0])
}

func TestIsDynamic(t *testing.T) {
	for _, cl := range []Class{Ascending, Descending, Walking, Running, Shuffle, Misc} {
		assert.True(t, IsDynamic(cl), cl.Name)
	}
	for _, cl := range []Class{LyingBack, LyingLeft, LyingRight, LyingStomach, SittingStanding, Activity.Undefined()} {
		assert.False(t, IsDynamic(cl), cl.Name)
	}
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, -1, ArgMax(nil))
	assert.Equal(t, 0, ArgMax([]float64{0.9, 0.05, 0.05}))
	assert.Equal(t, 2, ArgMax([]float64{-3, -2, -1}))
	assert.Equal(t, 1, ArgMax([]float64{0, 0.5, 0.5}))
}

func TestDecodeActivity(t *testing.T) {
	assert.Equal(t, Ascending, DecodeActivity([]float64{0.9, 0.05, 0.01, 0.01, 0.02, 0.01}, false))
	assert.Equal(t, SittingStanding, DecodeActivity([]float64{0.1, 0.1, 0.1, 0.1, 0.6}, true))
	assert.Equal(t, LyingBack, DecodeActivity([]float64{1, 0, 0, 0, 0}, true))
	assert.True(t, DecodeActivity(nil, true).IsUndefined())
	assert.True(t, DecodeActivity(nil, false).IsUndefined())
}

func TestDecodeActivity_BranchRanges(t *testing.T) {
	for i := 0; i < DynamicClassCount; i++ {
		scores := make([]float64, DynamicClassCount)
		scores[i] = 1
		assert.Less(t, DecodeActivity(scores, false).Code, DynamicClassCount)
	}
	for i := 0; i < 5; i++ {
		scores := make([]float64, 5)
		scores[i] = 1
		assert.GreaterOrEqual(t, DecodeActivity(scores, true).Code, DynamicClassCount)
	}
}

func TestDecodeRespiratory(t *testing.T) {
	cases := []struct {
		idx  int
		want Class
	}{
		{0, Coughing},
		{1, Coughing},
		{2, Hyperventilating},
		{5, BreathingNormal},
		{7, SocialSignal},
	}
	for _, tc := range cases {
		scores := make([]float64, 8)
		scores[tc.idx] = 1
		assert.Equal(t, tc.want, DecodeRespiratory(scores), "argmax %d", tc.idx)
	}

	wide := make([]float64, 10)
	wide[9] = 1
	assert.True(t, DecodeRespiratory(wide).IsUndefined())
	assert.True(t, DecodeRespiratory(nil).IsUndefined())
}

func TestByType(t *testing.T) {
	c, ok := ByType("respiratory")
	require.True(t, ok)
	assert.Equal(t, Respiratory.Type, c.Type)
	_, ok = ByType("gps")
	assert.False(t, ok)
}

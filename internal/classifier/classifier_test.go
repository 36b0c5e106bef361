package classifier

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/activity_monitor/internal/features"
)

type fixedBackend struct {
	out  []float64
	err  error
	seen [][]float64
}

func (b *fixedBackend) Scores(input [][]float64) ([]float64, error) {
	b.seen = input
	return b.out, b.err
}

func identityProfile(t *testing.T, width int) features.Profile {
	t.Helper()
	mean := make([]float64, width)
	std := make([]float64, width)
	for i := range std {
		std[i] = 1
	}
	p, err := features.NewProfile(mean, std)
	require.NoError(t, err)
	return p
}

func rows(h, w int, v float64) [][]float64 {
	out := make([][]float64, h)
	for i := range out {
		out[i] = make([]float64, w)
		for j := range out[i] {
			out[i][j] = v
		}
	}
	return out
}

func TestNewModel_ProfileWidthMismatch(t *testing.T) {
	_, err := NewModel("m", &fixedBackend{}, identityProfile(t, 3), 50, 6, 2)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewModel("m", nil, identityProfile(t, 6), 50, 6, 2)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewModel("m", &fixedBackend{}, identityProfile(t, 6), 0, 6, 2)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestModel_CropsAndNormalizes(t *testing.T) {
	mean := []float64{1, 1, 1}
	std := []float64{2, 2, 2}
	p, err := features.NewProfile(mean, std)
	require.NoError(t, err)

	b := &fixedBackend{out: []float64{0.1, 0.2, 0.3, 0.4}}
	m, err := NewModel("resp", b, p, 50, 3, 4)
	require.NoError(t, err)

	scores, err := m.Classify(rows(51, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, scores)

	require.Len(t, b.seen, 50)
	for _, r := range b.seen {
		assert.Equal(t, []float64{2, 2, 2}, r)
	}
}

func TestModel_OutputWidthMismatch(t *testing.T) {
	b := &fixedBackend{out: []float64{1, 2, 3}}
	m, err := NewModel("meta", b, identityProfile(t, 6), 50, 6, 2)
	require.NoError(t, err)

	_, err = m.Classify(rows(51, 6, 0))
	assert.ErrorIs(t, err, ErrIntegration)
}

func TestModel_BackendErrorIsIntegration(t *testing.T) {
	b := &fixedBackend{err: errors.New("boom")}
	m, err := NewModel("meta", b, identityProfile(t, 6), 50, 6, 2)
	require.NoError(t, err)

	_, err = m.Classify(rows(51, 6, 0))
	assert.ErrorIs(t, err, ErrIntegration)
}

func TestModel_ShortInput(t *testing.T) {
	m, err := NewModel("meta", &fixedBackend{out: []float64{1, 2}}, identityProfile(t, 6), 50, 6, 2)
	require.NoError(t, err)

	_, err = m.Classify(rows(10, 6, 0))
	assert.ErrorIs(t, err, ErrIntegration)

	_, err = m.Classify(rows(51, 3, 0))
	assert.ErrorIs(t, err, ErrIntegration)
}

func TestModel_Fits(t *testing.T) {
	m, err := NewModel("static", &fixedBackend{}, identityProfile(t, 3), 50, 3, 5)
	require.NoError(t, err)
	h, w := m.Input()
	assert.Equal(t, 50, h)
	assert.Equal(t, 3, w)

	assert.NoError(t, m.Fits(51, 6, 5))
	assert.NoError(t, m.Fits(50, 3, 5))
	assert.ErrorIs(t, m.Fits(49, 6, 5), ErrConfiguration)
	assert.ErrorIs(t, m.Fits(51, 2, 5), ErrConfiguration)
	assert.ErrorIs(t, m.Fits(51, 6, 6), ErrConfiguration)

	var _ Shaped = m
}

func TestDense_Scores(t *testing.T) {
	d, err := NewDense([][]float64{
		{1, 0, 0, 0},
		{0, 1, 1, 0},
		{1, 1, 1, 1},
	}, []float64{0, 0.5, -1})
	require.NoError(t, err)
	assert.Equal(t, 4, d.Inputs())

	out, err := d.Scores([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 5.5, 9}, out, 1e-12)

	_, err = d.Scores([][]float64{{1, 2, 3}})
	assert.Error(t, err)
}

func TestNewDense_Invalid(t *testing.T) {
	_, err := NewDense(nil, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewDense([][]float64{{1, 2}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewDense([][]float64{{1, 2}, {1}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func writeArtifact(t *testing.T, a Artifact) string {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadModel(t *testing.T) {
	path := writeArtifact(t, Artifact{
		Name:        "meta",
		InputHeight: 2,
		InputWidth:  2,
		Outputs:     2,
		Mean:        []float64{0, 0},
		Std:         []float64{1, 1},
		Weights:     [][]float64{{1, 0, 0, 0}, {0, 0, 0, 1}},
		Bias:        []float64{0, 0},
	})

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "meta", m.Name())
	assert.Equal(t, 2, m.Outputs())

	scores, err := m.Classify([][]float64{{3, 9, 9}, {9, 7, 9}, {0, 0, 0}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 7}, scores, 1e-12)
}

func TestLoadModel_Errors(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrConfiguration)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = LoadModel(bad)
	assert.ErrorIs(t, err, ErrConfiguration)

	shape := writeArtifact(t, Artifact{
		InputHeight: 2,
		InputWidth:  2,
		Outputs:     1,
		Mean:        []float64{0, 0},
		Std:         []float64{1, 1},
		Weights:     [][]float64{{1, 2, 3}},
		Bias:        []float64{0},
	})
	_, err = LoadModel(shape)
	assert.ErrorIs(t, err, ErrConfiguration)

	outputs := writeArtifact(t, Artifact{
		InputHeight: 1,
		InputWidth:  2,
		Outputs:     3,
		Mean:        []float64{0, 0},
		Std:         []float64{1, 1},
		Weights:     [][]float64{{1, 2}},
		Bias:        []float64{0},
	})
	_, err = LoadModel(outputs)
	assert.ErrorIs(t, err, ErrConfiguration)

	profile := writeArtifact(t, Artifact{
		InputHeight: 1,
		InputWidth:  2,
		Outputs:     1,
		Mean:        []float64{0},
		Std:         []float64{1},
		Weights:     [][]float64{{1, 2}},
		Bias:        []float64{0},
	})
	_, err = LoadModel(profile)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestStub(t *testing.T) {
	s := NewStub(0.3, 0.7)
	out, err := s.Classify(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.7}, out)

	out[0] = 9
	out, _ = s.Classify(nil)
	assert.Equal(t, []float64{0.3, 0.7}, out)
	assert.Equal(t, 2, s.Calls())

	c := &Stub{Scores: [][]float64{{1}, {2}}, Cycle: true}
	first, _ := c.Classify(nil)
	second, _ := c.Classify(nil)
	third, _ := c.Classify(nil)
	assert.Equal(t, []float64{1}, first)
	assert.Equal(t, []float64{2}, second)
	assert.Equal(t, []float64{1}, third)

	e := &Stub{Err: ErrIntegration}
	_, err = e.Classify(nil)
	assert.ErrorIs(t, err, ErrIntegration)
}

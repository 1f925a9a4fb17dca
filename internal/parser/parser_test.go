package parser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"archscan/internal/confidence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStructural struct {
	checks   atomic.Int32
	availErr error
	parseErr error
	result   []Construct
}

func (f *fakeStructural) SelfCheck() error {
	f.checks.Add(1)
	return f.availErr
}

func (f *fakeStructural) Parse(ctx context.Context, src []byte) ([]Construct, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.result, nil
}

var fakePattern = PatternFunc(func(src []byte) []Construct {
	return []Construct{{Kind: KindStruct, Name: "FromPattern"}}
})

func TestEngine_PrefersStructural(t *testing.T) {
	backend := &fakeStructural{result: []Construct{{Kind: KindStruct, Name: "FromTree"}}}
	e := NewEngine("fake", backend, fakePattern)

	assert.Equal(t, Unknown, e.Capability())

	res, err := e.Parse(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, Structural, res.Backend)
	assert.Equal(t, confidence.High, res.Confidence())
	assert.Equal(t, "FromTree", res.Constructs[0].Name)
	assert.Equal(t, Available, e.Capability())
}

func TestEngine_FallbackIsPerFile(t *testing.T) {
	backend := &fakeStructural{parseErr: ErrSyntax}
	e := NewEngine("fake", backend, fakePattern)

	res, err := e.Parse(context.Background(), []byte("broken"))
	require.NoError(t, err)
	assert.Equal(t, Pattern, res.Backend)
	assert.True(t, res.Fallback())
	assert.Equal(t, confidence.Medium, res.Confidence())
	assert.ErrorIs(t, res.FallbackReason, ErrSyntax)
	assert.Equal(t, "FromPattern", res.Constructs[0].Name)

	// The language stays available; the next file tries the tree again.
	backend.parseErr = nil
	backend.result = []Construct{{Kind: KindStruct, Name: "FromTree"}}
	res, err = e.Parse(context.Background(), []byte("fine"))
	require.NoError(t, err)
	assert.Equal(t, Structural, res.Backend)
	assert.Equal(t, int32(1), backend.checks.Load())
}

func TestEngine_StructuralPanicFallsBack(t *testing.T) {
	e := NewEngine("fake", panickyStructural{}, fakePattern)

	res, err := e.Parse(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, Pattern, res.Backend)
	assert.Error(t, res.FallbackReason)
}

type panickyStructural struct{}

func (panickyStructural) SelfCheck() error { return nil }
func (panickyStructural) Parse(context.Context, []byte) ([]Construct, error) {
	panic("grammar exploded")
}

func TestEngine_UnavailableChecksOnce(t *testing.T) {
	backend := &fakeStructural{availErr: errors.New("library missing")}
	e := NewEngine("fake", backend, fakePattern)

	for i := 0; i < 5; i++ {
		res, err := e.Parse(context.Background(), []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, Pattern, res.Backend)
		assert.NoError(t, res.FallbackReason)
	}
	assert.Equal(t, int32(1), backend.checks.Load())
	assert.Equal(t, Unavailable, e.Capability())
	assert.ErrorIs(t, e.UnavailableReason(), ErrStructuralUnavailable)
}

func TestEngine_NilStructuralIsPatternOnly(t *testing.T) {
	e := NewEngine("fake", nil, fakePattern)
	assert.False(t, e.IsAvailable())
	assert.Equal(t, Unavailable, e.Capability())
}

func TestEngine_ConcurrentFirstUseChecksOnce(t *testing.T) {
	backend := &fakeStructural{}
	e := NewEngine("fake", backend, fakePattern)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Parse(context.Background(), []byte("x"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), backend.checks.Load())
}

func TestCache_ConstructsOncePerLanguage(t *testing.T) {
	var built atomic.Int32
	c := NewEmptyCache()
	c.Register("fake", func() *Engine {
		built.Add(1)
		return NewEngine("fake", nil, fakePattern)
	}, "alias")

	var wg sync.WaitGroup
	engines := make([]*Engine, 16)
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lang := "fake"
			if i%2 == 0 {
				lang = "ALIAS"
			}
			e, err := c.Get(lang)
			assert.NoError(t, err)
			engines[i] = e
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	for _, e := range engines {
		assert.Same(t, engines[0], e)
	}

	_, err := c.Get("cobol")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestCache_ClearDiscardsEngines(t *testing.T) {
	c := NewCache()
	first, err := c.Get("go")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())

	second, err := c.Get("golang")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, []string{"go", "javascript", "python"}, c.Languages())
}

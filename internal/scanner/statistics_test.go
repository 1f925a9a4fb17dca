package scanner

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"archscan/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics_ZeroScannedRatesAreZero(t *testing.T) {
	s := NewStatisticsBuilder().Discovered(5).Build()
	assert.Equal(t, 0.0, s.SuccessRate())
	assert.Equal(t, 0.0, s.OverallParseRate())
	assert.Equal(t, 0.0, s.FailureRate())
}

func TestStatistics_Rates(t *testing.T) {
	b := NewStatisticsBuilder().Discovered(100)
	for i := 0; i < 70; i++ {
		b.FileScanned().ParsedSuccessfully()
	}
	for i := 0; i < 20; i++ {
		b.FileScanned().ParsedWithFallback()
	}
	for i := 0; i < 10; i++ {
		b.FileScanned().Failed("io", "boom")
	}
	s := b.Build()

	require.Equal(t, 100, s.FilesScanned)
	assert.InDelta(t, 70.0, s.SuccessRate(), 1e-9)
	assert.InDelta(t, 90.0, s.OverallParseRate(), 1e-9)
	assert.InDelta(t, 10.0, s.FailureRate(), 1e-9)
	assert.Equal(t, "Discovered: 100, Scanned: 100, Success: 70 (70.0%), Fallback: 20, Failed: 10 (10.0%)", s.Summary())
}

func TestStatistics_TopErrorsCapped(t *testing.T) {
	b := NewStatisticsBuilder()
	for i := 0; i < 15; i++ {
		b.AddError(fmt.Sprintf("type-%d", i), fmt.Sprintf("error %d", i))
	}
	s := b.Build()

	assert.Len(t, s.TopErrors, MaxTopErrors)
	assert.Len(t, s.ErrorCounts, 15)
	assert.Equal(t, "error 0", s.TopErrors[0])
}

func TestStatistics_HistogramCountsPastCap(t *testing.T) {
	b := NewStatisticsBuilder()
	for i := 0; i < 25; i++ {
		b.Failed("parse", "bad file")
	}
	s := b.Build()
	assert.Equal(t, 25, s.ErrorCounts["parse"])
	assert.Equal(t, 25, s.FilesFailed)
	assert.Len(t, s.TopErrors, MaxTopErrors)
}

func TestStatistics_SnapshotIsFrozen(t *testing.T) {
	b := NewStatisticsBuilder()
	b.AddError("a", "first")
	s := b.Build()
	b.AddError("a", "second").FileScanned()

	assert.Equal(t, 1, s.ErrorCounts["a"])
	assert.Equal(t, []string{"first"}, s.TopErrors)
	assert.Equal(t, 0, s.FilesScanned)
}

func TestStatistics_RecordParse(t *testing.T) {
	b := NewStatisticsBuilder()
	b.RecordParse(parser.Result{Backend: parser.Structural})
	b.RecordParse(parser.Result{Backend: parser.Pattern})
	b.RecordParse(parser.Result{Backend: parser.Pattern, FallbackReason: errors.New("syntax error at line 3")})
	s := b.Build()

	assert.Equal(t, 1, s.FilesParsedSuccessfully)
	assert.Equal(t, 2, s.FilesParsedWithFallback)
	assert.Equal(t, 1, s.ErrorCounts["structural_parse_error"])
	assert.Equal(t, 0, s.FilesFailed)
}

func TestStatistics_ConcurrentBuilder(t *testing.T) {
	b := NewStatisticsBuilder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.FileScanned().ParsedSuccessfully()
		}()
	}
	wg.Wait()
	s := b.Build()
	assert.Equal(t, 50, s.FilesScanned)
	assert.Equal(t, 100.0, s.SuccessRate())
}

func TestStatistics_Add(t *testing.T) {
	a := Statistics{FilesScanned: 2, FilesParsedSuccessfully: 2, ErrorCounts: map[string]int{"x": 1}, TopErrors: []string{"x"}}
	b := Statistics{FilesScanned: 2, FilesFailed: 2, ErrorCounts: map[string]int{"x": 1, "y": 1}, TopErrors: []string{"x", "y"}}
	sum := a.Add(b)

	assert.Equal(t, 4, sum.FilesScanned)
	assert.Equal(t, 50.0, sum.FailureRate())
	assert.Equal(t, map[string]int{"x": 2, "y": 1}, sum.ErrorCounts)
	assert.Equal(t, 1, a.ErrorCounts["x"])
}

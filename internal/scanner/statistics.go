package scanner

import (
	"fmt"
	"sync"

	"archscan/internal/parser"
)

// MaxTopErrors caps the error message sample kept per scanner.
const MaxTopErrors = 10

// Statistics is a frozen snapshot of a scanner's file counters. Rates are
// derived on demand and are 0 when nothing was scanned.
type Statistics struct {
	FilesDiscovered         int            `json:"files_discovered"`
	FilesScanned            int            `json:"files_scanned"`
	FilesParsedSuccessfully int            `json:"files_parsed_successfully"`
	FilesParsedWithFallback int            `json:"files_parsed_with_fallback"`
	FilesFailed             int            `json:"files_failed"`
	ErrorCounts             map[string]int `json:"error_counts,omitempty"`
	TopErrors               []string       `json:"top_errors,omitempty"`
}

func (s Statistics) rate(n int) float64 {
	if s.FilesScanned == 0 {
		return 0
	}
	return float64(n) * 100.0 / float64(s.FilesScanned)
}

// SuccessRate is the percentage of scanned files parsed by the structural backend.
func (s Statistics) SuccessRate() float64 {
	return s.rate(s.FilesParsedSuccessfully)
}

// OverallParseRate is the percentage of scanned files parsed by either backend.
func (s Statistics) OverallParseRate() float64 {
	return s.rate(s.FilesParsedSuccessfully + s.FilesParsedWithFallback)
}

// FailureRate is the percentage of scanned files that could not be processed.
func (s Statistics) FailureRate() float64 {
	return s.rate(s.FilesFailed)
}

// Summary renders the counters on one line.
func (s Statistics) Summary() string {
	return fmt.Sprintf("Discovered: %d, Scanned: %d, Success: %d (%.1f%%), Fallback: %d, Failed: %d (%.1f%%)",
		s.FilesDiscovered, s.FilesScanned,
		s.FilesParsedSuccessfully, s.SuccessRate(),
		s.FilesParsedWithFallback,
		s.FilesFailed, s.FailureRate())
}

// Add merges other into s and returns the sum. The error sample stays capped.
func (s Statistics) Add(other Statistics) Statistics {
	b := &StatisticsBuilder{s: s.clone()}
	b.s.FilesDiscovered += other.FilesDiscovered
	b.s.FilesScanned += other.FilesScanned
	b.s.FilesParsedSuccessfully += other.FilesParsedSuccessfully
	b.s.FilesParsedWithFallback += other.FilesParsedWithFallback
	b.s.FilesFailed += other.FilesFailed
	for k, v := range other.ErrorCounts {
		if b.s.ErrorCounts == nil {
			b.s.ErrorCounts = map[string]int{}
		}
		b.s.ErrorCounts[k] += v
	}
	for _, msg := range other.TopErrors {
		if len(b.s.TopErrors) < MaxTopErrors {
			b.s.TopErrors = append(b.s.TopErrors, msg)
		}
	}
	return b.s
}

func (s Statistics) clone() Statistics {
	c := s
	if s.ErrorCounts != nil {
		c.ErrorCounts = make(map[string]int, len(s.ErrorCounts))
		for k, v := range s.ErrorCounts {
			c.ErrorCounts[k] = v
		}
	}
	c.TopErrors = append([]string(nil), s.TopErrors...)
	return c
}

// StatisticsBuilder accumulates counters while a scanner works. It is safe
// for concurrent use by scanners that process files in parallel.
type StatisticsBuilder struct {
	mu sync.Mutex
	s  Statistics
}

func NewStatisticsBuilder() *StatisticsBuilder {
	return &StatisticsBuilder{}
}

func (b *StatisticsBuilder) Discovered(n int) *StatisticsBuilder {
	b.mu.Lock()
	b.s.FilesDiscovered += n
	b.mu.Unlock()
	return b
}

func (b *StatisticsBuilder) FileScanned() *StatisticsBuilder {
	b.mu.Lock()
	b.s.FilesScanned++
	b.mu.Unlock()
	return b
}

func (b *StatisticsBuilder) ParsedSuccessfully() *StatisticsBuilder {
	b.mu.Lock()
	b.s.FilesParsedSuccessfully++
	b.mu.Unlock()
	return b
}

func (b *StatisticsBuilder) ParsedWithFallback() *StatisticsBuilder {
	b.mu.Lock()
	b.s.FilesParsedWithFallback++
	b.mu.Unlock()
	return b
}

// Failed counts a failed file and records the error.
func (b *StatisticsBuilder) Failed(errorType, message string) *StatisticsBuilder {
	b.mu.Lock()
	b.s.FilesFailed++
	b.mu.Unlock()
	return b.AddError(errorType, message)
}

// AddError records an error occurrence without touching file counters. The
// histogram keeps exact counts; the message sample stops at MaxTopErrors.
func (b *StatisticsBuilder) AddError(errorType, message string) *StatisticsBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.s.ErrorCounts == nil {
		b.s.ErrorCounts = map[string]int{}
	}
	b.s.ErrorCounts[errorType]++
	if len(b.s.TopErrors) < MaxTopErrors {
		b.s.TopErrors = append(b.s.TopErrors, message)
	}
	return b
}

// RecordParse counts a parse outcome by backend. A structural rejection that
// fell back is also recorded as an error occurrence.
func (b *StatisticsBuilder) RecordParse(res parser.Result) *StatisticsBuilder {
	switch res.Backend {
	case parser.Structural:
		b.ParsedSuccessfully()
	case parser.Pattern:
		b.ParsedWithFallback()
		if res.FallbackReason != nil {
			b.AddError("structural_parse_error", res.FallbackReason.Error())
		}
	}
	return b
}

// Build returns an immutable snapshot.
func (b *StatisticsBuilder) Build() Statistics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s.clone()
}

package parser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"archscan/internal/confidence"
)

var (
	ErrUnknownLanguage       = errors.New("unknown language")
	ErrStructuralUnavailable = errors.New("structural backend unavailable")
	ErrSyntax                = errors.New("syntax error")
)

// Kind names the shape of a LanguageConstruct.
type Kind string

const (
	KindPackage  Kind = "package"
	KindImport   Kind = "import"
	KindStruct   Kind = "struct"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindCall     Kind = "call"
)

// Field is a member of a struct.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Tag  string `json:"tag,omitempty"`
}

// CallRef identifies an enclosing call expression.
type CallRef struct {
	Receiver string `json:"receiver,omitempty"`
	Name     string `json:"name"`
	FirstArg string `json:"first_arg,omitempty"`
}

// Construct is one language-level element found in a file.
type Construct struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	Line int    `json:"line"`

	// Calls: operand text, raw argument texts, the variable receiving the result
	// and the calls whose arguments contain this one (innermost first).
	Receiver   string    `json:"receiver,omitempty"`
	Args       []string  `json:"args,omitempty"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	Enclosing  []CallRef `json:"enclosing,omitempty"`

	// Functions and classes.
	Decorators []string `json:"decorators,omitempty"`
	Bases      []string `json:"bases,omitempty"`

	// Structs.
	Fields []Field `json:"fields,omitempty"`
}

// Backend identifies which extraction path produced a Result.
type Backend int

const (
	Structural Backend = iota + 1
	Pattern
)

func (b Backend) String() string {
	switch b {
	case Structural:
		return "structural"
	case Pattern:
		return "pattern"
	default:
		return "none"
	}
}

// Result is the output of parsing one file.
type Result struct {
	Constructs []Construct
	Backend    Backend
	// FallbackReason is set when the structural backend rejected the file.
	FallbackReason error
}

// Confidence maps the backend to the confidence a producer should attach
// to facts derived from this result.
func (r Result) Confidence() confidence.Level {
	switch r.Backend {
	case Structural:
		return confidence.High
	case Pattern:
		return confidence.Medium
	default:
		return confidence.Unscored
	}
}

// Fallback reports whether the pattern backend was used.
func (r Result) Fallback() bool {
	return r.Backend == Pattern
}

// Of filters constructs by kind, preserving order.
func (r Result) Of(kind Kind) []Construct {
	var out []Construct
	for _, c := range r.Constructs {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Capability is the tri-state availability of a structural backend.
type Capability int32

const (
	Unknown Capability = iota
	Available
	Unavailable
)

func (c Capability) String() string {
	switch c {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// StructuralBackend is a grammar-driven parser.
type StructuralBackend interface {
	// SelfCheck verifies that the backend's runtime pieces load. It runs once per engine.
	SelfCheck() error
	// Parse returns ErrSyntax (wrapped) when the file cannot be parsed cleanly.
	Parse(ctx context.Context, src []byte) ([]Construct, error)
}

// PatternBackend is a text-pattern extractor. It never fails, it only finds less.
type PatternBackend interface {
	Parse(src []byte) []Construct
}

// PatternFunc adapts a function to PatternBackend.
type PatternFunc func(src []byte) []Construct

func (f PatternFunc) Parse(src []byte) []Construct { return f(src) }

// Engine parses files of one language, preferring the structural backend and
// falling back to the pattern backend per file.
type Engine struct {
	language   string
	structural StructuralBackend
	pattern    PatternBackend

	once       sync.Once
	capability atomic.Int32
	availErr   error
}

// NewEngine creates an engine. A nil structural backend makes the engine
// pattern-only.
func NewEngine(language string, structural StructuralBackend, pattern PatternBackend) *Engine {
	return &Engine{language: language, structural: structural, pattern: pattern}
}

// Language returns the language identifier.
func (e *Engine) Language() string {
	return e.language
}

// Capability returns the availability outcome without triggering a check.
func (e *Engine) Capability() Capability {
	return Capability(e.capability.Load())
}

// IsAvailable checks the structural backend on first use and caches the answer.
func (e *Engine) IsAvailable() bool {
	e.once.Do(e.detect)
	return e.Capability() == Available
}

// UnavailableReason returns why the structural backend is unavailable, if it is.
func (e *Engine) UnavailableReason() error {
	e.once.Do(e.detect)
	return e.availErr
}

func (e *Engine) detect() {
	if e.structural == nil {
		e.availErr = fmt.Errorf("%w: %s", ErrStructuralUnavailable, e.language)
		e.capability.Store(int32(Unavailable))
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("self-check panic: %v", r)
			}
		}()
		return e.structural.SelfCheck()
	}()
	if err != nil {
		e.availErr = errors.Join(fmt.Errorf("%w: %s", ErrStructuralUnavailable, e.language), err)
		e.capability.Store(int32(Unavailable))
		return
	}
	e.capability.Store(int32(Available))
}

// Parse extracts constructs from src. The structural backend is tried first
// when available; any failure for this file falls back to the pattern backend
// for this file only. Parse only returns an error when ctx is done.
func (e *Engine) Parse(ctx context.Context, src []byte) (Result, error) {
	var reason error
	if e.IsAvailable() {
		constructs, err := e.parseStructural(ctx, src)
		if err == nil {
			return Result{Constructs: constructs, Backend: Structural}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		reason = err
	}

	return Result{
		Constructs:     e.pattern.Parse(src),
		Backend:        Pattern,
		FallbackReason: reason,
	}, nil
}

func (e *Engine) parseStructural(ctx context.Context, src []byte) (constructs []Construct, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("structural parser panic: %v", r)
		}
	}()
	return e.structural.Parse(ctx, src)
}

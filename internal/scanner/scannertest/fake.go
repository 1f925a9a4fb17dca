// Package scannertest provides configurable scanners for tests.
package scannertest

import (
	"context"

	"archscan/internal/scanner"
)

// Fake is a scanner whose behavior is supplied by the test.
type Fake struct {
	scanner.Base
	Applies  scanner.Predicate
	ScanFunc func(ctx context.Context, sc *scanner.Context) (*scanner.Result, error)
}

// New returns a fake that always applies and returns an empty result.
func New(id string, priority int) *Fake {
	return &Fake{Base: scanner.Base{Meta: scanner.Info{
		ID:          id,
		DisplayName: id,
		Languages:   []string{"test"},
		Priority:    priority,
	}}}
}

// Returning makes the fake return res, with its id filled in.
func (f *Fake) Returning(res *scanner.Result) *Fake {
	f.ScanFunc = func(context.Context, *scanner.Context) (*scanner.Result, error) {
		out := res.Clone()
		out.ScannerID = f.ID()
		return out, nil
	}
	return f
}

// Never makes the fake inapplicable.
func (f *Fake) Never() *Fake {
	f.Applies = func(*scanner.Context) bool { return false }
	return f
}

func (f *Fake) AppliesTo(sc *scanner.Context) bool {
	if f.Applies == nil {
		return true
	}
	return f.Applies(sc)
}

func (f *Fake) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	if f.ScanFunc == nil {
		return scanner.Empty(f.ID()), nil
	}
	return f.ScanFunc(ctx, sc)
}

package crawler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrInvalidPattern = errors.New("invalid file pattern")

// DefaultIgnored lists directory names that are never descended into.
var DefaultIgnored = []string{
	".git", ".hg", ".svn", ".idea", ".vscode",
	"vendor", "node_modules", "testdata",
	"target", "build", "dist", "out",
	"__pycache__", ".venv", "venv", ".tox", ".mypy_cache",
}

const defaultContentCacheSize = 512

// Crawler indexes the files under a set of source roots and serves glob lookups
// and cached content reads for every scanner of a run.
type Crawler struct {
	root    string
	sources []string
	ignored map[string]struct{}

	once    sync.Once
	files   []string
	missing []string
	err     error

	globMu sync.Mutex
	globs  map[string][]glob.Glob

	contents *lru.Cache[string, []byte]
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithIgnored replaces the ignored directory names.
func WithIgnored(names ...string) Option {
	return func(c *Crawler) {
		c.ignored = make(map[string]struct{}, len(names))
		for _, n := range names {
			c.ignored[n] = struct{}{}
		}
	}
}

// WithSources restricts indexing to the given source roots. Relative paths are
// resolved against the crawler root.
func WithSources(paths ...string) Option {
	return func(c *Crawler) {
		c.sources = nil
		for _, p := range paths {
			if p == "" {
				continue
			}
			if !filepath.IsAbs(p) {
				p = filepath.Join(c.root, p)
			}
			c.sources = append(c.sources, filepath.Clean(p))
		}
	}
}

// WithContentCacheSize bounds the number of file bodies kept in memory.
func WithContentCacheSize(n int) Option {
	return func(c *Crawler) {
		if n <= 0 {
			n = defaultContentCacheSize
		}
		c.contents, _ = lru.New[string, []byte](n)
	}
}

// NewCrawler creates a new crawler instance rooted at root.
func NewCrawler(root string, opts ...Option) *Crawler {
	root = filepath.Clean(root)
	c := &Crawler{
		root:  root,
		globs: make(map[string][]glob.Glob),
	}
	WithIgnored(DefaultIgnored...)(c)
	WithContentCacheSize(defaultContentCacheSize)(c)
	for _, opt := range opts {
		opt(c)
	}
	if len(c.sources) == 0 {
		c.sources = []string{root}
	}
	return c
}

// Root returns the project root.
func (c *Crawler) Root() string {
	return c.root
}

// Sources returns the indexed source roots.
func (c *Crawler) Sources() []string {
	out := make([]string, len(c.sources))
	copy(out, c.sources)
	return out
}

// Files returns every indexed file relative to the root, sorted.
// The directory walk happens once per crawler.
func (c *Crawler) Files() ([]string, error) {
	c.once.Do(func() {
		c.files, c.err = c.walk()
	})
	return c.files, c.err
}

// Missing lists the extra source roots that did not exist when the index was
// built. They are left out instead of failing the whole index.
func (c *Crawler) Missing() []string {
	_, _ = c.Files()
	return append([]string(nil), c.missing...)
}

// walk indexes every source root. The first root is required; a later root
// that does not exist is recorded in missing and skipped.
func (c *Crawler) walk() ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for i, src := range c.sources {
		if i > 0 {
			if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
				c.missing = append(c.missing, src)
				continue
			}
		}
		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped instead of failing the whole index.
				if d != nil && d.IsDir() && path != src {
					return filepath.SkipDir
				}
				if path == src {
					return err
				}
				return nil
			}

			if d.IsDir() {
				if _, skip := c.ignored[d.Name()]; skip && path != src {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(c.root, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if _, dup := seen[rel]; dup {
				return nil
			}
			seen[rel] = struct{}{}
			files = append(files, rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", src, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// FindFiles returns indexed files matching a glob relative to the root.
// A leading "**/" also matches files at the root itself.
func (c *Crawler) FindFiles(pattern string) ([]string, error) {
	matchers, err := c.compile(pattern)
	if err != nil {
		return nil, err
	}
	files, err := c.Files()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, f := range files {
		for _, m := range matchers {
			if m.Match(f) {
				out = append(out, f)
				break
			}
		}
	}
	return out, nil
}

// FindAny returns files matching any of the patterns, deduplicated and sorted.
func (c *Crawler) FindAny(patterns ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		matches, err := c.FindFiles(p)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// HasAny reports whether at least one file matches any pattern.
func (c *Crawler) HasAny(patterns ...string) bool {
	for _, p := range patterns {
		matches, err := c.FindFiles(p)
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

func (c *Crawler) compile(pattern string) ([]glob.Glob, error) {
	pattern = strings.TrimSpace(filepath.ToSlash(pattern))
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	c.globMu.Lock()
	defer c.globMu.Unlock()
	if g, ok := c.globs[pattern]; ok {
		return g, nil
	}

	variants := []string{pattern}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok && rest != "" {
		variants = append(variants, rest)
	}

	var compiled []glob.Glob
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, errors.Join(fmt.Errorf("%w: %s", ErrInvalidPattern, pattern), err)
		}
		compiled = append(compiled, g)
	}
	c.globs[pattern] = compiled
	return compiled, nil
}

// Abs resolves a root-relative path.
func (c *Crawler) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

// ReadFile returns the content of a root-relative file, served from the
// content cache when possible. Callers must not modify the returned slice.
func (c *Crawler) ReadFile(rel string) ([]byte, error) {
	if data, ok := c.contents.Get(rel); ok {
		return data, nil
	}
	data, err := os.ReadFile(c.Abs(rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", rel, err)
	}
	c.contents.Add(rel, data)
	return data, nil
}

// Purge drops cached contents.
func (c *Crawler) Purge() {
	c.contents.Purge()
}

package parser

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory constructs an engine. It is called at most once per language per cache.
type Factory func() *Engine

type cacheEntry struct {
	once   sync.Once
	engine *Engine
}

// Cache owns one engine per language for the lifetime of a run. It is passed
// explicitly to whoever needs parsing, so tests can build independent caches.
type Cache struct {
	mu        sync.Mutex
	factories map[string]Factory
	aliases   map[string]string
	entries   map[string]*cacheEntry
}

// NewCache returns a cache with the built-in go, python and javascript engines.
func NewCache() *Cache {
	c := NewEmptyCache()
	c.Register("go", NewGoEngine, "golang")
	c.Register("python", NewPythonEngine, "py")
	c.Register("javascript", NewJavaScriptEngine, "js", "typescript", "ts")
	return c
}

// NewEmptyCache returns a cache without any registered language.
func NewEmptyCache() *Cache {
	return &Cache{
		factories: make(map[string]Factory),
		aliases:   make(map[string]string),
		entries:   make(map[string]*cacheEntry),
	}
}

// Register binds a language identifier (and optional aliases) to a factory.
// Re-registering replaces the factory and drops any cached engine for it.
func (c *Cache) Register(language string, f Factory, aliases ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	language = normalize(language)
	c.factories[language] = f
	delete(c.entries, language)
	for _, a := range aliases {
		c.aliases[normalize(a)] = language
	}
}

// Get returns the engine for a language, constructing it on first use.
// Concurrent first calls construct the engine exactly once.
func (c *Cache) Get(language string) (*Engine, error) {
	lang := normalize(language)

	c.mu.Lock()
	if canonical, ok := c.aliases[lang]; ok {
		lang = canonical
	}
	factory, ok := c.factories[lang]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}
	entry, ok := c.entries[lang]
	if !ok {
		entry = &cacheEntry{}
		c.entries[lang] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.engine = factory()
	})
	return entry.engine, nil
}

// Clear discards every cached engine. Registered factories are kept, so the
// next Get constructs and checks a fresh engine.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Len returns the number of constructed engines.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Languages lists the registered canonical language identifiers.
func (c *Cache) Languages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.factories))
	for lang := range c.factories {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func normalize(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}

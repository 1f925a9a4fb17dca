package scanner

import (
	"context"
	"errors"
	"path/filepath"

	"archscan/internal/crawler"
	"archscan/internal/logging"
	"archscan/internal/parser"

	"github.com/phuslu/log"
)

// Options configures a new Context.
type Options struct {
	Root        string
	SourcePaths []string
	Config      map[string]any
	Settings    map[string]string
	Files       *crawler.Crawler
	Parsers     *parser.Cache
	Logger      *log.Logger
}

// Context is the read-only view a scanner gets for its turn. It is never
// mutated in place; the orchestrator derives a new one per turn with
// WithPrevious.
type Context struct {
	root     string
	sources  []string
	config   map[string]any
	settings map[string]string
	previous *Results
	files    *crawler.Crawler
	parsers  *parser.Cache
	logger   *log.Logger
}

// NewContext builds the run context. Missing collaborators get defaults:
// a crawler over the source paths, the built-in parser cache and a discarding logger.
func NewContext(opts Options) *Context {
	root := filepath.Clean(opts.Root)
	sources := append([]string(nil), opts.SourcePaths...)
	if len(sources) == 0 {
		sources = []string{root}
	}

	files := opts.Files
	if files == nil {
		files = crawler.NewCrawler(root, crawler.WithSources(sources...))
	}
	parsers := opts.Parsers
	if parsers == nil {
		parsers = parser.NewCache()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Context{
		root:     root,
		sources:  sources,
		config:   copyAnyMap(opts.Config),
		settings: copyStringMap(opts.Settings),
		previous: NewResults(),
		files:    files,
		parsers:  parsers,
		logger:   logger,
	}
}

// WithPrevious returns a copy of c whose previous-results view is prev.
func (c *Context) WithPrevious(prev *Results) *Context {
	next := *c
	if prev == nil {
		prev = NewResults()
	}
	next.previous = prev
	return &next
}

func (c *Context) Root() string { return c.root }

// SourcePaths returns the source roots; it defaults to the project root.
func (c *Context) SourcePaths() []string {
	return append([]string(nil), c.sources...)
}

// Previous returns the results of every scanner that completed before this turn.
func (c *Context) Previous() *Results { return c.previous }

func (c *Context) Logger() *log.Logger { return c.logger }

func (c *Context) Files() *crawler.Crawler { return c.files }

func (c *Context) Parsers() *parser.Cache { return c.parsers }

// Config returns a top-level configuration value.
func (c *Context) Config(key string) (any, bool) {
	v, ok := c.config[key]
	return v, ok
}

// ScannerConfig returns the configuration section for one scanner id.
func (c *Context) ScannerConfig(id string) map[string]any {
	if section, ok := c.config[id].(map[string]any); ok {
		return section
	}
	return nil
}

// Setting returns a shared string setting.
func (c *Context) Setting(key string) (string, bool) {
	v, ok := c.settings[key]
	return v, ok
}

// SettingOr returns a shared setting or def when absent.
func (c *Context) SettingOr(key, def string) string {
	if v, ok := c.settings[key]; ok {
		return v
	}
	return def
}

// FindFiles returns root-relative files matching a glob.
func (c *Context) FindFiles(pattern string) ([]string, error) {
	return c.files.FindFiles(pattern)
}

// FindAny returns root-relative files matching any glob.
func (c *Context) FindAny(patterns ...string) ([]string, error) {
	return c.files.FindAny(patterns...)
}

// ReadFile reads a root-relative file through the run's content cache.
func (c *Context) ReadFile(rel string) ([]byte, error) {
	return c.files.ReadFile(rel)
}

// Parser returns the engine for a language from the run's parser cache.
func (c *Context) Parser(language string) (*parser.Engine, error) {
	return c.parsers.Get(language)
}

// ParseFile reads and parses one file, recording the outcome in stats:
// structural parses count as parsed successfully, pattern parses as
// fallback and read failures as failed.
func (c *Context) ParseFile(ctx context.Context, language, rel string, stats *StatisticsBuilder) (parser.Result, error) {
	engine, err := c.Parser(language)
	if err != nil {
		return parser.Result{}, err
	}

	stats.FileScanned()
	src, err := c.ReadFile(rel)
	if err != nil {
		stats.Failed("read_error", err.Error())
		return parser.Result{}, err
	}

	res, err := engine.Parse(ctx, src)
	if err != nil {
		stats.Failed("cancelled", err.Error())
		return parser.Result{}, err
	}
	stats.RecordParse(res)
	return res, nil
}

// ParseEach parses files in order and hands every parsed file to visit. Files
// rejected by keep are discovered but not scanned. Per-file failures are
// recorded in stats and skipped; only cancellation stops the loop.
func (c *Context) ParseEach(ctx context.Context, language string, files []string, stats *StatisticsBuilder,
	keep func(src []byte) bool, visit func(rel string, res parser.Result)) error {
	stats.Discovered(len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if keep != nil {
			src, err := c.ReadFile(rel)
			if err != nil {
				stats.FileScanned().Failed("read_error", err.Error())
				continue
			}
			if !keep(src) {
				continue
			}
		}
		res, err := c.ParseFile(ctx, language, rel, stats)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, parser.ErrUnknownLanguage) {
				return err
			}
			c.logger.Debug().Str("file", rel).Err(err).Msg("skipping unreadable file")
			continue
		}
		visit(rel, res)
	}
	return nil
}

func copyAnyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

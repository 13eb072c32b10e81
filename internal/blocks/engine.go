// Package blocks implements the smart block marker grammar, parser, validator
// and regenerator. All operations hang off an Engine that carries the block
// vocabulary and content bounds, so no state is shared between engines.
package blocks

import (
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/smartblock/internal/checksum"
	"github.com/starford/smartblock/internal/models"
)

// Default content bounds and warning thresholds.
const (
	DefaultMinContentLength = 10
	DefaultMaxContentLength = 10000

	maxTagsBeforeWarning    = 10
	longContentWarningChars = 1000
)

// HashFunc fingerprints block content.
type HashFunc func(content string) string

// Engine bundles the static configuration used by parse, validate and generate.
type Engine struct {
	types              map[string]struct{}
	typeList           []string
	minLen             int
	maxLen             int
	defaultReorderable bool
	hash               HashFunc
	newID              func() string
	logger             *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTypes replaces the block vocabulary.
func WithTypes(types ...string) Option {
	return func(e *Engine) {
		e.types = make(map[string]struct{}, len(types))
		e.typeList = e.typeList[:0]
		for _, t := range types {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, dup := e.types[t]; dup {
				continue
			}
			e.types[t] = struct{}{}
			e.typeList = append(e.typeList, t)
		}
	}
}

// WithContentBounds sets the inclusive content length bounds, in characters.
func WithContentBounds(minLen, maxLen int) Option {
	return func(e *Engine) {
		e.minLen = minLen
		e.maxLen = maxLen
	}
}

// WithDefaultReorderable sets the reorderable flag used when a marker omits it.
func WithDefaultReorderable(v bool) Option {
	return func(e *Engine) {
		e.defaultReorderable = v
	}
}

// WithHasher overrides the content fingerprint function.
func WithHasher(h HashFunc) Option {
	return func(e *Engine) {
		e.hash = h
	}
}

// WithIDGenerator overrides block id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithLogger sets the logger that receives parse warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New returns an Engine with the default vocabulary and bounds.
func New(opts ...Option) *Engine {
	e := &Engine{
		minLen: DefaultMinContentLength,
		maxLen: DefaultMaxContentLength,
		hash:   checksum.Short,
		newID:  newBlockID,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	WithTypes(models.DefaultTypes()...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Types returns the configured vocabulary in declaration order.
func (e *Engine) Types() []string {
	out := make([]string, len(e.typeList))
	copy(out, e.typeList)
	return out
}

// DefaultReorderable reports the engine-wide reorderable default.
func (e *Engine) DefaultReorderable() bool {
	return e.defaultReorderable
}

// Hash fingerprints content with the configured hasher.
func (e *Engine) Hash(content string) string {
	return e.hash(content)
}

func newBlockID() string {
	return "blk-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

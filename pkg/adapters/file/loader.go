package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
	"github.com/aretw0/canopy/pkg/registry"
)

// Supported document formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ErrInvalidDocument is returned when a tree file is malformed.
var ErrInvalidDocument = errors.New("invalid tree document")

// HookBinder returns the Go hooks for a state declared in a file.
type HookBinder func(id string) domain.Hooks

// Loader turns tree files into registry contributions.
type Loader struct {
	binders []HookBinder
}

// Option configures a Loader.
type Option func(*Loader)

// WithHookBinder attaches hooks to file-declared states. It may be given more
// than once: binders are layered in order, and a hook slot set by an earlier
// binder is kept.
func WithHookBinder(b HookBinder) Option {
	return func(l *Loader) {
		if b != nil {
			l.binders = append(l.binders, b)
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FormatOf guesses the format from the file extension (YAML unless .json).
func FormatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFiles reads every file and returns their contributions in file order.
func (l *Loader) LoadFiles(paths ...string) ([]registry.Descriptor, error) {
	var out []registry.Descriptor
	for _, p := range paths {
		descs, err := l.LoadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, descs...)
	}
	return out, nil
}

// LoadFile reads one tree file.
func (l *Loader) LoadFile(path string) ([]registry.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}

	doc, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l.Descriptors(doc, filepath.Base(path)), nil
}

// Parse decodes a document. Scalars are weakly typed, so priority: "10" is accepted.
func Parse(data []byte, format string) (Document, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return Document{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Document{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	default:
		return Document{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidDocument, format)
	}

	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &doc,
	})
	if err != nil {
		return Document{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := doc.validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Encode writes doc in the given format.
func Encode(w io.Writer, doc Document, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func (d Document) validate() error {
	for i, c := range d.Contributions {
		if len(c.States) == 0 {
			return fmt.Errorf("%w: contribution %d (%s) declares no states", ErrInvalidDocument, i, c.Name)
		}
		if err := validateStates(c.States); err != nil {
			return fmt.Errorf("contribution %d (%s): %w", i, c.Name, err)
		}
	}
	return nil
}

func validateStates(states []StateSpec) error {
	for _, s := range states {
		if s.ID == "" {
			return fmt.Errorf("%w: state without id", ErrInvalidDocument)
		}
		if s.ID == domain.RootStateID {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidDocument, domain.RootStateID)
		}
		if err := validateStates(s.Children); err != nil {
			return err
		}
	}
	return nil
}

// Descriptors converts doc into contributions. source labels unnamed ones.
func (l *Loader) Descriptors(doc Document, source string) []registry.Descriptor {
	out := make([]registry.Descriptor, 0, len(doc.Contributions))
	for i, c := range doc.Contributions {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", source, i)
		}

		opts := []registry.Option{registry.WithName(name), registry.WithPriority(c.Priority)}
		if c.SkipInVerification {
			opts = append(opts, registry.SkipInVerification())
		}

		states := c.States
		out = append(out, registry.Under(c.Parent, func(parent *dsl.Node) error {
			var errs []error
			for _, s := range states {
				if err := parent.Attach(l.build(s)); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		}, opts...))
	}
	return out
}

func (l *Loader) build(s StateSpec) *dsl.Node {
	var hooks domain.Hooks
	for _, b := range l.binders {
		hooks = hooks.Merge(b(s.ID))
	}
	n := dsl.State(s.ID, dsl.WithHooks(hooks))
	for _, c := range s.Children {
		n.Add(l.build(c))
	}
	return n
}

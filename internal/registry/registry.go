// Package registry models the extension and plugin inventory of the external
// documentation generator. Extensions and plugins are opaque collaborators:
// the registry knows their identifiers and option schemas, never their
// implementation.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind identifies the collaborator category a descriptor belongs to.
type Kind string

const (
	KindExtension Kind = "extension"
	KindPlugin    Kind = "plugin"
)

// OptionType constrains the value kind an option accepts.
type OptionType string

const (
	TypeString     OptionType = "string"
	TypeBool       OptionType = "bool"
	TypeInt        OptionType = "int"
	TypeStringList OptionType = "stringList"
	TypePathMap    OptionType = "pathMap" // mapping of document path -> document path
	TypeAny        OptionType = "any"
)

// OptionSpec describes one accepted option of an extension or plugin.
type OptionSpec struct {
	Type     OptionType
	Required bool
}

// Descriptor identifies an installed extension or plugin and its option
// schema. Open descriptors accept options beyond the listed ones; closed
// descriptors reject unknown option names.
type Descriptor struct {
	Name        string
	Kind        Kind
	Description string
	Options     map[string]OptionSpec
	Open        bool
}

// Validate checks if the descriptor is well-formed.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor name is required")
	}
	if d.Kind != KindExtension && d.Kind != KindPlugin {
		return fmt.Errorf("invalid descriptor kind: %s", d.Kind)
	}
	return nil
}

// String returns a human-readable representation of the descriptor.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Kind)
}

// ValidateOptions checks opts against the descriptor's schema and returns
// one error per violation so callers can report all of them at once.
func (d Descriptor) ValidateOptions(opts map[string]any) []error {
	var errs []error

	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec, known := d.Options[name]
		if !known {
			if d.Open {
				continue
			}
			if len(d.Options) == 0 {
				errs = append(errs, fmt.Errorf("%s %q accepts no options, got %q", d.Kind, d.Name, name))
				continue
			}
			errs = append(errs, fmt.Errorf("%s %q does not accept option %q", d.Kind, d.Name, name))
			continue
		}
		if err := checkOptionType(spec.Type, opts[name]); err != nil {
			errs = append(errs, fmt.Errorf("%s %q option %q: %v", d.Kind, d.Name, name, err))
		}
	}

	for name, spec := range d.Options {
		if spec.Required {
			if _, present := opts[name]; !present {
				errs = append(errs, fmt.Errorf("%s %q requires option %q", d.Kind, d.Name, name))
			}
		}
	}

	return errs
}

func checkOptionType(t OptionType, value any) error {
	switch t {
	case TypeAny, "":
		return nil
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected a string, got %T", value)
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected a boolean, got %T", value)
		}
	case TypeInt:
		switch value.(type) {
		case int, int64:
		default:
			return fmt.Errorf("expected an integer, got %T", value)
		}
	case TypeStringList:
		// A single string is accepted as a one-element list.
		if _, ok := value.(string); ok {
			return nil
		}
		list, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected a list of strings, got %T", value)
		}
		for _, item := range list {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("expected a list of strings, found %T element", item)
			}
		}
	case TypePathMap:
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("expected a path mapping, got %T", value)
		}
		for from, to := range m {
			if _, ok := to.(string); !ok {
				return fmt.Errorf("expected path mapping values to be strings, %q maps to %T", from, to)
			}
		}
	default:
		return fmt.Errorf("unhandled option type %q", t)
	}
	return nil
}

// Registry manages the installed descriptor inventory.
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]Descriptor
	plugins    map[string]Descriptor
	namespaces map[string]struct{}
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extensions: make(map[string]Descriptor),
		plugins:    make(map[string]Descriptor),
		namespaces: make(map[string]struct{}),
	}
}

// RegisterExtension adds a markdown extension descriptor.
// Returns an error if a descriptor with the same name already exists.
func (r *Registry) RegisterExtension(d Descriptor) error {
	d.Kind = KindExtension
	return register(r, r.extensions, d)
}

// RegisterPlugin adds a plugin descriptor.
// Returns an error if a descriptor with the same name already exists.
func (r *Registry) RegisterPlugin(d Descriptor) error {
	d.Kind = KindPlugin
	return register(r, r.plugins, d)
}

func register(r *Registry, into map[string]Descriptor, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := into[d.Name]; exists {
		return fmt.Errorf("%s %q already registered", d.Kind, d.Name)
	}
	into[d.Name] = d
	return nil
}

// RegisterNamespace marks an identifier prefix (the part before the first
// dot) as installed. Identifiers inside a registered namespace are treated
// as recognized even without an individual descriptor, mirroring the
// generator's lazy import of third-party extension families.
func (r *Registry) RegisterNamespace(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespaces[prefix] = struct{}{}
}

// Extension retrieves a markdown extension descriptor by name.
func (r *Registry) Extension(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.extensions[name]
	return d, ok
}

// Plugin retrieves a plugin descriptor by name.
func (r *Registry) Plugin(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.plugins[name]
	return d, ok
}

// HasExtension checks if an extension with the given name is installed.
func (r *Registry) HasExtension(name string) bool {
	_, ok := r.Extension(name)
	return ok
}

// HasPlugin checks if a plugin with the given name is installed.
func (r *Registry) HasPlugin(name string) bool {
	_, ok := r.Plugin(name)
	return ok
}

// InNamespace reports whether the identifier belongs to a registered
// namespace ("pymdownx.tabbed" matches namespace "pymdownx").
func (r *Registry) InNamespace(id string) bool {
	prefix, _, found := strings.Cut(id, ".")
	if !found {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.namespaces[prefix]
	return ok
}

// Extensions returns all extension descriptors sorted by name.
func (r *Registry) Extensions() []Descriptor {
	return sortedValues(r, r.extensions)
}

// Plugins returns all plugin descriptors sorted by name.
func (r *Registry) Plugins() []Descriptor {
	return sortedValues(r, r.plugins)
}

func sortedValues(r *Registry, m map[string]Descriptor) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(m))
	for _, d := range m {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Count returns the total number of registered descriptors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.extensions) + len(r.plugins)
}

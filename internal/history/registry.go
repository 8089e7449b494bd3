package history

import (
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm/schema"
)

// DeletePolicy decides whether deleting a tracked row writes a final history row.
type DeletePolicy string

const (
	// DeleteAlways records every delete.
	DeleteAlways DeletePolicy = "always"
	// DeleteWithMessage records deletes that carry a version message.
	DeleteWithMessage DeletePolicy = "with_message"
	// DeleteNever records no deletes.
	DeleteNever DeletePolicy = "never"
)

// ParseDeletePolicy parses a configured policy; "" yields DeleteAlways.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(s); p {
	case "":
		return DeleteAlways, nil
	case DeleteAlways, DeleteWithMessage, DeleteNever:
		return p, nil
	}
	return "", fmt.Errorf("unknown delete policy %q", s)
}

// ParseForeignKeyAction parses a configured action; "" yields ForeignKeyOrphan.
func ParseForeignKeyAction(s string) (ForeignKeyAction, error) {
	switch a := ForeignKeyAction(s); a {
	case "":
		return ForeignKeyOrphan, nil
	case ForeignKeyOrphan, ForeignKeyCascade:
		return a, nil
	}
	return "", fmt.Errorf("unknown foreign key action %q", s)
}

// HistoryType is the history side of a registered model.
type HistoryType struct {
	Model          reflect.Type
	Source         *schema.Schema
	Table          *Table
	IncludeMessage bool
	DeletePolicy   DeletePolicy

	keys []string
	data []string
	cols map[string]bool
}

// Name returns the history table name.
func (h *HistoryType) Name() string { return h.Table.Name }

// KeyColumns lists the columns referencing the live row.
func (h *HistoryType) KeyColumns() []string { return h.keys }

// DataColumns lists the copied columns, keys included.
func (h *HistoryType) DataColumns() []string { return h.data }

// Tracks reports whether a change to column is recorded.
func (h *HistoryType) Tracks(column string) bool { return h.cols[column] }

// Option configures a single registration.
type Option func(*registration)

type registration struct {
	mirror       MirrorOptions
	deletePolicy DeletePolicy
	excluded     map[string]bool
}

// WithVersionMessage adds the version_message column and lets sessions attach
// a changelog message to each revision.
func WithVersionMessage() Option {
	return func(r *registration) { r.mirror.IncludeMessage = true }
}

// WithDeletePolicy sets the delete policy. The default is DeleteAlways.
func WithDeletePolicy(p DeletePolicy) Option {
	return func(r *registration) { r.deletePolicy = p }
}

// WithForeignKey sets what happens to history rows when the live row goes.
func WithForeignKey(action ForeignKeyAction) Option {
	return func(r *registration) { r.mirror.OnParentDelete = action }
}

// WithTableSuffix overrides DefaultSuffix.
func WithTableSuffix(suffix string) Option {
	return func(r *registration) { r.mirror.Suffix = suffix }
}

// WithExcludedColumns marks extra columns as bookkeeping: they are neither
// copied nor counted as changes.
func WithExcludedColumns(columns ...string) Option {
	return func(r *registration) {
		if r.excluded == nil {
			r.excluded = make(map[string]bool)
		}
		for _, c := range columns {
			r.excluded[c] = true
		}
	}
}

// Registry holds the registered models. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	types    map[reflect.Type]*HistoryType
	order    []reflect.Type
	cache    *sync.Map
	namer    schema.Namer
	defaults []Option
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithNamer sets the naming strategy used to parse models. It must match the
// one the database connection uses.
func WithNamer(namer schema.Namer) RegistryOption {
	return func(r *Registry) { r.namer = namer }
}

// WithDefaults applies opts before the options of every registration.
func WithDefaults(opts ...Option) RegistryOption {
	return func(r *Registry) { r.defaults = append(r.defaults, opts...) }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		types: make(map[reflect.Type]*HistoryType),
		cache: &sync.Map{},
		namer: schema.NamingStrategy{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the process-wide registry used by the package-level functions.
var Default = NewRegistry()

var trackedType = reflect.TypeOf((*Tracked)(nil)).Elem()

func modelType(model any) reflect.Type {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// MakeVersioned registers model for versioning and derives its history table.
// Registering the same type twice returns *AlreadyVersionedError.
func (r *Registry) MakeVersioned(model any, opts ...Option) (*HistoryType, error) {
	t := modelType(model)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &SchemaDerivationError{Model: fmt.Sprintf("%T", model), Reason: "model must be a struct"}
	}
	if !reflect.PointerTo(t).Implements(trackedType) {
		return nil, &SchemaDerivationError{Model: t.String(), Reason: "model does not embed history.Versioned"}
	}

	reg := registration{deletePolicy: DeleteAlways}
	for _, opt := range r.defaults {
		opt(&reg)
	}
	for _, opt := range opts {
		opt(&reg)
	}
	if reg.deletePolicy == "" {
		reg.deletePolicy = DeleteAlways
	}
	if reg.deletePolicy == DeleteWithMessage && !reg.mirror.IncludeMessage {
		return nil, &SchemaDerivationError{Model: t.String(), Reason: "delete policy with_message needs WithVersionMessage"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.types[t]; ok {
		return nil, &AlreadyVersionedError{Model: t.String()}
	}

	sch, err := schema.Parse(reflect.New(t).Interface(), r.cache, r.namer)
	if err != nil {
		return nil, &SchemaDerivationError{Model: t.String(), Reason: "cannot parse model", Err: err}
	}

	if len(reg.excluded) > 0 {
		reg.mirror.IsInternal = func(c Column) bool {
			return IsVersioningColumn(c) || reg.excluded[c.Name]
		}
	}
	table, err := Mirror(TableFromSchema(sch), reg.mirror)
	if err != nil {
		return nil, err
	}

	ht := &HistoryType{
		Model:          t,
		Source:         sch,
		Table:          table,
		IncludeMessage: reg.mirror.IncludeMessage,
		DeletePolicy:   reg.deletePolicy,
		cols:           make(map[string]bool),
	}
	for _, c := range table.Columns {
		switch c.Role {
		case RoleKey:
			ht.keys = append(ht.keys, c.Name)
			ht.data = append(ht.data, c.Name)
			ht.cols[c.Name] = true
		case RoleData:
			ht.data = append(ht.data, c.Name)
			ht.cols[c.Name] = true
		}
	}

	r.types[t] = ht
	r.order = append(r.order, t)
	return ht, nil
}

// GetHistoryType returns the history type of a registered model.
func (r *Registry) GetHistoryType(model any) (*HistoryType, bool) {
	return r.lookup(modelType(model))
}

func (r *Registry) lookup(t reflect.Type) (*HistoryType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ht, ok := r.types[t]
	return ht, ok
}

// Types lists the registered history types in registration order.
func (r *Registry) Types() []*HistoryType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*HistoryType, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.types[t])
	}
	return out
}

// Reset forgets every registration.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[reflect.Type]*HistoryType)
	r.order = nil
	r.cache = &sync.Map{}
}

// MakeVersioned registers model on the Default registry.
func MakeVersioned(model any, opts ...Option) (*HistoryType, error) {
	return Default.MakeVersioned(model, opts...)
}

// GetHistoryType looks model up in the Default registry.
func GetHistoryType(model any) (*HistoryType, bool) {
	return Default.GetHistoryType(model)
}

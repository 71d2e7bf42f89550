package extract

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kova98/redditlookup/metrics"
)

// Fullnamer exposes a kind-prefixed identifier such as "t3_abc123".
type Fullnamer interface {
	Fullname() (string, error)
}

// Namer exposes a bare name, such as a username.
type Namer interface {
	Name() (string, error)
}

// IDer exposes the raw identifier without a kind prefix.
type IDer interface {
	ID() (string, error)
}

var errNoCapability = errors.New("object does not expose this identifier")

// Accessor is one step of an identity fallback chain.
type Accessor struct {
	Name string
	Get  func(Object) (string, error)
}

var (
	FullnameAccessor = Accessor{Name: "fullname", Get: func(o Object) (string, error) {
		if f, ok := o.(Fullnamer); ok {
			return f.Fullname()
		}
		return "", errNoCapability
	}}
	NameAccessor = Accessor{Name: "name", Get: func(o Object) (string, error) {
		if n, ok := o.(Namer); ok {
			return n.Name()
		}
		return "", errNoCapability
	}}
	IDAccessor = Accessor{Name: "id", Get: func(o Object) (string, error) {
		if i, ok := o.(IDer); ok {
			return i.ID()
		}
		return "", errNoCapability
	}}
)

// DefaultChain tries the fullname, then the bare name, then the raw id.
var DefaultChain = []Accessor{FullnameAccessor, NameAccessor, IDAccessor}

type Resolver struct {
	logger *slog.Logger
	chain  []Accessor
}

func NewResolver(logger *slog.Logger, chain ...Accessor) *Resolver {
	if len(chain) == 0 {
		chain = DefaultChain
	}
	return &Resolver{logger: logger, chain: chain}
}

// Resolve returns the first non-empty identifier produced by the chain.
func (r *Resolver) Resolve(obj Object) (string, bool) {
	if isNil(obj) {
		return "", false
	}

	for _, accessor := range r.chain {
		id, err := accessor.Get(obj)
		if err == nil && id != "" {
			return id, true
		}
		if err != nil && !errors.Is(err, errNoCapability) {
			r.logger.Debug("identity accessor failed", "accessor", accessor.Name, "error", err)
		}
	}

	metrics.UnresolvedIdentities.Inc()
	r.logger.Warn("cannot resolve identity", "object", fmt.Sprintf("%T", obj))
	return "", false
}

// Value resolves the identity as a column value: the identifier, or nil.
func (r *Resolver) Value(obj Object) any {
	if id, ok := r.Resolve(obj); ok {
		return id
	}
	return nil
}

// Converter resolves attributes that hold objects, so a foreign key column
// can be declared as a regular mapped column.
func (r *Resolver) Converter() Converter {
	return func(raw any) (any, error) {
		obj, ok := raw.(Object)
		if !ok {
			return nil, fmt.Errorf("resolve identity: %T is not an object", raw)
		}
		return r.Value(obj), nil
	}
}

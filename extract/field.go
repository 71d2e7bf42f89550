// Package extract turns partially available API objects into flat records.
// Reading an attribute never fails the caller: anything that cannot be read
// becomes NULL.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/kova98/redditlookup/metrics"
)

// ErrUnavailable marks an attribute that is expected to be missing: absent
// from the payload, hidden, or belonging to a deleted object. Attr
// implementations wrap it so extraction can tell routine misses from real
// failures.
var ErrUnavailable = errors.New("attribute unavailable")

// Object is an external object whose attributes may be missing or fail to
// load. A nil value with a nil error is a present, null attribute.
type Object interface {
	Attr(name string) (any, error)
}

// Converter derives a column value from a raw attribute value.
type Converter func(any) (any, error)

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Field reads one scalar attribute. ok is false when the attribute could not be
// read or holds a value no column can store; the returned value is then nil.
func (e *Extractor) Field(obj Object, name string) (value any, ok bool) {
	value, ok = e.read(obj, name)
	if !ok {
		return nil, false
	}
	if !isScalar(value) {
		metrics.AttributeErrors.WithLabelValues("unexpected").Inc()
		e.logger.Warn("attribute is not a scalar", "attr", name, "type", fmt.Sprintf("%T", value))
		return nil, false
	}
	return value, true
}

func (e *Extractor) read(obj Object, name string) (any, bool) {
	if isNil(obj) {
		return nil, false
	}

	value, err := obj.Attr(name)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			metrics.AttributeErrors.WithLabelValues("unavailable").Inc()
			return nil, false
		}
		metrics.AttributeErrors.WithLabelValues("unexpected").Inc()
		e.logger.Warn("unexpected attribute error", "attr", name, "error", err)
		return nil, false
	}

	return value, true
}

// Convert reads an attribute and passes it through conv. A missing attribute,
// a null value or a failed conversion all yield nil.
func (e *Extractor) Convert(obj Object, name string, conv Converter) any {
	raw, ok := e.read(obj, name)
	if !ok || raw == nil {
		return nil
	}

	value, err := conv(raw)
	if err != nil {
		metrics.AttributeErrors.WithLabelValues("conversion").Inc()
		e.logger.Warn("attribute conversion failed", "attr", name, "error", err)
		return nil
	}
	if !isScalar(value) {
		metrics.AttributeErrors.WithLabelValues("conversion").Inc()
		e.logger.Warn("converted attribute is not a scalar", "attr", name, "type", fmt.Sprintf("%T", value))
		return nil
	}
	return value
}

// Related reads an attribute holding another object, such as a post's author.
func (e *Extractor) Related(obj Object, name string) Object {
	value, ok := e.read(obj, name)
	if !ok {
		return nil
	}
	related, ok := value.(Object)
	if !ok || isNil(related) {
		return nil
	}
	return related
}

// isScalar reports whether v is a value the storage columns accept.
func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, time.Time:
		return true
	}
	return false
}

func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice, reflect.Func:
		return v.IsNil()
	}
	return false
}

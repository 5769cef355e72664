// Package inject assigns resolved dependencies into bean shells.
package inject

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Injectable is implemented by beans that accept dependencies without
// reflection.
type Injectable interface {
	// SetDependency assigns value to the dependency declared as field.
	SetDependency(field string, value any) error
}

var (
	ErrNilTarget     = errors.New("target cannot be nil")
	ErrNotStruct     = errors.New("target must be a pointer to a struct")
	ErrFieldNotFound = errors.New("field not found")
)

// fieldKey identifies a field lookup for the cache.
type fieldKey struct {
	Type  reflect.Type
	Field string
}

// fieldCache memoizes field indexes per struct type.
var fieldCache sync.Map // fieldKey -> []int

// SetField assigns value to field of target.
//
// Targets implementing Injectable handle the assignment themselves. Other
// targets must be pointers to structs; the field is found by its `bean`
// tag, then by its Go name, then by its name ignoring case and underscores,
// so "user_repository" finds UserRepository.
func SetField(target any, field string, value any) error {
	if target == nil {
		return ErrNilTarget
	}

	if injectable, ok := target.(Injectable); ok {
		return injectable.SetDependency(field, value)
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrNotStruct, target)
	}

	index, err := lookupField(v.Elem().Type(), field)
	if err != nil {
		return err
	}

	dst := v.Elem().FieldByIndex(index)
	if !dst.CanSet() {
		return fmt.Errorf("field %s of %T cannot be set", field, target)
	}

	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	src := reflect.ValueOf(value)
	if !src.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("cannot assign %s to field %s of type %s", src.Type(), field, dst.Type())
	}

	dst.Set(src)
	return nil
}

// lookupField returns the index path of field in structType.
func lookupField(structType reflect.Type, field string) ([]int, error) {
	key := fieldKey{Type: structType, Field: field}
	if cached, ok := fieldCache.Load(key); ok {
		return cached.([]int), nil
	}

	index, ok := findField(structType, field)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrFieldNotFound, structType, field)
	}

	fieldCache.Store(key, index)
	return index, nil
}

func findField(structType reflect.Type, field string) ([]int, bool) {
	fields := reflect.VisibleFields(structType)

	for _, f := range fields {
		if f.IsExported() && f.Tag.Get("bean") == field {
			return f.Index, true
		}
	}

	for _, f := range fields {
		if f.IsExported() && f.Name == field {
			return f.Index, true
		}
	}

	want := normalize(field)
	for _, f := range fields {
		if f.IsExported() && !f.Anonymous && normalize(f.Name) == want {
			return f.Index, true
		}
	}

	return nil, false
}

func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

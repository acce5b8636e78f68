package shape

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Resolution describes how a source path lookup ended.
type Resolution int

const (
	Found           Resolution = iota // The final step produced a value.
	Absent                            // Some step named nothing on its container.
	NilIntermediate                   // The chain hit nil before its last step.
)

// Getter is implemented by instances that expose key access without being Go maps.
type Getter interface {
	Get(key string) (any, bool)
}

// Path is a parsed source path. The empty path ("*") addresses the whole instance.
type Path []string

// ParsePath splits a dotted source. "*" yields the empty path.
func ParsePath(source string) Path {
	if source == "*" || source == "" {
		return Path{}
	}
	return Path(strings.Split(source, "."))
}

// IsWhole reports whether the path addresses the whole instance.
func (p Path) IsWhole() bool { return len(p) == 0 }

func (p Path) String() string {
	if len(p) == 0 {
		return "*"
	}
	return strings.Join(p, ".")
}

// step is one resolution strategy. Strategies run in a fixed priority order and report
// ok=false to let the next one try.
type step func(cur reflect.Value, name string) (v any, ok bool, err error)

var steps = []step{lookupAttribute, lookupKey, lookupMethod}

// Resolve walks the path over instance. Each step tries attribute lookup, key lookup and a
// zero-argument method call, in that order.
func (p Path) Resolve(instance any) (any, Resolution, error) {
	cur := instance
	for i, name := range p {
		if isNil(cur) {
			if i == 0 {
				return nil, Absent, nil
			}
			return nil, NilIntermediate, nil
		}
		next, ok, err := resolveStep(cur, name)
		if err != nil {
			return nil, Absent, fmt.Errorf("resolving %q on %T: %w", name, cur, err)
		}
		if !ok {
			return nil, Absent, nil
		}
		cur = next
	}
	if isNil(cur) {
		return nil, Found, nil
	}
	return cur, Found, nil
}

func resolveStep(cur any, name string) (any, bool, error) {
	rv := reflect.ValueOf(cur)
	for _, s := range steps {
		v, ok, err := s(rv, name)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return nil, false, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// normalizeName folds case and drops underscores so "album_name" matches AlbumName.
func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

type lookupKeyT struct {
	t    reflect.Type
	name string
}

var (
	fieldCache  sync.Map // lookupKeyT -> []int (nil when absent)
	methodCache sync.Map // lookupKeyT -> int (-1 when absent)
)

func lookupAttribute(cur reflect.Value, name string) (any, bool, error) {
	sv := indirect(cur)
	if !sv.IsValid() || sv.Kind() != reflect.Struct {
		return nil, false, nil
	}
	idx := structFieldIndex(sv.Type(), name)
	if idx == nil {
		return nil, false, nil
	}
	fv, err := sv.FieldByIndexErr(idx)
	if err != nil {
		// nil embedded pointer on the way
		return nil, true, nil
	}
	return fv.Interface(), true, nil
}

func structFieldIndex(t reflect.Type, name string) []int {
	key := lookupKeyT{t, name}
	if v, ok := fieldCache.Load(key); ok {
		return v.([]int)
	}
	var found []int
	norm := normalizeName(name)
	var byNorm []int
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		if sf.Name == name || jsonName(sf) == name {
			found = sf.Index
			break
		}
		if byNorm == nil && normalizeName(sf.Name) == norm {
			byNorm = sf.Index
		}
	}
	if found == nil {
		found = byNorm
	}
	fieldCache.Store(key, found)
	return found
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	if i := strings.IndexByte(tag, ','); i >= 0 {
		return tag[:i]
	}
	return tag
}

func lookupKey(cur reflect.Value, name string) (any, bool, error) {
	if g, ok := cur.Interface().(Getter); ok {
		v, found := g.Get(name)
		return v, found, nil
	}
	mv := indirect(cur)
	if !mv.IsValid() || mv.Kind() != reflect.Map || mv.Type().Key().Kind() != reflect.String {
		return nil, false, nil
	}
	v := mv.MapIndex(reflect.ValueOf(name).Convert(mv.Type().Key()))
	if !v.IsValid() {
		return nil, false, nil
	}
	return v.Interface(), true, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func lookupMethod(cur reflect.Value, name string) (any, bool, error) {
	if !cur.IsValid() {
		return nil, false, nil
	}
	i := methodIndex(cur.Type(), name)
	if i < 0 {
		return nil, false, nil
	}
	out := cur.Method(i).Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, false, out[1].Interface().(error)
	}
	return out[0].Interface(), true, nil
}

func methodIndex(t reflect.Type, name string) int {
	key := lookupKeyT{t, name}
	if v, ok := methodCache.Load(key); ok {
		return v.(int)
	}
	found := -1
	norm := normalizeName(name)
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		mt := m.Type
		// method values on reflect.Type include the receiver as first input
		if mt.NumIn() != 1 || mt.NumOut() == 0 || mt.NumOut() > 2 {
			continue
		}
		if mt.NumOut() == 2 && !mt.Out(1).Implements(errorType) {
			continue
		}
		if m.Name == name || normalizeName(m.Name) == norm {
			found = i
			if m.Name == name {
				break
			}
		}
	}
	methodCache.Store(key, found)
	return found
}

// SetValue stores value in dst at the nested keys, creating intermediate maps. With no keys
// and a map value, the value's entries are merged into dst.
func SetValue(dst map[string]any, keys []string, value any) {
	if len(keys) == 0 {
		if m, ok := value.(map[string]any); ok {
			for k, v := range m {
				dst[k] = v
			}
		}
		return
	}
	cur := dst
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[k] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

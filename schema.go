package syndex

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/indexmill/syndex/internal/domain"
)

const tagKey = "syndex"

// fieldMeta is one mapped document field, resolved at definition time.
type fieldMeta struct {
	name         string   // document field name
	kind         FieldKind
	index        [][]int  // reflect index chain per attribute path segment
	path         []string // declared attribute path, for cycle exclusion
	failSilently bool     // swallow preparation/translation errors
}

// schemaMeta holds parsed struct tag metadata, cached per Document.
type schemaMeta struct {
	typ    reflect.Type
	idIdx  int    // struct field index of the primary key
	idName string // document name of the primary key field
	fields []fieldMeta
}

// kindOf maps Go field types to search field kinds. Types absent here fail
// definition eagerly unless the tag declares an explicit kind.
func kindOf(t reflect.Type) (FieldKind, bool) {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t == reflect.TypeOf(time.Time{}) {
		return FieldDate, true
	}
	switch t.Kind() {
	case reflect.String:
		return FieldText, true
	case reflect.Bool:
		return FieldBoolean, true
	case reflect.Int8, reflect.Int16, reflect.Uint8, reflect.Uint16:
		return FieldShort, true
	case reflect.Int, reflect.Int32, reflect.Uint32:
		return FieldInteger, true
	case reflect.Int64, reflect.Uint, reflect.Uint64:
		return FieldLong, true
	case reflect.Float32, reflect.Float64:
		return FieldDouble, true
	default:
		return "", false
	}
}

var validKinds = map[FieldKind]bool{
	FieldText: true, FieldKeyword: true, FieldInteger: true,
	FieldLong: true, FieldShort: true, FieldDouble: true,
	FieldBoolean: true, FieldDate: true, FieldFile: true,
}

// parseSchema reflects on T and extracts syndex struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("syndex: type %s is not a struct: %w", t, domain.ErrInvalidSchema)
	}

	meta := &schemaMeta{typ: t, idIdx: -1}

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("syndex: no field with `syndex:\"...,id\"` tag in %s: %w", t, domain.ErrInvalidSchema)
	}
	return meta, nil
}

// applyTag processes a single struct field's syndex tag:
// `syndex:"name[,kind][,id][,attr=Path.To.Field][,failsilent]"`.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = strings.ToLower(f.Name)
	}

	fm := fieldMeta{name: name}
	isID := false
	mapped := true

	for _, opt := range parts[1:] {
		switch {
		case opt == "id":
			isID = true
		case opt == "failsilent":
			fm.failSilently = true
		case strings.HasPrefix(opt, "attr="):
			fm.path = strings.Split(strings.TrimPrefix(opt, "attr="), ".")
		case validKinds[FieldKind(opt)]:
			if fm.kind != "" {
				return fmt.Errorf("syndex: duplicate kind on field %s: %w", f.Name, domain.ErrInvalidSchema)
			}
			fm.kind = FieldKind(opt)
		default:
			return fmt.Errorf("syndex: unknown option %q on field %s: %w", opt, f.Name, domain.ErrInvalidSchema)
		}
	}

	if isID {
		if meta.idIdx != -1 {
			return fmt.Errorf("syndex: duplicate id tag on field %s: %w", f.Name, domain.ErrInvalidSchema)
		}
		meta.idIdx = idx
		meta.idName = name
		// An id field joins the document source only with an explicit kind.
		mapped = fm.kind != ""
	}
	if !mapped {
		return nil
	}

	if len(fm.path) == 0 {
		fm.path = []string{f.Name}
	}
	chain, target, err := resolvePath(meta.typ, fm.path)
	if err != nil {
		return err
	}
	fm.index = chain

	if fm.kind == "" {
		kind, ok := kindOf(target)
		if !ok {
			return domain.NewUnmappedField(f.Name)
		}
		fm.kind = kind
	}

	meta.fields = append(meta.fields, fm)
	return nil
}

// resolvePath resolves a dotted attribute path to reflect index chains,
// one per segment so extraction can deref nil pointers safely.
func resolvePath(t reflect.Type, path []string) ([][]int, reflect.Type, error) {
	chain := make([][]int, 0, len(path))
	cur := t
	for _, seg := range path {
		for cur.Kind() == reflect.Pointer {
			cur = cur.Elem()
		}
		if cur.Kind() != reflect.Struct {
			return nil, nil, fmt.Errorf("syndex: attribute path %s crosses non-struct %s: %w",
				strings.Join(path, "."), cur, domain.ErrInvalidSchema)
		}
		f, ok := cur.FieldByName(seg)
		if !ok {
			return nil, nil, fmt.Errorf("syndex: attribute path %s: no field %q in %s: %w",
				strings.Join(path, "."), seg, cur, domain.ErrInvalidSchema)
		}
		chain = append(chain, f.Index)
		cur = f.Type
	}
	return chain, cur, nil
}

// pk returns the primary key of an instance as a string.
func (m *schemaMeta) pk(instance any) string {
	v := reflect.ValueOf(instance)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return fmt.Sprint(v.Field(m.idIdx).Interface())
}

// fieldInfos returns the declared mapped fields for introspection.
func (m *schemaMeta) fieldInfos() []FieldInfo {
	out := make([]FieldInfo, len(m.fields))
	for i, f := range m.fields {
		out[i] = FieldInfo{Name: f.name, Kind: f.kind}
	}
	return out
}

// extract walks the field's attribute path on the instance; a nil pointer
// anywhere along the path yields nil. Paths whose prefix is excluded (related
// instances being ignored during cascades) also yield nil.
func (f *fieldMeta) extract(instance any, ignore []string) any {
	for _, ig := range ignore {
		if pathHasPrefix(f.path, ig) {
			return nil
		}
	}

	v := reflect.ValueOf(instance)
	for _, idx := range f.index {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		}
		v = v.FieldByIndex(idx)
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

func pathHasPrefix(path []string, ignore string) bool {
	prefix := strings.Split(ignore, ".")
	if len(prefix) > len(path) {
		return false
	}
	for i, seg := range prefix {
		if path[i] != seg {
			return false
		}
	}
	return true
}

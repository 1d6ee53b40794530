package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/bough/internal/store"
)

// Store host functions. Risor scripts cannot work with Go struct pointers
// directly, so rows are converted to Risor maps with primitive values.

// files() → [{id, path, language, hash, line_count}]
func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.AllFiles()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		results := make([]object.Object, len(files))
		for i, f := range files {
			results[i] = object.NewMap(map[string]object.Object{
				"id":         object.NewInt(f.ID),
				"path":       object.NewString(f.Path),
				"language":   object.NewString(f.Language),
				"hash":       object.NewString(f.Hash),
				"line_count": object.NewInt(int64(f.LineCount)),
			})
		}
		return object.NewList(results)
	})
}

// declarations_by_file(file_id) → [{id, file_id, name, kind, owner_kind, start_line, ...}]
func makeDeclarationsByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("declarations_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("declarations_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("declarations_by_file: %v", err)
		}
		decls, err := s.DeclarationsByFile(fileID)
		if err != nil {
			return object.Errorf("declarations_by_file: %v", err)
		}
		return declarationsToList(decls)
	})
}

// unresolved(file_id) → [{id, file_id, name, context, start_line, ...}]
func makeUnresolvedFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("unresolved", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("unresolved", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("unresolved: %v", err)
		}
		refs, err := s.UnresolvedReferences(fileID)
		if err != nil {
			return object.Errorf("unresolved: %v", err)
		}
		return referencesToList(refs)
	})
}

// declarations_by_name(name), declarations_by_kind(kind) and
// references_by_name(name) search the whole index.
func makeDeclarationsByNameFn(s *store.Store) *object.Builtin {
	return makeLookupFn("declarations_by_name", s.DeclarationsByName, declarationsToList)
}

func makeDeclarationsByKindFn(s *store.Store) *object.Builtin {
	return makeLookupFn("declarations_by_kind", s.DeclarationsByKind, declarationsToList)
}

func makeReferencesByNameFn(s *store.Store) *object.Builtin {
	return makeLookupFn("references_by_name", s.ReferencesByName, referencesToList)
}

func makeLookupFn[T any](name string, lookup func(string) ([]T, error), convert func([]T) object.Object) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		rows, err := lookup(key)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return convert(rows)
	})
}

// makeDBQueryFn creates "db_query": a read-only SQL escape hatch.
//
// db_query(sql, args...) → [{column: value}]
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument, got 0")
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		if !isReadOnlyQuery(sqlStr) {
			return object.Errorf("db_query: only SELECT statements are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

func isReadOnlyQuery(q string) bool {
	q = strings.ToUpper(strings.TrimSpace(q))
	return strings.HasPrefix(q, "SELECT") || strings.HasPrefix(q, "WITH")
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func spanToMap(s store.Span) map[string]object.Object {
	return map[string]object.Object{
		"start_line": object.NewInt(int64(s.StartLine)),
		"start_col":  object.NewInt(int64(s.StartCol)),
		"end_line":   object.NewInt(int64(s.EndLine)),
		"end_col":    object.NewInt(int64(s.EndCol)),
	}
}

// declarationsToList converts declarations to a Risor list of maps.
func declarationsToList(decls []*store.Declaration) object.Object {
	results := make([]object.Object, len(decls))
	for i, d := range decls {
		m := spanToMap(d.Span)
		m["id"] = object.NewInt(d.ID)
		m["file_id"] = object.NewInt(d.FileID)
		m["name"] = object.NewString(d.Name)
		m["kind"] = object.NewString(d.Kind)
		m["owner_kind"] = object.NewString(d.OwnerKind)
		results[i] = object.NewMap(m)
	}
	return object.NewList(results)
}

func referencesToList(refs []*store.Reference) object.Object {
	results := make([]object.Object, len(refs))
	for i, r := range refs {
		m := spanToMap(r.Span)
		m["id"] = object.NewInt(r.ID)
		m["file_id"] = object.NewInt(r.FileID)
		m["name"] = object.NewString(r.Name)
		m["context"] = object.NewString(r.Context)
		results[i] = object.NewMap(m)
	}
	return object.NewList(results)
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

func toInt64(obj object.Object) (int64, error) {
	switch v := obj.(type) {
	case *object.Int:
		return v.Value(), nil
	case *object.Float:
		return int64(v.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	s, ok := obj.(*object.String)
	if !ok {
		return "", fmt.Errorf("expected string, got %s", obj.Type())
	}
	return s.Value(), nil
}

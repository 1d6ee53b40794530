package bough

import (
	"fmt"
	"strings"

	"github.com/jward/bough/internal/store"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByName     SortField = "name"
	SortByKind     SortField = "kind"
	SortByFile     SortField = "file"
	SortByRefCount SortField = "ref_count"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// DeclarationResult extends Declaration with computed fields useful for
// discovery.
type DeclarationResult struct {
	store.Declaration `yaml:",inline"`
	FilePath          string `json:"file_path" yaml:"file_path"`
	RefCount          int    `json:"ref_count" yaml:"ref_count"` // resolved references to this declaration
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T `json:"items" yaml:"items"`
	TotalCount int `json:"total_count" yaml:"total_count"` // total matching results (before pagination)
}

// DeclarationFilter specifies which declarations to include.
type DeclarationFilter struct {
	Kinds      []string // match any of these kinds ("local", "field", "pattern", ...)
	OwnerKinds []string // match any of these owner kinds ("TypePattern", "FormalParameter", ...)
	FileID     *int64   // restrict to a single file
	PathPrefix *string  // restrict to declarations in files under this path
}

// --- Internal Helpers ---

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE matching.
// "src/main" -> "src/main/" to prevent matching "src/main_old/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// declarationSortColumn returns the SQL ORDER BY expression for declaration
// queries. Falls back to "d.name" for unknown fields.
func declarationSortColumn(field SortField) string {
	switch field {
	case SortByKind:
		return "d.kind"
	case SortByFile:
		return "f.path"
	case SortByRefCount:
		return "ref_count"
	default:
		return "d.name"
	}
}

// sortDirection returns "ASC" or "DESC".
func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

func inClause(col string, values []string, where []string, args []any) ([]string, []any) {
	if len(values) == 0 {
		return where, args
	}
	where = append(where, col+" IN ("+strings.Repeat("?,", len(values)-1)+"?)")
	for _, v := range values {
		args = append(args, v)
	}
	return where, args
}

// filterClauses turns a DeclarationFilter into WHERE terms.
func filterClauses(filter DeclarationFilter, where []string, args []any) ([]string, []any) {
	where, args = inClause("d.kind", filter.Kinds, where, args)
	where, args = inClause("d.owner_kind", filter.OwnerKinds, where, args)
	if filter.FileID != nil {
		where = append(where, "d.file_id = ?")
		args = append(args, *filter.FileID)
	}
	if filter.PathPrefix != nil {
		prefix := normalizePathPrefix(*filter.PathPrefix)
		if prefix != "" {
			where = append(where, "f.path LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(prefix)+"%")
		}
	}
	return where, args
}

// queryDeclarationResults runs the count and page queries shared by
// Declarations and SearchDeclarations.
func (q *QueryBuilder) queryDeclarationResults(op string, where []string, args []any, sort Sort, page Pagination) (*PagedResult[DeclarationResult], error) {
	page = page.normalize()

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countSQL := `SELECT COUNT(*) FROM declarations d JOIN files f ON d.file_id = f.id ` + whereClause
	var totalCount int
	if err := q.store.DB().QueryRow(countSQL, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT %s, f.path,
			(SELECT COUNT(*) FROM resolved_references rr WHERE rr.declaration_id = d.id) AS ref_count
		 FROM declarations d
		 JOIN files f ON d.file_id = f.id
		 %s
		 ORDER BY %s %s, d.id
		 LIMIT ? OFFSET ?`,
		prefixDeclarationCols("d"), whereClause, declarationSortColumn(sort.Field), sortDirection(sort.Order),
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	rows, err := q.store.DB().Query(dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	items := []DeclarationResult{}
	for rows.Next() {
		dr, err := scanDeclarationResult(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, dr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return &PagedResult[DeclarationResult]{Items: items, TotalCount: totalCount}, nil
}

// --- Enumeration Endpoints ---

// Declarations is the primary listing/filtering endpoint. All filter fields
// are optional.
func (q *QueryBuilder) Declarations(filter DeclarationFilter, sort Sort, page Pagination) (*PagedResult[DeclarationResult], error) {
	where, args := filterClauses(filter, nil, nil)
	return q.queryDeclarationResults("declarations", where, args, sort, page)
}

// Files is a convenience method for listing files.
func (q *QueryBuilder) Files(pathPrefix string, page Pagination) (*PagedResult[store.File], error) {
	page = page.normalize()

	var where []string
	var args []any
	if pathPrefix != "" {
		where = append(where, "path LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(normalizePathPrefix(pathPrefix))+"%")
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var totalCount int
	if err := q.store.DB().QueryRow("SELECT COUNT(*) FROM files "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("files: count: %w", err)
	}

	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)
	rows, err := q.store.DB().Query(
		"SELECT "+store.FileCols+" FROM files "+whereClause+" ORDER BY path LIMIT ? OFFSET ?",
		dataArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("files: query: %w", err)
	}
	defer rows.Close()

	items := []store.File{}
	for rows.Next() {
		f, err := store.ScanFileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}
	return &PagedResult[store.File]{Items: items, TotalCount: totalCount}, nil
}

// Unresolved lists the references of a file that no declaration in scope
// names, in source order.
func (q *QueryBuilder) Unresolved(file string) ([]*store.Reference, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("unresolved: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	refs, err := q.store.UnresolvedReferences(f.ID)
	if err != nil {
		return nil, fmt.Errorf("unresolved: %w", err)
	}
	return refs, nil
}

// --- Search ---

// SearchDeclarations performs glob-style search on declaration names.
// '*' is the wildcard (mapped to SQL '%').
func (q *QueryBuilder) SearchDeclarations(pattern string, filter DeclarationFilter, sort Sort, page Pagination) (*PagedResult[DeclarationResult], error) {
	var where []string
	var args []any

	// Pattern matching: escape literal % and _ first, then convert * to %
	if pattern != "" && pattern != "*" {
		likePattern := strings.ReplaceAll(escapeLike(pattern), "*", "%")
		where = append(where, "d.name LIKE ? ESCAPE '\\'")
		args = append(args, likePattern)
	}
	where, args = filterClauses(filter, where, args)
	return q.queryDeclarationResults("search declarations", where, args, sort, page)
}

// --- Digest Endpoints ---

// Summary provides a high-level overview of the index.
type Summary struct {
	FileCount        int            `json:"file_count" yaml:"file_count"`
	LineCount        int            `json:"line_count" yaml:"line_count"`
	DeclarationCount int            `json:"declaration_count" yaml:"declaration_count"`
	KindCounts       map[string]int `json:"kind_counts" yaml:"kind_counts"`
	ReferenceCount   int            `json:"reference_count" yaml:"reference_count"`
	ResolvedCount    int            `json:"resolved_count" yaml:"resolved_count"`
}

// Summary returns counts over the whole index.
func (q *QueryBuilder) Summary() (*Summary, error) {
	s := &Summary{KindCounts: make(map[string]int)}
	err := q.store.DB().QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(line_count), 0) FROM files`,
	).Scan(&s.FileCount, &s.LineCount)
	if err != nil {
		return nil, fmt.Errorf("summary: files: %w", err)
	}

	rows, err := q.store.DB().Query(`SELECT kind, COUNT(*) FROM declarations GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("summary: kinds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("summary: scan kind: %w", err)
		}
		s.KindCounts[kind] = count
		s.DeclarationCount += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary: kind rows: %w", err)
	}

	err = q.store.DB().QueryRow(
		`SELECT (SELECT COUNT(*) FROM references_), (SELECT COUNT(*) FROM resolved_references)`,
	).Scan(&s.ReferenceCount, &s.ResolvedCount)
	if err != nil {
		return nil, fmt.Errorf("summary: references: %w", err)
	}
	return s, nil
}

// --- Scan Helpers ---

// prefixDeclarationCols returns the DeclarationCols with a table prefix applied.
func prefixDeclarationCols(prefix string) string {
	cols := strings.Split(store.DeclarationCols, ",")
	for i, c := range cols {
		cols[i] = prefix + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

// scanDeclarationResult scans a row into a DeclarationResult.
// Expects columns: [DeclarationCols..., file_path, ref_count].
func scanDeclarationResult(row scanner) (DeclarationResult, error) {
	var dr DeclarationResult
	var owner *string
	err := row.Scan(
		&dr.ID, &dr.FileID, &dr.Name, &dr.Kind, &owner,
		&dr.StartByte, &dr.EndByte, &dr.StartLine, &dr.StartCol, &dr.EndLine, &dr.EndCol,
		&dr.FilePath, &dr.RefCount,
	)
	if err != nil {
		return dr, err
	}
	if owner != nil {
		dr.OwnerKind = *owner
	}
	return dr, nil
}

// escapeLike escapes SQL LIKE special characters (% and _) with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

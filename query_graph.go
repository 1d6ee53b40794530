package bough

import "fmt"

// HotspotResult represents a heavily-referenced declaration.
type HotspotResult struct {
	Declaration   DeclarationResult `json:"declaration" yaml:"declaration"`
	ReferenceFrom int               `json:"reference_files" yaml:"reference_files"` // distinct files with a resolved use
	MaxLevels     int               `json:"max_levels" yaml:"max_levels"`           // deepest scope climb of any use
}

// UnusedDeclarations returns declarations with zero resolved references.
// Methods and types are excluded. A call resolves by name only when the
// method is declared in an enclosing class, and type names are not
// references at all, so neither count is evidence of dead code. Supports the
// same DeclarationFilter and Pagination as Declarations().
func (q *QueryBuilder) UnusedDeclarations(filter DeclarationFilter, sort Sort, page Pagination) (*PagedResult[DeclarationResult], error) {
	where := []string{
		"NOT EXISTS (SELECT 1 FROM resolved_references rr WHERE rr.declaration_id = d.id)",
		"d.kind NOT IN ('method', 'type')",
	}
	where, args := filterClauses(filter, where, nil)
	return q.queryDeclarationResults("unused declarations", where, args, sort, page)
}

// Hotspots returns the top-N most-referenced declarations, by resolved
// reference count descending.
// topN of 0 returns empty list. Negative returns error.
func (q *QueryBuilder) Hotspots(topN int) ([]*HotspotResult, error) {
	if topN < 0 {
		return nil, fmt.Errorf("hotspots: topN must be non-negative, got %d", topN)
	}
	if topN == 0 {
		return []*HotspotResult{}, nil
	}

	dataSQL := fmt.Sprintf(
		`SELECT %s, f.path,
			COUNT(rr.id) AS ref_count,
			COUNT(DISTINCT r.file_id) AS ref_files,
			COALESCE(MAX(rr.levels), 0) AS max_levels
		 FROM declarations d
		 JOIN files f ON d.file_id = f.id
		 JOIN resolved_references rr ON rr.declaration_id = d.id
		 JOIN references_ r ON r.id = rr.reference_id
		 GROUP BY d.id
		 ORDER BY ref_count DESC, d.id
		 LIMIT ?`,
		prefixDeclarationCols("d"),
	)

	rows, err := q.store.DB().Query(dataSQL, topN)
	if err != nil {
		return nil, fmt.Errorf("hotspots: query: %w", err)
	}
	defer rows.Close()

	items := []*HotspotResult{}
	for rows.Next() {
		hr, err := scanHotspotResult(rows)
		if err != nil {
			return nil, fmt.Errorf("hotspots: scan: %w", err)
		}
		items = append(items, hr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hotspots: rows: %w", err)
	}
	return items, nil
}

// scanHotspotResult scans a row into a HotspotResult.
// Expects columns: [DeclarationCols..., file_path, ref_count, ref_files, max_levels].
func scanHotspotResult(row scanner) (*HotspotResult, error) {
	var hr HotspotResult
	var owner *string
	d := &hr.Declaration
	err := row.Scan(
		&d.ID, &d.FileID, &d.Name, &d.Kind, &owner,
		&d.StartByte, &d.EndByte, &d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol,
		&d.FilePath, &d.RefCount, &hr.ReferenceFrom, &hr.MaxLevels,
	)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		d.OwnerKind = *owner
	}
	return &hr, nil
}

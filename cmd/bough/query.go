package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/bough"
	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/syntax"
)

var (
	flagLimit  int
	flagOffset int
	flagSort   string
	flagOrder  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the resolution index",
	Long:  "Run queries against an indexed repository. All line and column numbers are 0-based.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	queryCmd.PersistentFlags().StringVar(&flagSort, "sort", "", "sort field: name|kind|file|ref_count")
	queryCmd.PersistentFlags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")

	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(referencesCmd)
	queryCmd.AddCommand(detailCmd)
	queryCmd.AddCommand(visibleCmd)
	queryCmd.AddCommand(scopesCmd)
	queryCmd.AddCommand(declarationsCmd)
	queryCmd.AddCommand(searchCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(unresolvedCmd)
	queryCmd.AddCommand(summaryCmd)
	queryCmd.AddCommand(unusedCmd)
	queryCmd.AddCommand(hotspotsCmd)
}

// --- Helpers ---

// resolveFilePath converts a file argument to an absolute path.
// If the path is already absolute, it's returned as-is.
// Otherwise, it's resolved relative to the current working directory.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// parsePosition parses <file> <line> <col> arguments.
func parsePosition(args []string) (file string, line, col int, err error) {
	if file, err = resolveFilePath(args[0]); err != nil {
		return "", 0, 0, err
	}
	if line, err = parseIntArg(args[1], "line"); err != nil {
		return "", 0, 0, err
	}
	if col, err = parseIntArg(args[2], "col"); err != nil {
		return "", 0, 0, err
	}
	return file, line, col, nil
}

// buildPagination creates a Pagination from the --limit and --offset flags.
func buildPagination() bough.Pagination {
	return bough.Pagination{Offset: flagOffset, Limit: flagLimit}
}

// buildSort creates a Sort from the --sort and --order flags.
func buildSort() (bough.Sort, error) {
	s := bough.Sort{Field: bough.SortByName, Order: bough.Asc}
	switch flagSort {
	case "", "name":
	case "kind":
		s.Field = bough.SortByKind
	case "file":
		s.Field = bough.SortByFile
	case "ref_count":
		s.Field = bough.SortByRefCount
	default:
		return s, fmt.Errorf("invalid sort field %q: must be name, kind, file or ref_count", flagSort)
	}
	switch flagOrder {
	case "", "asc":
	case "desc":
		s.Order = bough.Desc
	default:
		return s, fmt.Errorf("invalid order %q: must be asc or desc", flagOrder)
	}
	return s, nil
}

// runQuery opens the engine, runs fn and writes its result. Errors are
// reported in the selected format.
func runQuery(cmd *cobra.Command, fn func(e *bough.Engine) (CLIResult, error)) error {
	w := cmd.OutOrStdout()
	engine, err := openEngine()
	if err != nil {
		return outputError(w, cmd.Name(), err)
	}
	defer engine.Close()

	result, err := fn(engine)
	if err != nil {
		return outputError(w, cmd.Name(), err)
	}
	result.Command = cmd.Name()
	return outputResult(w, result)
}

func paged(results any, total int) CLIResult {
	return CLIResult{Results: results, TotalCount: &total}
}

// --- Position queries ---

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find where the name at a position is declared",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return CLIResult{}, err
			}
			locs, err := e.Query().DefinitionAt(file, line, col)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLILocation, 0, len(locs))
			for _, loc := range locs {
				out = append(out, locationToCLI(loc, declarationIDAt(e, loc)))
			}
			return CLIResult{Results: out}, nil
		})
	},
}

// declarationIDAt returns the ID of the declaration whose name starts at loc.
func declarationIDAt(e *bough.Engine, loc bough.Location) *int64 {
	s := e.Store()
	f, err := s.FileByPath(loc.File)
	if err != nil || f == nil {
		return nil
	}
	d, err := s.DeclarationAt(f.ID, loc.StartLine, loc.StartCol)
	if err != nil || d == nil {
		return nil
	}
	return &d.ID
}

var referencesCmd = &cobra.Command{
	Use:   "references [<file> <line> <col>]",
	Short: "Find every use of a declaration",
	Long:  "Lists resolved uses of the declaration named at a position, or of --decl.",
	RunE: func(cmd *cobra.Command, args []string) error {
		declID, _ := cmd.Flags().GetInt64("decl")
		if declID == 0 && len(args) != 3 {
			return fmt.Errorf("requires either <file> <line> <col> arguments or --decl flag")
		}
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			var locs []bough.Location
			var err error
			if declID != 0 {
				locs, err = e.Query().ReferencesToDeclaration(declID)
			} else {
				var file string
				var line, col int
				if file, line, col, err = parsePosition(args); err != nil {
					return CLIResult{}, err
				}
				locs, err = e.Query().ReferencesTo(file, line, col)
			}
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: locationsToCLI(locs)}, nil
		})
	},
}

var detailCmd = &cobra.Command{
	Use:   "detail [<file> <line> <col>]",
	Short: "Show a declaration and its uses",
	RunE: func(cmd *cobra.Command, args []string) error {
		declID, _ := cmd.Flags().GetInt64("decl")
		if declID == 0 && len(args) != 3 {
			return fmt.Errorf("requires either <file> <line> <col> arguments or --decl flag")
		}
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			var d *bough.DeclarationDetail
			var err error
			if declID != 0 {
				d, err = e.Query().DeclarationDetail(declID)
			} else {
				var file string
				var line, col int
				if file, line, col, err = parsePosition(args); err != nil {
					return CLIResult{}, err
				}
				d, err = e.Query().DeclarationDetailAt(file, line, col)
			}
			if err != nil || d == nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: detailToCLI(d)}, nil
		})
	},
}

var visibleCmd = &cobra.Command{
	Use:   "visible <file> <line> <col>",
	Short: "List the names in scope at a position, nearest first",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return CLIResult{}, err
			}
			vis, err := e.Query().VisibleAt(cmd.Context(), file, line, col)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIVisible, len(vis))
			for i, v := range vis {
				out[i] = CLIVisible{
					Name:      v.Name,
					Kind:      v.Kind,
					OwnerKind: v.OwnerKind,
					Location:  locationToCLI(v.Location, nil),
				}
			}
			return CLIResult{Results: out}, nil
		})
	},
}

var scopesCmd = &cobra.Command{
	Use:   "scopes <file> <line> <col>",
	Short: "List the scopes enclosing a position, innermost first",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return CLIResult{}, err
			}
			scopes, err := e.Query().ScopeAt(cmd.Context(), file, line, col)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIScope, len(scopes))
			for i, s := range scopes {
				out[i] = CLIScope{Kind: s.Kind, Location: locationToCLI(s.Location, nil)}
			}
			return CLIResult{Results: out}, nil
		})
	},
}

// --- Discovery ---

func init() {
	referencesCmd.Flags().Int64("decl", 0, "declaration ID (instead of a position)")
	detailCmd.Flags().Int64("decl", 0, "declaration ID (instead of a position)")

	for _, c := range []*cobra.Command{declarationsCmd, searchCmd, unusedCmd} {
		c.Flags().StringSlice("kind", nil, "filter by declaration kind (local, parameter, field, pattern, ...)")
		c.Flags().StringSlice("owner-kind", nil, "filter by declaring node kind (TypePattern, FormalParameter, ...)")
		c.Flags().String("file", "", "restrict to one file")
		c.Flags().String("path-prefix", "", "restrict to files under this path")
	}
	hotspotsCmd.Flags().Int("top", 10, "number of declarations to list")
}

// buildFilter creates a DeclarationFilter from the filter flags.
func buildFilter(cmd *cobra.Command, e *bough.Engine) (bough.DeclarationFilter, error) {
	var filter bough.DeclarationFilter
	filter.Kinds, _ = cmd.Flags().GetStringSlice("kind")
	filter.OwnerKinds, _ = cmd.Flags().GetStringSlice("owner-kind")
	for _, k := range filter.Kinds {
		if _, ok := resolve.ParseDeclKind(k); !ok {
			return filter, fmt.Errorf("invalid kind %q", k)
		}
	}
	for i, name := range filter.OwnerKinds {
		k, ok := syntax.KindOf(name)
		if !ok {
			return filter, fmt.Errorf("invalid owner kind %q", name)
		}
		filter.OwnerKinds[i] = k.String()
	}

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		path, err := resolveFilePath(file)
		if err != nil {
			return filter, err
		}
		f, err := e.Store().FileByPath(path)
		if err != nil {
			return filter, err
		}
		if f == nil {
			return filter, fmt.Errorf("%w: %s", bough.ErrNotIndexed, path)
		}
		filter.FileID = &f.ID
	}
	if prefix, _ := cmd.Flags().GetString("path-prefix"); prefix != "" {
		path, err := resolveFilePath(prefix)
		if err != nil {
			return filter, err
		}
		filter.PathPrefix = &path
	}
	return filter, nil
}

// declarationQuery runs a paged declaration listing with the common flags.
func declarationQuery(cmd *cobra.Command, list func(q *bough.QueryBuilder, filter bough.DeclarationFilter, sort bough.Sort, page bough.Pagination) (*bough.PagedResult[bough.DeclarationResult], error)) error {
	return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
		sort, err := buildSort()
		if err != nil {
			return CLIResult{}, err
		}
		filter, err := buildFilter(cmd, e)
		if err != nil {
			return CLIResult{}, err
		}
		res, err := list(e.Query(), filter, sort, buildPagination())
		if err != nil {
			return CLIResult{}, err
		}
		return paged(declarationsToCLI(res.Items), res.TotalCount), nil
	})
}

var declarationsCmd = &cobra.Command{
	Use:   "declarations",
	Short: "List declarations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return declarationQuery(cmd, (*bough.QueryBuilder).Declarations)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search declarations by name ('*' matches any run of characters)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return declarationQuery(cmd, func(q *bough.QueryBuilder, filter bough.DeclarationFilter, sort bough.Sort, page bough.Pagination) (*bough.PagedResult[bough.DeclarationResult], error) {
			return q.SearchDeclarations(args[0], filter, sort, page)
		})
	},
}

var unusedCmd = &cobra.Command{
	Use:   "unused",
	Short: "List declarations that nothing refers to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return declarationQuery(cmd, (*bough.QueryBuilder).UnusedDeclarations)
	},
}

var filesCmd = &cobra.Command{
	Use:   "files [path-prefix]",
	Short: "List indexed files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			prefix := ""
			if len(args) > 0 {
				var err error
				if prefix, err = resolveFilePath(args[0]); err != nil {
					return CLIResult{}, err
				}
			}
			res, err := e.Query().Files(prefix, buildPagination())
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIFile, len(res.Items))
			for i, f := range res.Items {
				out[i] = fileToCLI(f)
			}
			return paged(out, res.TotalCount), nil
		})
	},
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved <file>",
	Short: "List references in a file that no declaration in scope names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			file, err := resolveFilePath(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			refs, err := e.Query().Unresolved(file)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIReference, len(refs))
			for i, r := range refs {
				out[i] = referenceToCLI(file, r)
			}
			return CLIResult{Results: out}, nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show counts over the whole index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			s, err := e.Query().Summary()
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: CLISummary(*s)}, nil
		})
	},
}

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "List the most referenced declarations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")
		return runQuery(cmd, func(e *bough.Engine) (CLIResult, error) {
			hs, err := e.Query().Hotspots(top)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIHotspot, len(hs))
			for i, h := range hs {
				out[i] = CLIHotspot{
					Declaration:    declarationToCLI(h.Declaration),
					ReferenceFiles: h.ReferenceFrom,
					MaxLevels:      h.MaxLevels,
				}
			}
			return CLIResult{Results: out}, nil
		})
	},
}

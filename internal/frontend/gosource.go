// Package frontend acquires source units for the engine. Parsing is a
// collaborator concern, not an engine concern: the engine only ever sees
// pre-parsed declarations.
//
// Two front ends ship builtin: a Go declaration extractor on go/ast, and a
// JSON descriptor loader for units parsed by external tooling in any
// language.
package frontend

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"dddlens/internal/symbol"
)

// GoExtractor walks a directory tree and turns Go type declarations into
// source units.
type GoExtractor struct {
	ignorePatterns []string
	log            *zap.Logger
}

// NewGoExtractor creates an extractor honoring the given ignore patterns.
func NewGoExtractor(ignorePatterns []string, log *zap.Logger) *GoExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &GoExtractor{ignorePatterns: ignorePatterns, log: log}
}

// Walk scans root for .go files (tests excluded) and extracts one source
// unit per file. Files that fail to parse come back as units with
// ParseError set, so the builder can degrade them to Skipped. Units are
// returned in sorted path order.
func (e *GoExtractor) Walk(root string) ([]symbol.SourceUnit, error) {
	var units []symbol.SourceUnit
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		name := d.Name()
		if d.IsDir() {
			if p != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if p != root && isIgnoredRel(rel, name, e.ignorePatterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		if isIgnoredRel(rel, name, e.ignorePatterns) {
			return nil
		}
		units = append(units, e.extractFile(p))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	e.log.Debug("go source walk complete", zap.String("root", root), zap.Int("units", len(units)))
	return units, nil
}

// extractFile parses one Go file into a source unit.
func (e *GoExtractor) extractFile(p string) symbol.SourceUnit {
	unit := symbol.SourceUnit{Path: filepath.ToSlash(p), Language: "go"}

	src, err := os.ReadFile(p)
	if err != nil {
		unit.ParseError = err.Error()
		return unit
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, p, src, parser.SkipObjectResolution)
	if err != nil {
		unit.ParseError = err.Error()
		return unit
	}

	decls := make(map[string]*symbol.RawDecl)
	var order []string

	for _, d := range file.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			raw := declForTypeSpec(ts)
			if raw == nil {
				continue
			}
			decls[raw.Name] = raw
			order = append(order, raw.Name)
		}
	}

	// Attach methods to receivers declared in the same file.
	for _, d := range file.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
			continue
		}
		recv := receiverName(fd.Recv.List[0].Type)
		raw, ok := decls[recv]
		if !ok {
			continue
		}
		raw.Methods = append(raw.Methods, symbol.Method{
			Name:       fd.Name.Name,
			Signature:  funcSignature(fd.Name.Name, fd.Type),
			Visibility: visibilityOf(fd.Name.Name),
		})
	}

	for _, name := range order {
		raw := decls[name]
		markReadOnlyFields(raw)
		unit.Decls = append(unit.Decls, *raw)
	}
	return unit
}

// declForTypeSpec converts a struct or interface type spec. Other type
// declarations (aliases, funcs) are not symbol material.
func declForTypeSpec(ts *ast.TypeSpec) *symbol.RawDecl {
	switch t := ts.Type.(type) {
	case *ast.StructType:
		raw := &symbol.RawDecl{Name: ts.Name.Name, Kind: symbol.KindClass}
		if t.Fields == nil {
			return raw
		}
		for _, f := range t.Fields.List {
			typeStr := exprString(f.Type)
			if len(f.Names) == 0 {
				// Embedded type: treat as a base type.
				raw.BaseTypes = append(raw.BaseTypes, strings.TrimPrefix(typeStr, "*"))
				continue
			}
			for _, n := range f.Names {
				raw.Fields = append(raw.Fields, symbol.Field{Name: n.Name, Type: typeStr})
			}
		}
		return raw
	case *ast.InterfaceType:
		raw := &symbol.RawDecl{Name: ts.Name.Name, Kind: symbol.KindInterface}
		if t.Methods == nil {
			return raw
		}
		for _, m := range t.Methods.List {
			if len(m.Names) == 0 {
				raw.BaseTypes = append(raw.BaseTypes, exprString(m.Type))
				continue
			}
			ft, ok := m.Type.(*ast.FuncType)
			if !ok {
				continue
			}
			for _, n := range m.Names {
				raw.Methods = append(raw.Methods, symbol.Method{
					Name:       n.Name,
					Signature:  funcSignature(n.Name, ft),
					Visibility: visibilityOf(n.Name),
				})
			}
		}
		return raw
	default:
		return nil
	}
}

// markReadOnlyFields applies the Go immutability heuristic: an unexported
// field with no matching setter is read-only from outside its package.
func markReadOnlyFields(raw *symbol.RawDecl) {
	for i, f := range raw.Fields {
		if f.Name == "" || f.Name[0] >= 'A' && f.Name[0] <= 'Z' {
			continue
		}
		setter := "Set" + strings.ToUpper(f.Name[:1]) + f.Name[1:]
		hasSetter := false
		for _, m := range raw.Methods {
			if m.Name == setter {
				hasSetter = true
				break
			}
		}
		if !hasSetter {
			raw.Fields[i].ReadOnly = true
		}
	}
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

func visibilityOf(name string) symbol.Visibility {
	if name != "" && name[0] >= 'A' && name[0] <= 'Z' {
		return symbol.VisibilityPublic
	}
	return symbol.VisibilityPrivate
}

// funcSignature renders a compact signature: "Name(T1, T2) (R1, R2)".
func funcSignature(name string, ft *ast.FuncType) string {
	var params, results []string
	if ft.Params != nil {
		for _, f := range ft.Params.List {
			t := exprString(f.Type)
			n := len(f.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				params = append(params, t)
			}
		}
	}
	if ft.Results != nil {
		for _, f := range ft.Results.List {
			t := exprString(f.Type)
			n := len(f.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				results = append(results, t)
			}
		}
	}
	sig := name + "(" + strings.Join(params, ", ") + ")"
	switch len(results) {
	case 0:
	case 1:
		sig += " " + results[0]
	default:
		sig += " (" + strings.Join(results, ", ") + ")"
	}
	return sig
}

// exprString renders a type expression the way the symbol model expects:
// "*" for references, "[]" for slices, "map[K]V" for maps.
func exprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	case *ast.FuncType:
		return "func"
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.IndexExpr:
		return exprString(t.X)
	case *ast.IndexListExpr:
		return exprString(t.X)
	}
	return "unknown"
}

// --- ignore pattern matching ---

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	return filepath.ToSlash(p)
}

// isIgnoredRel reports whether a relative path should be ignored. Patterns
// may be plain dir/file names or globs like "vendor/*".
func isIgnoredRel(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		if name == p {
			return true
		}
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with|create|alter)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

type location struct {
	file string
	line int
}

type linter struct {
	seen       map[string]location
	violations []violation
}

func newLinter() *linter {
	return &linter{seen: make(map[string]location)}
}

func (l *linter) lintPath(path string) error {
	switch filepath.Ext(path) {
	case ".go":
		if strings.HasSuffix(path, "_test.go") {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return l.lintGo(path, src)
	case ".sql":
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		l.check(path, filepath.Base(path), 1, string(src))
		return nil
	default:
		return nil
	}
}

func (l *linter) lintGo(path string, src []byte) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for _, value := range vs.Values {
			bl := leadingLiteral(value)
			if bl == nil {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil {
				continue
			}
			if !sqlKeywordPattern.MatchString(raw) {
				continue
			}
			l.check(path, joinNames(vs.Names), fset.Position(bl.Pos()).Line, raw)
		}
		return true
	})
	return nil
}

func (l *linter) check(file, name string, line int, raw string) {
	marker := firstLine(raw)
	if !uuidMarkerPattern.MatchString(marker) {
		l.violations = append(l.violations, violation{
			file:    file,
			line:    line,
			name:    name,
			message: "missing or invalid --sql <uuid> marker",
		})
		return
	}
	if prev, dup := l.seen[marker]; dup {
		l.violations = append(l.violations, violation{
			file:    file,
			line:    line,
			name:    name,
			message: fmt.Sprintf("marker already used at %s:%d", prev.file, prev.line),
		})
		return
	}
	l.seen[marker] = location{file: file, line: line}
}

// leadingLiteral returns the left-most string literal of a concatenation.
func leadingLiteral(expr ast.Expr) *ast.BasicLit {
	for {
		switch e := expr.(type) {
		case *ast.BasicLit:
			if e.Kind != token.STRING {
				return nil
			}
			return e
		case *ast.BinaryExpr:
			if e.Op != token.ADD {
				return nil
			}
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		default:
			return nil
		}
	}
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func joinNames(idents []*ast.Ident) string {
	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		if ident == nil {
			continue
		}
		parts = append(parts, ident.Name)
	}
	return strings.Join(parts, ",")
}

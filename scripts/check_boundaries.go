package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "clipledger"

// Third-party packages each inner layer may import. Anything else outside the
// standard library belongs behind a port.
var (
	domainThirdParty = []string{
		"github.com/shopspring/decimal",
	}
	applicationThirdParty = []string{
		"github.com/shopspring/decimal",
		"golang.org/x/sync/errgroup",
		modulePath + "/internal/shared/events",
	}
)

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		return violations[i].Line < violations[j].Line
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		parts := strings.Split(filepath.ToSlash(path), "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}
		moduleRoot := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])

		imports, err := fileImports(path)
		if err != nil {
			violations = append(violations, violation{File: filepath.ToSlash(path), Line: 1, Rule: "file must parse"})
			return nil
		}
		violations = append(violations, checkImports(filepath.ToSlash(path), parts[3], moduleRoot, imports)...)
		return nil
	})

	return violations
}

type importLine struct {
	Path string
	Line int
}

func fileImports(path string) ([]importLine, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}
	out := make([]importLine, 0, len(file.Imports))
	for _, imp := range file.Imports {
		out = append(out, importLine{
			Path: strings.Trim(imp.Path.Value, "\""),
			Line: fset.Position(imp.Pos()).Line,
		})
	}
	return out, nil
}

// checkImports applies the layering rules for one file: no cross-context
// imports anywhere, and domain/application stay free of adapters and runtime
// infrastructure.
func checkImports(file string, layer string, moduleRoot string, imports []importLine) []violation {
	var violations []violation
	add := func(imp importLine, rule string) {
		violations = append(violations, violation{File: file, Line: imp.Line, Import: imp.Path, Rule: rule})
	}

	for _, imp := range imports {
		if hasPrefix(imp.Path, modulePath+"/contexts") && !hasPrefix(imp.Path, moduleRoot) {
			add(imp, "cross-context imports are forbidden")
		}

		var allowed []string
		switch layer {
		case "domain":
			allowed = append([]string{moduleRoot + "/domain"}, domainThirdParty...)
		case "application":
			allowed = append([]string{
				moduleRoot + "/application",
				moduleRoot + "/domain",
				moduleRoot + "/ports",
			}, applicationThirdParty...)
		default:
			continue
		}

		if strings.Contains(imp.Path, "/adapters/") {
			add(imp, layer+" must not import adapters")
			continue
		}
		if !isStdlib(imp.Path) && !isAllowed(imp.Path, allowed) {
			add(imp, layer+" import is outside explicit allowlist")
		}
	}
	return violations
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	first := strings.SplitN(importPath, "/", 2)[0]
	return !strings.Contains(first, ".") && first != modulePath
}

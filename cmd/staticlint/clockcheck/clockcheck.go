// Package clockcheck содержит анализатор, запрещающий чтение системных часов в пакетах,
// которые получают текущее время параметром.
package clockcheck

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// injectedClockPackages - пакеты, в которых время передаётся вызывающим
var injectedClockPackages = []string{
	"internal/admission",
	"internal/stats",
}

// forbidden - функции пакета time, читающие системные часы
var forbidden = map[string]bool{
	"Now":   true,
	"Since": true,
	"Until": true,
}

// Analyzer проверяет отсутствие вызовов time.Now, time.Since и time.Until
var Analyzer = &analysis.Analyzer{
	Name: "clockcheck",
	Doc:  "запрещает time.Now, time.Since и time.Until в пакетах с внедряемым временем",
	Run:  run,
}

func guarded(path string) bool {
	for _, p := range injectedClockPackages {
		if path == p || strings.HasSuffix(path, "/"+p) {
			return true
		}
	}
	return false
}

func run(pass *analysis.Pass) (interface{}, error) {
	if !guarded(pass.Pkg.Path()) {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Тестам разрешено пользоваться часами
		if strings.HasSuffix(pass.Fset.Position(file.Pos()).Filename, "_test.go") {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok || !forbidden[sel.Sel.Name] {
				return true
			}
			ident, ok := sel.X.(*ast.Ident)
			if !ok {
				return true
			}
			if pkg, ok := pass.TypesInfo.Uses[ident].(*types.PkgName); ok && pkg.Imported().Path() == "time" {
				pass.Reportf(sel.Pos(), "time.%s в пакете %s запрещён: передавайте время параметром", sel.Sel.Name, pass.Pkg.Path())
			}
			return true
		})
	}

	return nil, nil
}

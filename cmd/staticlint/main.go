// Package main содержит multichecker для статического анализа linkpulse.
//
// Набор анализаторов:
//
//  1. Проходы golang.org/x/tools/go/analysis/passes: nilness, shadow, unreachable, printf,
//     assign, atomic, bools, buildtag, copylock.
//  2. Все SA-проверки staticcheck.io, плюс ST1000 (комментарий пакета) и S1000 из
//     stylecheck и simple.
//  3. errcheck: необработанные ошибки.
//  4. clockcheck: time.Now, time.Since и time.Until запрещены в internal/admission и
//     internal/stats, где текущее время передаётся параметром.
//
// Запуск:
//
//	go run ./cmd/staticlint ./...
package main

import (
	"strings"

	"github.com/kisielk/errcheck/errcheck"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/assign"
	"golang.org/x/tools/go/analysis/passes/atomic"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/buildtag"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/tempizhere/linkpulse/cmd/staticlint/clockcheck"
)

// extraChecks - проверки вне класса SA, которые включаются поимённо
var extraChecks = map[string]bool{
	"ST1000": true,
	"S1000":  true,
}

// pick возвращает анализаторы staticcheck: все с префиксом SA и перечисленные в extraChecks
func pick(groups ...[]*lint.Analyzer) []*analysis.Analyzer {
	var out []*analysis.Analyzer
	for _, group := range groups {
		for _, a := range group {
			name := a.Analyzer.Name
			if strings.HasPrefix(name, "SA") || extraChecks[name] {
				out = append(out, a.Analyzer)
			}
		}
	}
	return out
}

func main() {
	analyzers := []*analysis.Analyzer{
		nilness.Analyzer,
		shadow.Analyzer,
		unreachable.Analyzer,
		printf.Analyzer,
		assign.Analyzer,
		atomic.Analyzer,
		bools.Analyzer,
		buildtag.Analyzer,
		copylock.Analyzer,
		errcheck.Analyzer,
		clockcheck.Analyzer,
	}
	analyzers = append(analyzers, pick(staticcheck.Analyzers, stylecheck.Analyzers, simple.Analyzers)...)

	multichecker.Main(analyzers...)
}

// Package analyzer reports calls that end the process from library code:
// panic anywhere, and log.Fatal, zerolog's Fatal or os.Exit outside the main
// function of a main package.
package analyzer

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/ast/astutil"
)

const zerologLogPath = "github.com/rs/zerolog/log"

var Analyzer = &analysis.Analyzer{
	Name: "exitcheck",
	Doc:  "check for usage of panic, log.Fatal, zerolog Fatal and os.Exit outside of main.main",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	panicObj := types.Universe.Lookup("panic")
	isMainPkg := pass.Pkg.Name() == "main"

	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			var obj types.Object
			switch fun := call.Fun.(type) {
			case *ast.Ident:
				obj = pass.TypesInfo.ObjectOf(fun)
			case *ast.SelectorExpr:
				obj = pass.TypesInfo.ObjectOf(fun.Sel)
			}
			if obj == nil {
				return true
			}

			if obj == panicObj {
				pass.Reportf(call.Pos(), "panic should not be used in production code")
				return true
			}

			name := exitName(obj)
			if name == "" {
				return true
			}
			if !isMainPkg || !inMainFunc(file, call) {
				pass.Reportf(call.Pos(), "%s should only be used in main.main function", name)
			}
			return true
		})
	}

	return nil, nil
}

// exitName returns the reported name of a function that exits the process,
// or "" for any other object.
func exitName(obj types.Object) string {
	fn, ok := obj.(*types.Func)
	if !ok || fn.Pkg() == nil {
		return ""
	}
	switch fn.Pkg().Path() {
	case "log":
		switch fn.Name() {
		case "Fatal", "Fatalf", "Fatalln":
			return "log.Fatal"
		}
	case "os":
		if fn.Name() == "Exit" {
			return "os.Exit"
		}
	case zerologLogPath:
		if fn.Name() == "Fatal" {
			return "log.Fatal"
		}
	}
	return ""
}

func inMainFunc(file *ast.File, node ast.Node) bool {
	path, _ := astutil.PathEnclosingInterval(file, node.Pos(), node.End())
	for _, n := range path {
		if fn, ok := n.(*ast.FuncDecl); ok && fn.Name.Name == "main" && fn.Recv == nil {
			return true
		}
	}
	return false
}

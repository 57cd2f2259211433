// Command linter runs the exitcheck analyzer, which reports panic calls and
// process exits (log.Fatal, zerolog Fatal, os.Exit) outside main.main.
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/idudko/mendel/cmd/linter/analyzer"
)

func main() {
	singlechecker.Main(analyzer.Analyzer)
}

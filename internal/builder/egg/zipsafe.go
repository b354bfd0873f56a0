package egg

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ralt/distgen/internal/builder"
)

// unsafeUsage matches module code that needs real files on disk: references
// to __file__ or __path__, and inspect helpers that read source or frames
var unsafeUsage = regexp.MustCompile(`\b(__file__|__path__)\b|\binspect\.(getsource|getabsfile|getsourcefile|getfile|getsourcelines|findsource|getcomments|getframeinfo|getinnerframes|getouterframes|stack|trace)\b`)

// AnalyzeZipSafe scans the Python modules of a build and reports whether the
// package can run from a zip archive. reasons names every offending module.
func AnalyzeZipSafe(modules []builder.SourceFile) (safe bool, reasons []string) {
	safe = true
	for _, f := range modules {
		if filepath.Ext(f.Path) != ".py" {
			continue
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: unreadable: %v", f.ModulePath, err))
			safe = false
			continue
		}
		if m := unsafeUsage.Find(data); m != nil {
			reasons = append(reasons, fmt.Sprintf("%s: uses %s", f.ModulePath, m))
			safe = false
		}
	}
	return safe, reasons
}

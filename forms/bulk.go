package forms

import (
	"fmt"
	"strings"

	"clothstock/store"
)

// LineError reports a rejected line of a bulk import. Line is 1-based and
// counts blank lines.
type LineError struct {
	Line    int
	Message string
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// lineBreaks folds every line boundary the import accepts into "\n". "\r\n"
// comes first so it counts as one break.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\v", "\n",
	"\f", "\n",
	"\x1c", "\n",
	"\x1d", "\n",
	"\x1e", "\n",
	"\u0085", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
)

// ParseCategoryLines reads one category per line as "name[,description]".
// The split is on the first comma only. Blank lines are skipped without
// comment; lines with an empty name are reported and skipped while the
// remaining lines are still returned.
func ParseCategoryLines(text string) ([]store.Category, []LineError) {
	var cats []store.Category
	var errs []LineError
	for i, line := range strings.Split(lineBreaks.Replace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, desc, _ := strings.Cut(line, ",")
		name = strings.TrimSpace(name)
		desc = strings.TrimSpace(desc)
		if name == "" {
			errs = append(errs, LineError{Line: i + 1, Message: "category name is empty"})
			continue
		}
		c := store.Category{Name: name}
		if desc != "" {
			c.Description = &desc
		}
		cats = append(cats, c)
	}
	return cats, errs
}

// File: cmd/locate.go
package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/docdriver/internal/locator"
	"github.com/xkilldash9x/docdriver/internal/script"
	"github.com/xkilldash9x/docdriver/internal/session"
)

// locateFlags are shared by every command that targets one element.
type locateFlags struct {
	how        string
	what       string
	tag        string
	element    string
	index      int
	pattern    string
	ignoreCase bool
	byValue    string
	frames     []string
	cell       string
}

func (f *locateFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.how, "how", "id", "locator strategy: "+strategyList())
	fs.StringVar(&f.what, "what", "", "value the strategy matches")
	fs.StringVar(&f.tag, "tag", "", "tag name of the element kind, e.g. INPUT or A")
	fs.StringVar(&f.element, "element", "", "element kind used in error messages")
	fs.IntVar(&f.index, "index", 0, "1-based position among elements of --tag (implies --how index)")
	fs.StringVar(&f.pattern, "pattern", "", "match --how against a regular expression instead of --what")
	fs.BoolVarP(&f.ignoreCase, "ignore-case", "i", false, "make --pattern case-insensitive")
	fs.StringVar(&f.byValue, "by-value", "", "also require the element's value to equal this")
	f.registerScope(cmd)
}

// registerScope adds only the context flags, for commands without a locator.
func (f *locateFlags) registerScope(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.frames, "frame", nil, "frame name, repeat or comma-separate for nested frames")
	cmd.Flags().StringVar(&f.cell, "cell", "", "id of a table cell to search within")
}

// locator builds the element locator the flags describe.
func (f *locateFlags) locator() (locator.Locator, error) {
	tag := strings.ToUpper(f.tag)
	if f.index > 0 {
		return locator.NewIndex(f.element, tag, f.index), nil
	}

	how, err := locator.ParseStrategy(f.how)
	if err != nil {
		return locator.Locator{}, err
	}
	var loc locator.Locator
	switch {
	case f.pattern != "":
		loc = locator.NewPattern(f.element, tag, how, f.pattern, f.ignoreCase)
	case f.what != "":
		loc = locator.New(f.element, tag, how, f.what)
	default:
		return locator.Locator{}, errors.New("one of --what, --pattern or --index is required")
	}
	if f.byValue != "" {
		loc = loc.WithValue(f.byValue)
	}
	return loc, nil
}

// narrow applies --cell to s.
func (f *locateFlags) narrow(s *session.Session) (*session.Session, error) {
	if f.cell == "" {
		return s, nil
	}
	return s.InCell(locator.Cell{Strategy: locator.ByID, ID: f.cell})
}

// scope is the offline equivalent of opening a session and narrowing it.
func (f *locateFlags) scope() (script.Scope, error) {
	scope := script.Top()
	for _, name := range f.frames {
		scope = scope.With(script.Frame(name))
	}
	if f.cell != "" {
		rule, err := locator.CompileCell(locator.Cell{Strategy: locator.ByID, ID: f.cell})
		if err != nil {
			return script.Scope{}, err
		}
		scope = scope.With(rule)
	}
	return scope, nil
}

func strategyList() string {
	names := make([]string, 0, len(locator.Strategies))
	for _, s := range locator.Strategies {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

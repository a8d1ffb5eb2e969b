package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dualout/internal/display"
	"dualout/internal/dualoutput"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var titleCaser = cases.Title(language.English)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// displayLabel renders a display tag for humans; untagged nodes show a dash.
func displayLabel(d display.Display) string {
	if d == "" {
		return "-"
	}
	return titleCaser.String(string(d))
}

func stateLabel(state dualoutput.SceneState, colorize bool) string {
	label := titleCaser.String(strings.ReplaceAll(string(state), "-", " "))
	if !colorize {
		return label
	}
	switch state {
	case dualoutput.StateMapped:
		return ansiGreen + label + ansiReset
	case dualoutput.StateCorrupted:
		return ansiRed + label + ansiReset
	case dualoutput.StateUnmapped:
		return ansiYellow + label + ansiReset
	default:
		return label
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(out io.Writer, label string, res dualoutput.Result) {
	fmt.Fprintf(out, "%s: created %d, confirmed %d, tagged %d, assigned %d, reparented %d, pruned %d, removed %d\n",
		label, res.Created, res.Confirmed, res.Tagged, res.Assigned, res.Reparented, res.Pruned, res.Removed)
	for _, err := range res.Failures {
		fmt.Fprintf(out, "  failure: %v\n", err)
	}
}

func displayOf(value string) display.Display {
	d, err := display.Parse(value)
	if err != nil {
		return ""
	}
	return d
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dgallion1/docdiff/internal/patch"
)

var (
	addColor    = color.New(color.FgGreen).SprintfFunc()
	removeColor = color.New(color.FgRed).SprintfFunc()
	changeColor = color.New(color.FgYellow).SprintfFunc()
	pathColor   = color.New(color.Faint).SprintfFunc()
)

// writeReport prints one line per patch.
func writeReport(w io.Writer, fromTitle, toTitle string, views []patch.View, truncated bool) {
	fmt.Fprintf(w, "--- %s\n+++ %s\n", fromTitle, toTitle)
	if len(views) == 0 {
		fmt.Fprintln(w, "no changes")
	}
	for _, v := range views {
		fmt.Fprintf(w, "%s %s\n", pathColor("%-12s", formatPath(v.Path)), describe(v))
	}
	if truncated {
		fmt.Fprintln(w, changeColor("(diff truncated at maximum depth)"))
	}
}

func describe(v patch.View) string {
	switch v.Action {
	case patch.AddText, patch.AddElement:
		return addColor("+ %s", v.HTML)
	case patch.RemoveText, patch.RemoveElement:
		s := removeColor("- %s", v.HTML)
		if v.Anchor != patch.AnchorNone && v.Anchor != "" {
			s += pathColor(" (%s %s)", v.Anchor, formatPath(v.AnchorPath))
		}
		return s
	case patch.ModifyText:
		return changeColor("~ %q -> %q", v.OldValue, v.NewValue)
	case patch.Replace:
		return changeColor("~ %s -> %s", v.OldHTML, v.HTML)
	case patch.TagChanged:
		return changeColor("~ <%s> -> <%s>", v.OldTag, v.NewTag)
	case patch.AddAttribute:
		return addColor("+ @%s=%q", v.Name, v.Value)
	case patch.RemoveAttribute:
		return removeColor("- @%s=%q", v.Name, v.Value)
	case patch.ModifyAttribute:
		return changeColor("~ @%s %q -> %q", v.Name, v.OldValue, v.NewValue)
	}
	return string(v.Action)
}

func formatPath(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprint(p)
	}
	return "/" + strings.Join(parts, "/")
}

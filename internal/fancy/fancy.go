// Package fancy provides pretty printing utilities and styling for CLI
// output, shared by cmd/grainfsmctl's version/compatibility/saga-status
// views. Colors live in colors.go, styles in styles.go; this file holds
// the tree-building helpers built on top of them.
package fancy

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

// Tree returns a new tree with common styling applied
func Tree() *tree.Tree {
	t := tree.New()
	t.EnumeratorStyle(BranchStyle)
	t.Enumerator(tree.RoundedEnumerator)
	return t
}

// BranchNode creates a styled section header node
func BranchNode(title string, count string) *tree.Tree {
	return tree.New().Root(
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			HeaderStyle.Render(title),
			" ",
			InfoStyle.Render(count),
		),
	)
}

// TruncateString truncates a string if it exceeds maxLength. Below a
// maxLength of 3 there is no room for the ellipsis, so the string is
// cut to maxLength bytes (empty for maxLength <= 0).
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength < 3 {
		if maxLength <= 0 {
			return ""
		}
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}

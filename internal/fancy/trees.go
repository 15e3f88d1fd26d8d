package fancy

import (
	"github.com/charmbracelet/lipgloss/tree"
)

// ComponentTree creates a component-specific styled tree
type ComponentTree struct {
	tree *tree.Tree
}

// NewComponentTree creates a new component tree with appropriate styling
func NewComponentTree(title string) *ComponentTree {
	t := tree.New()
	t.EnumeratorStyle(BranchStyle)
	t.Enumerator(tree.RoundedEnumerator)
	
	// Set the root with our title
	t.Root(title)
	
	return &ComponentTree{
		tree: t,
	}
}

// Tree returns the underlying tree
func (c *ComponentTree) Tree() *tree.Tree {
	return c.tree
}

// AddBranch adds a new branch with the given text
func (c *ComponentTree) AddBranch(text string) *tree.Tree {
	return c.tree.Child(text)
}

// AddChild adds a child node to the root branch
func (c *ComponentTree) AddChild(child interface{}) *tree.Tree {
	return c.tree.Child(child)
}

// VersionTree creates a tree specifically for an entity type's
// registered-version listing.
func VersionTree(entityType string) *ComponentTree {
	return NewComponentTree(EndpointStyle.Render(entityType))
}

// CompatibilityTree creates a tree branch for a single compatibility
// check's result (level, breaking-change reasons, migration path).
func CompatibilityTree(summary string) *ComponentTree {
	return NewComponentTree(RouteStyle.Render(summary))
}

// SagaTree creates a tree branch for a saga's status and step history.
func SagaTree(sagaID string) *ComponentTree {
	return NewComponentTree(ListenerStyle.Render(sagaID))
}
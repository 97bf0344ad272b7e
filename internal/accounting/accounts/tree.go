package accounts

import "sort"

// Node is one account within the chart hierarchy.
type Node struct {
	Account  Account `json:"account"`
	Children []*Node `json:"children,omitempty"`
}

// Forest is the chart of accounts grouped by parent. Accounts whose parent is missing become roots.
type Forest struct {
	Roots []*Node `json:"roots"`
	index map[int64]*Node
}

// BuildForest groups accounts by parent reference, ordering siblings by code.
func BuildForest(accounts []Account) *Forest {
	f := &Forest{index: make(map[int64]*Node, len(accounts))}
	for _, a := range accounts {
		f.index[a.ID] = &Node{Account: a}
	}
	for _, a := range accounts {
		node := f.index[a.ID]
		if a.ParentID != nil {
			if parent, ok := f.index[*a.ParentID]; ok && *a.ParentID != a.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		f.Roots = append(f.Roots, node)
	}
	sortNodes(f.Roots)
	for _, node := range f.index {
		sortNodes(node.Children)
	}
	return f
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Account.Code < nodes[j].Account.Code })
}

// Find returns the node of id.
func (f *Forest) Find(id int64) (*Node, bool) {
	node, ok := f.index[id]
	return node, ok
}

// Len returns the number of accounts in the forest.
func (f *Forest) Len() int {
	return len(f.index)
}

// Walk visits nodes depth-first in code order until visit returns false.
func (f *Forest) Walk(visit func(node *Node, depth int) bool) {
	for _, root := range f.Roots {
		if !walk(root, 0, visit) {
			return
		}
	}
}

func walk(node *Node, depth int, visit func(*Node, int) bool) bool {
	if !visit(node, depth) {
		return false
	}
	for _, child := range node.Children {
		if !walk(child, depth+1, visit) {
			return false
		}
	}
	return true
}

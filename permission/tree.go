package permission

import "sort"

// BuildMenuTree arranges a flat menu list into a forest. Nodes with parent 0, or
// whose parent is not in the list, become roots. Siblings are ordered by OrderNum,
// then ID. Every input id appears exactly once in the output; duplicate ids keep
// the first occurrence and parent cycles are cut at the node closest to the input
// order.
func BuildMenuTree(menus []Menu) []*MenuNode {
	nodes := make(map[int64]*MenuNode, len(menus))
	order := make([]int64, 0, len(menus))
	for _, m := range menus {
		if _, dup := nodes[m.ID]; dup {
			continue
		}
		nodes[m.ID] = &MenuNode{Menu: m}
		order = append(order, m.ID)
	}

	roots := make([]*MenuNode, 0)
	attached := make(map[int64]bool, len(order))

	for _, id := range order {
		node := nodes[id]
		parent, ok := nodes[node.ParentID]
		if node.ParentID == 0 || !ok || node.ParentID == node.ID || createsCycle(nodes, attached, node.ID, node.ParentID) {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
		attached[node.ID] = true
	}

	sortMenuNodes(roots)
	return roots
}

// createsCycle reports whether attaching child under parent would close a loop,
// following only links that were already attached.
func createsCycle(nodes map[int64]*MenuNode, attached map[int64]bool, child, parent int64) bool {
	steps := 0
	for cur := parent; ; {
		if cur == child {
			return true
		}
		if !attached[cur] {
			return false
		}
		cur = nodes[cur].ParentID
		steps++
		if steps > len(nodes) {
			return true
		}
	}
}

func sortMenuNodes(nodes []*MenuNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].OrderNum != nodes[j].OrderNum {
			return nodes[i].OrderNum < nodes[j].OrderNum
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortMenuNodes(n.Children)
	}
}

// FlattenMenuTree returns every node of the forest in depth-first order.
func FlattenMenuTree(roots []*MenuNode) []*MenuNode {
	out := make([]*MenuNode, 0)
	var walk func([]*MenuNode)
	walk = func(nodes []*MenuNode) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}

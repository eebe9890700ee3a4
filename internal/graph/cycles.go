package graph

import (
	"strings"
)

// DetectCycles walks every root branch depth-first, tracking the path of
// unique keys from the root. Reaching a key that is already on the current
// path records the loop from its first occurrence through the revisit.
// Structurally identical cycles reached from several roots are reported
// once.
func DetectCycles(tree *Tree) []CircularRef {
	var cycles []CircularRef
	seen := make(map[string]bool)

	for _, root := range tree.Roots {
		cycles = append(cycles, detectFrom(root, seen)...)
	}
	return cycles
}

type dfsFrame struct {
	node *Node
	next int
}

func detectFrom(root *Node, seen map[string]bool) []CircularRef {
	var cycles []CircularRef

	stack := []dfsFrame{{node: root}}
	path := []string{root.Key()}
	onPath := map[string]int{root.Key(): 0}

	for len(stack) > 0 {
		frame := &stack[len(stack)-1]

		if frame.next >= len(frame.node.Children) {
			stack = stack[:len(stack)-1]
			delete(onPath, frame.node.Key())
			path = path[:len(path)-1]
			continue
		}

		child := frame.node.Children[frame.next]
		frame.next++

		key := child.Key()
		if pos, ok := onPath[key]; ok {
			loop := append([]string(nil), path[pos:]...)
			if id := cycleID(loop); !seen[id] {
				seen[id] = true
				cycles = append(cycles, CircularRef{Path: loop, Depth: frame.node.Depth + 1})
			}
			continue
		}

		stack = append(stack, dfsFrame{node: child})
		onPath[key] = len(path)
		path = append(path, key)
	}

	return cycles
}

// cycleID is a rotation-independent identity for a cycle path, so the same
// loop entered at different points compares equal.
func cycleID(loop []string) string {
	if len(loop) == 0 {
		return ""
	}
	start := 0
	for i := 1; i < len(loop); i++ {
		if loop[i] < loop[start] {
			start = i
		}
	}
	rotated := make([]string, 0, len(loop))
	rotated = append(rotated, loop[start:]...)
	rotated = append(rotated, loop[:start]...)
	return strings.Join(rotated, "\x00")
}

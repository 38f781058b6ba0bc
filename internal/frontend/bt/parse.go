package bt

import (
	"fmt"
	"io"

	"github.com/keb77/scan/internal/frontend/xmlast"
)

// ParseBt parses a <root><BehaviorTree>...</BehaviorTree></root>
// document into a *Bt. The BehaviorTree element must hold exactly one
// child node (Sequence/Fallback/Action/Condition); BT.cpp-style
// documents that let <BehaviorTree> declare several named subtrees are
// out of scope here, since the grammar speaks only of root,
// reactive sequence, reactive fallback, action and condition.
func ParseBt(r io.Reader) (*Bt, error) {
	root, err := xmlast.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("bt: %w", err)
	}
	return fromRoot(root)
}

func fromRoot(root xmlast.Element) (*Bt, error) {
	if root.Start.Name.Local != "root" {
		return nil, fmt.Errorf("bt: expected root element <root>, got <%s>", root.Start.Name.Local)
	}
	trees := root.ChildrenNamed("BehaviorTree")
	if len(trees) != 1 {
		return nil, fmt.Errorf("bt: <root> must declare exactly one <BehaviorTree>, found %d", len(trees))
	}
	children := trees[0].Children()
	if len(children) != 1 {
		return nil, fmt.Errorf("bt: <BehaviorTree> must hold exactly one child node, found %d", len(children))
	}
	node, err := parseNode(children[0])
	if err != nil {
		return nil, err
	}
	return &Bt{Root: node}, nil
}

func parseNode(e xmlast.Element) (Node, error) {
	switch e.Start.Name.Local {
	case "Action":
		id, ok := e.Start.Get("ID")
		if !ok {
			return nil, fmt.Errorf("bt: <Action> missing required attribute \"ID\"")
		}
		return Action{ID: id}, nil

	case "Condition":
		id, ok := e.Start.Get("ID")
		if !ok {
			return nil, fmt.Errorf("bt: <Condition> missing required attribute \"ID\"")
		}
		return Condition{ID: id}, nil

	case "ReactiveSequence":
		children, err := parseChildren(e)
		if err != nil {
			return nil, err
		}
		return Sequence{Children: children}, nil

	case "ReactiveFallback":
		children, err := parseChildren(e)
		if err != nil {
			return nil, err
		}
		return Fallback{Children: children}, nil

	default:
		return nil, fmt.Errorf("bt: unknown node <%s>", e.Start.Name.Local)
	}
}

func parseChildren(e xmlast.Element) ([]Node, error) {
	kids := e.Children()
	if len(kids) == 0 {
		return nil, fmt.Errorf("bt: <%s> declares no children", e.Start.Name.Local)
	}
	nodes := make([]Node, len(kids))
	for i, k := range kids {
		n, err := parseNode(k)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

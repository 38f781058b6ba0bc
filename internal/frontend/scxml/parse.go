package scxml

import (
	"fmt"
	"io"
	"strings"

	"github.com/keb77/scan/internal/frontend/xmlast"
)

// ParseScxml parses a single <scxml> document.
func ParseScxml(r io.Reader) (*Scxml, error) {
	root, err := xmlast.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("scxml: %w", err)
	}
	if root.Start.Name.Local != "scxml" {
		return nil, fmt.Errorf("scxml: expected root element <scxml>, got <%s>", root.Start.Name.Local)
	}
	return parseScxmlElement(root)
}

func parseScxmlElement(el xmlast.Element) (*Scxml, error) {
	name, ok := el.Start.Get("name")
	if !ok {
		return nil, fmt.Errorf("scxml: <scxml> missing required attribute \"name\"")
	}
	initial, ok := el.Start.Get("initial")
	if !ok {
		return nil, fmt.Errorf("scxml: <scxml> missing required attribute \"initial\"")
	}

	fsm := &Scxml{ID: name, Initial: initial, States: make(map[string]*State)}

	for _, child := range el.Children() {
		switch child.Start.Name.Local {
		case "datamodel":
			data, err := parseDatamodel(child)
			if err != nil {
				return nil, err
			}
			fsm.Datamodel = data
		case "state":
			state, err := parseState(child)
			if err != nil {
				return nil, err
			}
			if _, dup := fsm.States[state.ID]; dup {
				return nil, fmt.Errorf("scxml: state %q already declared", state.ID)
			}
			fsm.States[state.ID] = state
			fsm.StateOrder = append(fsm.StateOrder, state.ID)
		default:
			return nil, fmt.Errorf("scxml: unexpected child <%s> of <scxml>", child.Start.Name.Local)
		}
	}

	if _, ok := fsm.States[fsm.Initial]; !ok {
		return nil, fmt.Errorf("scxml: initial state %q is not declared", fsm.Initial)
	}
	return fsm, nil
}

// magicType extracts the OMG type carried by a "TYPE ident:type" comment,
// the convention used to supply a type annotation when the element's
// own type attribute is absent.
func magicType(comments []string) (string, bool) {
	for _, c := range comments {
		fields := strings.Fields(c)
		if len(fields) == 2 && fields[0] == "TYPE" {
			if _, typ, ok := strings.Cut(fields[1], ":"); ok {
				return typ, true
			}
		}
	}
	return "", false
}

func parseDatamodel(el xmlast.Element) ([]Data, error) {
	var out []Data
	for _, child := range el.Children() {
		if child.Start.Name.Local != "data" {
			return nil, fmt.Errorf("scxml: unexpected child <%s> of <datamodel>", child.Start.Name.Local)
		}
		id, ok := child.Start.Get("id")
		if !ok {
			return nil, fmt.Errorf("scxml: <data> missing required attribute \"id\"")
		}
		expr, _ := child.Start.Get("expr")
		omgType, ok := child.Start.Get("type")
		if !ok {
			omgType, ok = magicType(child.Comments())
		}
		if !ok {
			// A TYPE comment preceding the <data> is a comment of the
			// enclosing <datamodel>; it applies when its ident names this id.
			for _, c := range el.Comments() {
				if fields := strings.Fields(c); len(fields) == 2 && fields[0] == "TYPE" {
					if ident, typ, cut := strings.Cut(fields[1], ":"); cut && ident == id {
						omgType, ok = typ, true
						break
					}
				}
			}
		}
		if !ok {
			return nil, fmt.Errorf("scxml: <data id=%q> has no type attribute or TYPE comment", id)
		}
		out = append(out, Data{ID: id, Expr: expr, OmgType: omgType})
	}
	return out, nil
}

func parseState(el xmlast.Element) (*State, error) {
	id, ok := el.Start.Get("id")
	if !ok {
		return nil, fmt.Errorf("scxml: <state> missing required attribute \"id\"")
	}
	state := &State{ID: id}
	for _, child := range el.Children() {
		switch child.Start.Name.Local {
		case "transition":
			t, err := parseTransition(child)
			if err != nil {
				return nil, err
			}
			state.Transitions = append(state.Transitions, t)
		case "onentry":
			execs, err := parseExecutables(child)
			if err != nil {
				return nil, err
			}
			state.OnEntry = execs
		case "onexit":
			execs, err := parseExecutables(child)
			if err != nil {
				return nil, err
			}
			state.OnExit = execs
		default:
			return nil, fmt.Errorf("scxml: unexpected child <%s> of <state id=%q>", child.Start.Name.Local, id)
		}
	}
	return state, nil
}

func parseTransition(el xmlast.Element) (Transition, error) {
	target, ok := el.Start.Get("target")
	if !ok {
		return Transition{}, fmt.Errorf("scxml: <transition> missing required attribute \"target\"")
	}
	event, _ := el.Start.Get("event")
	cond, _ := el.Start.Get("cond")
	if _, has := el.Start.Get("prob"); has {
		return Transition{}, fmt.Errorf("scxml: <transition> has unsupported attribute \"prob\" (probabilistic transitions are unsupported)")
	}
	effects, err := parseExecutables(el)
	if err != nil {
		return Transition{}, err
	}
	return Transition{Event: event, Target: target, Cond: cond, Effects: effects}, nil
}

func parseExecutables(el xmlast.Element) ([]Executable, error) {
	var out []Executable
	for _, child := range el.Children() {
		ex, err := parseExecutable(child)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func parseExecutable(el xmlast.Element) (Executable, error) {
	switch el.Start.Name.Local {
	case "assign":
		location, ok := el.Start.Get("location")
		if !ok {
			return nil, fmt.Errorf("scxml: <assign> missing required attribute \"location\"")
		}
		expr, ok := el.Start.Get("expr")
		if !ok {
			return nil, fmt.Errorf("scxml: <assign> missing required attribute \"expr\"")
		}
		return Assign{Location: location, Expr: expr}, nil

	case "raise":
		event, ok := el.Start.Get("event")
		if !ok {
			return nil, fmt.Errorf("scxml: <raise> missing required attribute \"event\"")
		}
		return Raise{Event: event}, nil

	case "send":
		return parseSend(el)

	case "if":
		return parseIf(el)

	default:
		return nil, fmt.Errorf("scxml: unexpected executable element <%s>", el.Start.Name.Local)
	}
}

func parseSend(el xmlast.Element) (Send, error) {
	event, ok := el.Start.Get("event")
	if !ok {
		return Send{}, fmt.Errorf("scxml: <send> missing required attribute \"event\"")
	}
	target, _ := el.Start.Get("target")
	if targetExpr, ok := el.Start.Get("targetexpr"); ok {
		target = targetExpr
	}
	delay, _ := el.Start.Get("delay")

	var params []Param
	for _, child := range el.Children() {
		if child.Start.Name.Local != "param" {
			return Send{}, fmt.Errorf("scxml: unexpected child <%s> of <send>", child.Start.Name.Local)
		}
		name, ok := child.Start.Get("name")
		if !ok {
			return Send{}, fmt.Errorf("scxml: <param> missing required attribute \"name\"")
		}
		expr, ok := child.Start.Get("expr")
		if !ok {
			expr, ok = child.Start.Get("location")
			if !ok {
				return Send{}, fmt.Errorf("scxml: <param name=%q> missing \"expr\" or \"location\"", name)
			}
		}
		omgType, ok := child.Start.Get("type")
		if !ok {
			omgType, _ = magicType(child.Comments())
		}
		params = append(params, Param{Name: name, Expr: expr, OmgType: omgType})
	}
	return Send{Event: event, Target: target, Delay: delay, Params: params}, nil
}

func parseIf(el xmlast.Element) (If, error) {
	cond, ok := el.Start.Get("cond")
	if !ok {
		return If{}, fmt.Errorf("scxml: <if> missing required attribute \"cond\"")
	}
	arms := []IfArm{{Cond: cond}}
	sawElse := false

	for _, child := range el.Children() {
		switch child.Start.Name.Local {
		case "elif":
			if sawElse {
				return If{}, fmt.Errorf("scxml: <elif> after <else>")
			}
			elifCond, ok := child.Start.Get("cond")
			if !ok {
				return If{}, fmt.Errorf("scxml: <elif> missing required attribute \"cond\"")
			}
			arms = append(arms, IfArm{Cond: elifCond})
		case "else":
			if sawElse {
				return If{}, fmt.Errorf("scxml: multiple <else> inside <if>")
			}
			sawElse = true
			arms = append(arms, IfArm{Cond: ""})
		default:
			ex, err := parseExecutable(child)
			if err != nil {
				return If{}, err
			}
			arms[len(arms)-1].Body = append(arms[len(arms)-1].Body, ex)
		}
	}
	return If{Arms: arms}, nil
}

// Package types parses the custom-type table a model's <model><types
// path=".."/></model> element points at (the "custom types"
// paragraph): named enumerations and structures used anywhere a
// <data>/<param> would otherwise carry a bare "bool"/"int"/"float" type
// attribute.
//
// The concrete production — a <dataTypeList> root holding
// <enumeration name><label name/>...</enumeration> and <structure
// name><field name type/>...</structure> children — is this package's
// own construction, since the value algebra has no enum/struct kind
// beyond Int and
// Product: an enumeration becomes an ordinal-encoded Int, a structure
// becomes a Product of its fields' types in declaration order. Resolving
// a label name to its ordinal inside an expression string is out of
// scope (exprlang's identifiers are variable names, not enum
// literals) — only the <data>/<param> type attribute itself resolves
// through this table.
package types

import (
	"fmt"
	"io"

	"github.com/keb77/scan/internal/frontend/xmlast"
	"github.com/keb77/scan/internal/value"
)

// Table is a custom type name to resolved Expression type mapping.
type Table map[string]value.Type

// Parse reads a <dataTypeList> document into a Table. Structures may
// only reference enumerations or structures already declared earlier in
// the same document (document order, no forward references), mirroring
// the same restriction internal/frontend/scxml.Lower applies to
// <datamodel> initial expressions.
func Parse(r io.Reader) (Table, error) {
	root, err := xmlast.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}
	if root.Start.Name.Local != "dataTypeList" {
		return nil, fmt.Errorf("types: expected root element <dataTypeList>, got <%s>", root.Start.Name.Local)
	}

	table := make(Table)
	for _, child := range root.Children() {
		switch child.Start.Name.Local {
		case "enumeration":
			name, ok := child.Start.Get("name")
			if !ok {
				return nil, fmt.Errorf("types: <enumeration> missing required attribute \"name\"")
			}
			if _, dup := table[name]; dup {
				return nil, fmt.Errorf("types: type %q already declared", name)
			}
			if len(child.ChildrenNamed("label")) == 0 {
				return nil, fmt.Errorf("types: enumeration %q declares no <label>", name)
			}
			table[name] = value.IntType

		case "structure":
			name, ok := child.Start.Get("name")
			if !ok {
				return nil, fmt.Errorf("types: <structure> missing required attribute \"name\"")
			}
			if _, dup := table[name]; dup {
				return nil, fmt.Errorf("types: type %q already declared", name)
			}
			fields := child.ChildrenNamed("field")
			if len(fields) == 0 {
				return nil, fmt.Errorf("types: structure %q declares no <field>", name)
			}
			comps := make([]value.Type, len(fields))
			for i, f := range fields {
				fname, ok := f.Start.Get("name")
				if !ok {
					return nil, fmt.Errorf("types: structure %q: <field> missing required attribute \"name\"", name)
				}
				ftype, ok := f.Start.Get("type")
				if !ok {
					return nil, fmt.Errorf("types: structure %q: field %q missing required attribute \"type\"", name, fname)
				}
				resolved, err := resolve(ftype, table)
				if err != nil {
					return nil, fmt.Errorf("types: structure %q: field %q: %w", name, fname, err)
				}
				comps[i] = resolved
			}
			table[name] = value.ProductType(comps...)

		default:
			return nil, fmt.Errorf("types: unexpected child <%s> of <dataTypeList>", child.Start.Name.Local)
		}
	}
	return table, nil
}

func resolve(s string, table Table) (value.Type, error) {
	switch s {
	case "bool":
		return value.BoolType, nil
	case "int":
		return value.IntType, nil
	case "float":
		return value.FloatType, nil
	default:
		if t, ok := table[s]; ok {
			return t, nil
		}
		return value.Type{}, fmt.Errorf("unknown type %q", s)
	}
}

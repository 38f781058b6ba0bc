// Package bt parses the behavior-tree process format and
// lowers it into a *pg.ProgramGraph that ticks its children over a
// tick_call/tick_return channel pair per leaf, following the standard
// root/BehaviorTree/ReactiveSequence/ReactiveFallback/Action/Condition
// production.
//
// The tag vocabulary (TAG_ROOT/TAG_BEHAVIOR_TREE/TAG_REACTIVE_SEQUENCE/
// TAG_REACTIVE_FALLBACK/TAG_ACTION/TAG_CONDITION/ATTR_BT_ID) and the
// channel vocabulary (TICK_CALL/HALT_CALL/TICK_RETURN/HALT_RETURN/
// ACTION_RESPONSE/CONDITION_RESPONSE/RESULT/SUCCESS/RUNNING/FAILURE)
// are this package's own construction from the mapping paragraph.
package bt

// Node is one node of a parsed behavior tree: Action, Condition,
// Sequence or Fallback.
type Node interface {
	isNode()
}

// Action is a leaf Action node: ticking it calls out over a tick_call/
// tick_return channel pair named after ID.
type Action struct {
	ID string
}

// Condition is a leaf Condition node, ticked the same way as Action.
type Condition struct {
	ID string
}

// Sequence is a ReactiveSequence: ticks children in order, stopping at
// the first that does not return SUCCESS.
type Sequence struct {
	Children []Node
}

// Fallback is a ReactiveFallback: ticks children in order, stopping at
// the first that does not return FAILURE.
type Fallback struct {
	Children []Node
}

func (Action) isNode()    {}
func (Condition) isNode() {}
func (Sequence) isNode()  {}
func (Fallback) isNode()  {}

// Bt is one parsed <root><BehaviorTree>...</BehaviorTree></root>
// document: a single top-level node.
type Bt struct {
	Root Node
}

package scxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keb77/scan/internal/cs"
	"github.com/keb77/scan/internal/value"
)

func TestParseScxmlSimpleFsm(t *testing.T) {
	doc := `<scxml name="p" initial="s0">
		<datamodel>
			<data id="x" expr="0" type="int"/>
		</datamodel>
		<state id="s0">
			<transition event="go" target="s1">
				<assign location="x" expr="x + 1"/>
			</transition>
		</state>
		<state id="s1"/>
	</scxml>`

	fsm, err := ParseScxml(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "p", fsm.ID)
	assert.Equal(t, "s0", fsm.Initial)
	assert.Len(t, fsm.Datamodel, 1)
	assert.Equal(t, []string{"s0", "s1"}, fsm.StateOrder)
	assert.Len(t, fsm.States["s0"].Transitions, 1)
}

func TestParseScxmlRejectsProbabilisticTransition(t *testing.T) {
	doc := `<scxml name="p" initial="s0">
		<state id="s0">
			<transition target="s0" prob="0.5"/>
		</state>
	</scxml>`
	_, err := ParseScxml(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestParseScxmlMagicTypeComment(t *testing.T) {
	doc := `<scxml name="p" initial="s0">
		<datamodel>
			<!-- TYPE x:bool -->
			<data id="x" expr="true"/>
		</datamodel>
		<state id="s0"/>
	</scxml>`
	fsm, err := ParseScxml(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, fsm.Datamodel, 1)
	assert.Equal(t, "bool", fsm.Datamodel[0].OmgType)
}

func TestParseScxmlIfElifElse(t *testing.T) {
	doc := `<scxml name="p" initial="s0">
		<datamodel>
			<data id="x" expr="0" type="int"/>
		</datamodel>
		<state id="s0">
			<transition target="s0">
				<if cond="x == 0">
					<assign location="x" expr="1"/>
				<elif cond="x == 1"/>
					<assign location="x" expr="2"/>
				<else/>
					<assign location="x" expr="0"/>
				</if>
			</transition>
		</state>
	</scxml>`
	fsm, err := ParseScxml(strings.NewReader(doc))
	require.NoError(t, err)
	trans := fsm.States["s0"].Transitions[0]
	require.Len(t, trans.Effects, 1)
	ifNode, ok := trans.Effects[0].(If)
	require.True(t, ok)
	require.Len(t, ifNode.Arms, 3)
	assert.Equal(t, "x == 0", ifNode.Arms[0].Cond)
	assert.Equal(t, "", ifNode.Arms[2].Cond)
}

func lowerOne(t *testing.T, doc string) (cs.PgID, *cs.ChannelSystem) {
	t.Helper()
	fsm, err := ParseScxml(strings.NewReader(doc))
	require.NoError(t, err)
	csb := cs.NewBuilder()
	events := NewEventChannels()
	pgID, err := Lower(fsm, csb, events)
	require.NoError(t, err)
	system, err := csb.Build()
	require.NoError(t, err)
	return pgID, system
}

func TestLowerSimpleAssign(t *testing.T) {
	doc := `<scxml name="p" initial="s0">
		<datamodel>
			<data id="x" expr="0" type="int"/>
		</datamodel>
		<state id="s0">
			<transition event="go" target="s1">
				<assign location="x" expr="x + 1"/>
			</transition>
		</state>
		<state id="s1"/>
	</scxml>`

	pgID, system := lowerOne(t, doc)
	assert.Equal(t, cs.PgID(0), pgID)
	assert.Equal(t, 1, system.NumProgramGraphs())
}

func TestLowerRaiseAndReceiveRoundTrip(t *testing.T) {
	doc := `<scxml name="p" initial="s0">
		<state id="s0">
			<transition target="s1">
				<raise event="ping"/>
			</transition>
		</state>
		<state id="s1">
			<transition event="ping" target="s0"/>
		</state>
	</scxml>`

	_, system := lowerOne(t, doc)
	cfg := system.InitialConfiguration()
	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	next, err := system.Transition(cfg, moves[0])
	require.NoError(t, err)

	moves, err = system.PossibleTransitions(next)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, cs.LocalMove, moves[0].Kind)
}

func TestLowerIfElseProducesMutuallyExclusiveBranches(t *testing.T) {
	doc := `<scxml name="p" initial="s0">
		<datamodel>
			<data id="x" expr="0" type="int"/>
		</datamodel>
		<state id="s0">
			<transition target="s0">
				<if cond="x == 0">
					<assign location="x" expr="1"/>
				<else/>
					<assign location="x" expr="0"/>
				</if>
			</transition>
		</state>
	</scxml>`

	_, system := lowerOne(t, doc)
	cfg := system.InitialConfiguration()
	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	require.Len(t, moves, 1)
}

func TestLowerRejectsUnknownVariable(t *testing.T) {
	doc := `<scxml name="p" initial="s0">
		<state id="s0">
			<transition target="s0">
				<assign location="y" expr="1"/>
			</transition>
		</state>
	</scxml>`
	fsm, err := ParseScxml(strings.NewReader(doc))
	require.NoError(t, err)
	csb := cs.NewBuilder()
	_, err = Lower(fsm, csb, NewEventChannels())
	assert.Error(t, err)
}

func TestParseOmgType(t *testing.T) {
	typ, err := parseOmgType("int", nil)
	require.NoError(t, err)
	assert.True(t, typ.Equal(value.IntType))

	_, err = parseOmgType("tuple", nil)
	assert.Error(t, err)

	typ, err = parseOmgType("Counter", map[string]value.Type{"Counter": value.IntType})
	require.NoError(t, err)
	assert.True(t, typ.Equal(value.IntType))
}

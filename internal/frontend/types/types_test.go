package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keb77/scan/internal/value"
)

func TestParseEnumerationAndStructure(t *testing.T) {
	doc := `<dataTypeList>
		<enumeration name="Color">
			<label name="Red"/>
			<label name="Blue"/>
		</enumeration>
		<structure name="Point">
			<field name="x" type="int"/>
			<field name="color" type="Color"/>
		</structure>
	</dataTypeList>`

	table, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.True(t, table["Color"].Equal(value.IntType))
	assert.True(t, table["Point"].Equal(value.ProductType(value.IntType, value.IntType)))
}

func TestParseRejectsDuplicateTypeName(t *testing.T) {
	doc := `<dataTypeList>
		<enumeration name="Color"><label name="Red"/></enumeration>
		<enumeration name="Color"><label name="Blue"/></enumeration>
	</dataTypeList>`
	_, err := Parse(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestParseRejectsUnknownFieldType(t *testing.T) {
	doc := `<dataTypeList>
		<structure name="P"><field name="x" type="Nope"/></structure>
	</dataTypeList>`
	_, err := Parse(strings.NewReader(doc))
	assert.Error(t, err)
}

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeQuery_SparqljsShape(t *testing.T) {
	q := mustDecode(t, `{
		"type": "query",
		"queryType": "SELECT",
		"variables": [{"termType": "Variable", "value": "doc"}, "?status"],
		"where": [
			{
				"type": "bgp",
				"triples": [{
					"subject":   {"termType": "Variable", "value": "doc"},
					"predicate": {"termType": "NamedNode", "value": "note.prop.status"},
					"object":    {"termType": "Variable", "value": "status"}
				}]
			},
			{
				"type": "filter",
				"expression": {
					"type": "operation",
					"operator": "!",
					"args": [{
						"type": "operation",
						"operator": "=",
						"args": [
							{"termType": "Variable", "value": "status"},
							{"termType": "Literal", "value": "archived"}
						]
					}]
				}
			}
		],
		"order": [{"expression": {"termType": "Variable", "value": "status"}, "order": "DESC"}],
		"limit": 5,
		"offset": 2
	}`)

	assert.Equal(t, "SELECT", q.QueryType)
	require.Len(t, q.Variables, 2)
	assert.Equal(t, "doc", q.Variables[0].Variable)
	assert.Equal(t, "status", q.Variables[1].Variable, "bare ?name select items decode too")

	require.Len(t, q.Where, 2)
	assert.Equal(t, PatternBGP, q.Where[0].Type)
	require.Len(t, q.Where[0].Triples, 1)
	assert.Equal(t, TermKindIRI, q.Where[0].Triples[0].Predicate.Kind)

	assert.Equal(t, PatternFilter, q.Where[1].Type)
	require.NotNil(t, q.Where[1].Expression)
	assert.Equal(t, ExprKindOperation, q.Where[1].Expression.Kind)
	assert.Equal(t, "!", q.Where[1].Expression.Operator)
	require.Len(t, q.Where[1].Expression.Args, 1)
	assert.Equal(t, "=", q.Where[1].Expression.Args[0].Operator)

	require.Len(t, q.OrderBy, 1)
	assert.True(t, q.OrderBy[0].Descending, `"order": "DESC" sets the flag`)

	require.NotNil(t, q.Limit)
	assert.Equal(t, 5, *q.Limit)
	require.NotNil(t, q.Offset)
	assert.Equal(t, 2, *q.Offset)
}

func TestDecodeQuery_PlainKindForm(t *testing.T) {
	q := mustDecode(t, `{
		"queryType": "select",
		"variables": ["*"],
		"where": [{
			"type": "BGP",
			"triples": [{
				"subject":   {"kind": "variable", "value": "s"},
				"predicate": {"kind": "iri", "value": "note.prop.area"},
				"object":    {"kind": "literal", "value": "infra"}
			}]
		}]
	}`)

	assert.True(t, q.Variables[0].Wildcard)
	require.Len(t, q.Where, 1)
	assert.Equal(t, PatternBGP, q.Where[0].Type, "pattern types are case-insensitive")

	tp := q.Where[0].Triples[0]
	assert.Equal(t, TermKindVariable, tp.Subject.Kind)
	assert.Equal(t, TermKindIRI, tp.Predicate.Kind)
	assert.Equal(t, TermKindLiteral, tp.Object.Kind)

	// Lowercased queryType still translates.
	_, err := Translate(q)
	assert.NoError(t, err)
}

func TestDecodeQuery_FunctionCall(t *testing.T) {
	q := mustDecode(t, `{
		"queryType": "SELECT",
		"variables": ["*"],
		"where": [
			{
				"type": "bgp",
				"triples": [{
					"subject":   {"termType": "Variable", "value": "s"},
					"predicate": {"termType": "Variable", "value": "p"},
					"object":    {"termType": "Variable", "value": "o"}
				}]
			},
			{
				"type": "filter",
				"expression": {
					"type": "functionCall",
					"function": {"termType": "NamedNode", "value": "contains"},
					"args": [
						{"termType": "Variable", "value": "o"},
						{"termType": "Literal", "value": "x"}
					]
				}
			}
		]
	}`)

	expr := q.Where[1].Expression
	require.NotNil(t, expr)
	assert.Equal(t, ExprKindOperation, expr.Kind)
	assert.Equal(t, "contains", expr.Operator)
	assert.Len(t, expr.Args, 2)
}

func TestDecodeQuery_LanguageTaggedLiteral(t *testing.T) {
	q := mustDecode(t, `{
		"queryType": "SELECT",
		"variables": ["*"],
		"where": [{
			"type": "bgp",
			"triples": [{
				"subject":   {"termType": "Variable", "value": "s"},
				"predicate": {"termType": "NamedNode", "value": "note.prop.title"},
				"object":    {"termType": "Literal", "value": "hallo", "language": "de"}
			}]
		}]
	}`)

	obj := q.Where[0].Triples[0].Object
	assert.Equal(t, "hallo", obj.Value)
	assert.Equal(t, "de", obj.Language)
}

func TestDecodeQuery_MalformedJSON(t *testing.T) {
	_, err := DecodeQuery([]byte(`{"queryType": SELECT`))
	assert.Error(t, err)
}

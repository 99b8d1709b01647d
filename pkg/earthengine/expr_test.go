package earthengine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Constant(t *testing.T) {
	expr, err := Encode(Constant(42))
	require.NoError(t, err)
	require.Len(t, expr.Values, 1)
	assert.JSONEq(t, `42`, string(expr.Values[expr.Result].ConstantValue))
}

func TestEncode_Invocation(t *testing.T) {
	load := Call("Collection.loadTable", Args{"tableId": Constant("TIGER/2018/Counties")})
	size := Call("Collection.size", Args{"collection": load})

	expr, err := Encode(size)
	require.NoError(t, err)

	root := expr.Values[expr.Result].FunctionInvocationValue
	require.NotNil(t, root)
	assert.Equal(t, "Collection.size", root.FunctionName)

	ref := root.Arguments["collection"].ValueReference
	require.NotEmpty(t, ref)
	inner := expr.Values[ref].FunctionInvocationValue
	require.NotNil(t, inner)
	assert.Equal(t, "Collection.loadTable", inner.FunctionName)
	assert.JSONEq(t, `"TIGER/2018/Counties"`, string(inner.Arguments["tableId"].ConstantValue))
}

func TestEncode_DeduplicatesSubgraphs(t *testing.T) {
	a := Call("Image.pixelArea", nil)
	b := Call("Image.pixelArea", nil)
	sum := Call("Image.add", Args{"image1": a, "image2": b})

	expr, err := Encode(sum)
	require.NoError(t, err)
	assert.Len(t, expr.Values, 2)

	root := expr.Values[expr.Result].FunctionInvocationValue
	assert.Equal(t, root.Arguments["image1"].ValueReference, root.Arguments["image2"].ValueReference)
}

func TestEncode_NilArgumentsDropped(t *testing.T) {
	e := Call("Image.reduceRegions", Args{"image": Constant("x"), "crs": nil})
	assert.Nil(t, e.Argument("crs"))

	expr, err := Encode(e)
	require.NoError(t, err)
	_, ok := expr.Values[expr.Result].FunctionInvocationValue.Arguments["crs"]
	assert.False(t, ok)
}

func TestEncode_FunctionDefinition(t *testing.T) {
	body := Call("Element.get", Args{"object": Arg("_MAPPING_VAR_0_0"), "property": Constant("NAME")})
	mapped := Call("Collection.map", Args{
		"collection":    Call("Collection.loadTable", Args{"tableId": Constant("t")}),
		"baseAlgorithm": Func([]string{"_MAPPING_VAR_0_0"}, body),
	})

	expr, err := Encode(mapped)
	require.NoError(t, err)

	root := expr.Values[expr.Result].FunctionInvocationValue
	fnRef := root.Arguments["baseAlgorithm"].ValueReference
	def := expr.Values[fnRef].FunctionDefinitionValue
	require.NotNil(t, def)
	assert.Equal(t, []string{"_MAPPING_VAR_0_0"}, def.ArgumentNames)

	get := expr.Values[def.Body].FunctionInvocationValue
	require.NotNil(t, get)
	assert.Equal(t, "_MAPPING_VAR_0_0", get.Arguments["object"].ArgumentReference)
}

func TestEncode_ArrayAndDict(t *testing.T) {
	e := Call("Element.setMulti", Args{
		"object": Arg("f"),
		"properties": Dict(map[string]*Expr{
			"year":  Constant(2021),
			"names": Array(Constant("a"), Constant("b")),
		}),
	})
	expr, err := Encode(e)
	require.NoError(t, err)

	props := expr.Values[expr.Result].FunctionInvocationValue.Arguments["properties"].DictionaryValue
	require.NotNil(t, props)
	assert.JSONEq(t, `2021`, string(props.Values["year"].ConstantValue))
	require.NotNil(t, props.Values["names"].ArrayValue)
	assert.Len(t, props.Values["names"].ArrayValue.Values, 2)
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)

	_, err = Encode(Array(Constant(1), nil))
	assert.ErrorContains(t, err, "nil array element 1")

	_, err = Encode(Func([]string{"x"}, nil))
	assert.ErrorContains(t, err, "without body")

	_, err = Encode(Constant(make(chan int)))
	assert.ErrorContains(t, err, "encode constant")
}

func TestEncode_WireShape(t *testing.T) {
	expr, err := Encode(Call("Collection.size", Args{"collection": Constant("x")}))
	require.NoError(t, err)

	data, err := json.Marshal(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"result": "0",
		"values": {
			"0": {
				"functionInvocationValue": {
					"functionName": "Collection.size",
					"arguments": {"collection": {"constantValue": "x"}}
				}
			}
		}
	}`, string(data))
}

func TestExprAccessors(t *testing.T) {
	c := Constant("v")
	assert.Equal(t, "", c.FunctionName())
	assert.Nil(t, c.Argument("x"))
	v, ok := c.ConstantValue()
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = Arg("a").ConstantValue()
	assert.False(t, ok)

	var nilExpr *Expr
	assert.Equal(t, "", nilExpr.FunctionName())
}

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remend/internal/jsonval"
)

func mustDecode(t *testing.T, doc string) jsonval.Value {
	t.Helper()
	v, err := jsonval.Decode(doc)
	require.NoError(t, err)
	return v
}

func taskSchema() *Descriptor {
	return &Descriptor{
		Type: TypeObject,
		Properties: map[string]*Descriptor{
			"name":     {Type: TypeString},
			"count":    {Type: TypeInteger},
			"ratio":    {Type: TypeNumber},
			"done":     {Type: TypeBoolean},
			"status":   {Type: TypeString, Enum: []string{"open", "closed"}},
			"tags":     {Type: TypeArray, Items: &Descriptor{Type: TypeString}},
			"metadata": {Type: TypeObject, Properties: map[string]*Descriptor{"owner": {Type: TypeString}}},
		},
		Required: []string{"name", "count"},
	}
}

func TestValidateHappyPath(t *testing.T) {
	doc := mustDecode(t, `{"name": "job", "count": 3, "ratio": 0.5, "done": true, "status": "open", "tags": ["a"], "metadata": {"owner": "me"}}`)
	out, issues := taskSchema().Validate(doc)
	assert.Empty(t, issues)
	assert.True(t, doc.Equal(out))
}

func TestValidateMissingRequired(t *testing.T) {
	doc := mustDecode(t, `{"ratio": 0.5}`)
	_, issues := taskSchema().Validate(doc)
	require.Len(t, issues, 2)
	// Missing-required issues come out sorted by key.
	assert.Equal(t, "count", issues[0].Path)
	assert.Equal(t, "name", issues[1].Path)
	assert.Contains(t, issues[0].Message, "required")
}

func TestValidateTypeMismatches(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{"boolean for string", `{"name": true, "count": 1}`, "name"},
		{"object for integer", `{"name": "x", "count": {}}`, "count"},
		{"string for boolean", `{"name": "x", "count": 1, "done": "yes"}`, "done"},
		{"scalar for array", `{"name": "x", "count": 1, "tags": "solo"}`, "tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, issues := taskSchema().Validate(mustDecode(t, tt.doc))
			require.NotEmpty(t, issues)
			assert.Equal(t, tt.path, issues[0].Path)
		})
	}
}

func TestValidateCoercions(t *testing.T) {
	doc := mustDecode(t, `{"name": 42, "count": "7", "ratio": "0.25"}`)
	out, issues := taskSchema().Validate(doc)
	require.Empty(t, issues)

	name, _ := out.Get("name")
	assert.Equal(t, jsonval.StringValue("42"), name)

	count, _ := out.Get("count")
	assert.Equal(t, jsonval.Number, count.Kind)
	assert.Equal(t, "7", count.Num.String())

	ratio, _ := out.Get("ratio")
	assert.Equal(t, "0.25", ratio.Num.String())
}

func TestValidateNonNumericStringRejected(t *testing.T) {
	doc := mustDecode(t, `{"name": "x", "count": "several"}`)
	_, issues := taskSchema().Validate(doc)
	require.Len(t, issues, 1)
	assert.Equal(t, "count", issues[0].Path)
}

func TestValidateIntegerRejectsFraction(t *testing.T) {
	doc := mustDecode(t, `{"name": "x", "count": 1.5}`)
	_, issues := taskSchema().Validate(doc)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "integer")
}

func TestValidateEnum(t *testing.T) {
	doc := mustDecode(t, `{"name": "x", "count": 1, "status": "pending"}`)
	_, issues := taskSchema().Validate(doc)
	require.Len(t, issues, 1)
	assert.Equal(t, "status", issues[0].Path)
	assert.Contains(t, issues[0].Message, "enum")
}

func TestValidateUnknownProperties(t *testing.T) {
	doc := mustDecode(t, `{"name": "x", "count": 1, "surprise": true}`)

	// Unknown members ride along by default.
	out, issues := taskSchema().Validate(doc)
	assert.Empty(t, issues)
	_, ok := out.Get("surprise")
	assert.True(t, ok)

	// With additionalProperties=false they become issues and are dropped.
	strict := taskSchema()
	f := false
	strict.AdditionalProperties = &f
	out, issues = strict.Validate(doc)
	require.Len(t, issues, 1)
	assert.Equal(t, "surprise", issues[0].Path)
	_, ok = out.Get("surprise")
	assert.False(t, ok)
}

func TestValidateNestedPaths(t *testing.T) {
	doc := mustDecode(t, `{"name": "x", "count": 1, "metadata": {"owner": 1.5}, "tags": ["ok", true]}`)
	out, issues := taskSchema().Validate(doc)
	require.Len(t, issues, 1)
	assert.Equal(t, "tags[1]", issues[0].Path)

	// The nested numeric owner coerces to a string rather than failing.
	meta, _ := out.Get("metadata")
	owner, _ := meta.Get("owner")
	assert.Equal(t, jsonval.StringValue("1.5"), owner)
}

func TestParse(t *testing.T) {
	d, err := Parse([]byte(`{"type": "object", "properties": {"a": {"type": "string"}}, "required": ["a"]}`))
	require.NoError(t, err)
	assert.Equal(t, TypeObject, d.Type)
	assert.True(t, d.IsRequired("a"))
	assert.False(t, d.IsRequired("b"))

	_, err = Parse([]byte(`{"properties": {}}`))
	assert.Error(t, err, "missing type must be rejected")

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestFormatIssues(t *testing.T) {
	s := FormatIssues([]Issue{{"a.b", "bad"}, {"", "worse"}})
	assert.Equal(t, "a.b: bad; worse", s)
}

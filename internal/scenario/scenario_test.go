package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riftload/riftload/internal/globalstore"
	"github.com/riftload/riftload/internal/transport"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/value"
)

func TestTemplateSubstitutesLocalThenGlobal(t *testing.T) {
	global := globalstore.New()
	global.Set("id", value.String("from-global"))

	s := &Scenario{
		BaseURL: "http://example.com",
		Method:  "GET",
		Path:    CompileTemplate("/q/${id}"),
	}
	vars := map[string]value.Value{"id": value.String("from-local")}
	req, err := s.NextRequest(vars, global)
	require.NoError(t, err)
	require.Equal(t, "http://example.com/q/from-local", req.URL)
}

func TestTemplateFallsBackToGlobal(t *testing.T) {
	global := globalstore.New()
	global.Set("id", value.String("g"))

	s := &Scenario{BaseURL: "http://example.com", Method: "GET", Path: CompileTemplate("/q/${id}")}
	req, err := s.NextRequest(nil, global)
	require.NoError(t, err)
	require.Equal(t, "http://example.com/q/g", req.URL)
}

func TestTemplateUnboundVariableFails(t *testing.T) {
	s := &Scenario{BaseURL: "http://example.com", Method: "GET", Path: CompileTemplate("/q/${missing}")}
	_, err := s.NextRequest(nil, globalstore.New())
	require.Error(t, err)
	require.Equal(t, "Variable 'missing' not found", err.Error())
}

func TestTemplateDeterministic(t *testing.T) {
	s := &Scenario{BaseURL: "http://example.com", Method: "POST", Path: CompileTemplate("/x"), Body: CompileTemplate(`{"n":"${n}"}`)}
	vars := map[string]value.Value{"n": value.Int(3)}
	r1, err := s.NextRequest(vars, globalstore.New())
	require.NoError(t, err)
	r2, err := s.NextRequest(vars, globalstore.New())
	require.NoError(t, err)
	require.Equal(t, string(r1.Body), string(r2.Body))
	require.Equal(t, `{"n":"3"}`, string(r1.Body))
}

func TestAssertResponseStatusFailsFirst(t *testing.T) {
	s := &Scenario{Response: ResponseSpec{Status: 200, Headers: []HeaderAssert{{Name: "X-Missing", Kind: HeaderNotNull}}}}
	resp := &transport.Response{Status: 500}
	err := s.AssertResponse(resp)
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "status", ae.Kind)
}

func TestAssertResponseHeaderCaseInsensitive(t *testing.T) {
	s := &Scenario{Response: ResponseSpec{Status: 200, Headers: []HeaderAssert{{Name: "content-type", Kind: HeaderEqual, Value: "application/json"}}}}
	resp := &transport.Response{Status: 200, Headers: map[string]string{"Content-Type": "application/json"}}
	require.NoError(t, s.AssertResponse(resp))
}

func TestAssertResponseBodyRejectsArrayAndObject(t *testing.T) {
	resp := &transport.Response{Status: 200, RawBody: []byte(`{"a":[1,2],"b":{"c":1}}`)}

	sArr := &Scenario{Response: ResponseSpec{Status: 200, Body: []BodyAssert{{Path: "a", Kind: BodyNotNull}}}}
	err := sArr.AssertResponse(resp)
	require.Error(t, err)

	sObj := &Scenario{Response: ResponseSpec{Status: 200, Body: []BodyAssert{{Path: "b", Kind: BodyNotNull}}}}
	err = sObj.AssertResponse(resp)
	require.Error(t, err)
}

func TestAssertResponseBodyDottedPath(t *testing.T) {
	resp := &transport.Response{Status: 200, RawBody: []byte(`{"Foo":{"Bar":"baz"}}`)}
	s := &Scenario{Response: ResponseSpec{Status: 200, Body: []BodyAssert{{Path: "Foo.Bar", Kind: BodyEqualString, String: "baz"}}}}
	require.NoError(t, s.AssertResponse(resp))
}

func TestUpdateVariablesCoercesNumericToInt(t *testing.T) {
	resp := &transport.Response{RawBody: []byte(`{"ObjectId":"abc","Count":7}`)}
	s := &Scenario{Extractors: []Extractor{
		{Name: "externalId", Source: SourceBody, Path: "ObjectId"},
		{Name: "count", Source: SourceBody, Path: "Count"},
	}}
	vars, err := s.UpdateVariables(resp, funclib.NewEvaluator())
	require.NoError(t, err)
	require.Len(t, vars, 2)
	require.Equal(t, "abc", vars[0].Value.AsString())
	require.True(t, vars[1].Value.IsInt())
}

func TestUpdateVariablesFromHeaderIsCaseInsensitive(t *testing.T) {
	resp := &transport.Response{Headers: map[string]string{"X-Request-Id": "r-1"}}
	s := &Scenario{Extractors: []Extractor{{Name: "reqId", Source: SourceHeader, Path: "x-request-id"}}}
	vars, err := s.UpdateVariables(resp, funclib.NewEvaluator())
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, "r-1", vars[0].Value.AsString())
}

func TestUpdateVariablesMissingSourceIsSkippedNotError(t *testing.T) {
	resp := &transport.Response{RawBody: []byte(`{}`)}
	s := &Scenario{Extractors: []Extractor{{Name: "missing", Source: SourceBody, Path: "nope"}}}
	vars, err := s.UpdateVariables(resp, funclib.NewEvaluator())
	require.NoError(t, err)
	require.Empty(t, vars)
}

func TestScenarioTimeoutIsCarried(t *testing.T) {
	s := &Scenario{BaseURL: "http://x", Method: "GET", Path: CompileTemplate("/"), Timeout: 100 * time.Millisecond}
	req, err := s.NextRequest(nil, globalstore.New())
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, req.Timeout)
}

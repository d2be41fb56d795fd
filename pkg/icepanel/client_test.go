package icepanel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/icetools/iceflow/pkg/errors"
)

// testClient returns a Client pointed at a test server.
func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClient("test-key", "land-1", "latest")
	c.baseURL = baseURL
	return c
}

func jsonHandler(t *testing.T, routes map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "ApiKey test-key" {
			t.Errorf("Authorization header = %q, want %q", got, "ApiKey test-key")
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestFindFlowByName(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/flows": `{"flows": [
			{"id": "f1", "name": "Checkout"},
			{"id": "f2", "name": "Login"}
		]}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	id, err := c.FindFlowByName(context.Background(), "Login")
	if err != nil {
		t.Fatalf("FindFlowByName failed: %v", err)
	}
	if id != "f2" {
		t.Errorf("id = %q, want %q", id, "f2")
	}
}

func TestFindFlowByNameNotFound(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/flows": `{"flows": []}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.FindFlowByName(context.Background(), "Missing")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}
}

func TestFindFlowByNameAmbiguous(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/flows": `{"flows": [
			{"id": "f1", "name": "Checkout"},
			{"id": "f2", "name": "Checkout"}
		]}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.FindFlowByName(context.Background(), "Checkout")
	if !errors.Is(err, errors.ErrCodeAmbiguousName) {
		t.Fatalf("error = %v, want AMBIGUOUS_NAME", err)
	}
	// Both matching ids must be listed for the caller to disambiguate.
	for _, id := range []string{"f1", "f2"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error %q does not mention id %s", err, id)
		}
	}
}

func TestFindFlowByNameIsCaseSensitive(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/flows": `{"flows": [{"id": "f1", "name": "checkout"}]}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	if _, err := c.FindFlowByName(context.Background(), "Checkout"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND for case mismatch", err)
	}
}

func TestGetFlow(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/flows/f1": `{"flow": {
			"id": "f1", "name": "Checkout", "diagramId": "d1",
			"steps": {
				"s1": {"id": "s1", "index": 1, "type": "outgoing", "description": "pay", "originId": "o1", "targetId": "o2"}
			}
		}}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	flow, err := c.GetFlow(context.Background(), "f1")
	if err != nil {
		t.Fatalf("GetFlow failed: %v", err)
	}
	if flow.Name != "Checkout" || flow.DiagramID != "d1" {
		t.Errorf("flow = %+v, want Checkout/d1", flow)
	}
	if step, ok := flow.Steps["s1"]; !ok || step.Description != "pay" {
		t.Errorf("steps = %+v, want s1 with description 'pay'", flow.Steps)
	}
}

func TestGetFlowMissingEnvelope(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/flows/f1": `{"flowData": {"id": "f1"}}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.GetFlow(context.Background(), "f1")
	if !errors.Is(err, errors.ErrCodeSchemaMismatch) {
		t.Fatalf("error = %v, want SCHEMA_MISMATCH", err)
	}
	if !strings.Contains(err.Error(), `"flow"`) {
		t.Errorf("error %q does not name the missing field", err)
	}
}

func TestGetFlowMissingSteps(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/flows/f1": `{"flow": {"id": "f1", "name": "Checkout", "diagramId": "d1"}}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.GetFlow(context.Background(), "f1")
	if !errors.Is(err, errors.ErrCodeSchemaMismatch) {
		t.Fatalf("error = %v, want SCHEMA_MISMATCH", err)
	}
}

func TestGetFlowEmptyStepsIsValid(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/flows/f1": `{"flow": {"id": "f1", "name": "Checkout", "diagramId": "d1", "steps": {}}}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	flow, err := c.GetFlow(context.Background(), "f1")
	if err != nil {
		t.Fatalf("GetFlow failed: %v", err)
	}
	if len(flow.Steps) != 0 {
		t.Errorf("Steps = %v, want empty", flow.Steps)
	}
}

func TestUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.ListFlows(context.Background())
	if !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Fatalf("error = %v, want UNAUTHORIZED", err)
	}
}

func TestServerErrorIsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.ListFlows(context.Background())
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Fatalf("error = %v, want NETWORK_ERROR", err)
	}
}

func TestNonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.ListFlows(context.Background())
	if !errors.Is(err, errors.ErrCodeSchemaMismatch) {
		t.Fatalf("error = %v, want SCHEMA_MISMATCH", err)
	}
}

func TestGetDiagram(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/diagrams/d1": `{"diagram": {
			"id": "d1", "name": "Context",
			"objects": {
				"o1": {"id": "o1", "modelId": "m1"},
				"o2": {"id": "o2", "modelId": "m2", "parentId": "o1"}
			},
			"connections": [
				{"id": "c1", "originId": "o1", "targetId": "o2", "name": "calls"}
			]
		}}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	diagram, err := c.GetDiagram(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetDiagram failed: %v", err)
	}
	if len(diagram.Objects) != 2 {
		t.Errorf("objects = %d, want 2", len(diagram.Objects))
	}
	links := diagram.Links()
	if len(links) != 1 || links[0].Source() != "o1" || links[0].Text() != "calls" {
		t.Errorf("links = %+v, want one o1->o2 'calls'", links)
	}
}

func TestGetDiagramLegacyRelationships(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/diagrams/d1": `{"diagram": {
			"id": "d1", "name": "Context",
			"objects": {"o1": {"id": "o1"}},
			"relationships": [{"id": "c1", "sourceId": "o1", "targetId": "o1", "label": "self"}]
		}}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	diagram, err := c.GetDiagram(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetDiagram failed: %v", err)
	}
	links := diagram.Links()
	if len(links) != 1 || links[0].Source() != "o1" || links[0].Text() != "self" {
		t.Errorf("links = %+v, want legacy relationship decoded", links)
	}
}

func TestGetDiagramMissingObjects(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/diagrams/d1": `{"diagram": {"id": "d1", "name": "Context"}}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.GetDiagram(context.Background(), "d1")
	if !errors.Is(err, errors.ErrCodeSchemaMismatch) {
		t.Fatalf("error = %v, want SCHEMA_MISMATCH", err)
	}
}

func TestListModelObjects(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/model/objects": `{"modelObjects": [
			{"id": "m1", "name": "ClientApp", "type": "app"},
			{"id": "m2", "name": "AuthService", "type": "system"}
		]}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	objects, err := c.ListModelObjects(context.Background())
	if err != nil {
		t.Fatalf("ListModelObjects failed: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(objects))
	}
	if objects["m1"].Name != "ClientApp" {
		t.Errorf("m1 = %+v, want ClientApp", objects["m1"])
	}
}

func TestListModelConnections(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]string{
		"/landscapes/land-1/versions/latest/model/connections": `{"modelConnections": [
			{"id": "mc1", "name": "calls", "originId": "m1", "targetId": "m2", "diagrams": {"d1": {}}}
		]}`,
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	conns, err := c.ListModelConnections(context.Background())
	if err != nil {
		t.Fatalf("ListModelConnections failed: %v", err)
	}
	if len(conns) != 1 || conns[0].Source() != "m1" {
		t.Errorf("conns = %+v, want one m1->m2", conns)
	}
}

// Package icepanel provides a typed client for the IcePanel REST API.
//
// The client scopes every request to a landscape and version, sends the
// ApiKey authorization header, and validates response shapes immediately
// after decoding so downstream components only ever see fully-typed,
// already-validated structures. Responses are never cached and requests
// are never retried: a failed call fails the run.
package icepanel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/icetools/iceflow/pkg/errors"
)

// DefaultBaseURL is the production IcePanel API endpoint.
const DefaultBaseURL = "https://api.icepanel.io/v1"

const httpTimeout = 10 * time.Second

// Client provides access to the IcePanel API for a single landscape
// and version. It is safe to reuse across calls within a run.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	landscape string
	version   string
}

// NewClient creates a Client scoped to the given landscape and version.
func NewClient(apiKey, landscape, version string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		landscape: landscape,
		version:   version,
	}
}

// Scope returns a human-readable landscape@version identifier for
// error messages and logs.
func (c *Client) Scope() string {
	return c.landscape + "@" + c.version
}

// ListFlows fetches the flow index of the landscape version.
func (c *Client) ListFlows(ctx context.Context) ([]FlowListing, error) {
	var flows []FlowListing
	if err := c.get(ctx, c.scopedURL("/flows"), "flows", &flows); err != nil {
		return nil, err
	}
	for _, f := range flows {
		if f.ID == "" {
			return nil, errors.New(errors.ErrCodeSchemaMismatch, "flow listing entry without id in %s", c.Scope())
		}
	}
	return flows, nil
}

// FindFlowByName resolves a flow name to its id using an exact,
// case-sensitive match. Zero matches fail with NOT_FOUND; more than one
// fails with AMBIGUOUS_NAME listing every matching id.
func (c *Client) FindFlowByName(ctx context.Context, name string) (string, error) {
	flows, err := c.ListFlows(ctx)
	if err != nil {
		return "", err
	}

	var ids []string
	for _, f := range flows {
		if f.Name == name {
			ids = append(ids, f.ID)
		}
	}
	return matchOne(ids, "flow", name, c.Scope())
}

// GetFlow fetches the full structure of a flow by id.
func (c *Client) GetFlow(ctx context.Context, id string) (*Flow, error) {
	var flow Flow
	if err := c.get(ctx, c.scopedURL("/flows/"+id), "flow", &flow); err != nil {
		return nil, err
	}
	if err := validateFlow(&flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

// ListDiagrams fetches the diagram index of the landscape version.
func (c *Client) ListDiagrams(ctx context.Context) ([]DiagramListing, error) {
	var diagrams []DiagramListing
	if err := c.get(ctx, c.scopedURL("/diagrams"), "diagrams", &diagrams); err != nil {
		return nil, err
	}
	for _, d := range diagrams {
		if d.ID == "" {
			return nil, errors.New(errors.ErrCodeSchemaMismatch, "diagram listing entry without id in %s", c.Scope())
		}
	}
	return diagrams, nil
}

// FindDiagramByName resolves a diagram name to its id using an exact,
// case-sensitive match, with the same zero/many semantics as
// FindFlowByName.
func (c *Client) FindDiagramByName(ctx context.Context, name string) (string, error) {
	diagrams, err := c.ListDiagrams(ctx)
	if err != nil {
		return "", err
	}

	var ids []string
	for _, d := range diagrams {
		if d.Name == name {
			ids = append(ids, d.ID)
		}
	}
	return matchOne(ids, "diagram", name, c.Scope())
}

// GetDiagram fetches the full structure of a diagram by id.
func (c *Client) GetDiagram(ctx context.Context, id string) (*Diagram, error) {
	var diagram Diagram
	if err := c.get(ctx, c.scopedURL("/diagrams/"+id), "diagram", &diagram); err != nil {
		return nil, err
	}
	if err := validateDiagram(&diagram); err != nil {
		return nil, err
	}
	return &diagram, nil
}

// ListModelObjects fetches every model object of the landscape version,
// keyed by id. Flow participants take their display names from these.
func (c *Client) ListModelObjects(ctx context.Context) (map[string]ModelObject, error) {
	var objects []ModelObject
	if err := c.get(ctx, c.scopedURL("/model/objects"), "modelObjects", &objects); err != nil {
		return nil, err
	}

	result := make(map[string]ModelObject, len(objects))
	for _, o := range objects {
		if o.ID == "" {
			return nil, errors.New(errors.ErrCodeSchemaMismatch, "model object without id in %s", c.Scope())
		}
		result[o.ID] = o
	}
	return result, nil
}

// ListModelConnections fetches every model-level connection of the
// landscape version. Used as a fallback when a diagram reports no
// connections of its own.
func (c *Client) ListModelConnections(ctx context.Context) ([]ModelConnection, error) {
	var conns []ModelConnection
	if err := c.get(ctx, c.scopedURL("/model/connections"), "modelConnections", &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

func (c *Client) scopedURL(suffix string) string {
	return fmt.Sprintf("%s/landscapes/%s/versions/%s%s", c.baseURL, c.landscape, c.version, suffix)
}

// get performs a single GET request and decodes the named envelope
// field into v. A missing envelope field is a SCHEMA_MISMATCH.
func (c *Client) get(ctx context.Context, url, envelope string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "build request")
	}
	req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, url); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "read response from %s", url)
	}
	return unwrap(body, envelope, url, v)
}

// unwrap validates that the named top-level field exists in data and
// decodes it into v. Validating presence before decoding is what turns
// an upstream schema change into a descriptive failure instead of a
// cryptic lookup error further down.
func unwrap(data []byte, field, url string, v any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return errors.Wrap(errors.ErrCodeSchemaMismatch, err, "response from %s is not a JSON object", url)
	}

	raw, ok := envelope[field]
	if !ok {
		return errors.New(errors.ErrCodeSchemaMismatch, "response from %s is missing required field %q", url, field)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(errors.ErrCodeSchemaMismatch, err, "field %q in response from %s has unexpected shape", field, url)
	}
	return nil
}

func checkStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.New(errors.ErrCodeUnauthorized, "API key rejected (status %d) for %s", code, url)
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "resource not found: %s", url)
	default:
		return errors.New(errors.ErrCodeNetwork, "unexpected status %d from %s", code, url)
	}
}

// matchOne turns a list of matching ids into the single resolved id,
// NOT_FOUND, or AMBIGUOUS_NAME.
func matchOne(ids []string, kind, name, scope string) (string, error) {
	switch len(ids) {
	case 0:
		return "", errors.New(errors.ErrCodeNotFound, "no %s named %q in %s", kind, name, scope)
	case 1:
		return ids[0], nil
	default:
		return "", errors.New(errors.ErrCodeAmbiguousName,
			"%d %ss named %q in %s: %s", len(ids), kind, name, scope, strings.Join(ids, ", "))
	}
}

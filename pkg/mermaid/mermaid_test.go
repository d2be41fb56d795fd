package mermaid

import (
	"strings"
	"testing"

	"github.com/icetools/iceflow/pkg/diagram"
)

func loginSequence() *diagram.Sequence {
	return &diagram.Sequence{
		Name: "Login",
		Participants: []diagram.Participant{
			{ID: "a", Name: "ClientApp"},
			{ID: "b", Name: "AuthService"},
		},
		Interactions: []diagram.Interaction{
			{ID: "s1", Description: "login request", SourceID: "a", TargetID: "b"},
			{ID: "s2", Description: "token", SourceID: "b", TargetID: "a"},
		},
	}
}

func TestSequence(t *testing.T) {
	got := Sequence(loginSequence())

	want := "sequenceDiagram\n" +
		"  autonumber\n" +
		"  participant a as ClientApp\n" +
		"  participant b as AuthService\n" +
		"  a ->> b: login request\n" +
		"  b ->> a: token\n"

	if got != want {
		t.Errorf("Sequence() =\n%s\nwant:\n%s", got, want)
	}
}

func TestSequenceDeterministic(t *testing.T) {
	first := Sequence(loginSequence())
	second := Sequence(loginSequence())
	if first != second {
		t.Error("Sequence() output differs between identical runs")
	}
}

func TestSequenceParticipantsDeclaredBeforeUse(t *testing.T) {
	out := Sequence(loginSequence())

	decl := strings.Index(out, "participant b")
	use := strings.Index(out, "a ->> b")
	if decl == -1 || use == -1 || decl > use {
		t.Errorf("participant b not declared before first use:\n%s", out)
	}
	if strings.Count(out, "participant a as") != 1 {
		t.Errorf("participant a declared more than once:\n%s", out)
	}
}

func TestSequenceSelfStep(t *testing.T) {
	seq := &diagram.Sequence{
		Name:         "Solo",
		Participants: []diagram.Participant{{ID: "a", Name: "Worker"}},
		Interactions: []diagram.Interaction{
			{ID: "s1", Description: "validate", SourceID: "a"},
		},
	}

	out := Sequence(seq)
	if !strings.Contains(out, "a -->> a: validate") {
		t.Errorf("self step not rendered as dotted self-message:\n%s", out)
	}
}

func TestSequenceReplyArrow(t *testing.T) {
	seq := loginSequence()
	seq.Interactions[1].Type = "reply"

	out := Sequence(seq)
	if !strings.Contains(out, "b -->> a: token") {
		t.Errorf("reply step not rendered with dotted arrow:\n%s", out)
	}
	if !strings.Contains(out, "a ->> b: login request") {
		t.Errorf("call step should keep solid arrow:\n%s", out)
	}
}

func TestSequenceEscaping(t *testing.T) {
	seq := &diagram.Sequence{
		Name: "Tricky",
		Participants: []diagram.Participant{
			{ID: "a-1", Name: "Cache #2"},
			{ID: "b.2", Name: "Störfall-Dienst"},
		},
		Interactions: []diagram.Interaction{
			{ID: "s1", Description: "multi\nline; text", SourceID: "a-1", TargetID: "b.2"},
		},
	}

	out := Sequence(seq)

	if !strings.Contains(out, "participant a1 as Cache #35;2") {
		t.Errorf("id/name escaping wrong:\n%s", out)
	}
	if !strings.Contains(out, "Störfall-Dienst") {
		t.Errorf("unicode name must pass through unmodified:\n%s", out)
	}
	if !strings.Contains(out, "a1 ->> b2: multi line#59; text") {
		t.Errorf("label escaping wrong:\n%s", out)
	}
	if strings.Contains(out, "\nmulti") {
		t.Errorf("newline leaked into statement:\n%s", out)
	}
}

func nestedGraph() *diagram.Graph {
	return &diagram.Graph{
		Name: "Containers",
		Nodes: []diagram.Node{
			{ID: "grp", Name: "Backend"},
			{ID: "o1", Name: "ClientApp"},
			{ID: "o2", Name: "AuthService", ParentID: "grp"},
			{ID: "o3", Name: "Database", ParentID: "grp"},
		},
		Links: []diagram.Link{
			{SourceID: "o1", TargetID: "o2", Label: "authenticates via"},
			{SourceID: "o2", TargetID: "o3"},
		},
	}
}

func TestFlowchart(t *testing.T) {
	got := Flowchart(nestedGraph())

	want := "flowchart TD\n" +
		"  subgraph grp [\"Backend\"]\n" +
		"    o2[\"AuthService\"]\n" +
		"    o3[\"Database\"]\n" +
		"  end\n" +
		"  o1[\"ClientApp\"]\n" +
		"  o1 -->|authenticates via| o2\n" +
		"  o2 --> o3\n"

	if got != want {
		t.Errorf("Flowchart() =\n%s\nwant:\n%s", got, want)
	}
}

func TestFlowchartDeterministic(t *testing.T) {
	first := Flowchart(nestedGraph())
	second := Flowchart(nestedGraph())
	if first != second {
		t.Error("Flowchart() output differs between identical runs")
	}
}

func TestFlowchartDeepNesting(t *testing.T) {
	g := &diagram.Graph{
		Name: "Deep",
		Nodes: []diagram.Node{
			{ID: "sys", Name: "System"},
			{ID: "app", Name: "App", ParentID: "sys"},
			{ID: "svc", Name: "Service", ParentID: "app"},
		},
	}

	out := Flowchart(g)
	if !strings.Contains(out, "  subgraph sys [\"System\"]\n    subgraph app [\"App\"]\n      svc[\"Service\"]\n    end\n  end\n") {
		t.Errorf("nested subgraphs wrong:\n%s", out)
	}
}

func TestFlowchartQuoteEscaping(t *testing.T) {
	g := &diagram.Graph{
		Name:  "Quoted",
		Nodes: []diagram.Node{{ID: "o1", Name: `The "Edge" Proxy`}},
	}

	out := Flowchart(g)
	if !strings.Contains(out, `o1["The &quot;Edge&quot; Proxy"]`) {
		t.Errorf("quote escaping wrong:\n%s", out)
	}
}

func TestFlowchartEdgeLabelEscaping(t *testing.T) {
	g := &diagram.Graph{
		Name: "Pipes",
		Nodes: []diagram.Node{
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B"},
		},
		Links: []diagram.Link{{SourceID: "a", TargetID: "b", Label: "read|write"}},
	}

	out := Flowchart(g)
	if !strings.Contains(out, "a -->|read#124;write| b") {
		t.Errorf("pipe escaping wrong:\n%s", out)
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc123", "abc123"},
		{"a-b.c", "abc"},
		{"under_score", "under_score"},
		{"héllo", "hllo"},
		{"***", "_"},
	}

	for _, tt := range tests {
		if got := SanitizeID(tt.in); got != tt.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package evaluate

import (
	"strings"
	"testing"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

const topic = "sensors/health"

func mustJSONQuery(t *testing.T, expr, expected string) *JSONQuery {
	t.Helper()
	q, err := NewJSONQuery(expr, expected)
	if err != nil {
		t.Fatalf("NewJSONQuery(%q): %v", expr, err)
	}
	return q
}

func TestKeyword_Contains(t *testing.T) {
	cases := []string{"ok", "status ok", "ok!", "not ok at all", "okok"}
	for _, msg := range cases {
		got, err := Evaluate(Keyword{SuccessMessage: "ok"}, topic, msg)
		if err != nil {
			t.Fatalf("message %q should pass: %v", msg, err)
		}
		if got != "Topic: sensors/health; Message: "+msg {
			t.Fatalf("unexpected UP message %q", got)
		}
	}
}

func TestKeyword_Mismatch(t *testing.T) {
	cases := []string{"", "OK", "o k", "fail", " o"}
	for _, msg := range cases {
		_, err := Evaluate(Keyword{SuccessMessage: "ok"}, topic, msg)
		if domain.KindOf(err) != domain.KindContentMismatch {
			t.Fatalf("message %q: want content mismatch, got %v", msg, err)
		}
		if !strings.Contains(err.Error(), topic) || !strings.Contains(err.Error(), "Message: "+msg) {
			t.Fatalf("mismatch should carry topic and message: %q", err)
		}
	}
}

func TestKeyword_NoTrimming(t *testing.T) {
	if _, err := Evaluate(Keyword{SuccessMessage: " ok "}, topic, "ok"); err == nil {
		t.Fatal("success message must match exactly, including spaces")
	}
}

func TestKeyword_EmptySuccessMessageNeverPasses(t *testing.T) {
	_, err := Evaluate(Keyword{}, topic, "anything")
	if domain.KindOf(err) != domain.KindMalformedPayload {
		t.Fatalf("want malformed payload, got %v", err)
	}
}

func TestJSONQuery_ExpectedValue(t *testing.T) {
	got, err := Evaluate(mustJSONQuery(t, "state", "ok"), topic, `{"state":"ok"}`)
	if err != nil {
		t.Fatalf("want UP, got %v", err)
	}
	if got != "Message received, expected value is found" {
		t.Fatalf("unexpected UP message %q", got)
	}

	_, err = Evaluate(mustJSONQuery(t, "state", "bad"), topic, `{"state":"ok"}`)
	if domain.KindOf(err) != domain.KindContentMismatch {
		t.Fatalf("want content mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "value was: [ok]") {
		t.Fatalf("mismatch should carry the computed value: %q", err)
	}
}

func TestJSONQuery_ScalarsStringify(t *testing.T) {
	cases := []struct {
		expr, doc, want string
	}{
		{"temp", `{"temp": 21.5}`, "21.5"},
		{"count", `{"count": 3}`, "3"},
		{"healthy", `{"healthy": true}`, "true"},
		{"nodes.name", `{"nodes":[{"name":"a"},{"name":"b"}]}`, "a,b"},
		{"$count(nodes)", `{"nodes":[1,2,3]}`, "3"},
	}
	for _, c := range cases {
		if _, err := Evaluate(mustJSONQuery(t, c.expr, c.want), topic, c.doc); err != nil {
			t.Fatalf("%s on %s: want %q, got %v", c.expr, c.doc, c.want, err)
		}
	}
}

func TestJSONQuery_UndefinedNeverMatches(t *testing.T) {
	for _, expected := range []string{"", "undefined", "<undefined>"} {
		_, err := Evaluate(mustJSONQuery(t, "missing", expected), topic, `{"state":"ok"}`)
		if domain.KindOf(err) != domain.KindContentMismatch {
			t.Fatalf("expected %q: want content mismatch for undefined result, got %v", expected, err)
		}
	}
	_, err := Evaluate(mustJSONQuery(t, "state", "null"), topic, `{"state":null}`)
	if domain.KindOf(err) != domain.KindContentMismatch {
		t.Fatalf("null result must not match, got %v", err)
	}
}

func TestJSONQuery_MalformedPayload(t *testing.T) {
	for _, raw := range []string{"status ok", "", "{broken"} {
		_, err := Evaluate(mustJSONQuery(t, "state", "ok"), topic, raw)
		if domain.KindOf(err) != domain.KindMalformedPayload {
			t.Fatalf("payload %q: want malformed payload, got %v", raw, err)
		}
	}
}

func TestJSONQuery_UncompiledCheckCompilesLazily(t *testing.T) {
	q := &JSONQuery{Expression: "state", ExpectedValue: "ok"}
	if _, err := Evaluate(q, topic, `{"state":"ok"}`); err != nil {
		t.Fatalf("want UP, got %v", err)
	}
	_, err := Evaluate(&JSONQuery{Expression: "state[", ExpectedValue: "ok"}, topic, `{"state":"ok"}`)
	if domain.KindOf(err) != domain.KindMalformedPayload {
		t.Fatalf("want malformed payload for a broken expression, got %v", err)
	}
}

func TestForMonitor(t *testing.T) {
	c, err := ForMonitor(domain.Monitor{CheckType: domain.CheckKeyword, SuccessMessage: "ok"})
	if err != nil {
		t.Fatalf("keyword: %v", err)
	}
	if _, ok := c.(Keyword); !ok || c.Type() != domain.CheckKeyword {
		t.Fatalf("want Keyword, got %T", c)
	}

	c, err = ForMonitor(domain.Monitor{CheckType: domain.CheckJSONQuery, JSONQuery: "state", ExpectedValue: "ok"})
	if err != nil {
		t.Fatalf("json-query: %v", err)
	}
	if c.Type() != domain.CheckJSONQuery {
		t.Fatalf("want json-query, got %v", c.Type())
	}

	_, err = ForMonitor(domain.Monitor{CheckType: domain.CheckKeyword})
	if domain.KindOf(err) != domain.KindMalformedPayload {
		t.Fatalf("missing success message: want malformed payload, got %v", err)
	}
	_, err = ForMonitor(domain.Monitor{CheckType: domain.CheckJSONQuery})
	if domain.KindOf(err) != domain.KindMalformedPayload {
		t.Fatalf("missing query: want malformed payload, got %v", err)
	}
	_, err = ForMonitor(domain.Monitor{CheckType: "regex", SuccessMessage: "ok"})
	if domain.KindOf(err) != domain.KindUnsupportedCheckType {
		t.Fatalf("want unsupported check type, got %v", err)
	}
	_, err = ForMonitor(domain.Monitor{SuccessMessage: "ok"})
	if domain.KindOf(err) != domain.KindUnsupportedCheckType {
		t.Fatalf("empty type is defaulted by the caller, not here; got %v", err)
	}
}

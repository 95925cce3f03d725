package gate_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"osmautolink/internal/gate"
	"osmautolink/internal/osm"
	"osmautolink/internal/records"
)

func sample() []records.Record {
	return []records.Record{
		{ID: osm.MustParseObjectID("node/1"), Link: "https://one.example"},
		{ID: osm.MustParseObjectID("way/2"), Link: "https://two.example"},
	}
}

func TestTerminalListsAndProceeds(t *testing.T) {
	var out bytes.Buffer
	term := gate.NewTerminal(strings.NewReader("Y\n"), &out)

	decision, err := term.Confirm(context.Background(), sample())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if decision.Action != gate.Proceed {
		t.Fatalf("action = %s", decision.Action)
	}
	want := "🔗 [0] https://www.openstreetmap.org/node/1 → https://one.example\n" +
		"🔗 [1] https://www.openstreetmap.org/way/2 → https://two.example\n" +
		gate.Prompt
	if out.String() != want {
		t.Fatalf("output =\n%q\nwant\n%q", out.String(), want)
	}
}

func TestTerminalRepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	term := gate.NewTerminal(strings.NewReader("maybe\n7\n-1\n1\n"), &out)

	decision, err := term.Confirm(context.Background(), sample())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if decision.Action != gate.Exclude || len(decision.Exclude) != 1 || decision.Exclude[0].String() != "way/2" {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if got := strings.Count(out.String(), gate.Prompt); got != 4 {
		t.Fatalf("expected 4 prompts, got %d", got)
	}
}

func TestTerminalAbort(t *testing.T) {
	for _, input := range []string{"n\n", "N", ""} {
		term := gate.NewTerminal(strings.NewReader(input), &bytes.Buffer{})
		decision, err := term.Confirm(context.Background(), sample())
		if err != nil {
			t.Fatalf("Confirm(%q): %v", input, err)
		}
		if decision.Action != gate.Abort {
			t.Fatalf("Confirm(%q) action = %s", input, decision.Action)
		}
	}
}

func TestAutoApprove(t *testing.T) {
	decision, err := gate.AutoApprove{}.Confirm(context.Background(), sample())
	if err != nil || decision.Action != gate.Proceed {
		t.Fatalf("AutoApprove = %+v, %v", decision, err)
	}
}

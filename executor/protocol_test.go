package executor

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		idx           int
		wantPayload   string
		wantRemaining string
		wantOK        bool
	}{
		{
			name:          "valid frame",
			content:       "prefix" + protocolPrefix + `{"kind":"log"}` + protocolSuffix + "suffix",
			idx:           6,
			wantPayload:   `{"kind":"log"}`,
			wantRemaining: "suffix",
			wantOK:        true,
		},
		{
			name:          "incomplete frame",
			content:       "prefix" + protocolPrefix + "{partial",
			idx:           6,
			wantPayload:   "",
			wantRemaining: "prefix" + protocolPrefix + "{partial",
			wantOK:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, remaining, ok := extractMessage(tt.content, tt.idx)
			if payload != tt.wantPayload {
				t.Errorf("payload = %q, want %q", payload, tt.wantPayload)
			}
			if remaining != tt.wantRemaining {
				t.Errorf("remaining = %q, want %q", remaining, tt.wantRemaining)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func frameOf(json string) string {
	return protocolPrefix + json + protocolSuffix
}

func TestProtocolHandlerFrames(t *testing.T) {
	p := newProtocolHandler()
	p.Write([]byte("noise " + frameOf(`{"kind":"log","text":"one"}`) + frameOf(`{"kind":"pending","count":2}`)))
	p.Write([]byte(frameOf(`{"kind":"log","text":"[warn] two"}`) + " tail"))

	if got := p.Lines(); !reflect.DeepEqual(got, []string{"one", "[warn] two"}) {
		t.Errorf("lines = %q", got)
	}
	if p.Pending() != 2 {
		t.Errorf("pending = %d, want 2", p.Pending())
	}
	if _, ok := p.Fault(); ok {
		t.Error("unexpected fault")
	}
	if got := p.Stderr(); got != "noise  tail" {
		t.Errorf("stderr = %q", got)
	}
}

func TestProtocolHandlerSplitWrites(t *testing.T) {
	p := newProtocolHandler()
	full := frameOf(`{"kind":"log","text":"split"}`)

	// split inside the prefix and inside the payload
	for _, chunk := range []string{full[:3], full[3:12], full[12:]} {
		p.Write([]byte(chunk))
	}

	if got := p.Lines(); !reflect.DeepEqual(got, []string{"split"}) {
		t.Errorf("lines = %q", got)
	}
	if got := p.Stderr(); got != "" {
		t.Errorf("stderr = %q, want empty", got)
	}
}

func TestProtocolHandlerFirstFaultWins(t *testing.T) {
	p := newProtocolHandler()
	p.Write([]byte(frameOf(`{"kind":"fault","text":"first"}`) + frameOf(`{"kind":"fault","text":"second"}`)))

	msg, ok := p.Fault()
	if !ok || msg != "first" {
		t.Errorf("fault = %q, %v", msg, ok)
	}
}

func TestProtocolHandlerInvalidJSON(t *testing.T) {
	p := newProtocolHandler()
	p.Write([]byte(frameOf(`{invalid}`)))

	if len(p.Lines()) != 0 {
		t.Error("invalid frame must not produce lines")
	}
	if !strings.Contains(p.Stderr(), "{invalid}") {
		t.Errorf("invalid frame should pass through to stderr, got %q", p.Stderr())
	}
}

func TestShimScript(t *testing.T) {
	script, err := shimScript("console.log(\"x\");\n")
	if err != nil {
		t.Fatalf("shimScript: %v", err)
	}
	if !strings.HasSuffix(script, `("console.log(\"x\");\n");`) {
		t.Errorf("program not passed as a string literal: %q", script[len(script)-40:])
	}
	if !strings.Contains(script, "delete globalThis[name]") {
		t.Error("shim must hide host modules")
	}
}

package executor

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

// Protocol constants used by the QuickJS shim to report to the host.
// Format: \x00TSPLAY:{json}\x00
const (
	protocolPrefix = "\x00TSPLAY:"
	protocolSuffix = "\x00"
)

// frame is one message from the guest shim.
type frame struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Count int    `json:"count"`
}

const (
	frameLog     = "log"
	frameFault   = "fault"
	framePending = "pending"
)

// protocolHandler intercepts guest stderr. Frames update the run state;
// anything else passes through to Stderr.
type protocolHandler struct {
	realStderr bytes.Buffer
	buf        bytes.Buffer
	mu         sync.Mutex

	lines   []string
	fault   *string
	pending int
}

func newProtocolHandler() *protocolHandler {
	return &protocolHandler{}
}

func (p *protocolHandler) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)

	for {
		content := p.buf.String()
		startIdx := strings.Index(content, protocolPrefix)
		if startIdx == -1 {
			// hold back a possible partial prefix
			keep := partialPrefix(content)
			p.realStderr.WriteString(content[:len(content)-keep])
			p.buf.Reset()
			p.buf.WriteString(content[len(content)-keep:])
			break
		}

		p.realStderr.WriteString(content[:startIdx])

		payload, remaining, ok := extractMessage(content, startIdx)
		if !ok {
			p.buf.Reset()
			p.buf.WriteString(content[startIdx:])
			break
		}
		p.buf.Reset()
		p.buf.WriteString(remaining)

		var f frame
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			p.realStderr.WriteString(payload)
			continue
		}
		p.handle(f)
	}

	return len(data), nil
}

func (p *protocolHandler) handle(f frame) {
	switch f.Kind {
	case frameLog:
		p.lines = append(p.lines, f.Text)
	case frameFault:
		if p.fault == nil {
			msg := f.Text
			p.fault = &msg
		}
	case framePending:
		p.pending = f.Count
	}
}

// extractMessage returns the payload of the frame starting at idx and the
// content after it. ok is false when the frame is incomplete.
func extractMessage(content string, idx int) (payload, remaining string, ok bool) {
	start := idx + len(protocolPrefix)
	end := strings.Index(content[start:], protocolSuffix)
	if end == -1 {
		return "", content, false
	}
	return content[start : start+end], content[start+end+len(protocolSuffix):], true
}

// partialPrefix reports how many trailing bytes of content could begin a
// frame split across writes.
func partialPrefix(content string) int {
	for n := len(protocolPrefix) - 1; n > 0; n-- {
		if n <= len(content) && strings.HasSuffix(content, protocolPrefix[:n]) {
			return n
		}
	}
	return 0
}

// Lines returns the captured console lines.
func (p *protocolHandler) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

// Fault returns the top-level fault message, if one was reported.
func (p *protocolHandler) Fault() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fault == nil {
		return "", false
	}
	return *p.fault, true
}

// Pending returns the last reported number of unsettled promises.
func (p *protocolHandler) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Stderr returns guest stderr output that was not part of a frame.
func (p *protocolHandler) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realStderr.String() + p.buf.String()
}

package edge

import (
	"strconv"
	"strings"
	"testing"
)

func TestReasonPhraseKnown(t *testing.T) {
	if got := reasonPhrase(200); got != "OK" {
		t.Errorf("reasonPhrase(200) = %q, want OK", got)
	}
	if got := reasonPhrase(404); got != "Not Found" {
		t.Errorf("reasonPhrase(404) = %q, want Not Found", got)
	}
}

func TestReasonPhraseUnknown(t *testing.T) {
	if got := reasonPhrase(799); got != "Unknown" {
		t.Errorf("reasonPhrase(799) = %q, want Unknown", got)
	}
}

func TestSerializeResponseWireForm(t *testing.T) {
	out := string(serializeResponse(200, "text/plain", []byte("hi")))

	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("missing status line, got: %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/plain\r\n") {
		t.Errorf("missing Content-Type header, got: %q", out)
	}
	if !strings.Contains(out, "Content-Length: "+strconv.Itoa(len("hi"))+"\r\n") {
		t.Errorf("missing correct Content-Length, got: %q", out)
	}
	if !strings.Contains(out, "Connection: keep-alive\r\n") {
		t.Errorf("missing Connection header, got: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhi") {
		t.Errorf("missing body after blank line, got: %q", out)
	}
}

func TestFixedErrorResponses(t *testing.T) {
	if !strings.Contains(string(badRequestResponse()), "400 Bad Request") {
		t.Error("badRequestResponse missing expected status line")
	}
	if !strings.Contains(string(notFoundResponse()), "404 Not Found") {
		t.Error("notFoundResponse missing expected status line")
	}
	if !strings.Contains(string(internalErrorResponse()), "500 Internal Server Error") {
		t.Error("internalErrorResponse missing expected status line")
	}
}

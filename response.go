package edge

import (
	"fmt"
	"strings"
)

// statusText is the static table of standard HTTP reason phrases this
// server knows about (section 4.4). A status not in this table serializes
// with the reason "Unknown".
var statusText = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
}

// reasonPhrase looks up status in statusText, defaulting to "Unknown".
func reasonPhrase(status int) string {
	if text, ok := statusText[status]; ok {
		return text
	}
	return "Unknown"
}

// serializeResponse renders a WorkerResponse into the wire form described
// in section 4.4: status line, Content-Type, Content-Length, a
// (deliberately untrue) keep-alive header, then the body. The caller
// closes the connection regardless of this header.
func serializeResponse(status int, contentType string, body []byte) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, reasonPhrase(status))
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("Connection: keep-alive\r\n")
	b.WriteString("\r\n")
	b.Write(body)
	return []byte(b.String())
}

// badRequestResponse is the fixed 400 response written on parse failure.
func badRequestResponse() []byte {
	return serializeResponse(400, "text/plain", []byte("Bad Request"))
}

// notFoundResponse is the fixed 404 response written on route-match miss.
func notFoundResponse() []byte {
	return serializeResponse(404, "text/plain", []byte("Not Found"))
}

// internalErrorResponse is the fixed 500 response written when the worker
// invocation throws or times out.
func internalErrorResponse() []byte {
	return serializeResponse(500, "text/plain", []byte("Internal Server Error"))
}

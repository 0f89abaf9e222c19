package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

// maxRequestLineBytes bounds how much of a connection is read for the request line
const maxRequestLineBytes = 8 << 10

var (
	// ErrEmptyRequest is returned when the peer sends nothing before EOF.
	ErrEmptyRequest = errors.New("server: empty request")

	// ErrMalformedRequest is returned for a request line that is not
	// "<method> <target> <version>".
	ErrMalformedRequest = errors.New("server: malformed request line")
)

// Request is a parsed request line. Headers and bodies are never read.
type Request struct {
	Method  string
	Target  string
	Version string
}

// String returns the request line as received
func (r *Request) String() string {
	return r.Method + " " + r.Target + " " + r.Version
}

// ParseRequestLine reads and parses the first line of a request. A last line
// without a trailing newline is accepted when the peer closes its side.
func ParseRequestLine(reader *bufio.Reader) (*Request, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read request line: %w", err)
		}
		if line == "" {
			return nil, ErrEmptyRequest
		}
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, ErrEmptyRequest
	}

	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequest, line)
	}

	return &Request{
		Method:  parts[0],
		Target:  parts[1],
		Version: parts[2],
	}, nil
}

// GetClientIP extracts the client IP and port from a connection
func GetClientIP(conn net.Conn) (string, int) {
	addr := conn.RemoteAddr()
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String(), tcpAddr.Port
	}
	if addr == nil {
		return "", 0
	}
	return addr.String(), 0
}

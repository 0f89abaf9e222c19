package server

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(input string) (*Request, error) {
	return ParseRequestLine(bufio.NewReader(strings.NewReader(input)))
}

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Request
	}{
		{"crlf", "GET / HTTP/1.1\r\nHost: x\r\n\r\n", Request{"GET", "/", "HTTP/1.1"}},
		{"lf only", "GET /sleep HTTP/1.1\n", Request{"GET", "/sleep", "HTTP/1.1"}},
		{"no newline before eof", "GET /a HTTP/1.1", Request{"GET", "/a", "HTTP/1.1"}},
		{"other method kept as sent", "post /x HTTP/1.0\r\n", Request{"post", "/x", "HTTP/1.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *req)
			assert.Equal(t, tt.want.Method+" "+tt.want.Target+" "+tt.want.Version, req.String())
		})
	}
}

func TestParseRequestLine_Empty(t *testing.T) {
	for _, input := range []string{"", "\r\n", "\n"} {
		_, err := parse(input)
		assert.ErrorIs(t, err, ErrEmptyRequest, "input %q", input)
	}
}

func TestParseRequestLine_Malformed(t *testing.T) {
	for _, input := range []string{
		"GET\r\n",
		"GET /\r\n",
		"GET  / HTTP/1.1\r\n",
		"GET / HTTP/1.1 extra\r\n",
		" GET / HTTP/1.1\r\n",
		"GET / \r\n",
		"\x00\x01\x02",
	} {
		_, err := parse(input)
		assert.ErrorIs(t, err, ErrMalformedRequest, "input %q", input)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestParseRequestLine_ReadError(t *testing.T) {
	_, err := ParseRequestLine(bufio.NewReader(failingReader{}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyRequest)
	assert.NotErrorIs(t, err, ErrMalformedRequest)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestResponse_WriteTo(t *testing.T) {
	var buf bytes.Buffer
	resp := &Response{Status: StatusOK, Reason: "OK", Body: []byte("hello")}

	n, err := resp.WriteTo(&buf)
	require.NoError(t, err)

	want := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, int64(len(want)), n)
}

func TestResponse_WriteToEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	resp := &Response{Status: StatusNotFound, Reason: Reason(StatusNotFound)}

	_, err := resp.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 404 NOT FOUND\r\nContent-Length: 0\r\n\r\n", buf.String())
}

package server

import (
	"io"
	"strconv"
)

// Response is a status line plus body. Content-Length is the only header.
type Response struct {
	Status int
	Reason string
	Body   []byte
}

// WriteTo writes the full response in a single call
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, 64+len(r.Body))
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(r.Status), 10)
	buf = append(buf, ' ')
	buf = append(buf, r.Reason...)
	buf = append(buf, "\r\nContent-Length: "...)
	buf = strconv.AppendInt(buf, int64(len(r.Body)), 10)
	buf = append(buf, "\r\n\r\n"...)
	buf = append(buf, r.Body...)

	n, err := w.Write(buf)
	return int64(n), err
}

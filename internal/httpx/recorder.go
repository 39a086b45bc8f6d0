package httpx

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
)

// ResponseRecorder captures the status code and body size of a response and
// runs an optional hook right before the header block is sent.
type ResponseRecorder struct {
	http.ResponseWriter
	status       int
	written      int64
	wroteHeader  bool
	beforeHeader func(http.Header)
}

func NewResponseRecorder(w http.ResponseWriter, beforeHeader func(http.Header)) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, beforeHeader: beforeHeader}
}

// Status reports the status sent, or 200 when the handler never set one.
func (rw *ResponseRecorder) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Written reports the number of body bytes passed to the client.
func (rw *ResponseRecorder) Written() int64 {
	return rw.written
}

func (rw *ResponseRecorder) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.status = statusCode
	if rw.beforeHeader != nil {
		rw.beforeHeader(rw.Header())
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *ResponseRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// ReadFrom keeps the sendfile path of the underlying writer for large files.
func (rw *ResponseRecorder) ReadFrom(r io.Reader) (int64, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := io.Copy(rw.ResponseWriter, r)
	rw.written += n
	return n, err
}

func (rw *ResponseRecorder) Flush() {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *ResponseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *ResponseRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

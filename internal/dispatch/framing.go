package dispatch

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"time"
)

// errNoBytes signals that the connection closed before a single byte
// arrived, the health-probe case.
var errNoBytes = errors.New("no bytes received")

// readRequest accumulates bytes from conn until they parse as a single
// valid JSON value, the peer closes the connection, or readTimeout
// elapses. This is the "incremental-parse framing" the wire protocol
// calls for in place of a length-prefixed frame: a client can simply write
// one JSON object and stop.
func readRequest(conn net.Conn, readTimeout time.Duration) (map[string]interface{}, error) {
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			var req map[string]interface{}
			if json.Unmarshal(buf, &req) == nil {
				return req, nil
			}
		}
		if err != nil {
			if len(buf) == 0 {
				if err == io.EOF || isTimeout(err) {
					return nil, errNoBytes
				}
				return nil, err
			}
			return nil, errors.New("Invalid JSON")
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

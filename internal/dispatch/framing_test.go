package dispatch

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestParsesCompleteJSON(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		payload, _ := json.Marshal(map[string]string{"action": "status"})
		_, _ = client.Write(payload)
	}()

	req, err := readRequest(server, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "status", req["action"])
}

func TestReadRequestNoBytesReturnsAliveSentinel(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	go client.Close()

	_, err := readRequest(server, 200*time.Millisecond)
	assert.Equal(t, errNoBytes, err)
}

func TestReadRequestMalformedBytesIsInvalidJSON(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	go func() {
		_, _ = client.Write([]byte("not json"))
		client.Close()
	}()

	_, err := readRequest(server, time.Second)
	require.Error(t, err)
	assert.Equal(t, "Invalid JSON", err.Error())
}

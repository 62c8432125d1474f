package gateway

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utxonet/utxonet/internal/protocol"
)

// serveOnce accepts one connection and answers with the given responder.
func serveOnce(t *testing.T, respond func(net.Conn, *protocol.Request)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req, err := readRequest(conn)
		if err != nil {
			return
		}
		respond(conn, req)
	}()
	return ln.Addr().String()
}

func TestSendRoundTrip(t *testing.T) {
	replier := protocol.NewValidator("127.0.0.1:9065", "aabb")
	addr := serveOnce(t, func(conn net.Conn, req *protocol.Request) {
		ping, ok := req.Command.(protocol.Ping)
		if !ok {
			t.Errorf("server decoded %T, want Ping", req.Command)
			return
		}
		_ = writeResponse(conn, protocol.NewSuccess(req.RequestID, replier, protocol.PingResponse{Msg: ping.Msg}))
	})

	req := protocol.NewClientRequest(protocol.Ping{Msg: "over the wire"})
	resp, err := Send(addr, req)
	require.NoError(t, err)
	require.Nil(t, resp.Body.Err)
	assert.Equal(t, req.RequestID, resp.OrigRequestID)
	assert.Equal(t, protocol.PingResponse{Msg: "over the wire"}, resp.Body.Success)
}

func TestSendAcceptsLengthPrefixedReply(t *testing.T) {
	replier := protocol.NewValidator("127.0.0.1:9065", "aabb")
	addr := serveOnce(t, func(conn net.Conn, req *protocol.Request) {
		resp := protocol.NewSuccess(req.RequestID, replier, protocol.Nothing{})
		payload, err := resp.Encode()
		require.NoError(t, err)
		var header [8]byte
		binary.BigEndian.PutUint64(header[:], uint64(len(payload)))
		_, _ = conn.Write(header[:])
		_, _ = conn.Write(payload)
	})

	resp, err := Send(addr, protocol.NewClientRequest(protocol.Ping{Msg: "x"}))
	require.NoError(t, err)
	require.Nil(t, resp.Body.Err)
	assert.IsType(t, protocol.Nothing{}, resp.Body.Success)
}

func TestSendFailsOnDeadPeer(t *testing.T) {
	// A port nothing listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Send(addr, protocol.NewClientRequest(protocol.Ping{Msg: "x"}))
	assert.Error(t, err)
}

func TestOversizedFrameRejected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	errCh := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			errCh <- err
			return
		}
		defer conn.Close()
		_, err = readRequest(conn)
		errCh <- err
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], maxFrame+1)
	_, err = conn.Write(header[:])
	require.NoError(t, err)

	assert.ErrorIs(t, <-errCh, ErrFrameTooLarge)
}

func TestTenKiBRequestAccepted(t *testing.T) {
	replier := protocol.NewValidator("127.0.0.1:9065", "aabb")
	addr := serveOnce(t, func(conn net.Conn, req *protocol.Request) {
		_ = writeResponse(conn, protocol.NewSuccess(req.RequestID, replier, protocol.Nothing{}))
	})

	// A ping whose payload alone passes 10 KiB.
	big := make([]byte, 10*1024)
	for i := range big {
		big[i] = 'a'
	}
	resp, err := Send(addr, protocol.NewClientRequest(protocol.Ping{Msg: string(big)}))
	require.NoError(t, err)
	assert.Nil(t, resp.Body.Err)
}

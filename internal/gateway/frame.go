// Package gateway is the TCP transport: a framed listener feeding the
// orchestrator's mailbox, and the outbound send lane draining its queue.
// Exactly one request and one response travel per connection.
package gateway

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/utxonet/utxonet/internal/protocol"
)

// maxFrame bounds a single request payload. The contract requires tolerating
// at least 10 KiB; a megabyte leaves room without letting a peer balloon the
// read buffer.
const maxFrame = 1 << 20

// sendTimeout bounds one outbound dial-write-read cycle. A timeout is treated
// identically to a transport error: the work item is dropped and the peer
// removed.
const sendTimeout = 10 * time.Second

var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// readFrame reads one length-prefixed payload: an 8-byte big-endian length
// followed by that many bytes.
func readFrame(conn net.Conn) ([]byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, fmt.Errorf("reading frame header: %w", err)
	}
	size := binary.BigEndian.Uint64(header[:])
	if size > maxFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return payload, nil
}

// readRequest reads and decodes one framed request.
func readRequest(conn net.Conn) (*protocol.Request, error) {
	payload, err := readFrame(conn)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeRequest(payload)
}

// writeRequest frames and writes one request.
func writeRequest(conn net.Conn, req *protocol.Request) error {
	payload, err := req.Encode()
	if err != nil {
		return err
	}
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(len(payload)))
	if _, err := conn.Write(header[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	return nil
}

// writeResponse writes the prefix-less reply and half-closes the stream so
// the reader sees EOF.
func writeResponse(conn net.Conn, resp *protocol.Response) error {
	payload, err := resp.Encode()
	if err != nil {
		return err
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		return tcp.CloseWrite()
	}
	return nil
}

// readResponse reads a reply to EOF, accepting both the prefix-less form and
// a length-prefixed one. A prefixed reply is recognized by its leading zero
// byte: frame lengths stay far below 2^56, while an encoded response always
// opens with a CBOR map header.
func readResponse(conn net.Conn) (*protocol.Response, error) {
	payload, err := io.ReadAll(io.LimitReader(conn, maxFrame+8))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(payload) > 8 && payload[0] == 0 {
		if size := binary.BigEndian.Uint64(payload[:8]); size == uint64(len(payload)-8) {
			payload = payload[8:]
		}
	}
	return protocol.DecodeResponse(payload)
}

// Send delivers one request to addr and waits for the reply. Every call uses
// a fresh connection.
func Send(addr string, req *protocol.Request) (*protocol.Response, error) {
	conn, err := net.DialTimeout("tcp", addr, sendTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(sendTimeout))

	if err := writeRequest(conn, req); err != nil {
		return nil, err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	return readResponse(conn)
}

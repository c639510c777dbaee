package server_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flashbots/attested-channel/client"
	"github.com/flashbots/attested-channel/protocol"
	"github.com/flashbots/attested-channel/server"
	"github.com/flashbots/attested-channel/testutil"
)

// startResponder runs a responder on a loopback port and returns it with a
// connected initiator.
func startResponder(t *testing.T) (*server.Responder, *client.Initiator) {
	t.Helper()

	responderCipher, initiatorCipher := testutil.NewChannelCipherPair(t)

	responder, err := server.NewResponder(server.ResponderConfig{
		Addr:        "127.0.0.1:0",
		Cipher:      responderCipher,
		ReadTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, responder.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		responder.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	initiator, err := client.NewInitiator(responder.Addr().String(), initiatorCipher)
	require.NoError(t, err)
	return responder, initiator
}

func TestDeliverThenCompute(t *testing.T) {
	_, initiator := startResponder(t)
	ctx := context.Background()

	resp, err := initiator.Deliver(ctx, []byte{12, 43})
	require.NoError(t, err)
	require.Equal(t, protocol.RespDeliverOK, resp)

	resp, err = initiator.Compute(ctx)
	require.NoError(t, err)
	require.Equal(t, "Result: 55", resp)
}

func TestComputeBeforeDeliver(t *testing.T) {
	_, initiator := startResponder(t)

	resp, err := initiator.Compute(context.Background())
	require.NoError(t, err)
	require.Equal(t, protocol.RespNoPayload, resp)
}

func TestUnknownMessageTag(t *testing.T) {
	responder, initiator := startResponder(t)
	ctx := context.Background()

	_, err := initiator.Deliver(ctx, []byte{12, 43})
	require.NoError(t, err)

	// A raw frame with tag 7 gets the unknown-message reply...
	conn, err := net.Dial("tcp", responder.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte{7, 1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())
	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, protocol.RespUnknown, string(reply))

	// ...and leaves the stored payload unchanged.
	resp, err := initiator.Compute(ctx)
	require.NoError(t, err)
	require.Equal(t, "Result: 55", resp)
}

func TestTamperedDeliverRejected(t *testing.T) {
	responder, initiator := startResponder(t)
	ctx := context.Background()

	_, err := initiator.Deliver(ctx, []byte{1, 2})
	require.NoError(t, err)

	// Replay the deliver path with garbage ciphertext: no success
	// acknowledgment and no state mutation.
	conn, err := net.Dial("tcp", responder.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	garbage := make([]byte, 1+12+32)
	garbage[0] = protocol.TagDeliver
	_, err = conn.Write(garbage)
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())
	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.NotEqual(t, protocol.RespDeliverOK, string(reply))
	require.Contains(t, string(reply), "Decrypt failed")

	payload, ok := responder.Store().Bytes()
	require.True(t, ok)
	require.Equal(t, []byte{1, 2}, payload)
}

func TestWrongKeyRejected(t *testing.T) {
	responder, _ := startResponder(t)

	// An initiator with an unrelated key derives a garbage channel key;
	// its ciphertexts must fail authentication.
	_, wrongCipher := testutil.NewChannelCipherPair(t)
	wrong, err := client.NewInitiator(responder.Addr().String(), wrongCipher)
	require.NoError(t, err)

	resp, err := wrong.Deliver(context.Background(), []byte{12, 43})
	require.NoError(t, err)
	require.NotEqual(t, protocol.RespDeliverOK, resp)

	_, ok := responder.Store().Bytes()
	require.False(t, ok)
}

func TestConcurrentConnections(t *testing.T) {
	_, initiator := startResponder(t)
	ctx := context.Background()

	_, err := initiator.Deliver(ctx, []byte{10, 20})
	require.NoError(t, err)

	// A connection that never sends data must not block other clients;
	// the responder serves each connection independently.
	stalled, err := net.Dial("tcp", initiator.Addr)
	require.NoError(t, err)
	defer stalled.Close()

	done := make(chan error, 1)
	go func() {
		resp, err := initiator.Compute(ctx)
		if err == nil && resp != "Result: 30" {
			err = io.ErrUnexpectedEOF
		}
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("compute blocked behind a stalled connection")
	}
}

func TestResponderConfigValidation(t *testing.T) {
	cipher, _ := testutil.NewChannelCipherPair(t)

	_, err := server.NewResponder(server.ResponderConfig{Addr: ":0"})
	require.Error(t, err)

	_, err = server.NewResponder(server.ResponderConfig{Cipher: cipher})
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	responder, initiator := startResponder(t)
	ctx := context.Background()

	_, err := initiator.Deliver(ctx, []byte{12, 43})
	require.NoError(t, err)
	_, err = initiator.Compute(ctx)
	require.NoError(t, err)

	connections, delivered := responder.Stats()
	require.GreaterOrEqual(t, connections, int64(2))
	require.Equal(t, int64(1), delivered)
}

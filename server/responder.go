package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.uber.org/atomic"

	"github.com/flashbots/attested-channel/crypto"
	"github.com/flashbots/attested-channel/metrics"
	"github.com/flashbots/attested-channel/protocol"
)

const (
	// DefaultMaxRequestSize bounds the end-of-stream request read.
	DefaultMaxRequestSize = 64 << 10

	// DefaultReadTimeout bounds how long a connection may take to deliver
	// its request, so a stalled initiator cannot pin a goroutine forever.
	DefaultReadTimeout = 10 * time.Second
)

// ResponderConfig contains all configuration for a Responder.
type ResponderConfig struct {
	// Addr is the TCP listen address, e.g. ":9000".
	Addr string

	// Cipher is the channel cipher under the pre-shared channel key. Only
	// the responder's secret key can produce it, so possession of the
	// cipher is what makes this end the responder.
	Cipher *crypto.ChannelCipher

	// MaxRequestSize caps a request frame. Defaults to 64 KiB.
	MaxRequestSize int64

	// ReadTimeout is the per-connection read deadline. Defaults to 10s.
	ReadTimeout time.Duration

	// Log is the structured logger for connection events.
	Log *slog.Logger
}

// Responder accepts channel connections and processes one request frame
// per connection, concurrently across connections.
type Responder struct {
	cfg   ResponderConfig
	log   *slog.Logger
	store *PayloadStore

	listener net.Listener

	connections atomic.Int64
	delivered   atomic.Int64
}

// NewResponder creates a responder from the given configuration.
func NewResponder(cfg ResponderConfig) (*Responder, error) {
	if cfg.Cipher == nil {
		return nil, errors.New("channel cipher cannot be nil")
	}
	if cfg.Addr == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	if cfg.MaxRequestSize == 0 {
		cfg.MaxRequestSize = DefaultMaxRequestSize
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	return &Responder{
		cfg:   cfg,
		log:   cfg.Log,
		store: &PayloadStore{},
	}, nil
}

// Store returns the responder's payload store.
func (r *Responder) Store() *PayloadStore {
	return r.store
}

// Listen binds the TCP listener. Calling it before Serve lets tests learn
// the bound address via Addr.
func (r *Responder) Listen() error {
	listener, err := net.Listen("tcp", r.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", r.cfg.Addr, err)
	}
	r.listener = listener
	return nil
}

// Addr returns the listener address. Only valid after Listen.
func (r *Responder) Addr() net.Addr {
	return r.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, handling each in its
// own goroutine. Cancelling ctx closes the listener and all in-flight
// connections.
func (r *Responder) Serve(ctx context.Context) error {
	if r.listener == nil {
		if err := r.Listen(); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		r.listener.Close()
	}()

	r.log.Info("Responder listening", "addr", r.listener.Addr().String())

	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go r.handleConn(ctx, conn)
	}
}

func (r *Responder) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	r.connections.Inc()

	// Abort in-flight work on shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log := r.log.With("remote", conn.RemoteAddr().String())

	if err := conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout)); err != nil {
		log.Error("Setting read deadline failed", "err", err)
		return
	}

	frame, err := protocol.ReadFrame(conn, r.cfg.MaxRequestSize)
	if err != nil {
		log.Warn("Dropping malformed request", "err", err)
		return
	}

	response := r.handleFrame(log, frame)
	if _, err := conn.Write([]byte(response)); err != nil {
		log.Warn("Writing response failed", "err", err)
		return
	}
	// End-of-stream delimits the response.
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}
}

// handleFrame dispatches one request frame and returns the response
// string.
func (r *Responder) handleFrame(log *slog.Logger, frame *protocol.Frame) string {
	switch frame.Tag {
	case protocol.TagDeliver:
		metrics.IncFrame("deliver")
		plaintext, err := r.cfg.Cipher.Open(frame.Nonce[:], frame.Ciphertext, protocol.AAD)
		if err != nil {
			// No success acknowledgment, no state mutation.
			log.Warn("Deliver rejected", "err", err)
			return fmt.Sprintf("Decrypt failed: %v", err)
		}
		r.store.Set(plaintext)
		r.delivered.Inc()
		log.Info("Payload delivered", "bytes", len(plaintext))
		return protocol.RespDeliverOK

	case protocol.TagCompute:
		metrics.IncFrame("compute")
		sum, ok := r.store.Sum()
		if !ok {
			return protocol.RespNoPayload
		}
		return fmt.Sprintf("Result: %d", sum)

	default:
		metrics.IncFrame("unknown")
		log.Warn("Unknown message tag", "tag", frame.Tag)
		return protocol.RespUnknown
	}
}

// Stats reports how many connections and successful deliveries the
// responder has handled.
func (r *Responder) Stats() (connections, delivered int64) {
	return r.connections.Load(), r.delivered.Load()
}

package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/model"
	ws "github.com/stemsi/lesson-orchestrator/internal/websocket"
)

var (
	// ErrMissingCredential is a setup error. No connection is attempted.
	ErrMissingCredential = errors.New("missing lesson credential")
	ErrAlreadyConnected  = errors.New("session already has a connection")
	ErrNotConnected      = errors.New("not connected")
	// ErrDisconnected is returned for every write after the connection dropped.
	// The client never reconnects.
	ErrDisconnected = errors.New("disconnected")
	ErrEmptyText    = errors.New("empty text")
)

const defaultEventBuffer = 256

// Options configures a Client.
type Options struct {
	URL       string
	Token     string
	SessionID string
	Dialer    *websocket.Dialer
	// EventBuffer sizes the Events channel.
	EventBuffer int
}

// Client owns the single persistent connection of one lesson session.
type Client struct {
	opts      Options
	sessionID string
	log       zerolog.Logger
	events    chan Event

	mu      sync.RWMutex
	status  model.ConnStatus
	conn    *websocket.Conn
	closing bool

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// New creates a Client. It does not connect.
func New(opts Options, log zerolog.Logger) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	return &Client{
		opts:      opts,
		sessionID: sessionID,
		log:       log.With().Str("component", "stream_client").Str("session_id", sessionID).Logger(),
		events:    make(chan Event, opts.EventBuffer),
		status:    model.ConnStatusIdle,
	}
}

// SessionID returns the id sent with the connection and with CLOSE_SESSION.
func (c *Client) SessionID() string { return c.sessionID }

// Events delivers decoded inbound events in arrival order.
// It is closed after the final StatusChanged{disconnected}.
func (c *Client) Events() <-chan Event { return c.events }

// Status returns the current connection status.
func (c *Client) Status() model.ConnStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Connect dials the stream. The credential is appended to the target URL.
func (c *Client) Connect(ctx context.Context) error {
	if c.opts.Token == "" {
		return ErrMissingCredential
	}

	target, err := buildTarget(c.opts.URL, c.opts.Token, c.sessionID)
	if err != nil {
		return fmt.Errorf("build target: %w", err)
	}

	c.mu.Lock()
	if c.status != model.ConnStatusIdle {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.status = model.ConnStatusConnecting
	c.mu.Unlock()
	c.emit(StatusChanged{Status: model.ConnStatusConnecting})

	conn, _, err := c.opts.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		c.shutdown()
		return fmt.Errorf("dial: %w", err)
	}
	ws.KeepAlive(conn)

	c.mu.Lock()
	c.conn = conn
	c.status = model.ConnStatusConnected
	c.mu.Unlock()

	c.log.Info().Msg("Connected")
	c.emit(StatusChanged{Status: model.ConnStatusConnected})

	go c.readLoop(conn)
	return nil
}

func buildTarget(raw, token, sessionID string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.shutdown()

	for {
		data, err := ws.ReadFrame(conn)
		if err != nil {
			c.mu.RLock()
			closing := c.closing
			c.mu.RUnlock()
			if !closing && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				c.log.Debug().Err(err).Msg("Connection closed")
			}
			return
		}

		in, err := ws.Decode(data)
		if err != nil {
			if errors.Is(err, ws.ErrUnknownType) {
				c.log.Warn().Str("type", string(in.Type)).Msg("Ignoring unknown message type")
			} else {
				c.log.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping malformed frame")
			}
			continue
		}

		if ev := toEvent(in); ev != nil {
			c.emit(ev)
		}
	}
}

func toEvent(in ws.Inbound) Event {
	switch in.Type {
	case ws.TypeInitializing:
		return SessionInitializing{Message: in.Message}
	case ws.TypeNextStep, ws.TypeClarificationResponse:
		if in.Step.Kind == model.StepKindClarification {
			return ClarificationArrived{Step: in.Step}
		}
		return StepArrived{Step: in.Step}
	case ws.TypeLoadInstruction:
		return ClarificationPending{}
	case ws.TypeAudioChunk:
		return NarrationChunk{Data: in.Audio}
	case ws.TypeAudioEnd:
		return NarrationEnded{}
	case ws.TypeStepAcknowledged:
		return StepAcknowledged{}
	}
	return nil
}

// shutdown flips the status to disconnected exactly once and closes Events.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.status = model.ConnStatusDisconnected
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		c.log.Info().Msg("Disconnected")
		c.events <- StatusChanged{Status: model.ConnStatusDisconnected}
		close(c.events)
	})
}

func (c *Client) emit(ev Event) {
	c.events <- ev
}

func (c *Client) write(fn func(conn *websocket.Conn) error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	status, conn := c.status, c.conn
	c.mu.RUnlock()

	switch status {
	case model.ConnStatusConnected:
	case model.ConnStatusDisconnected:
		return ErrDisconnected
	default:
		return ErrNotConnected
	}

	if err := fn(conn); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// AcknowledgeStepComplete tells the server the current step is done and asks for the next one.
func (c *Client) AcknowledgeStepComplete() error {
	return c.write(func(conn *websocket.Conn) error {
		return ws.WriteTyped(conn, ws.SignalMessage{Type: ws.TypeStepCompleted})
	})
}

// RequestNarration asks the server to synthesize text. The request is a raw text frame.
func (c *Client) RequestNarration(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return c.write(func(conn *websocket.Conn) error {
		return ws.WriteText(conn, text)
	})
}

// SendFreeformMessage sends a viewer question.
func (c *Client) SendFreeformMessage(text string) error {
	return c.SendQuestionAudio(text, nil)
}

// SendQuestionAudio sends a viewer question with optional recorded audio.
func (c *Client) SendQuestionAudio(text string, audio []byte) error {
	if text == "" && len(audio) == 0 {
		return ErrEmptyText
	}
	return c.write(func(conn *websocket.Conn) error {
		return ws.WriteTyped(conn, ws.UserQuestionRequest{
			Type:         ws.TypeUserQuestion,
			QuestionText: text,
			AudioData:    audio,
		})
	})
}

// CloseSession tells the server the session is over and closes the connection.
func (c *Client) CloseSession() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()

	err := c.write(func(conn *websocket.Conn) error {
		if err := ws.WriteTyped(conn, ws.CloseSessionRequest{Type: ws.TypeCloseSession, SessionID: c.sessionID}); err != nil {
			return err
		}
		return ws.WriteClose(conn, "session closed")
	})
	if err != nil && !errors.Is(err, ErrDisconnected) {
		return err
	}
	return nil
}

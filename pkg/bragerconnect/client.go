package bragerconnect

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketClient is the concrete Client backed by a single websocket
// session. All remote calls share one connection; a background read
// loop routes replies back to callers by message id.
type WebSocketClient struct {
	host     string
	username string
	password string
	language string
	timeout  time.Duration
	logger   *zap.Logger

	// writeMu serializes frame writes. gorilla/websocket allows only
	// one concurrent writer per connection.
	writeMu sync.Mutex

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	loggedIn     bool
	reconnect    bool
	reconnecting bool
	counter      int64
	pending      map[int64]chan *envelope
	activeDevice string
	devices      map[string]*Device
	deviceOrder  []string
}

func CreateWebSocketClient(host string, username string, password string, language string,
	timeout time.Duration, logger *zap.Logger) (*WebSocketClient, error) {
	if host == "" {
		host = DefaultHost
	}
	if language == "" {
		language = DefaultLanguage
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if username == "" || password == "" {
		return nil, &AuthError{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketClient{
		host:     host,
		username: username,
		password: password,
		language: language,
		timeout:  timeout,
		logger:   logger.With(zap.String("component", "bragerconnect")),
		pending:  map[int64]chan *envelope{},
		devices:  map[string]*Device{},
	}, nil
}

var _ Client = (*WebSocketClient)(nil)

// Connect opens the session and logs in. Already-connected clients
// return nil without touching the socket.
func (c *WebSocketClient) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.reconnect = true
	c.mu.Unlock()

	if err := c.dial(); err != nil {
		return err
	}
	if err := c.establishSession(); err != nil {
		_ = c.Disconnect()
		return err
	}
	return nil
}

// Disconnect closes the socket and disables automatic reconnection.
// Outstanding calls are left to run into their own timeouts.
func (c *WebSocketClient) Disconnect() error {
	c.mu.Lock()
	c.reconnect = false
	c.connected = false
	c.loggedIn = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *WebSocketClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *WebSocketClient) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// dial opens the websocket and performs the ready handshake: the
// server speaks first with a READY_SIGNAL envelope which must be
// echoed back verbatim before any call is accepted.
func (c *WebSocketClient) dial() error {
	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, _, err := dialer.Dial(c.host, nil)
	if err != nil {
		return &ConnectionError{Reason: "dial " + c.host, Err: err}
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return &ConnectionError{Reason: "waiting for ready signal", Err: err}
	}
	env, err := decodeEnvelope(raw)
	if err != nil || env.Type != MessageReadySignal {
		_ = conn.Close()
		return &ConnectionError{Reason: "unexpected greeting, not a ready signal"}
	}
	// The echo must be byte-identical to what the server sent.
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		_ = conn.Close()
		return &ConnectionError{Reason: "echoing ready signal", Err: err}
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Debug("session open", zap.String("host", c.host))
	go c.readLoop(conn)
	return nil
}

// establishSession runs the post-handshake sequence on a fresh socket:
// login, session language, active device restore.
func (c *WebSocketClient) establishSession() error {
	if err := c.login(); err != nil {
		return err
	}
	if err := c.ensureLanguage(); err != nil {
		return err
	}
	return c.syncActiveDevice()
}

func (c *WebSocketClient) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleClosed(conn, err)
			return
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			c.logger.Warn("dropping unparseable frame", zap.Error(err))
			continue
		}
		switch env.Type {
		case MessageFunctionResp, MessageException:
			c.resolve(env)
		case MessageProcedureExec, MessageFunctionExec, MessagePortMessage:
			// Server-initiated requests are not supported.
			c.logger.Debug("ignoring server request",
				zap.Int("type", int(env.Type)), zap.String("name", env.Name))
		default:
			c.logger.Debug("ignoring frame", zap.Int("type", int(env.Type)))
		}
	}
}

func (c *WebSocketClient) resolve(env *envelope) {
	if env.ID == nil {
		c.logger.Warn("reply without message id", zap.Int("type", int(env.Type)))
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[*env.ID]
	if ok {
		delete(c.pending, *env.ID)
	}
	c.mu.Unlock()
	if !ok {
		// Caller already timed out and evicted the slot.
		c.logger.Debug("discarding late reply", zap.Int64("nr", *env.ID))
		return
	}
	ch <- env
}

// handleClosed runs when the read loop dies. Only the loop owning the
// current connection may flip session state; loops of already-replaced
// connections return without effect.
func (c *WebSocketClient) handleClosed(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	c.loggedIn = false
	redial := c.reconnect && !c.reconnecting
	if redial {
		c.reconnecting = true
	}
	c.mu.Unlock()

	_ = conn.Close()
	if redial {
		c.logger.Warn("connection lost, reconnecting", zap.Error(err))
		go c.redial()
	} else {
		c.logger.Debug("connection closed", zap.Error(err))
	}
}

func (c *WebSocketClient) redial() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	err := backoff.Retry(func() error {
		c.mu.Lock()
		wanted := c.reconnect
		c.mu.Unlock()
		if !wanted {
			return nil
		}
		if err := c.dial(); err != nil {
			return err
		}
		if err := c.establishSession(); err != nil {
			_ = c.closeSocket()
			// Bad credentials will not fix themselves. Stop retrying.
			var authErr *AuthError
			if errors.As(err, &authErr) {
				return backoff.Permanent(err)
			}
			return err
		}
		c.logger.Info("session restored")
		return nil
	}, bo)
	if err != nil {
		c.logger.Error("giving up on reconnection", zap.Error(err))
	}
}

// closeSocket closes the current connection without touching the
// reconnect flag.
func (c *WebSocketClient) closeSocket() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.loggedIn = false
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// send allocates a correlation id, registers the reply slot and writes
// the frame. The slot is registered before the write so a reply racing
// the sender always finds its channel.
func (c *WebSocketClient) send(name string, args []any, msgType MessageType) (int64, chan *envelope, error) {
	c.mu.Lock()
	if !c.connected || c.conn == nil {
		c.mu.Unlock()
		return 0, nil, &ConnectionError{Reason: "not connected"}
	}
	id := c.counter
	c.counter++
	ch := make(chan *envelope, 1)
	c.pending[id] = ch
	conn := c.conn
	c.mu.Unlock()

	data, err := encodeCall(id, name, args, msgType)
	if err != nil {
		c.evict(id)
		return 0, nil, &DataError{Reason: "encoding " + name, Err: err}
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.timeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.evict(id)
		return 0, nil, &ConnectionError{Reason: "writing " + name, Err: err}
	}
	return id, ch, nil
}

func (c *WebSocketClient) evict(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *WebSocketClient) await(name string, id int64, ch chan *envelope) (json.RawMessage, error) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case env := <-ch:
		switch env.Type {
		case MessageException:
			return nil, &RemoteExecutionError{Name: name, ID: id}
		case MessageFunctionResp:
			return env.Resp, nil
		default:
			// Reply types other than function response and exception
			// carry no payload.
			return nil, nil
		}
	case <-timer.C:
		// Evict the slot so a reply arriving later is discarded
		// instead of leaking the channel.
		c.evict(id)
		return nil, &TimeoutError{Name: name, ID: id}
	}
}

// Execute runs a remote function and returns its raw reply payload.
func (c *WebSocketClient) Execute(name string, args ...any) (json.RawMessage, error) {
	id, ch, err := c.send(name, args, MessageFunctionExec)
	if err != nil {
		return nil, err
	}
	return c.await(name, id, ch)
}

package bragerconnect

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

const (
	// clientAppID identifies this client to the service, matching what
	// the web frontend sends.
	clientAppID = "bc_web"

	// langVariable is the server-side user variable holding the session
	// language. The spelling is the server's, not ours.
	langVariable = "preffered_lang"
)

func (c *WebSocketClient) login() error {
	resp, err := c.Execute("s_login", c.username, c.password, nil, nil, clientAppID)
	if err != nil {
		// Only a remote rejection means bad credentials. Transport
		// failures and timeouts keep their own type so reconnection
		// can retry the login.
		var execErr *RemoteExecutionError
		if errors.As(err, &execErr) {
			return &AuthError{Err: err}
		}
		return err
	}
	if !replyEquals(resp, "1") {
		return &AuthError{}
	}
	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	c.logger.Info("logged in", zap.String("username", c.username))
	return nil
}

// ensureLanguage aligns the server-side session language with the
// configured one so field names and units come back translated.
func (c *WebSocketClient) ensureLanguage() error {
	current, err := c.GetUserVariable(langVariable)
	if err != nil {
		return err
	}
	if current == c.language {
		return nil
	}
	return c.SetUserVariable(langVariable, c.language)
}

// GetUserVariable reads a server-side per-user variable. Unset
// variables come back as the empty string.
func (c *WebSocketClient) GetUserVariable(name string) (string, error) {
	resp, err := c.Execute("s_getUserVariable", name)
	if err != nil {
		return "", err
	}
	if emptyReply(resp) {
		return "", nil
	}
	var value string
	if err := json.Unmarshal(resp, &value); err != nil {
		return "", &DataError{Reason: "parsing user variable " + name, Err: err}
	}
	return value, nil
}

// SetUserVariable writes a server-side per-user variable. The server
// acknowledges a successful write with an empty payload.
func (c *WebSocketClient) SetUserVariable(name string, value string) error {
	resp, err := c.Execute("s_setUserVariable", name, value)
	if err != nil {
		return err
	}
	if !emptyReply(resp) && !replyEquals(resp, "1") {
		return &ProtocolError{Reason: "unexpected reply to s_setUserVariable"}
	}
	return nil
}

// syncActiveDevice fetches which device the server currently scopes
// queries to and caches it locally.
func (c *WebSocketClient) syncActiveDevice() error {
	resp, err := c.Execute("s_getActiveDevid")
	if err != nil {
		return err
	}
	var id string
	if !emptyReply(resp) {
		if err := json.Unmarshal(resp, &id); err != nil {
			return &DataError{Reason: "parsing active device id", Err: err}
		}
	}
	c.mu.Lock()
	c.activeDevice = id
	c.mu.Unlock()
	return nil
}

// setActiveDevice switches the server-side query scope to the given
// device, skipping the round trip when the cache already matches.
func (c *WebSocketClient) setActiveDevice(id string) error {
	c.mu.Lock()
	current := c.activeDevice
	c.mu.Unlock()
	if current == id {
		return nil
	}
	if _, err := c.Execute("s_setActiveDevid", id); err != nil {
		return err
	}
	c.mu.Lock()
	c.activeDevice = id
	c.mu.Unlock()
	c.logger.Debug("active device switched", zap.String("devid", id))
	return nil
}

func (c *WebSocketClient) ActiveDeviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeDevice
}

package bragerconnect

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// remoteFunc handles one fake remote function. ok=false answers with
// an exception frame; returning noReply keeps the service silent.
type remoteFunc func(args []any) (resp any, ok bool)

// noReply makes the fake swallow a call without answering, so the
// caller runs into its timeout.
var noReply = &struct{}{}

const readyFrame = `{"wrkfnc":true,"type":10,"nr":0}`

// newFakeService runs a websocket endpoint speaking the BragerConnect
// protocol: ready signal first, verbatim echo expected, then
// request/response frames served from the handler map. Functions with
// no handler are silently dropped.
func newFakeService(t *testing.T, handlers map[string]remoteFunc) (string, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(readyFrame)); err != nil {
			return
		}
		_, echo, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(echo) != readyFrame {
			t.Errorf("ready signal echo mismatch: %s", echo)
			return
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				WrkFnc bool   `json:"wrkfnc"`
				Type   int    `json:"type"`
				Name   string `json:"name"`
				Nr     int64  `json:"nr"`
				Args   []any  `json:"args"`
			}
			if err := json.Unmarshal(data, &req); err != nil {
				t.Errorf("unparseable frame: %s", data)
				return
			}
			fn, found := handlers[req.Name]
			if !found {
				continue
			}
			resp, ok := fn(req.Args)
			if resp == noReply {
				continue
			}
			reply := map[string]any{"wrkfnc": true, "nr": req.Nr}
			if ok {
				reply["type"] = 12
				reply["resp"] = resp
			} else {
				reply["type"] = 20
			}
			out, _ := json.Marshal(reply)
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
	return "ws" + strings.TrimPrefix(srv.URL, "http"), srv.Close
}

func defaultHandlers() map[string]remoteFunc {
	var pool map[string]any
	if err := json.Unmarshal([]byte(testPoolData), &pool); err != nil {
		panic(err)
	}
	return map[string]remoteFunc{
		"s_login": func(args []any) (any, bool) {
			return 1, true
		},
		"s_getUserVariable": func(args []any) (any, bool) {
			return "en", true
		},
		"s_setUserVariable": func(args []any) (any, bool) {
			return nil, true
		},
		"s_getActiveDevid": func(args []any) (any, bool) {
			return testDeviceID, true
		},
		"s_setActiveDevid": func(args []any) (any, bool) {
			return 1, true
		},
		"s_getMyDevIdList": func(args []any) (any, bool) {
			return []map[string]any{{
				"username": "brager2mqtt",
				"devid":    testDeviceID,
			}}, true
		},
		"s_getAllPoolData": func(args []any) (any, bool) {
			return pool, true
		},
		"s_getTaskQueue": func(args []any) (any, bool) {
			return []any{}, true
		},
		"s_getAlarmListExtended": func(args []any) (any, bool) {
			return []any{}, true
		},
	}
}

func newTestConnectedClient(t *testing.T, handlers map[string]remoteFunc) (*WebSocketClient, func()) {
	t.Helper()
	url, stop := newFakeService(t, handlers)
	client, err := CreateWebSocketClient(url, "user", "pass", "en", 2*time.Second, zap.NewNop())
	if err != nil {
		stop()
		t.Fatal(err)
	}
	if err := client.Connect(); err != nil {
		stop()
		t.Fatal(err)
	}
	return client, func() {
		_ = client.Disconnect()
		stop()
	}
}

func TestConnectAndLogin(t *testing.T) {
	client, stop := newTestConnectedClient(t, defaultHandlers())
	defer stop()

	assert.True(t, client.Connected())
	assert.True(t, client.LoggedIn())
	assert.Equal(t, testDeviceID, client.ActiveDeviceID())
}

func TestConnectIsIdempotent(t *testing.T) {
	client, stop := newTestConnectedClient(t, defaultHandlers())
	defer stop()

	assert.NoError(t, client.Connect())
	assert.True(t, client.Connected())
}

func TestLoginRejected(t *testing.T) {
	handlers := defaultHandlers()
	handlers["s_login"] = func(args []any) (any, bool) {
		return 0, true
	}
	url, stop := newFakeService(t, handlers)
	defer stop()

	client, err := CreateWebSocketClient(url, "user", "wrong", "en", 2*time.Second, zap.NewNop())
	assert.NoError(t, err)
	err = client.Connect()
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.False(t, client.Connected())
	assert.False(t, client.LoggedIn())
}

func TestLoginSendsClientID(t *testing.T) {
	handlers := defaultHandlers()
	var gotArgs []any
	handlers["s_login"] = func(args []any) (any, bool) {
		gotArgs = args
		return 1, true
	}
	client, stop := newTestConnectedClient(t, handlers)
	defer stop()

	assert.True(t, client.LoggedIn())
	if assert.Len(t, gotArgs, 5) {
		assert.Equal(t, "user", gotArgs[0])
		assert.Equal(t, "pass", gotArgs[1])
		assert.Nil(t, gotArgs[2])
		assert.Nil(t, gotArgs[3])
		assert.Equal(t, "bc_web", gotArgs[4])
	}
}

func TestLoginTimeoutIsNotAuthFailure(t *testing.T) {
	handlers := defaultHandlers()
	handlers["s_login"] = func(args []any) (any, bool) {
		return noReply, true
	}
	url, stop := newFakeService(t, handlers)
	defer stop()

	client, err := CreateWebSocketClient(url, "user", "pass", "en", 300*time.Millisecond, zap.NewNop())
	assert.NoError(t, err)
	err = client.Connect()

	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	var authErr *AuthError
	assert.False(t, errors.As(err, &authErr), "a silent login is not a credential failure")
}

func TestReconnectRestoresSession(t *testing.T) {
	handlers := defaultHandlers()
	var mu sync.Mutex
	logins := 0
	handlers["s_login"] = func(args []any) (any, bool) {
		mu.Lock()
		logins++
		mu.Unlock()
		return 1, true
	}
	client, stop := newTestConnectedClient(t, handlers)
	defer stop()
	assert.True(t, client.LoggedIn())

	// Kill the socket out from under the client.
	client.mu.Lock()
	conn := client.conn
	client.mu.Unlock()
	_ = conn.Close()

	assert.True(t, eventually(2*time.Second, func() bool { return !client.LoggedIn() }), "closure noticed")
	assert.True(t, eventually(5*time.Second, func() bool { return client.LoggedIn() }), "session restored")
	assert.True(t, client.Connected())
	mu.Lock()
	assert.GreaterOrEqual(t, logins, 2, "login replayed on the new socket")
	mu.Unlock()

	// The restored session serves calls.
	resp, err := client.Execute("s_getActiveDevid")
	assert.NoError(t, err)
	assert.True(t, replyEquals(resp, `"`+testDeviceID+`"`))
}

func TestReconnectSurvivesLoginTimeout(t *testing.T) {
	handlers := defaultHandlers()
	var mu sync.Mutex
	logins := 0
	handlers["s_login"] = func(args []any) (any, bool) {
		mu.Lock()
		defer mu.Unlock()
		logins++
		if logins == 2 {
			// Let the first re-login run into its timeout.
			return noReply, true
		}
		return 1, true
	}
	url, stop := newFakeService(t, handlers)
	defer stop()

	client, err := CreateWebSocketClient(url, "user", "pass", "en", 300*time.Millisecond, zap.NewNop())
	assert.NoError(t, err)
	assert.NoError(t, client.Connect())
	defer client.Disconnect()

	client.mu.Lock()
	conn := client.conn
	client.mu.Unlock()
	_ = conn.Close()

	// One timed out login must not stop the retry loop.
	assert.True(t, eventually(10*time.Second, func() bool { return client.LoggedIn() }), "session restored")
	mu.Lock()
	assert.GreaterOrEqual(t, logins, 3, "login retried after the timeout")
	mu.Unlock()
}

func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return cond()
}

func TestHandshakeRejectsWrongGreeting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		greeting := `{"wrkfnc":true,"type":12,"nr":0}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(greeting))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := CreateWebSocketClient(url, "user", "pass", "en", 2*time.Second, zap.NewNop())
	assert.NoError(t, err)
	err = client.Connect()
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.False(t, client.Connected())
}

func TestExecuteCorrelation(t *testing.T) {
	handlers := defaultHandlers()
	handlers["f_echo"] = func(args []any) (any, bool) {
		return args[0], true
	}
	client, stop := newTestConnectedClient(t, handlers)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			resp, err := client.Execute("f_echo", float64(n))
			assert.NoError(t, err)
			var got float64
			assert.NoError(t, json.Unmarshal(resp, &got))
			assert.Equal(t, float64(n), got)
		}(i)
	}
	wg.Wait()
}

func TestExecuteTimeoutEvictsSlot(t *testing.T) {
	handlers := defaultHandlers()
	handlers["f_ping"] = func(args []any) (any, bool) {
		return "pong", true
	}
	url, stop := newFakeService(t, handlers)
	defer stop()

	client, err := CreateWebSocketClient(url, "user", "pass", "en", 300*time.Millisecond, zap.NewNop())
	assert.NoError(t, err)
	assert.NoError(t, client.Connect())
	defer client.Disconnect()

	// No handler for f_slow, the service keeps silent.
	_, err = client.Execute("f_slow")
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)

	// The session must stay usable after a timed out call.
	resp, err := client.Execute("f_ping")
	assert.NoError(t, err)
	assert.True(t, replyEquals(resp, `"pong"`))
}

func TestExecuteRemoteException(t *testing.T) {
	handlers := defaultHandlers()
	handlers["f_boom"] = func(args []any) (any, bool) {
		return nil, false
	}
	client, stop := newTestConnectedClient(t, handlers)
	defer stop()

	_, err := client.Execute("f_boom")
	var remoteErr *RemoteExecutionError
	assert.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "f_boom", remoteErr.Name)
}

func TestExecuteRequiresConnection(t *testing.T) {
	client, err := CreateWebSocketClient("ws://localhost:1", "user", "pass", "en", time.Second, zap.NewNop())
	assert.NoError(t, err)

	_, err = client.Execute("f_ping")
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	client, stop := newTestConnectedClient(t, defaultHandlers())
	defer stop()

	assert.NoError(t, client.Disconnect())
	assert.NoError(t, client.Disconnect())
	assert.False(t, client.Connected())
	assert.False(t, client.LoggedIn())
}

func TestLanguageNegotiation(t *testing.T) {
	handlers := defaultHandlers()
	var setCalls [][]any
	handlers["s_getUserVariable"] = func(args []any) (any, bool) {
		return "en", true
	}
	handlers["s_setUserVariable"] = func(args []any) (any, bool) {
		setCalls = append(setCalls, args)
		return nil, true
	}

	url, stop := newFakeService(t, handlers)
	defer stop()
	client, err := CreateWebSocketClient(url, "user", "pass", "pl", 2*time.Second, zap.NewNop())
	assert.NoError(t, err)
	assert.NoError(t, client.Connect())
	defer client.Disconnect()

	// Server reported "en", configured "pl": exactly one write.
	if assert.Len(t, setCalls, 1) {
		assert.Equal(t, "preffered_lang", setCalls[0][0])
		assert.Equal(t, "pl", setCalls[0][1])
	}
}

func TestUpdateAll(t *testing.T) {
	client, stop := newTestConnectedClient(t, defaultHandlers())
	defer stop()

	devices, err := client.UpdateAll()
	assert.NoError(t, err)
	if assert.Len(t, devices, 1) {
		dev := devices[0]
		assert.Equal(t, testDeviceID, dev.ID())
		assert.NotNil(t, dev.Pool)
		assert.NotEmpty(t, dev.Status)

		boiler, ok := dev.Status.Field(4, 0)
		assert.True(t, ok)
		assert.Equal(t, 61.5, boiler.Value)
	}

	// The roster tracks the device afterwards.
	assert.Len(t, client.Devices(), 1)
	_, ok := client.Device(testDeviceID)
	assert.True(t, ok)
}

func TestRefreshDoesNotMutateHandedOutDevices(t *testing.T) {
	handlers := defaultHandlers()
	var pool map[string]any
	assert.NoError(t, json.Unmarshal([]byte(testPoolData), &pool))
	calls := 0
	handlers["s_getAllPoolData"] = func(args []any) (any, bool) {
		calls++
		if calls > 1 {
			pool["P4"].(map[string]any)["v0"] = 55.0
		}
		return pool, true
	}
	client, stop := newTestConnectedClient(t, handlers)
	defer stop()

	first, err := client.UpdateDevice(testDeviceID, nil)
	assert.NoError(t, err)
	second, err := client.UpdateDevice(testDeviceID, nil)
	assert.NoError(t, err)

	// The earlier snapshot keeps its values, the roster serves the
	// fresh one.
	firstBoiler, _ := first.Status.Field(4, 0)
	secondBoiler, _ := second.Status.Field(4, 0)
	assert.Equal(t, 61.5, firstBoiler.Value)
	assert.Equal(t, 55.0, secondBoiler.Value)

	dev, ok := client.Device(testDeviceID)
	assert.True(t, ok)
	assert.Same(t, second, dev)
	assert.Len(t, client.Devices(), 1)
}

func TestUpdateUnknownDeviceFails(t *testing.T) {
	client, stop := newTestConnectedClient(t, defaultHandlers())
	defer stop()

	_, err := client.UpdateDevice("NOSUCHDEV1", nil)
	var syncErr *SyncError
	assert.ErrorAs(t, err, &syncErr)
}

func TestUnsolicitedServerRequestIsIgnored(t *testing.T) {
	handlers := defaultHandlers()
	handlers["f_ping"] = func(args []any) (any, bool) {
		return "pong", true
	}
	url, stop := newFakeService(t, handlers)
	defer stop()

	client, err := CreateWebSocketClient(url, "user", "pass", "en", 2*time.Second, zap.NewNop())
	assert.NoError(t, err)
	assert.NoError(t, client.Connect())
	defer client.Disconnect()

	// A server-initiated request frame must not disturb the session.
	// The fake cannot push from here, so simulate by feeding the
	// dispatcher directly.
	id := int64(9999)
	client.resolve(&envelope{WrkFnc: true, Type: MessageFunctionResp, ID: &id})

	resp, err := client.Execute("f_ping")
	assert.NoError(t, err)
	assert.True(t, replyEquals(resp, `"pong"`))
}

func TestAwaitOtherReplyTypesYieldEmptyResult(t *testing.T) {
	client, stop := newTestConnectedClient(t, defaultHandlers())
	defer stop()

	id := int64(7)
	ch := make(chan *envelope, 1)
	ch <- &envelope{WrkFnc: true, Type: MessagePortMessage, ID: &id}

	resp, err := client.await("f_odd", id, ch)
	assert.NoError(t, err)
	assert.True(t, emptyReply(resp))
}

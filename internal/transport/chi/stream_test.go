package chi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/backend"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
)

func wsDial(t *testing.T, env *testEnv, id string) *websocket.Conn {
	t.Helper()
	u, _ := url.Parse(env.http.URL)
	u.Scheme = "ws"
	u.Path = "/sessions/" + id + "/stream"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readUntilSettled(t *testing.T, conn *websocket.Conn) streamMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != "outcome" {
			t.Fatalf("type = %q", msg.Type)
		}
		if msg.Outcome.Status != result.StatusLoading {
			return msg
		}
	}
}

func TestStreamSession(t *testing.T) {
	env := newTestEnv(t, &fakeCatalog{structured: structuredPage("1", "2", "3")})
	snap := createSession(t, env, "institution=General")
	conn := wsDial(t, env, snap.ID)

	msg := readUntilSettled(t, conn)
	if msg.Outcome.TotalCount != 3 || msg.Outcome.Source != backend.Structured {
		t.Errorf("outcome = %+v", msg.Outcome)
	}
	if msg.Location != "institution=General" {
		t.Errorf("location = %q", msg.Location)
	}

	doRequest(t, env, http.MethodPatch, "/sessions/"+snap.ID, []byte(`{"institution":"City"}`))
	msg = readUntilSettled(t, conn)
	if msg.Location != "institution=City" {
		t.Errorf("location after patch = %q", msg.Location)
	}
}

func TestStreamSession_ClosedOnDelete(t *testing.T) {
	env := newTestEnv(t, &fakeCatalog{})
	snap := createSession(t, env, "")
	conn := wsDial(t, env, snap.ID)
	readUntilSettled(t, conn)

	doRequest(t, env, http.MethodDelete, "/sessions/"+snap.ID, nil)

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
			t.Errorf("expected going-away close, got %v", err)
		}
		return
	}
}

func TestStreamSession_UnknownSession(t *testing.T) {
	env := newTestEnv(t, &fakeCatalog{})
	u, _ := url.Parse(env.http.URL)
	u.Scheme = "ws"
	u.Path = "/sessions/missing/stream"

	_, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %+v", resp)
	}
}

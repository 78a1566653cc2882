package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer stands up the real HTTP surface on an ephemeral port.
func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	cfg := testConfig()
	hub := newHub(cfg)
	t.Cleanup(hub.stop)

	errs := make(chan error, 64)

	mux := httprouter.New()
	mux.GET("/status", serveStatus(cfg, hub, errs))
	mux.GET("/ws", serveWS(cfg, hub))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return hub, srv
}

// wsPeer wraps a live websocket connection for protocol-level tests.
type wsPeer struct {
	conn *websocket.Conn
	id   string
}

func dialPeer(t *testing.T, srv *httptest.Server) *wsPeer {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	p := &wsPeer{conn: conn}

	established := decodeEvent[ConnectionEstablished](t, p.expect(t, "connection_established"))
	require.NotEmpty(t, established.ClientID)
	p.id = established.ClientID

	return p
}

func (p *wsPeer) write(t *testing.T, kind string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, p.conn.WriteJSON(Envelope{Type: kind, Data: raw}))
}

// expect reads until an event of the wanted type arrives, discarding the
// presence broadcasts that interleave with everything else.
func (p *wsPeer) expect(t *testing.T, kind string) Envelope {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, p.conn.SetReadDeadline(deadline))

	for {
		var env Envelope
		require.NoError(t, p.conn.ReadJSON(&env), "waiting for %q", kind)

		if env.Type == kind {
			return env
		}
		require.Equal(t, "online_count", env.Type, "unexpected event while waiting for %q", kind)
	}
}

// sync round-trips a protocol ping so every previously written message
// has been fully handled before sync returns.
func (p *wsPeer) sync(t *testing.T) {
	t.Helper()

	p.write(t, "ping", nil)
	p.expect(t, "pong")
}

func (p *wsPeer) findMatch(t *testing.T, gameType string) {
	t.Helper()

	p.write(t, "matchmaking", MatchmakingRequest{
		Action:   "find_match",
		GameType: gameType,
	})
}

func wsMatchPair(t *testing.T, srv *httptest.Server, gameType string) (*wsPeer, *wsPeer, string) {
	t.Helper()

	a := dialPeer(t, srv)
	b := dialPeer(t, srv)

	a.findMatch(t, gameType)
	status := decodeEvent[MatchmakingStatus](t, a.expect(t, "matchmaking_status"))
	require.Equal(t, "waiting", status.Status)

	b.findMatch(t, gameType)

	matchedA := decodeEvent[GameMatched](t, a.expect(t, "game_matched"))
	matchedB := decodeEvent[GameMatched](t, b.expect(t, "game_matched"))
	require.Equal(t, matchedA.GameID, matchedB.GameID)
	require.True(t, matchedA.IsHost)
	require.False(t, matchedB.IsHost)

	return a, b, matchedA.GameID
}

func TestWSConnectionEstablished(t *testing.T) {
	_, srv := newTestServer(t)

	a := dialPeer(t, srv)
	b := dialPeer(t, srv)

	assert.NotEqual(t, a.id, b.id)

	// The second connect pushes a fresh count to everyone already online;
	// A first drains the count from its own connect.
	for {
		count := decodeEvent[OnlineCount](t, a.expect(t, "online_count"))
		if count.Count == 2 {
			break
		}
		require.Equal(t, 1, count.Count)
	}
}

func TestWSMatchRelayAndEnd(t *testing.T) {
	_, srv := newTestServer(t)

	a, b, gameID := wsMatchPair(t, srv, "battleships")

	// Game state travels verbatim, gameId and all.
	a.write(t, "game_state", map[string]any{
		"gameId": gameID,
		"board":  []int{1, 2, 3},
	})

	env := b.expect(t, "game_state")
	assert.JSONEq(t,
		`{"gameId":"`+gameID+`","board":[1,2,3]}`,
		string(env.Data),
	)

	b.write(t, "chat", SessionRequest{GameID: gameID, Message: "nice shot"})

	chat := decodeEvent[ChatEvent](t, a.expect(t, "chat"))
	assert.Equal(t, b.id, chat.Sender)
	assert.Equal(t, "nice shot", chat.Message)

	a.write(t, "game_end", SessionRequest{GameID: gameID})

	end := decodeEvent[GameEnd](t, b.expect(t, "game_end"))
	assert.Equal(t, gameID, end.GameID)

	// Both connections survive the teardown.
	a.sync(t)
	b.sync(t)
}

func TestWSSessionIsolation(t *testing.T) {
	_, srv := newTestServer(t)

	a, b, gameAB := wsMatchPair(t, srv, "pong")
	c, d, gameCD := wsMatchPair(t, srv, "snake")

	a.write(t, "game_state", map[string]any{"gameId": gameAB, "x": 1})
	c.write(t, "game_state", map[string]any{"gameId": gameCD, "y": 2})

	envB := b.expect(t, "game_state")
	assert.JSONEq(t, `{"gameId":"`+gameAB+`","x":1}`, string(envB.Data))

	envD := d.expect(t, "game_state")
	assert.JSONEq(t, `{"gameId":"`+gameCD+`","y":2}`, string(envD.Data))
}

func TestWSCancelBeforeMatch(t *testing.T) {
	hub, srv := newTestServer(t)

	a := dialPeer(t, srv)

	a.findMatch(t, "wordduel")
	a.expect(t, "matchmaking_status")

	a.write(t, "matchmaking", MatchmakingRequest{Action: "cancel"})
	a.sync(t)

	_, _, waiting := hub.stats()
	assert.Equal(t, 0, waiting)

	// The next searcher finds nobody.
	b := dialPeer(t, srv)
	b.findMatch(t, "wordduel")

	status := decodeEvent[MatchmakingStatus](t, b.expect(t, "matchmaking_status"))
	assert.Equal(t, "waiting", status.Status)
}

func TestWSMalformedMessagesTolerated(t *testing.T) {
	_, srv := newTestServer(t)

	a := dialPeer(t, srv)

	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"matchmaking","data":42}`)))
	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"no_such_thing"}`)))

	// The connection is still healthy afterwards.
	a.sync(t)
}

func TestWSDisconnectNotifiesPeer(t *testing.T) {
	hub, srv := newTestServer(t)

	a, b, _ := wsMatchPair(t, srv, "pong")

	require.NoError(t, a.conn.Close())

	gone := decodeEvent[PlayerDisconnected](t, b.expect(t, "player_disconnected"))
	assert.Equal(t, a.id, gone.PlayerID)

	require.Eventually(t, func() bool {
		connections, sessions, _ := hub.stats()
		return connections == 1 && sessions == 0
	}, 2*time.Second, 10*time.Millisecond)

	// The survivor can immediately queue again.
	b.findMatch(t, "pong")
	status := decodeEvent[MatchmakingStatus](t, b.expect(t, "matchmaking_status"))
	assert.Equal(t, "waiting", status.Status)
}

func TestStatusEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	a := dialPeer(t, srv)
	a.findMatch(t, "pong")
	a.expect(t, "matchmaking_status")

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var status struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Games       int    `json:"games"`
		Waiting     int    `json:"waiting"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))

	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 1, status.Connections)
	assert.Equal(t, 0, status.Games)
	assert.Equal(t, 1, status.Waiting)
}

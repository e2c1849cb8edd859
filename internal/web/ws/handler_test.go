package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gobang-online/internal/api/middleware"
	"github.com/mcoot/gobang-online/internal/factory"
	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/auth"
)

const (
	readTimeout = 2 * time.Second
	waitFor     = 2 * time.Second
	tick        = 5 * time.Millisecond
)

type wsTestServer struct {
	t      *testing.T
	app    *factory.TestApp
	server *httptest.Server
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()

	app := factory.NewTestApp()
	server := httptest.NewServer(app.Handler(""))
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = app.Close() })

	return &wsTestServer{t: t, app: app, server: server}
}

type player struct {
	id         model.UserID
	credential string
}

func (ts *wsTestServer) login(username string) player {
	ts.t.Helper()
	ctx := context.Background()
	_, err := ts.app.AuthService.Register(ctx, username, "secret123")
	require.NoError(ts.t, err)
	sess, user, err := ts.app.AuthService.Login(ctx, username, "secret123")
	require.NoError(ts.t, err)
	return player{id: user.ID, credential: auth.Credential(sess)}
}

func (ts *wsTestServer) dial(path, credential string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + path
	header := http.Header{}
	if credential != "" {
		header.Set("Cookie", middleware.SessionCookieName+"="+credential)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		ts.t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func (ts *wsTestServer) mustDial(path string, p player) *websocket.Conn {
	ts.t.Helper()
	conn, _, err := ts.dial(path, p.credential)
	require.NoError(ts.t, err)
	return conn
}

func readJSON[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	var v T
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

func (ts *wsTestServer) enterHall(p player) *websocket.Conn {
	ts.t.Helper()
	conn := ts.mustDial("/ws/hall", p)
	ready := readJSON[model.Notice](ts.t, conn)
	require.Equal(ts.t, model.Notice{OpType: model.OpHallReady, Result: true}, ready)
	return conn
}

// match puts both players in the hall and waits until they share a room.
// The hall sockets stay open.
func (ts *wsTestServer) match(white, black player) (*websocket.Conn, *websocket.Conn) {
	ts.t.Helper()
	whiteHall := ts.enterHall(white)
	require.NoError(ts.t, whiteHall.WriteJSON(model.HallRequest{OpType: model.OpMatchStart}))
	ack := readJSON[model.Notice](ts.t, whiteHall)
	require.Equal(ts.t, model.Notice{OpType: model.OpMatchStart, Result: true}, ack)

	blackHall := ts.enterHall(black)
	require.NoError(ts.t, blackHall.WriteJSON(model.HallRequest{OpType: model.OpMatchStart}))

	// The ack and the match notice race on the second player's socket
	seen := map[model.OpType]bool{}
	for n := 0; n < 2; n++ {
		notice := readJSON[model.Notice](ts.t, blackHall)
		require.True(ts.t, notice.Result)
		seen[notice.OpType] = true
	}
	require.True(ts.t, seen[model.OpMatchStart])
	require.True(ts.t, seen[model.OpMatchSuccess])

	success := readJSON[model.Notice](ts.t, whiteHall)
	require.Equal(ts.t, model.Notice{OpType: model.OpMatchSuccess, Result: true}, success)
	return whiteHall, blackHall
}

func (ts *wsTestServer) enterRoom(p player) (*websocket.Conn, model.RoomReady) {
	ts.t.Helper()
	conn := ts.mustDial("/ws/room", p)
	ready := readJSON[model.RoomReady](ts.t, conn)
	require.True(ts.t, ready.Result)
	require.Equal(ts.t, model.OpRoomReady, ready.OpType)
	return conn, ready
}

func TestHallRequiresSession(t *testing.T) {
	ts := newWSTestServer(t)

	_, resp, err := ts.dial("/ws/hall", "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = ts.dial("/ws/room", "1.forged")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHallReadyAndPresence(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")

	conn := ts.enterHall(alice)
	assert.Eventually(t, func() bool {
		return ts.app.Registry.IsPresent(model.ContextHall, alice.id)
	}, waitFor, tick)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return !ts.app.Registry.IsOnline(alice.id)
	}, waitFor, tick)
}

func TestHallRefusesSecondConnection(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	ts.enterHall(alice)

	second := ts.mustDial("/ws/hall", alice)
	notice := readJSON[model.Notice](t, second)
	assert.Equal(t, model.OpHallReady, notice.OpType)
	assert.False(t, notice.Result)
	assert.NotEmpty(t, notice.Reason)

	// The refused socket is closed by the server
	require.NoError(t, second.SetReadDeadline(time.Now().Add(readTimeout)))
	_, _, err := second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	// The first connection is untouched
	assert.True(t, ts.app.Registry.IsPresent(model.ContextHall, alice.id))
}

func TestMatchStartRefusedWhileInGame(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	bob := ts.login("bob")
	aliceHall, bobHall := ts.match(alice, bob)

	for _, conn := range []*websocket.Conn{aliceHall, bobHall} {
		require.NoError(t, conn.WriteJSON(model.HallRequest{OpType: model.OpMatchStart}))
		notice := readJSON[model.Notice](t, conn)
		assert.Equal(t, model.OpMatchStart, notice.OpType)
		assert.False(t, notice.Result)
		assert.Equal(t, model.ErrAlreadyInRoom.Error(), notice.Reason)
	}
	assert.Equal(t, 1, ts.app.RoomCount())
	assert.Equal(t, 0, ts.app.QueueLen(model.TierBronze))
}

func TestHallRejectsUnknownAndMalformed(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	conn := ts.enterHall(alice)

	require.NoError(t, conn.WriteJSON(model.HallRequest{OpType: "dance"}))
	notice := readJSON[model.Notice](t, conn)
	assert.Equal(t, model.Notice{OpType: "dance", Result: false, Reason: model.ReasonUnknownRequest}, notice)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	notice = readJSON[model.Notice](t, conn)
	assert.False(t, notice.Result)
	assert.NotEmpty(t, notice.Reason)
}

func TestMatchStartTwiceAndStop(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	conn := ts.enterHall(alice)

	require.NoError(t, conn.WriteJSON(model.HallRequest{OpType: model.OpMatchStart}))
	assert.True(t, readJSON[model.Notice](t, conn).Result)
	assert.Equal(t, 1, ts.app.QueueLen(model.TierBronze))

	require.NoError(t, conn.WriteJSON(model.HallRequest{OpType: model.OpMatchStart}))
	dup := readJSON[model.Notice](t, conn)
	assert.False(t, dup.Result)
	assert.Equal(t, 1, ts.app.QueueLen(model.TierBronze))

	require.NoError(t, conn.WriteJSON(model.HallRequest{OpType: model.OpMatchStop}))
	assert.True(t, readJSON[model.Notice](t, conn).Result)
	assert.Equal(t, 0, ts.app.QueueLen(model.TierBronze))
}

func TestHallDisconnectCancelsMatch(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	conn := ts.enterHall(alice)

	require.NoError(t, conn.WriteJSON(model.HallRequest{OpType: model.OpMatchStart}))
	require.True(t, readJSON[model.Notice](t, conn).Result)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return ts.app.QueueLen(model.TierBronze) == 0
	}, waitFor, tick)
}

func TestRoomRefusedWithoutMatch(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")

	conn := ts.mustDial("/ws/room", alice)
	notice := readJSON[model.Notice](t, conn)
	assert.Equal(t, model.OpRoomReady, notice.OpType)
	assert.False(t, notice.Result)
}

func TestFullGameOverWebSocket(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	bob := ts.login("bob")
	ts.match(alice, bob)

	aliceRoom, ready := ts.enterRoom(alice)
	assert.Equal(t, alice.id, ready.WhiteID)
	assert.Equal(t, bob.id, ready.BlackID)
	assert.Equal(t, alice.id, ready.UserID)
	bobRoom, _ := ts.enterRoom(bob)
	roomID := ready.RoomID

	// Entering the room leaves the hall
	assert.False(t, ts.app.Registry.IsPresent(model.ContextHall, alice.id))
	assert.True(t, ts.app.Registry.IsPresent(model.ContextRoom, alice.id))

	move := func(conn *websocket.Conn, row, col int) model.MoveResult {
		t.Helper()
		require.NoError(t, conn.WriteJSON(model.RoomRequest{
			OpType: model.OpPutChess, RoomID: roomID, Row: row, Col: col,
		}))
		// Both players see every move
		atBob := readJSON[model.MoveResult](t, bobRoom)
		atAlice := readJSON[model.MoveResult](t, aliceRoom)
		require.Equal(t, atAlice, atBob)
		return atAlice
	}

	for i := 0; i < 4; i++ {
		res := move(aliceRoom, 7, 7+i)
		require.True(t, res.Result)
		require.Equal(t, alice.id, res.UserID)
		require.False(t, res.HasWinner())

		res = move(bobRoom, 0, i)
		require.True(t, res.Result)
		require.False(t, res.HasWinner())
	}

	// Occupied cell is rejected for everyone
	res := move(bobRoom, 7, 7)
	assert.False(t, res.Result)
	assert.Equal(t, model.ReasonCellOccupied, res.Reason)

	res = move(aliceRoom, 7, 11)
	assert.True(t, res.Result)
	assert.Equal(t, alice.id, res.Winner)
	assert.Equal(t, model.ReasonFiveInARow, res.Reason)

	// Chat still works after the game
	require.NoError(t, bobRoom.WriteJSON(model.RoomRequest{
		OpType: model.OpChat, RoomID: roomID, Message: "gg",
	}))
	chat := readJSON[model.ChatResult](t, aliceRoom)
	assert.True(t, chat.Result)
	assert.Equal(t, "gg", chat.Message)
	assert.Equal(t, bob.id, chat.UserID)
	assert.Equal(t, chat, readJSON[model.ChatResult](t, bobRoom))

	// Banned chat goes back to the sender only
	require.NoError(t, bobRoom.WriteJSON(model.RoomRequest{
		OpType: model.OpChat, RoomID: roomID, Message: "你是垃圾",
	}))
	banned := readJSON[model.ChatResult](t, bobRoom)
	assert.False(t, banned.Result)
	assert.Equal(t, model.ReasonBannedWord, banned.Reason)

	winner, err := ts.app.Storage.GetUser(context.Background(), alice.id)
	require.NoError(t, err)
	assert.Equal(t, model.InitialScore+model.ScoreDelta, winner.Score)

	// Room is destroyed once both sockets close
	require.NoError(t, aliceRoom.Close())
	require.NoError(t, bobRoom.Close())
	assert.Eventually(t, func() bool { return ts.app.RoomCount() == 0 }, waitFor, tick)
}

func TestRoomDisconnectForfeits(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	bob := ts.login("bob")
	ts.match(alice, bob)

	aliceRoom, _ := ts.enterRoom(alice)
	bobRoom, _ := ts.enterRoom(bob)

	require.NoError(t, aliceRoom.Close())

	res := readJSON[model.MoveResult](t, bobRoom)
	assert.True(t, res.Result)
	assert.Equal(t, bob.id, res.Winner)
	assert.Equal(t, model.ReasonOpponentLeft, res.Reason)

	assert.Eventually(t, func() bool {
		u, err := ts.app.Storage.GetUser(context.Background(), bob.id)
		return err == nil && u.Score == model.InitialScore+model.ScoreDelta
	}, waitFor, tick)
}

func TestRoomRefusesSecondConnection(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	bob := ts.login("bob")
	ts.match(alice, bob)
	ts.enterRoom(alice)

	second := ts.mustDial("/ws/room", alice)
	notice := readJSON[model.Notice](t, second)
	assert.Equal(t, model.OpRoomReady, notice.OpType)
	assert.False(t, notice.Result)
	assert.Equal(t, 1, ts.app.RoomCount())
}

func TestConnectionPinsSession(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	conn := ts.enterHall(alice)

	ts.app.MockClock.Advance(10 * ts.app.AuthService.SessionTimeout())
	_, _, err := ts.app.AuthService.Authenticate(context.Background(), alice.credential)
	require.NoError(t, err)

	// Closing the last connection restarts the idle timeout
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !ts.app.Registry.IsOnline(alice.id) }, waitFor, tick)
	require.Eventually(t, func() bool { return ts.app.Sessions.HasExpiry(idOf(t, alice)) }, waitFor, tick)

	ts.app.MockClock.Advance(ts.app.AuthService.SessionTimeout())
	_, _, err = ts.app.AuthService.Authenticate(context.Background(), alice.credential)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestSessionStaysPinnedUntilLastConnectionCloses(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")
	bob := ts.login("bob")
	aliceHall, _ := ts.match(alice, bob)
	aliceRoom, _ := ts.enterRoom(alice)
	ssid := idOf(t, alice)

	require.Eventually(t, func() bool { return ts.app.AuthService.Pinned(ssid) == 2 }, waitFor, tick)

	// The hall socket closing leaves the room socket holding the session
	require.NoError(t, aliceHall.Close())
	require.Eventually(t, func() bool { return ts.app.AuthService.Pinned(ssid) == 1 }, waitFor, tick)
	assert.False(t, ts.app.Sessions.HasExpiry(ssid))

	ts.app.MockClock.Advance(10 * ts.app.AuthService.SessionTimeout())
	_, _, err := ts.app.AuthService.Authenticate(context.Background(), alice.credential)
	require.NoError(t, err)

	require.NoError(t, aliceRoom.Close())
	require.Eventually(t, func() bool { return ts.app.Sessions.HasExpiry(ssid) }, waitFor, tick)
	assert.Equal(t, 0, ts.app.AuthService.Pinned(ssid))
}

func TestConcurrentHallConnectionsAdmitOne(t *testing.T) {
	ts := newWSTestServer(t)
	alice := ts.login("alice")

	const dials = 5
	results := make(chan bool, dials)
	for n := 0; n < dials; n++ {
		go func() {
			conn, _, err := ts.dial("/ws/hall", alice.credential)
			if err != nil {
				results <- false
				return
			}
			var notice model.Notice
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if err := conn.ReadJSON(&notice); err != nil {
				results <- false
				return
			}
			results <- notice.Result
		}()
	}

	admitted := 0
	for n := 0; n < dials; n++ {
		if <-results {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.True(t, ts.app.Registry.IsPresent(model.ContextHall, alice.id))
}

func idOf(t *testing.T, p player) model.SessionID {
	t.Helper()
	id, _, err := auth.ParseCredential(p.credential)
	require.NoError(t, err)
	return id
}

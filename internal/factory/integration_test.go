package factory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/auth"
	"github.com/mcoot/gobang-online/internal/testutil"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) login(username string) (*model.Session, *model.User) {
	_, err := s.app.AuthService.Register(s.ctx, username, "password")
	s.Require().NoError(err)
	sess, user, err := s.app.AuthService.Login(s.ctx, username, "password")
	s.Require().NoError(err)
	return sess, user
}

func (s *IntegrationSuite) decodeAll(conn *testutil.RecordingConn) []model.MoveResult {
	var out []model.MoveResult
	for _, raw := range conn.Messages() {
		var res model.MoveResult
		s.Require().NoError(json.Unmarshal(raw, &res))
		if res.OpType == model.OpPutChess {
			out = append(out, res)
		}
	}
	return out
}

// Test: Two players register, match, play to five in a row and see the ladder update
func (s *IntegrationSuite) TestCompleteGameFlow() {
	// Step 1: Register and log in
	_, alice := s.login("alice")
	_, bob := s.login("bob")

	// Step 2: Both enter the hall and ask for a match
	aliceHall := testutil.NewRecordingConn()
	bobHall := testutil.NewRecordingConn()
	s.app.Registry.Enter(model.ContextHall, alice.ID, aliceHall)
	s.app.Registry.Enter(model.ContextHall, bob.ID, bobHall)

	s.Require().NoError(s.app.Matcher.Add(s.ctx, alice.ID))
	s.Require().NoError(s.app.Matcher.Add(s.ctx, bob.ID))

	// Step 3: The bronze worker pairs them
	s.Require().Eventually(func() bool { return s.app.RoomCount() == 1 }, waitFor, tick)
	s.Require().Eventually(func() bool { return aliceHall.Count() == 1 && bobHall.Count() == 1 }, waitFor, tick)

	var notice model.Notice
	s.Require().True(bobHall.Last(&notice))
	s.Equal(model.Notice{OpType: model.OpMatchSuccess, Result: true}, notice)
	s.Equal(0, s.app.QueueLen(model.TierBronze))

	rm, ok := s.app.RoomManager.GetByUserID(alice.ID)
	s.Require().True(ok)
	s.Equal(alice.ID, rm.WhiteID())
	s.Equal(bob.ID, rm.BlackID())

	// Step 4: Both move from the hall into the room
	aliceRoom := testutil.NewRecordingConn()
	bobRoom := testutil.NewRecordingConn()
	s.app.Registry.Exit(model.ContextHall, alice.ID)
	s.app.Registry.Exit(model.ContextHall, bob.ID)
	s.app.Registry.Enter(model.ContextRoom, alice.ID, aliceRoom)
	s.app.Registry.Enter(model.ContextRoom, bob.ID, bobRoom)

	// Step 5: White plays a horizontal five, black plays elsewhere
	for i := 0; i < 5; i++ {
		res := rm.HandleMove(s.ctx, rm.ID(), alice.ID, 7, 7+i)
		s.Require().True(res.Result)
		if i < 4 {
			s.False(res.HasWinner())
			res = rm.HandleMove(s.ctx, rm.ID(), bob.ID, 0, i)
			s.Require().True(res.Result)
			s.False(res.HasWinner())
		} else {
			s.Equal(alice.ID, res.Winner)
			s.Equal(model.ReasonFiveInARow, res.Reason)
		}
	}

	// Both players saw every move
	s.Len(s.decodeAll(aliceRoom), 9)
	s.Len(s.decodeAll(bobRoom), 9)
	s.Equal(model.RoomStatusFinished, rm.Status())

	// Step 6: Ladder updated
	winner, err := s.app.Storage.GetUser(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(1030, winner.Score)
	s.Equal(1, winner.Wins)
	s.Equal(1, winner.TotalGames)

	loser, err := s.app.Storage.GetUser(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Equal(970, loser.Score)
	s.Equal(0, loser.Wins)
	s.Equal(1, loser.TotalGames)

	// Step 7: Both leave and the room is destroyed
	s.app.Registry.Exit(model.ContextRoom, alice.ID)
	s.Require().NoError(s.app.RoomManager.RemoveRoomUser(s.ctx, alice.ID))
	s.Equal(1, s.app.RoomCount())
	s.app.Registry.Exit(model.ContextRoom, bob.ID)
	s.Require().NoError(s.app.RoomManager.RemoveRoomUser(s.ctx, bob.ID))
	s.Equal(0, s.app.RoomCount())
}

// Test: Leaving an active game hands the win to the opponent
func (s *IntegrationSuite) TestDisconnectForfeits() {
	_, alice := s.login("alice")
	_, bob := s.login("bob")

	rm, err := s.app.RoomManager.CreateRoom(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)

	bobRoom := testutil.NewRecordingConn()
	s.app.Registry.Enter(model.ContextRoom, alice.ID, testutil.NewRecordingConn())
	s.app.Registry.Enter(model.ContextRoom, bob.ID, bobRoom)

	s.Require().True(rm.HandleMove(s.ctx, rm.ID(), alice.ID, 7, 7).Result)

	s.app.Registry.Exit(model.ContextRoom, alice.ID)
	s.Require().NoError(s.app.RoomManager.RemoveRoomUser(s.ctx, alice.ID))

	var res model.MoveResult
	s.Require().True(bobRoom.Last(&res))
	s.Equal(bob.ID, res.Winner)
	s.Equal(model.ReasonOpponentLeft, res.Reason)

	u, err := s.app.Storage.GetUser(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Equal(1030, u.Score)
}

// Test: Sessions time out when idle and survive while pinned by a connection
func (s *IntegrationSuite) TestSessionLifecycle() {
	sess, user := s.login("alice")
	credential := auth.Credential(sess)
	timeout := s.app.AuthService.SessionTimeout()

	// Activity refreshes the idle timeout
	s.app.MockClock.Advance(timeout - time.Second)
	_, got, err := s.app.AuthService.Authenticate(s.ctx, credential)
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)

	s.app.MockClock.Advance(timeout - time.Second)
	_, _, err = s.app.AuthService.Authenticate(s.ctx, credential)
	s.Require().NoError(err)

	// A live connection pins the session
	s.Require().NoError(s.app.AuthService.Pin(sess.ID))
	s.app.MockClock.Advance(10 * timeout)
	_, _, err = s.app.AuthService.Authenticate(s.ctx, credential)
	s.Require().NoError(err)

	// Once released the session expires after the timeout
	s.Require().NoError(s.app.AuthService.Release(sess.ID))
	s.app.MockClock.Advance(timeout)
	_, _, err = s.app.AuthService.Authenticate(s.ctx, credential)
	s.ErrorIs(err, auth.ErrInvalidSession)
	s.Equal(0, s.app.SessionCount())
}

// Test: Users in different tiers never meet
func (s *IntegrationSuite) TestTiersAreSeparate() {
	_, alice := s.login("alice")
	_, bob := s.login("bob")
	s.Require().NoError(s.app.MemoryStore.SetScore(s.ctx, bob.ID, 2500))

	s.Require().NoError(s.app.Matcher.Add(s.ctx, alice.ID))
	s.Require().NoError(s.app.Matcher.Add(s.ctx, bob.ID))

	s.Never(func() bool { return s.app.RoomCount() > 0 }, 100*time.Millisecond, tick)
	s.Equal(1, s.app.QueueLen(model.TierBronze))
	s.Equal(1, s.app.QueueLen(model.TierSilver))
}

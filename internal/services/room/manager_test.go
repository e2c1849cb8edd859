package room

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/board"
	"github.com/mcoot/gobang-online/internal/services/registry"
	"github.com/mcoot/gobang-online/internal/storage/memory"
	"github.com/mcoot/gobang-online/internal/testutil"
)

type ManagerSuite struct {
	suite.Suite
	ctx      context.Context
	registry *registry.Registry
	manager  *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.registry = registry.New(testutil.NopLogger())
	s.manager = NewManager(s.registry, memory.New(), board.New(), nil, testutil.NopLogger())
}

func (s *ManagerSuite) TestCreateRoomAssignsColorsAndIndexes() {
	r, err := s.manager.CreateRoom(s.ctx, 10, 20)
	s.Require().NoError(err)

	s.Equal(model.RoomID(1), r.ID())
	s.Equal(model.UserID(10), r.WhiteID())
	s.Equal(model.UserID(20), r.BlackID())
	s.Equal(2, r.PlayerCount())
	s.Equal(model.RoomStatusActive, r.Status())

	got, ok := s.manager.GetByRoomID(r.ID())
	s.True(ok)
	s.Same(r, got)
	for _, uid := range []model.UserID{10, 20} {
		got, ok = s.manager.GetByUserID(uid)
		s.True(ok)
		s.Same(r, got)
	}
}

func (s *ManagerSuite) TestRoomIDsAreMonotonic() {
	a, err := s.manager.CreateRoom(s.ctx, 1, 2)
	s.Require().NoError(err)
	s.manager.RemoveRoom(a.ID())

	b, err := s.manager.CreateRoom(s.ctx, 3, 4)
	s.Require().NoError(err)
	s.Equal(a.ID()+1, b.ID())
}

func (s *ManagerSuite) TestCreateRoomRejectsSamePlayer() {
	_, err := s.manager.CreateRoom(s.ctx, 5, 5)
	s.ErrorIs(err, model.ErrSamePlayer)
	s.Equal(0, s.manager.Count())
}

func (s *ManagerSuite) TestLookupMisses() {
	_, ok := s.manager.GetByRoomID(42)
	s.False(ok)
	_, ok = s.manager.GetByUserID(42)
	s.False(ok)
}

func (s *ManagerSuite) TestRemoveRoomClearsBothIndexes() {
	r, _ := s.manager.CreateRoom(s.ctx, 1, 2)
	s.manager.RemoveRoom(r.ID())

	_, ok := s.manager.GetByRoomID(r.ID())
	s.False(ok)
	_, ok = s.manager.GetByUserID(1)
	s.False(ok)
	_, ok = s.manager.GetByUserID(2)
	s.False(ok)
	s.Equal(0, s.manager.Count())
}

func (s *ManagerSuite) TestCreateRoomRefusesPlayerInActiveGame() {
	first, err := s.manager.CreateRoom(s.ctx, 1, 2)
	s.Require().NoError(err)

	_, err = s.manager.CreateRoom(s.ctx, 1, 3)
	s.ErrorIs(err, model.ErrAlreadyInRoom)
	_, err = s.manager.CreateRoom(s.ctx, 3, 2)
	s.ErrorIs(err, model.ErrAlreadyInRoom)

	s.Equal(1, s.manager.Count())
	got, ok := s.manager.GetByUserID(1)
	s.True(ok)
	s.Same(first, got)
	_, ok = s.manager.GetByUserID(3)
	s.False(ok)
	s.True(s.manager.HasActiveRoom(1))
	s.False(s.manager.HasActiveRoom(3))
}

func (s *ManagerSuite) TestRematchReleasesFinishedRoom() {
	old, err := s.manager.CreateRoom(s.ctx, 1, 2)
	s.Require().NoError(err)

	// Player 2 leaves, finishing the game while player 1 never joined
	s.Require().NoError(s.manager.RemoveRoomUser(s.ctx, 2))
	s.Require().Equal(model.RoomStatusFinished, old.Status())
	s.False(s.manager.HasActiveRoom(1))

	newer, err := s.manager.CreateRoom(s.ctx, 1, 3)
	s.Require().NoError(err)

	_, ok := s.manager.GetByRoomID(old.ID())
	s.False(ok)
	s.Equal(0, old.PlayerCount())
	s.Equal(1, s.manager.Count())

	got, ok := s.manager.GetByUserID(1)
	s.True(ok)
	s.Same(newer, got)
}

func (s *ManagerSuite) TestRemoveRoomKeepsNewerUserEntry() {
	old, _ := s.manager.CreateRoom(s.ctx, 1, 2)
	old.HandleExit(s.ctx, 2)
	newer, err := s.manager.CreateRoom(s.ctx, 2, 3)
	s.Require().NoError(err)

	s.manager.RemoveRoom(old.ID())

	got, ok := s.manager.GetByUserID(2)
	s.True(ok)
	s.Same(newer, got)
	_, ok = s.manager.GetByUserID(1)
	s.False(ok)
}

func (s *ManagerSuite) TestRemoveRoomUserDestroysEmptyRoom() {
	r, _ := s.manager.CreateRoom(s.ctx, 1, 2)

	s.Require().NoError(s.manager.RemoveRoomUser(s.ctx, 1))
	s.Equal(1, r.PlayerCount())
	s.Equal(1, s.manager.Count())

	s.Require().NoError(s.manager.RemoveRoomUser(s.ctx, 2))
	s.Equal(0, r.PlayerCount())
	s.Equal(0, s.manager.Count())

	s.ErrorIs(s.manager.RemoveRoomUser(s.ctx, 1), model.ErrNotInRoom)
}

func (s *ManagerSuite) TestRemoveRoomUserTwiceCountsOnce() {
	r, _ := s.manager.CreateRoom(s.ctx, 1, 2)

	s.Require().NoError(s.manager.RemoveRoomUser(s.ctx, 1))
	s.Require().NoError(s.manager.RemoveRoomUser(s.ctx, 1))
	s.Equal(1, r.PlayerCount())
	s.Equal(1, s.manager.Count())
}

func (s *ManagerSuite) TestConcurrentCreate() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.manager.CreateRoom(s.ctx, model.UserID(2*i+1), model.UserID(2*i+2))
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	s.Equal(50, s.manager.Count())
	seen := make(map[model.RoomID]bool)
	for i := 0; i < 100; i++ {
		r, ok := s.manager.GetByUserID(model.UserID(i + 1))
		s.Require().True(ok)
		seen[r.ID()] = true
	}
	s.Len(seen, 50)
}

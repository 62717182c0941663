package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/repository"
	"bookhub/internal/http-api/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockBorrowStore struct {
	mock.Mock
}

func (m *MockBorrowStore) OpenCount(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBorrowStore) HistoryForUser(ctx context.Context, userID string) ([]models.BorrowRecord, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.BorrowRecord), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

const testUserID = "f7a3e9b0-1c2d-4e5f-8a9b-0c1d2e3f4a5b"

func newCirculationMocks(limit int, open int64) (*MockBookStore, *MockCopyStore, *MockBorrowStore, *MockUserStore) {
	books := new(MockBookStore)
	copies := new(MockCopyStore)
	borrows := new(MockBorrowStore)
	users := new(MockUserStore)

	users.On("FindByID", mock.Anything, testUserID).
		Return(&models.User{ID: testUserID, Username: "reader", BorrowLimit: limit}, nil)
	borrows.On("OpenCount", mock.Anything, testUserID).Return(open, nil)
	return books, copies, borrows, users
}

func TestCirculationService_Borrow(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownUser", func(t *testing.T) {
		books := new(MockBookStore)
		copies := new(MockCopyStore)
		borrows := new(MockBorrowStore)
		users := new(MockUserStore)
		users.On("FindByID", mock.Anything, "nobody").Return(nil, gorm.ErrRecordNotFound)

		svc := service.NewCirculationService(books, copies, borrows, users, 5)
		_, err := svc.Borrow(ctx, "nobody", []int64{1})
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("WholeBatchRejectedOverLimit", func(t *testing.T) {
		books, copies, borrows, users := newCirculationMocks(5, 4)
		svc := service.NewCirculationService(books, copies, borrows, users, 5)

		// 4 open + 2 requested > 5: nothing may be claimed, not even the
		// one id that would have fit on its own.
		_, err := svc.Borrow(ctx, testUserID, []int64{1, 2})
		assert.ErrorIs(t, err, service.ErrBorrowLimitExceeded)
		copies.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ZeroUserLimitFallsBackToDefault", func(t *testing.T) {
		books := new(MockBookStore)
		copies := new(MockCopyStore)
		borrows := new(MockBorrowStore)
		users := new(MockUserStore)

		// user row carries no positive limit of its own
		users.On("FindByID", mock.Anything, testUserID).
			Return(&models.User{ID: testUserID, Username: "reader", BorrowLimit: 0}, nil)
		borrows.On("OpenCount", mock.Anything, testUserID).Return(int64(0), nil)

		svc := service.NewCirculationService(books, copies, borrows, users, 1)

		_, err := svc.Borrow(ctx, testUserID, []int64{1, 2})
		assert.ErrorIs(t, err, service.ErrBorrowLimitExceeded)
		copies.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)

		rec := &models.BorrowRecord{ID: 1, UserID: testUserID, CopyID: 11, BorrowedAt: time.Now()}
		copies.On("AvailableIDs", mock.Anything, int64(1)).Return([]int64{11}, nil).Once()
		copies.On("Claim", mock.Anything, int64(11), testUserID).Return(rec, nil).Once()

		out, err := svc.Borrow(ctx, testUserID, []int64{1})
		require.NoError(t, err)
		assert.Len(t, out.Borrowed, 1)
	})

	t.Run("DuplicateIDsCountIndividually", func(t *testing.T) {
		books, copies, borrows, users := newCirculationMocks(2, 1)
		svc := service.NewCirculationService(books, copies, borrows, users, 5)

		_, err := svc.Borrow(ctx, testUserID, []int64{7, 7})
		assert.ErrorIs(t, err, service.ErrBorrowLimitExceeded)
		copies.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MixedBatchKeepsSiblingSuccesses", func(t *testing.T) {
		books, copies, borrows, users := newCirculationMocks(5, 0)
		svc := service.NewCirculationService(books, copies, borrows, users, 5)

		rec := &models.BorrowRecord{ID: 1, UserID: testUserID, CopyID: 11, BorrowedAt: time.Now()}
		copies.On("AvailableIDs", mock.Anything, int64(1)).Return([]int64{11}, nil).Once()
		copies.On("Claim", mock.Anything, int64(11), testUserID).Return(rec, nil).Once()

		// book 2 exists but every copy is out
		copies.On("AvailableIDs", mock.Anything, int64(2)).Return([]int64{}, nil).Once()
		books.On("GetByID", mock.Anything, int64(2)).Return(&models.Book{ID: 2}, nil).Once()

		// book 3 does not exist at all
		copies.On("AvailableIDs", mock.Anything, int64(3)).Return([]int64{}, nil).Once()
		books.On("GetByID", mock.Anything, int64(3)).Return(nil, gorm.ErrRecordNotFound).Once()

		out, err := svc.Borrow(ctx, testUserID, []int64{1, 2, 3})
		require.NoError(t, err)
		require.Len(t, out.Borrowed, 1)
		assert.Equal(t, int64(11), out.Borrowed[0].CopyID)
		require.Len(t, out.Failed, 2)
		assert.Equal(t, service.ItemFailure{BookID: 2, Reason: "no available copy"}, out.Failed[0])
		assert.Equal(t, service.ItemFailure{BookID: 3, Reason: "book not found"}, out.Failed[1])
	})

	t.Run("RetriesNextCopyWhenRaceLost", func(t *testing.T) {
		books, copies, borrows, users := newCirculationMocks(5, 0)
		svc := service.NewCirculationService(books, copies, borrows, users, 5)

		rec := &models.BorrowRecord{ID: 2, UserID: testUserID, CopyID: 22, BorrowedAt: time.Now()}
		copies.On("AvailableIDs", mock.Anything, int64(1)).Return([]int64{21, 22}, nil).Once()
		copies.On("Claim", mock.Anything, int64(21), testUserID).Return(nil, repository.ErrCopyUnavailable).Once()
		copies.On("Claim", mock.Anything, int64(22), testUserID).Return(rec, nil).Once()

		out, err := svc.Borrow(ctx, testUserID, []int64{1})
		require.NoError(t, err)
		require.Len(t, out.Borrowed, 1)
		assert.Equal(t, int64(22), out.Borrowed[0].CopyID)
		assert.Empty(t, out.Failed)
	})

	t.Run("SnapshotExhaustedIsPerIDFailure", func(t *testing.T) {
		books, copies, borrows, users := newCirculationMocks(5, 0)
		svc := service.NewCirculationService(books, copies, borrows, users, 5)

		copies.On("AvailableIDs", mock.Anything, int64(1)).Return([]int64{31}, nil).Once()
		copies.On("Claim", mock.Anything, int64(31), testUserID).Return(nil, repository.ErrCopyUnavailable).Once()

		out, err := svc.Borrow(ctx, testUserID, []int64{1})
		require.NoError(t, err)
		assert.Empty(t, out.Borrowed)
		require.Len(t, out.Failed, 1)
		assert.Equal(t, "no available copy", out.Failed[0].Reason)
	})
}

func TestCirculationService_Return(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondReturnReportsNotBorrowed", func(t *testing.T) {
		books := new(MockBookStore)
		copies := new(MockCopyStore)
		borrows := new(MockBorrowStore)
		users := new(MockUserStore)
		svc := service.NewCirculationService(books, copies, borrows, users, 5)

		now := time.Now()
		rec := &models.BorrowRecord{ID: 3, UserID: testUserID, CopyID: 11, ReturnedAt: &now}
		copies.On("Release", mock.Anything, testUserID, int64(1)).Return(rec, nil).Once()
		copies.On("Release", mock.Anything, testUserID, int64(1)).Return(nil, repository.ErrNoOpenBorrow).Once()

		out, err := svc.Return(ctx, testUserID, []int64{1})
		require.NoError(t, err)
		require.Len(t, out.Returned, 1)
		assert.NotNil(t, out.Returned[0].ReturnedAt)

		out, err = svc.Return(ctx, testUserID, []int64{1})
		require.NoError(t, err)
		assert.Empty(t, out.Returned)
		require.Len(t, out.Failed, 1)
		assert.Equal(t, service.ItemFailure{BookID: 1, Reason: "not borrowed"}, out.Failed[0])
	})

	t.Run("NeverBorrowedFailsPerID", func(t *testing.T) {
		books := new(MockBookStore)
		copies := new(MockCopyStore)
		borrows := new(MockBorrowStore)
		users := new(MockUserStore)
		svc := service.NewCirculationService(books, copies, borrows, users, 5)

		copies.On("Release", mock.Anything, testUserID, int64(9)).Return(nil, repository.ErrNoOpenBorrow).Once()

		out, err := svc.Return(ctx, testUserID, []int64{9})
		require.NoError(t, err)
		require.Len(t, out.Failed, 1)
		assert.Equal(t, "not borrowed", out.Failed[0].Reason)
	})
}

func TestCirculationService_History_UnknownUser(t *testing.T) {
	books := new(MockBookStore)
	copies := new(MockCopyStore)
	borrows := new(MockBorrowStore)
	users := new(MockUserStore)
	users.On("FindByID", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)

	svc := service.NewCirculationService(books, copies, borrows, users, 5)
	_, err := svc.History(context.Background(), "ghost")
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

// --- CONCURRENCY ---

// fakeCASCopyStore is an in-memory CopyStore whose Claim is a guarded
// compare-and-swap, mirroring the conditional UPDATE of the real store.
type fakeCASCopyStore struct {
	mu        sync.Mutex
	available map[int64]bool // copyID -> available
	byBook    map[int64][]int64
	nextRec   int64
}

func newFakeCASCopyStore(bookID int64, copyIDs ...int64) *fakeCASCopyStore {
	s := &fakeCASCopyStore{
		available: make(map[int64]bool),
		byBook:    map[int64][]int64{bookID: copyIDs},
	}
	for _, id := range copyIDs {
		s.available[id] = true
	}
	return s
}

func (s *fakeCASCopyStore) CreateForBook(ctx context.Context, bookID int64) (*models.Copy, error) {
	panic("not used")
}

func (s *fakeCASCopyStore) GetAll(ctx context.Context) ([]models.Copy, error) {
	panic("not used")
}

func (s *fakeCASCopyStore) GetByBook(ctx context.Context, bookID int64) ([]models.Copy, error) {
	panic("not used")
}

func (s *fakeCASCopyStore) AvailableIDs(ctx context.Context, bookID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, id := range s.byBook[bookID] {
		if s.available[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeCASCopyStore) Claim(ctx context.Context, copyID int64, userID string) (*models.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available[copyID] {
		return nil, repository.ErrCopyUnavailable
	}
	s.available[copyID] = false
	s.nextRec++
	return &models.BorrowRecord{ID: s.nextRec, UserID: userID, CopyID: copyID, BorrowedAt: time.Now()}, nil
}

func (s *fakeCASCopyStore) Release(ctx context.Context, userID string, bookID int64) (*models.BorrowRecord, error) {
	panic("not used")
}

func TestCirculationService_Borrow_SingleCopyRace(t *testing.T) {
	ctx := context.Background()

	books := new(MockBookStore)
	books.On("GetByID", mock.Anything, int64(1)).Return(&models.Book{ID: 1}, nil)
	borrows := new(MockBorrowStore)
	borrows.On("OpenCount", mock.Anything, mock.Anything).Return(int64(0), nil)
	users := new(MockUserStore)
	users.On("FindByID", mock.Anything, mock.Anything).
		Return(&models.User{ID: testUserID, BorrowLimit: 5}, nil)

	copies := newFakeCASCopyStore(1, 100)
	svc := service.NewCirculationService(books, copies, borrows, users, 5)

	outcomes := make([]*service.BorrowOutcome, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.Borrow(ctx, testUserID, []int64{1})
		}(i)
	}
	wg.Wait()

	claimed := 0
	failed := 0
	for i, out := range outcomes {
		require.NoError(t, errs[i])
		claimed += len(out.Borrowed)
		failed += len(out.Failed)
	}
	assert.Equal(t, 1, claimed, "exactly one borrower may win the last copy")
	assert.Equal(t, 1, failed)
}

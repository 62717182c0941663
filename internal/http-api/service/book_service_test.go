package service_test

import (
	"context"
	"testing"

	"bookhub/internal/http-api/dto"
	"bookhub/internal/http-api/models"
	"bookhub/internal/http-api/repository"
	"bookhub/internal/http-api/service"
	"bookhub/internal/isbn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- MOCK STORES ---

type MockBookStore struct {
	mock.Mock
}

func (m *MockBookStore) GetAll(ctx context.Context, page, perPage int) ([]models.Book, int64, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]models.Book), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookStore) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookStore) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookStore) GetFiltered(ctx context.Context, f dto.BookFilter) ([]models.Book, int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Book), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookStore) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	args := m.Called(ctx, isbn)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookStore) Create(ctx context.Context, b *models.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookStore) ReplaceAuthors(ctx context.Context, bookID int64, authorIDs []int64) error {
	args := m.Called(ctx, bookID, authorIDs)
	return args.Error(0)
}

func (m *MockBookStore) Update(ctx context.Context, id int64, b *models.Book) error {
	args := m.Called(ctx, id, b)
	return args.Error(0)
}

func (m *MockBookStore) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockCopyStore struct {
	mock.Mock
}

func (m *MockCopyStore) CreateForBook(ctx context.Context, bookID int64) (*models.Copy, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Copy), args.Error(1)
}

func (m *MockCopyStore) GetAll(ctx context.Context) ([]models.Copy, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Copy), args.Error(1)
}

func (m *MockCopyStore) GetByBook(ctx context.Context, bookID int64) ([]models.Copy, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).([]models.Copy), args.Error(1)
}

func (m *MockCopyStore) AvailableIDs(ctx context.Context, bookID int64) ([]int64, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCopyStore) Claim(ctx context.Context, copyID int64, userID string) (*models.BorrowRecord, error) {
	args := m.Called(ctx, copyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BorrowRecord), args.Error(1)
}

func (m *MockCopyStore) Release(ctx context.Context, userID string, bookID int64) (*models.BorrowRecord, error) {
	args := m.Called(ctx, userID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BorrowRecord), args.Error(1)
}

// --- TESTS ---

func TestBookService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidISBN", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		b := models.Book{ISBN: "9780306406158", Title: "T", CategoryID: 1}
		err := svc.Create(ctx, &b, []int64{1})
		assert.ErrorIs(t, err, isbn.ErrChecksum)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("NormalizesISBN", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		repo.On("ExistsByISBN", mock.Anything, "9780306406157").Return(false, nil).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(b *models.Book) bool {
			return b.ISBN == "9780306406157"
		})).Return(nil).Once()
		repo.On("ReplaceAuthors", mock.Anything, mock.Anything, []int64{1}).Return(nil).Once()

		b := models.Book{ISBN: "978-0-306-40615-7", Title: "T", CategoryID: 1}
		err := svc.Create(ctx, &b, []int64{1})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("UnknownAuthorID", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		repo.On("ExistsByISBN", mock.Anything, "9780306406157").Return(false, nil).Once()
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Book")).Return(nil).Once()
		repo.On("ReplaceAuthors", mock.Anything, mock.Anything, []int64{999}).
			Return(repository.ErrUnknownAuthor).Once()

		b := models.Book{ISBN: "9780306406157", Title: "T", CategoryID: 1}
		err := svc.Create(ctx, &b, []int64{999})
		assert.ErrorIs(t, err, service.ErrAuthorNotFound)
	})

	t.Run("DuplicateISBN", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		repo.On("ExistsByISBN", mock.Anything, "9780306406157").Return(true, nil).Once()

		b := models.Book{ISBN: "9780306406157", Title: "T", CategoryID: 1}
		err := svc.Create(ctx, &b, []int64{1})
		assert.ErrorIs(t, err, service.ErrDuplicateISBN)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestBookService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		repo.On("GetByID", mock.Anything, int64(42)).Return(nil, gorm.ErrRecordNotFound).Once()

		_, err := svc.GetByID(ctx, 42)
		assert.ErrorIs(t, err, service.ErrBookNotFound)
	})

	t.Run("Found", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		expected := &models.Book{ID: 7, ISBN: "9780306406157", Title: "Found"}
		repo.On("GetByID", mock.Anything, int64(7)).Return(expected, nil).Once()

		got, err := svc.GetByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})
}

func TestBookService_GetFiltered(t *testing.T) {
	ctx := context.Background()

	t.Run("NoMatchIsNotAnError", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		repo.On("GetFiltered", mock.Anything, mock.MatchedBy(func(f dto.BookFilter) bool {
			return f.CategoryName == "NoSuchCategory" && f.Page == 1 && f.PerPage == 10 && f.SortBy == "id"
		})).Return([]models.Book{}, int64(0), nil).Once()

		list, total, err := svc.GetFiltered(ctx, dto.BookFilter{CategoryName: "NoSuchCategory"})
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Equal(t, int64(0), total)
	})
}

func TestBookService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Deleted", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		repo.On("Delete", mock.Anything, int64(1)).Return(true, nil).Once()

		deleted, err := svc.Delete(ctx, 1)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("MissingIsFalseNotError", func(t *testing.T) {
		repo := new(MockBookStore)
		svc := service.NewBookService(repo, new(MockCopyStore), nil)

		repo.On("Delete", mock.Anything, int64(999)).Return(false, nil).Once()

		deleted, err := svc.Delete(ctx, 999)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestBookService_CreateCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("BookMissing", func(t *testing.T) {
		repo := new(MockBookStore)
		copies := new(MockCopyStore)
		svc := service.NewBookService(repo, copies, nil)

		repo.On("GetByID", mock.Anything, int64(5)).Return(nil, gorm.ErrRecordNotFound).Once()

		_, err := svc.CreateCopy(ctx, 5)
		assert.ErrorIs(t, err, service.ErrBookNotFound)
		copies.AssertNotCalled(t, "CreateForBook", mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		repo := new(MockBookStore)
		copies := new(MockCopyStore)
		svc := service.NewBookService(repo, copies, nil)

		repo.On("GetByID", mock.Anything, int64(5)).Return(&models.Book{ID: 5}, nil).Once()
		copies.On("CreateForBook", mock.Anything, int64(5)).
			Return(&models.Copy{ID: 10, BookID: 5, Available: true}, nil).Once()

		c, err := svc.CreateCopy(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), c.BookID)
		assert.True(t, c.Available)
	})
}

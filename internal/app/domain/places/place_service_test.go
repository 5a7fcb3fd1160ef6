package places

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	"github.com/aayushkdev/vellorun-backend/internal/db/dbtest"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/cache"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) place(args mock.Arguments) (*models.Place, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Place), args.Error(1)
}

func (m *MockRepository) List(dbc dbctx.Context, filter models.PlaceFilter) ([]models.Place, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.Place), args.Error(1)
}

func (m *MockRepository) Get(dbc dbctx.Context, id int64) (*models.Place, error) {
	return m.place(m.Called(id))
}

func (m *MockRepository) Create(dbc dbctx.Context, p models.Place) (*models.Place, error) {
	return m.place(m.Called(p))
}

func (m *MockRepository) Update(dbc dbctx.Context, id int64, req models.UpdatePlaceRequest) (*models.Place, error) {
	return m.place(m.Called(id, req))
}

func (m *MockRepository) Delete(dbc dbctx.Context, id int64) error {
	return m.Called(id).Error(0)
}

func (m *MockRepository) SetApproved(dbc dbctx.Context, id int64) error {
	return m.Called(id).Error(0)
}

func (m *MockRepository) ListCategories(dbc dbctx.Context) ([]models.Category, error) {
	args := m.Called()
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockRepository) GetCategory(dbc dbctx.Context, id int64) (*models.Category, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockRepository) SavePlace(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error) {
	args := m.Called(userID, placeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UnsavePlace(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error) {
	args := m.Called(userID, placeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SavedPlaces(dbc dbctx.Context, userID uuid.UUID) ([]models.SavedPlace, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.SavedPlace), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewPlace(dbc dbctx.Context, place models.Place) (*models.Suggestion, error) {
	args := m.Called(place.ID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Suggestion), args.Error(1)
}

func newTestService(repo *MockRepository, notifier *MockNotifier) (*ServiceImpl, *dbtest.FakeTx) {
	tx := &dbtest.FakeTx{}
	return NewService(repo, tx, notifier, cache.NewCacheManager(time.Minute, nil), zap.NewNop()), tx
}

func TestService_ListScopesVisibility(t *testing.T) {
	user := models.Identity{UserID: uuid.New()}
	admin := models.Identity{UserID: uuid.New(), IsAdmin: true}

	tests := []struct {
		name   string
		caller *models.Identity
		want   models.PlaceFilter
	}{
		{"anonymous", nil, models.PlaceFilter{Name: "x", ApprovedOnly: true}},
		{"user", &user, models.PlaceFilter{Name: "x", ApprovedOnly: true, VisibleTo: &user.UserID}},
		{"admin", &admin, models.PlaceFilter{Name: "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("List", tc.want).Return([]models.Place{}, nil).Once()
			svc, _ := newTestService(repo, new(MockNotifier))

			_, err := svc.List(context.Background(), tc.caller, models.PlaceFilter{Name: "x", ApprovedOnly: true})
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_GetHidesUnapproved(t *testing.T) {
	owner := uuid.New()
	pending := &models.Place{ID: 5, Name: "Roof", CreatedBy: &owner}

	repo := new(MockRepository)
	repo.On("Get", int64(5)).Return(pending, nil)
	svc, _ := newTestService(repo, new(MockNotifier))
	ctx := context.Background()

	_, err := svc.Get(ctx, nil, 5)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Get(ctx, &models.Identity{UserID: uuid.New()}, 5)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := svc.Get(ctx, &models.Identity{UserID: owner}, 5)
	require.NoError(t, err)
	assert.Equal(t, "Roof", got.Name)

	_, err = svc.Get(ctx, &models.Identity{UserID: uuid.New(), IsAdmin: true}, 5)
	assert.NoError(t, err)
}

func TestService_CreateByUserIsPending(t *testing.T) {
	caller := models.Identity{UserID: uuid.New()}
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc, tx := newTestService(repo, notifier)

	repo.On("Create", mock.MatchedBy(func(p models.Place) bool {
		return !p.Approved && p.Name == "Bench" && p.Level == 1 && p.XPReward == models.DefaultXPReward &&
			*p.CreatedBy == caller.UserID && assert.ObjectsAreEqual([]string{"quiet"}, p.Tags)
	})).Return(&models.Place{ID: 8, Name: "Bench"}, nil).Once()

	got, err := svc.Create(context.Background(), caller, models.CreatePlaceRequest{
		Name:     " <b>Bench</b> ",
		Type:     models.PlaceTypeOutside,
		Approved: true,
		Tags:     []string{"quiet", "QUIET", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.ID)
	assert.Equal(t, 1, tx.Calls)
	notifier.AssertNotCalled(t, "NotifyNewPlace", mock.Anything)
	repo.AssertExpectations(t)
}

func TestService_CreateApprovedByAdminNotifies(t *testing.T) {
	caller := models.Identity{UserID: uuid.New(), IsAdmin: true}
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc, _ := newTestService(repo, notifier)

	repo.On("Create", mock.MatchedBy(func(p models.Place) bool { return p.Approved && p.XPReward == 50 })).
		Return(&models.Place{ID: 9, Approved: true}, nil).Once()
	notifier.On("NotifyNewPlace", int64(9)).Return(&models.Suggestion{ID: 1}, nil).Once()

	_, err := svc.Create(context.Background(), caller, models.CreatePlaceRequest{
		Name: "Lab", Type: models.PlaceTypeInside, XPReward: 50, Approved: true,
	})
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestService_CreateRejectsBlankName(t *testing.T) {
	svc, _ := newTestService(new(MockRepository), new(MockNotifier))
	_, err := svc.Create(context.Background(), models.Identity{UserID: uuid.New()},
		models.CreatePlaceRequest{Name: "<p> </p>", Type: models.PlaceTypeInside})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestService_AdminOnly(t *testing.T) {
	svc, _ := newTestService(new(MockRepository), new(MockNotifier))
	user := models.Identity{UserID: uuid.New()}
	ctx := context.Background()

	_, err := svc.Update(ctx, user, 1, models.UpdatePlaceRequest{})
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, user, 1), models.ErrForbidden)
	_, err = svc.Approve(ctx, user, 1)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestService_Approve(t *testing.T) {
	admin := models.Identity{UserID: uuid.New(), IsAdmin: true}

	t.Run("pending place is approved and announced", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc, _ := newTestService(repo, notifier)
		repo.On("Get", int64(3)).Return(&models.Place{ID: 3}, nil).Once()
		repo.On("SetApproved", int64(3)).Return(nil).Once()
		notifier.On("NotifyNewPlace", int64(3)).Return(&models.Suggestion{ID: 2}, nil).Once()

		got, err := svc.Approve(context.Background(), admin, 3)
		require.NoError(t, err)
		assert.True(t, got.Approved)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("already approved is a no-op", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc, _ := newTestService(repo, notifier)
		repo.On("Get", int64(3)).Return(&models.Place{ID: 3, Approved: true}, nil).Once()

		_, err := svc.Approve(context.Background(), admin, 3)
		require.NoError(t, err)
		repo.AssertNotCalled(t, "SetApproved", mock.Anything)
		notifier.AssertNotCalled(t, "NotifyNewPlace", mock.Anything)
	})
}

func TestService_CategoriesCached(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListCategories").Return([]models.Category{{ID: 1, Name: "Food"}}, nil).Once()
	svc, _ := newTestService(repo, new(MockNotifier))

	for range 3 {
		got, err := svc.Categories(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	repo.AssertNumberOfCalls(t, "ListCategories", 1)
}

func TestService_CategoryPlacesUnknownCategory(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetCategory", int64(99)).Return(nil, models.ErrNotFound).Once()
	svc, _ := newTestService(repo, new(MockNotifier))

	_, err := svc.CategoryPlaces(context.Background(), nil, 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
	repo.AssertNotCalled(t, "List", mock.Anything)
}

func TestService_Save(t *testing.T) {
	uid := uuid.New()

	tests := []struct {
		name      string
		inserted  bool
		wantMsg   string
		wantSaved bool
	}{
		{"first save", true, "Place saved", false},
		{"repeat save", false, "Place already saved", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("Get", int64(2)).Return(&models.Place{ID: 2, Approved: true}, nil).Once()
			repo.On("SavePlace", uid, int64(2)).Return(tc.inserted, nil).Once()
			svc, _ := newTestService(repo, new(MockNotifier))

			got, err := svc.Save(context.Background(), uid, 2)
			require.NoError(t, err)
			assert.Equal(t, tc.wantMsg, got.Message)
			assert.Equal(t, tc.wantSaved, got.AlreadySaved)
		})
	}
}

func TestService_UnsaveMissing(t *testing.T) {
	uid := uuid.New()
	repo := new(MockRepository)
	repo.On("UnsavePlace", uid, int64(2)).Return(false, nil).Once()
	svc, _ := newTestService(repo, new(MockNotifier))

	assert.ErrorIs(t, svc.Unsave(context.Background(), uid, 2), models.ErrNotFound)
}

func TestService_RepositoryFailure(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything).Return([]models.Place(nil), errors.New("connection reset")).Once()
	svc, _ := newTestService(repo, new(MockNotifier))

	_, err := svc.List(context.Background(), nil, models.PlaceFilter{})
	assert.ErrorContains(t, err, "error listing places")
}

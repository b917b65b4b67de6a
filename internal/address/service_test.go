package address

import (
	"context"
	"testing"

	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"
	"storefront-be/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uint) ([]Address, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Address), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, userID uint, id uuid.UUID) (*Address, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Address), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, a *Address) (*Address, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Address), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, a *Address) (*Address, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Address), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, userID uint, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockRepository) SetDefault(ctx context.Context, userID uint, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func userCtx() context.Context {
	return utils.SetUserContext(context.Background(), 1, "u@example.com", auth.RoleShopper)
}

var home = Input{Label: "Home", Street: "12 MG Road", City: "Bengaluru", State: "Karnataka", PostalCode: "560001"}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(home))

	for _, mutate := range []func(*Input){
		func(in *Input) { in.Label = "" },
		func(in *Input) { in.Street = " " },
		func(in *Input) { in.City = "" },
		func(in *Input) { in.State = "" },
		func(in *Input) { in.PostalCode = "" },
	} {
		in := home
		mutate(&in)
		assert.True(t, apperror.Is(Validate(in), apperror.KindValidation))
	}
}

func TestService_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		ctx := userCtx()

		repo.On("Create", ctx, mock.MatchedBy(func(a *Address) bool {
			return a.UserID == 1 && a.City == "Bengaluru"
		})).Return(&Address{ID: uuid.New(), UserID: 1, City: "Bengaluru"}, nil)

		a, err := svc.Create(ctx, home)
		require.NoError(t, err)
		assert.Equal(t, "Bengaluru", a.City)
	})

	t.Run("Missing field", func(t *testing.T) {
		svc := NewService(new(MockRepository))
		in := home
		in.PostalCode = ""
		_, err := svc.Create(userCtx(), in)
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})

	t.Run("Anonymous", func(t *testing.T) {
		svc := NewService(new(MockRepository))
		_, err := svc.Create(context.Background(), home)
		assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
	})
}

func TestService_Update(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)
	ctx := userCtx()
	id := uuid.New()

	in := home
	in.SetAsDefault = true
	repo.On("Update", ctx, mock.MatchedBy(func(a *Address) bool { return a.ID == id })).
		Return(&Address{ID: id, UserID: 1}, nil)
	repo.On("SetDefault", ctx, uint(1), id).Return(nil)

	a, err := svc.Update(ctx, id, in)
	require.NoError(t, err)
	assert.True(t, a.IsDefault)
	repo.AssertExpectations(t)
}

func TestService_Delete(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)
	ctx := userCtx()
	id := uuid.New()

	repo.On("Delete", ctx, uint(1), id).Return(ErrAddressNotFound)

	err := svc.Delete(ctx, id)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestService_Get(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)
	ctx := userCtx()
	id := uuid.New()

	repo.On("Get", ctx, uint(1), id).Return(&Address{ID: id}, nil)

	a, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
}

package auth

import (
	"context"
	"testing"
	"time"

	"bookshop/internal/domain/model"
	"bookshop/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	var u *model.User
	if v := args.Get(0); v != nil {
		u = v.(*model.User)
	}
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	var u *model.User
	if v := args.Get(0); v != nil {
		u = v.(*model.User)
	}
	return u, args.Error(1)
}

type hasherStub struct{}

func (h *hasherStub) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func TestRegisterUser_Success(t *testing.T) {
	userRepo := new(UserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "taro@example.com").Return(nil, repository.ErrUserNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Name == "Taro" &&
			u.Email == "taro@example.com" &&
			u.PasswordHash == "hashed:password123" &&
			u.Role == model.RoleUser
	})).Return(nil)

	uc := NewRegisterUserUsecase(userRepo, &hasherStub{})
	out, err := uc.Execute(context.Background(), RegisterUserInput{
		Name:     "Taro",
		Email:    "taro@example.com",
		Password: "password123",
	})

	assert.NoError(t, err)
	assert.Equal(t, "Taro", out.User.Name)
	assert.Equal(t, model.RoleUser, out.User.Role)
	userRepo.AssertExpectations(t)
}

func TestRegisterUser_Validation(t *testing.T) {
	cases := []struct {
		name    string
		input   RegisterUserInput
		wantErr error
	}{
		{"empty name", RegisterUserInput{Name: " ", Email: "a@example.com", Password: "password123"}, ErrNameRequired},
		{"bad email", RegisterUserInput{Name: "Taro", Email: "not-an-email", Password: "password123"}, ErrInvalidEmailFormat},
		{"short password", RegisterUserInput{Name: "Taro", Email: "a@example.com", Password: "short"}, ErrPasswordTooShort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userRepo := new(UserRepoMock)
			uc := NewRegisterUserUsecase(userRepo, &hasherStub{})

			_, err := uc.Execute(context.Background(), tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
			userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	userRepo := new(UserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "taro@example.com").
		Return(&model.User{ID: 1, Email: "taro@example.com"}, nil)

	uc := NewRegisterUserUsecase(userRepo, &hasherStub{})
	_, err := uc.Execute(context.Background(), RegisterUserInput{
		Name:     "Taro",
		Email:    "taro@example.com",
		Password: "password123",
	})

	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBcryptHasherAndVerifier_RoundTrip(t *testing.T) {
	hasher := NewBcryptPasswordHasher(4) // テストなので最小コスト
	verifier := NewBcryptPasswordVerifier()

	hashed, err := hasher.Hash("password123")
	assert.NoError(t, err)
	assert.NotEqual(t, "password123", hashed)

	assert.True(t, verifier.Verify("password123", hashed))
	assert.False(t, verifier.Verify("wrong-password", hashed))
}

var _ Clock = (*fixedClock)(nil)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

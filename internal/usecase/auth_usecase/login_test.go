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

type verifierStub struct{ ok bool }

func (v *verifierStub) Verify(plain string, hashed string) bool { return v.ok }

type issuerStub struct {
	token string
	ttl   time.Duration
	err   error
}

func (i *issuerStub) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	if i.err != nil {
		return "", time.Time{}, i.err
	}
	return i.token, now.Add(i.ttl), nil
}

func TestLogin_Success(t *testing.T) {
	userRepo := new(UserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "taro@example.com").
		Return(&model.User{ID: 1, Email: "taro@example.com", Role: model.RoleUser, PasswordHash: "hashed"}, nil)

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	uc := NewLoginUsecase(userRepo, &verifierStub{ok: true}, &issuerStub{token: "signed.jwt", ttl: 15 * time.Minute}, &fixedClock{now: now})

	out, err := uc.Execute(context.Background(), LoginInput{Email: "taro@example.com", Password: "password123"})

	assert.NoError(t, err)
	assert.Equal(t, "signed.jwt", out.Token.AccessToken)
	assert.Equal(t, 900, out.Token.ExpiresIn)
	assert.Equal(t, int64(1), out.User.ID)
}

func TestLogin_UnknownEmail(t *testing.T) {
	userRepo := new(UserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrUserNotFound)

	uc := NewLoginUsecase(userRepo, &verifierStub{ok: true}, &issuerStub{token: "t", ttl: time.Minute}, &fixedClock{now: time.Now()})

	_, err := uc.Execute(context.Background(), LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := new(UserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "taro@example.com").
		Return(&model.User{ID: 1, PasswordHash: "hashed"}, nil)

	uc := NewLoginUsecase(userRepo, &verifierStub{ok: false}, &issuerStub{token: "t", ttl: time.Minute}, &fixedClock{now: time.Now()})

	_, err := uc.Execute(context.Background(), LoginInput{Email: "taro@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

package service

import (
	"context"
	"testing"

	"github.com/Dan9191/bank-account/internal/account"
	"github.com/Dan9191/bank-account/internal/config"
	"github.com/Dan9191/bank-account/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, source account.BalanceSource) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	return NewService(source, logger, &config.Config{
		JWTSecret:            "jwt-secret",
		OperatorPasswordHash: string(hash),
	})
}

func staticSource(balance float64, ok bool) account.BalanceSource {
	return account.BalanceSourceFunc(func(context.Context, string) (float64, bool, error) {
		return balance, ok, nil
	})
}

func TestLogin(t *testing.T) {
	s := newTestService(t, nil)

	token, err := s.Login("hunter2")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("jwt-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, OperatorSubject, claims.Subject)
}

func TestLoginRejected(t *testing.T) {
	s := newTestService(t, nil)

	_, err := s.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s.config.OperatorPasswordHash = ""
	_, err = s.Login("hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "login is disabled without a password hash")
}

func TestCreateAndGetAccount(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()

	created, err := s.CreateAccount(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, created.Balance)

	got, err := s.GetAccount(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreateAccountNegativeBalance(t *testing.T) {
	s := newTestService(t, nil)

	_, err := s.CreateAccount(context.Background(), -1)
	assert.ErrorIs(t, err, account.ErrInvalidAmount)
	assert.Empty(t, s.Accounts())
}

func TestDepositWithdraw(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()
	a, err := s.CreateAccount(ctx, 20)
	require.NoError(t, err)

	got, err := s.Deposit(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.Balance)

	got, err = s.Withdraw(ctx, a.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.Balance)

	_, err = s.Withdraw(ctx, a.ID, 26)
	assert.ErrorIs(t, err, account.ErrInsufficientFunds)

	_, err = s.Deposit(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTransfer(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()
	src, _ := s.CreateAccount(ctx, 100)
	dst, _ := s.CreateAccount(ctx, 20)

	from, to, err := s.Transfer(ctx, src.ID, dst.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 90.0, from.Balance)
	assert.Equal(t, 30.0, to.Balance)

	_, _, err = s.Transfer(ctx, src.ID, src.ID, 10)
	assert.ErrorIs(t, err, account.ErrTransferFailed)

	_, _, err = s.Transfer(ctx, src.ID, dst.ID, 1000)
	assert.ErrorIs(t, err, account.ErrInsufficientFunds)

	_, _, err = s.Transfer(ctx, src.ID, "missing", 1)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSynchronize(t *testing.T) {
	ctx := context.Background()

	s := newTestService(t, staticSource(10, true))
	a, _ := s.CreateAccount(ctx, 100)
	got, err := s.Synchronize(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.Balance)

	s = newTestService(t, staticSource(0, false))
	a, _ = s.CreateAccount(ctx, 100)
	_, err = s.Synchronize(ctx, a.ID)
	assert.ErrorIs(t, err, account.ErrSynchronizationFailed)
	got, _ = s.GetAccount(ctx, a.ID)
	assert.Equal(t, 100.0, got.Balance)
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestService(t, nil)
	s.Restore(models.Snapshot{Accounts: []models.Account{
		{ID: "b", Balance: 20},
		{ID: "a", Balance: 10},
	}})

	assert.Equal(t, []models.Account{{ID: "a", Balance: 10}, {ID: "b", Balance: 20}}, s.Snapshot())

	accounts := s.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "a", accounts[0].ID())
}

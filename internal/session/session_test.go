package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thorwig/sovy-merchant/internal/models"
	"github.com/Thorwig/sovy-merchant/internal/session"
)

func setupManager(t *testing.T) (*session.Manager, string) {
	file := filepath.Join(t.TempDir(), "session.json")
	m, err := session.NewManager(file)
	require.NoError(t, err)
	return m, file
}

func testSession() models.Session {
	return models.Session{
		Token:    "tok-123",
		User:     &models.User{ID: "u1", Email: "owner@corner.cafe", Role: "MERCHANT"},
		Merchant: &models.MerchantProfile{ID: "m1", BusinessName: "Corner Cafe"},
	}
}

func TestInstallPersistsAndReloads(t *testing.T) {
	m, file := setupManager(t)

	err := m.Install(testSession())
	assert.NoError(t, err)
	assert.True(t, m.Authenticated())
	assert.Equal(t, "tok-123", m.Token())

	// A fresh manager over the same file sees the same session.
	m2, err := session.NewManager(file)
	require.NoError(t, err)
	cur := m2.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "Corner Cafe", cur.Merchant.BusinessName)
	assert.Equal(t, "owner@corner.cafe", cur.User.Email)
}

func TestClearEmptiesStateAndFile(t *testing.T) {
	m, file := setupManager(t)
	require.NoError(t, m.Install(testSession()))

	err := m.Clear()
	assert.NoError(t, err)
	assert.False(t, m.Authenticated())
	assert.Nil(t, m.Current())

	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err), "session file should be gone")
}

func TestUpdateMerchant(t *testing.T) {
	m, _ := setupManager(t)
	require.NoError(t, m.Install(testSession()))

	err := m.UpdateMerchant(models.MerchantProfile{ID: "m1", BusinessName: "Corner Bakery"})
	assert.NoError(t, err)
	assert.Equal(t, "Corner Bakery", m.Merchant().BusinessName)
}

func TestUpdateMerchantWithoutSession(t *testing.T) {
	m, _ := setupManager(t)
	err := m.UpdateMerchant(models.MerchantProfile{ID: "m1"})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	m, _ := setupManager(t)

	var calls int
	unsub := m.Subscribe(func() { calls++ })

	require.NoError(t, m.Install(testSession()))
	require.NoError(t, m.Clear())
	assert.Equal(t, 2, calls)

	// Clearing an already empty session is not a change.
	require.NoError(t, m.Clear())
	assert.Equal(t, 2, calls)

	unsub()
	require.NoError(t, m.Install(testSession()))
	assert.Equal(t, 2, calls)
}

func TestExpiredTokenTreatedAsAbsent(t *testing.T) {
	m, _ := setupManager(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	require.NoError(t, m.Install(models.Session{Token: signed}))
	assert.Empty(t, m.Token())
	assert.False(t, m.Authenticated())
}

func TestOpaqueTokenKept(t *testing.T) {
	m, _ := setupManager(t)
	require.NoError(t, m.Install(models.Session{Token: "not-a-jwt"}))
	assert.Equal(t, "not-a-jwt", m.Token())
}

func TestCorruptSessionFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(file, []byte("{nope"), 0600))

	_, err := session.NewManager(file)
	assert.Error(t, err)
}

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("123")
	require.NoError(t, err)
	assert.NotEqual(t, "123", hash)
	assert.False(t, IsLegacyHash(hash))
	assert.True(t, CheckPassword(hash, "123"))
	assert.False(t, CheckPassword(hash, "1234"))
}

func TestLegacySha256(t *testing.T) {
	legacy := Sha256Hex("123")
	assert.Equal(t, "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3", legacy)
	assert.True(t, IsLegacyHash(legacy))
	assert.True(t, CheckPassword(legacy, "123"))
	assert.False(t, CheckPassword(legacy, "abc"))
	assert.False(t, IsLegacyHash("not-a-hash"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "lancamentos", Fold("Lançamentos"))
	assert.Equal(t, "o boticario", Fold("  O BOTICÁRIO "))
	assert.Equal(t, Fold("não"), Fold("nao"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Perfume X", Title("perfume x"))
	assert.Equal(t, "Creme Hidratante", Title("  creme HIDRATANTE "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab", 3))
	assert.Equal(t, "çã", Truncate("çãé", 2))
}

func TestUUIDint64Unique(t *testing.T) {
	seen := make(map[int64]struct{})
	for i := 0; i < 1000; i++ {
		id := UUIDint64()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

package rediscache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerpay/user-service/internal/domain/entity"
)

func TestDecodeSnapshotCanonical(t *testing.T) {
	raw := []byte(`{
		"id": "u1",
		"name": "Alice",
		"email": "alice@example.com",
		"address": "1 Demo Street",
		"profilePictureUrl": "https://cdn.example.com/p.png",
		"bankingDetails": {"agency": "0001", "accountNumber": "12345-6", "balance": 150.5}
	}`)

	u, migrated, err := decodeSnapshot(raw)

	assert.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, 150.5, u.Balance())
}

func TestDecodeSnapshotLegacy(t *testing.T) {
	raw := []byte(`{
		"_id": "u1",
		"_name": "Alice",
		"_email": "alice@example.com",
		"_address": "1 Demo Street",
		"_profilePicture": "https://cdn.example.com/p.png",
		"_bankingDetails": {"agency": "0001", "accountNumber": "12345-6", "balance": 150.5}
	}`)

	u, migrated, err := decodeSnapshot(raw)

	assert.NoError(t, err)
	assert.True(t, migrated, "legacy entries must be flagged for rewrite")
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "1 Demo Street", u.Address)
	assert.Equal(t, "https://cdn.example.com/p.png", u.ProfilePictureURL)
	assert.Equal(t, 150.5, u.Balance())
}

func TestDecodeSnapshotLegacyWithoutBanking(t *testing.T) {
	raw := []byte(`{"_id": "u2", "_name": "Bob", "_email": "bob@example.com"}`)

	u, migrated, err := decodeSnapshot(raw)

	assert.NoError(t, err)
	assert.True(t, migrated)
	assert.Nil(t, u.BankingDetails)
	assert.Equal(t, 0.0, u.Balance())
}

func TestDecodeSnapshotUnrecognized(t *testing.T) {
	_, _, err := decodeSnapshot([]byte(`{"foo": "bar"}`))
	assert.Error(t, err)
}

func TestDecodeSnapshotInvalidJSON(t *testing.T) {
	_, _, err := decodeSnapshot([]byte(`{`))
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	in := &entity.User{
		ID:    "u1",
		Name:  "Alice",
		Email: "alice@example.com",
		BankingDetails: &entity.BankingDetails{
			Agency:        "0001",
			AccountNumber: "12345-6",
			Balance:       99.99,
		},
	}

	out := toSnapshot(in).toUser()

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Email, out.Email)
	assert.Equal(t, in.BankingDetails.Balance, out.BankingDetails.Balance)
}

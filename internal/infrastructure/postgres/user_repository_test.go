package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerpay/user-service/internal/domain/repository"
)

func TestSignedAmount(t *testing.T) {
	assert.Equal(t, -25.0, signedAmount(25, repository.Debit))
	assert.Equal(t, 25.0, signedAmount(25, repository.Credit))
	assert.Equal(t, 0.0, signedAmount(0, repository.Debit))
}

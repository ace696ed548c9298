package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/event-snap/internal/domain"
)

func TestStruct_ReportsJSONNames(t *testing.T) {
	err := Struct(domain.ValidateCodeRequest{Email: "nope", Code: "12ab"})

	assert.ErrorContains(t, err, "email must be a valid email")
	assert.ErrorContains(t, err, "code must be exactly 6 characters")
}

func TestStruct_FutureExpiry(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	err := Struct(domain.CreateQRCodeRequest{OwnerID: "u1", ExpiresAt: &past})
	assert.ErrorContains(t, err, "expiration_date must be in the future")

	future := time.Now().Add(time.Hour)
	assert.NoError(t, Struct(domain.CreateQRCodeRequest{OwnerID: "u1", ExpiresAt: &future}))
	assert.NoError(t, Struct(domain.CreateQRCodeRequest{OwnerID: "u1"}))
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(domain.ValidateCodeRequest{Email: "a@b.com", Code: "012345"}))
}

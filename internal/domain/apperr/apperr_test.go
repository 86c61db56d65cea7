package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestValidation_MatchesKind(t *testing.T) {
	err := Validation("risk_score", "must be <= 100")
	assert.True(t, IsValidation(err))
	assert.False(t, IsAuthorization(err))
	assert.Equal(t, "validation: risk_score: must be <= 100", err.Error())

	wrapped := fmt.Errorf("submit: %w", err)
	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "risk_score", ve.Field)
}

func TestAuthorization_CarriesActor(t *testing.T) {
	actor := common.HexToAddress("0x1")
	err := Authorization(actor, "submit audit")
	assert.True(t, IsAuthorization(err))
	assert.Contains(t, err.Error(), actor.Hex())
}

func TestUpstream_WrapsCauseOnce(t *testing.T) {
	err := Upstream("rpc", context.DeadlineExceeded)
	assert.True(t, IsUpstream(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	again := Upstream("pipeline", err)
	assert.Same(t, err, again)
	assert.Nil(t, Upstream("rpc", nil))
}

func TestPipeline_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("all tiers failed")
	err := Pipeline(common.HexToAddress("0x2"), cause)
	assert.ErrorIs(t, err, ErrPipeline)
	assert.ErrorIs(t, err, cause)
}

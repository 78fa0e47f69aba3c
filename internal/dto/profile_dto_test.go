package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRequestToUpdate(t *testing.T) {
	str := func(s string) *string { return &s }

	upd, err := (&ProfileRequest{DateOfBirth: str("2000-06-15")}).ToUpdate()
	require.NoError(t, err)
	require.NotNil(t, upd.DateOfBirth)
	assert.Equal(t, time.Date(2000, time.June, 15, 0, 0, 0, 0, time.UTC), *upd.DateOfBirth)
	assert.False(t, upd.ClearDateOfBirth)

	upd, err = (&ProfileRequest{DateOfBirth: str("")}).ToUpdate()
	require.NoError(t, err)
	assert.True(t, upd.ClearDateOfBirth)
	assert.Nil(t, upd.DateOfBirth)

	upd, err = (&ProfileRequest{}).ToUpdate()
	require.NoError(t, err)
	assert.False(t, upd.ClearDateOfBirth)

	_, err = (&ProfileRequest{DateOfBirth: str("15/06/2000")}).ToUpdate()
	assert.Error(t, err)

	var nilReq *ProfileRequest
	upd, err = nilReq.ToUpdate()
	require.NoError(t, err)
	assert.Nil(t, upd.DateOfBirth)
}

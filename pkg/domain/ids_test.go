package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgerrors "trustgate/pkg/errors"
)

func TestParseSubjectID(t *testing.T) {
	t.Run("accepts caller-supplied identifiers", func(t *testing.T) {
		id, err := ParseSubjectID("merchant-42")
		require.NoError(t, err)
		assert.Equal(t, "merchant-42", id.String())
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParseSubjectID("   ")
		require.Error(t, err)
		assert.True(t, errors.Is(err, tgerrors.New(tgerrors.CodeValidation, "")))
	})
}

func TestParseDocumentID(t *testing.T) {
	t.Run("round trips a minted id", func(t *testing.T) {
		minted := NewDocumentID()
		parsed, err := ParseDocumentID(minted.String())
		require.NoError(t, err)
		assert.Equal(t, minted, parsed)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseDocumentID("not-a-uuid")
		require.Error(t, err)
	})

	t.Run("rejects the nil uuid", func(t *testing.T) {
		_, err := ParseDocumentID("00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
	})
}

func TestCycleID(t *testing.T) {
	assert.True(t, CycleID{}.IsNil())
	assert.False(t, NewCycleID().IsNil())
	assert.NotEqual(t, NewCycleID(), NewCycleID())
}

func TestParseSubjectType(t *testing.T) {
	tests := []struct {
		raw     string
		want    SubjectType
		wantErr bool
	}{
		{"individual", SubjectTypeIndividual, false},
		{"Business", SubjectTypeBusiness, false},
		{" INDIVIDUAL ", SubjectTypeIndividual, false},
		{"syndicate", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSubjectType(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/sheetfed/internal/domain"
)

func TestParseIDs(t *testing.T) {
	id := uuid.New()

	parsed, err := parseIDs("sheet", []string{id.String()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, parsed)

	_, err = parseIDs("sheet", []string{id.String(), "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid sheet id "nope"`)
}

func TestValuesRoundTrip(t *testing.T) {
	values := domain.Values{
		"ssn":    {Value: "123", Messages: []domain.Message{domain.NewError("required")}},
		"amount": domain.NewCell(12.5),
		"empty":  domain.NewCell(nil),
	}

	data, err := encodeValues(values)
	require.NoError(t, err)

	decoded, err := decodeValues(data)
	require.NoError(t, err)
	assert.Equal(t, values, decoded)
}

func TestDecodeEmptyPayloads(t *testing.T) {
	values, err := decodeValues(nil)
	require.NoError(t, err)
	assert.Empty(t, values)

	metadata, err := decodeMetadata([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, metadata)

	data, err := encodeMetadata(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

package sms

import (
	"strings"
	"testing"

	"sms-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareMessage_GSM7Boundaries(t *testing.T) {
	m, err := PrepareMessage(strings.Repeat("a", 160))
	require.NoError(t, err)
	assert.Equal(t, constants.EncodingGSM7, m.Encoding)
	assert.EqualValues(t, 1, m.Segments)

	m, err = PrepareMessage(strings.Repeat("a", 161))
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.Segments)
}

func TestPrepareMessage_UCS2Boundaries(t *testing.T) {
	m, err := PrepareMessage(strings.Repeat("é", 70))
	require.NoError(t, err)
	assert.Equal(t, constants.EncodingUCS2, m.Encoding)
	assert.Equal(t, 70, m.Length)
	assert.EqualValues(t, 1, m.Segments)

	m, err = PrepareMessage(strings.Repeat("é", 71))
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.Segments)
}

func TestPrepareMessage_SingleNonAsciiSwitchesEncoding(t *testing.T) {
	m, err := PrepareMessage(strings.Repeat("a", 69) + "€")
	require.NoError(t, err)
	assert.Equal(t, constants.EncodingUCS2, m.Encoding)
	assert.EqualValues(t, 1, m.Segments)
}

func TestPrepareMessage_SegmentCap(t *testing.T) {
	// 10 段是上限：1600 个 ASCII 字符可以，1601 不行
	_, err := PrepareMessage(strings.Repeat("a", 1600))
	require.NoError(t, err)

	_, err = PrepareMessage(strings.Repeat("a", 1601))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	// UCS-2 上限是 700 字符
	_, err = PrepareMessage(strings.Repeat("é", 701))
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestPrepareMessage_EmptyRejected(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := PrepareMessage(raw)
		assert.ErrorIs(t, err, ErrEmptyMessage, "raw=%q", raw)
	}
}

func TestPrepareMessage_Trims(t *testing.T) {
	m, err := PrepareMessage("  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Text)
	assert.Equal(t, 5, m.Length)
}

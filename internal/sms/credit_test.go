package sms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertAffiliateCredit(t *testing.T) {
	assert.EqualValues(t, 114, ConvertAffiliateCredit(800, 7))
	assert.EqualValues(t, 0, ConvertAffiliateCredit(0, 7))
	assert.EqualValues(t, 0, ConvertAffiliateCredit(-100, 7))
	assert.EqualValues(t, 0, ConvertAffiliateCredit(800, 0))
	assert.EqualValues(t, 1, ConvertAffiliateCredit(7, 7))
	assert.EqualValues(t, 0, ConvertAffiliateCredit(6, 7))
}

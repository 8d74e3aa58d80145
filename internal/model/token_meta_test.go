package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenMetaDisplay(t *testing.T) {
	assert.Equal(t, "PEPE", TokenMeta{Symbol: "PEPE"}.Display())
	assert.Equal(t, "0x1111..2222", TokenMeta{Address: "0x1111000000000000000000000000000000002222"}.Display())
	assert.Equal(t, "", TokenMeta{}.Display())
}

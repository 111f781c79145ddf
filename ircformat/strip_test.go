package ircformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var msg = "Hello, \x02Wor\x1dld\x0304,07\x1d! \x1dMy name is\x1d\x0f... \x1fFirst\x1f Last. Testing reset\x1f\x1d\x02\x16ONETWO\x0fTHREE. And \x16reverse\x16!"

func TestStripCodes(t *testing.T) {
	msgStripped := "Hello, World! My name is... First Last. Testing resetONETWOTHREE. And reverse!"
	assert.Equal(t, msgStripped, StripCodes(msg))
}

func TestStripColor(t *testing.T) {
	msgStripped := "Hello, \x02Wor\x1dld\x1d! \x1dMy name is\x1d\x0f... \x1fFirst\x1f Last. Testing reset\x1f\x1d\x02\x16ONETWO\x0fTHREE. And \x16reverse\x16!"
	assert.Equal(t, msgStripped, StripColor(msg))
}

func TestStripCodesPlain(t *testing.T) {
	assert.Equal(t, "no codes here", StripCodes("no codes here"))
}

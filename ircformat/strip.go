// Package ircformat strips mIRC control codes (bold, colour, underline...)
// from message text before it's relayed onward.
package ircformat

import (
	"regexp"
	"strings"
)

// Control codes defined by https://modern.ircdocs.horse/formatting.html
const (
	CharBold          rune = '\x02'
	CharItalics            = '\x1D'
	CharUnderline          = '\x1F'
	CharStrikethrough      = '\x1E'
	CharMonospace          = '\x11'
	CharColor              = '\x03'
	CharHex                = '\x04'
	CharReverseColor       = '\x16'
	CharReset              = '\x0F'
)

var colorRegex = regexp.MustCompile(`\x03(\d\d?)?(?:,(\d\d?))?`)

var replacer = strings.NewReplacer(
	string(CharBold), "",
	string(CharItalics), "",
	string(CharUnderline), "",
	string(CharStrikethrough), "",
	string(CharMonospace), "",
	string(CharColor), "",
	string(CharHex), "",
	string(CharReverseColor), "",
	string(CharReset), "",
)

// StripCodes removes every mIRC formatting and colour code from text.
func StripCodes(text string) string {
	return replacer.Replace(colorRegex.ReplaceAllString(text, ""))
}

// StripColor removes only colour codes, leaving bold/underline/italic intact.
func StripColor(text string) string {
	return colorRegex.ReplaceAllString(text, "")
}

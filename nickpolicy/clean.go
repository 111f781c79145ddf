package nickpolicy

// validNickChar reports whether c is legal anywhere in an RFC 1459 nickname
// other than the first position.
//
// https://github.com/lp0/charybdis/blob/9ced2a7932dddd069636fe6fe8e9faa6db904703/ircd/client.c#L854-L884
func validNickChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '[', ']', '\\', '`', '^', '{', '}', '_', '|':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// clean replaces characters that are illegal in an IRC nickname with
// underscores, and prefixes a leading digit or dash with an underscore
// (a bare digit or dash there would make the token parse as something
// other than a nickname).
func clean(nick string) string {
	if nick == "" {
		return "_"
	}

	if nick[0] == '-' || isDigit(nick[0]) {
		nick = "_" + nick
	}

	out := []byte(nick)
	for i, c := range out {
		if !validNickChar(c) {
			out[i] = '_'
		}
	}

	return string(out)
}

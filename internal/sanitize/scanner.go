package sanitize

// String-context scanning. These are advisory heuristics with bounded
// lookback, not parsers: they answer "is this offset inside a string
// literal" well enough to gate repair rules on adversarial input that a
// real parser has already rejected.

// isInStringAt reports whether pos sits inside a double-quoted string
// literal. It scans forward from the start of content, toggling on each
// unescaped quote; a backslash escapes exactly the one following
// character. O(pos).
func isInStringAt(pos int, content string) bool {
	if pos <= 0 || pos > len(content) {
		return false
	}
	inString := false
	escaped := false
	for i := 0; i < pos; i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		}
	}
	return inString
}

// isInArrayContext reports whether the offset sits inside an array, using
// a bounded backward scan (cfg.ArrayLookback bytes) that tracks
// brace/bracket balance outside strings. The window keeps the check cheap
// on runaway buffers; beyond the window the answer defaults to false.
func isInArrayContext(pos int, content string, cfg Config) bool {
	if pos <= 0 || pos > len(content) {
		return false
	}
	start := pos - cfg.ArrayLookback
	if start < 0 {
		start = 0
	}
	// Balance is tracked forward within the window so string context is
	// handled the same way as isInStringAt.
	depthSquare := 0
	depthCurly := 0
	inString := false
	escaped := false
	lastOpen := byte(0)
	for i := start; i < pos; i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depthSquare++
			lastOpen = '['
		case ']':
			if depthSquare > 0 {
				depthSquare--
			}
		case '{':
			depthCurly++
			lastOpen = '{'
		case '}':
			if depthCurly > 0 {
				depthCurly--
			}
		}
	}
	if depthSquare == 0 {
		return false
	}
	// When both structures are open, the most recent unclosed opener wins.
	if depthCurly > 0 && lastOpen == '{' {
		// Walk back to find which opener is innermost at pos.
		return innermostOpenIsBracket(content[start:pos])
	}
	return true
}

// innermostOpenIsBracket replays the window keeping an explicit stack and
// reports whether the innermost unclosed delimiter is '['.
func innermostOpenIsBracket(window string) bool {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(window); i++ {
		c := window[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']':
			if n := len(stack); n > 0 && stack[n-1] == '[' {
				stack = stack[:n-1]
			}
		case '}':
			if n := len(stack); n > 0 && stack[n-1] == '{' {
				stack = stack[:n-1]
			}
		}
	}
	return len(stack) > 0 && stack[len(stack)-1] == '['
}

// openStructures scans the whole buffer and returns the stack of unclosed
// delimiters (outermost first) and whether the buffer ends inside a
// string. Used by the truncation rules and the structure-close stage.
func openStructures(content string) (stack []byte, inString bool) {
	escaped := false
	for i := 0; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if n := len(stack); n > 0 && stack[n-1] == '{' {
				stack = stack[:n-1]
			}
		case ']':
			if n := len(stack); n > 0 && stack[n-1] == '[' {
				stack = stack[:n-1]
			}
		}
	}
	return stack, inString
}

// closersFor returns the closing delimiters for an open-delimiter stack,
// innermost first.
func closersFor(stack []byte) string {
	out := make([]byte, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case '{':
			out = append(out, '}')
		case '[':
			out = append(out, ']')
		}
	}
	return string(out)
}

// stringEnd returns the index of the unescaped quote terminating the
// string that pos sits inside, or -1 when the string runs to the end of
// the buffer. pos must be inside a string.
func stringEnd(pos int, content string) int {
	escaped := false
	for i := pos; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			return i
		}
	}
	return -1
}

package extension

import (
	"errors"
	"strings"
)

var (
	ErrBlockNotFound  = errors.New("process block not found")
	ErrMalformedBlock = errors.New("unbalanced process block")
)

// findBlock locates `"<process>": [ ... ]` in src and returns the offsets
// of the opening and closing brackets. Brackets inside string literals are
// ignored.
func findBlock(src, process string) (start, end int, err error) {
	key := `"` + process + `"`

	for from := 0; ; {
		i := strings.Index(src[from:], key)
		if i < 0 {
			return 0, 0, ErrBlockNotFound
		}
		pos := from + i + len(key)
		from = pos

		pos = skipSpace(src, pos)
		if pos >= len(src) || src[pos] != ':' {
			continue
		}
		pos = skipSpace(src, pos+1)
		if pos >= len(src) || src[pos] != '[' {
			continue
		}

		end, ok := matchBracket(src, pos)
		if !ok {
			return 0, 0, ErrMalformedBlock
		}
		return pos, end, nil
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && strings.IndexByte(" \t\r\n", s[i]) >= 0 {
		i++
	}
	return i
}

// matchBracket returns the index of the ']' closing the '[' at open.
// String literals and comments are skipped.
func matchBracket(s string, open int) (int, bool) {
	depth := 0
	var quote byte

	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				nl := strings.IndexByte(s[i:], '\n')
				if nl < 0 {
					return 0, false
				}
				i += nl
			} else if i+1 < len(s) && s[i+1] == '*' {
				stop := strings.Index(s[i+2:], "*/")
				if stop < 0 {
					return 0, false
				}
				i += stop + 3
			}
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// InjectSearch replaces the quoted search marker inside the block of
// process with quoted. It reports whether src changed.
func InjectSearch(src, process, quoted string) (string, bool, error) {
	start, end, err := findBlock(src, process)
	if err != nil {
		return src, false, err
	}

	block := src[start : end+1]
	marker := `"` + MarkerSearchValue + `"`
	if !strings.Contains(block, marker) {
		return src, false, nil
	}

	block = strings.ReplaceAll(block, marker, quoted)
	return src[:start] + block + src[end+1:], true, nil
}

package scanner

import (
	"strconv"

	"github.com/thara/vela/lang/token"
)

// number scans an integer or floating point literal, returning its token
// kind (INT or FLOAT) and raw source text. Recognizes decimal and
// hexadecimal (0x...) integers and decimals/hex floats with exponents.
func (s *Scanner) number() (tok token.Token, lit string) {
	start := s.off
	isFloat := false

	if s.cur == '0' && (s.peek() == 'x' || s.peek() == 'X') {
		s.advance()
		s.advance()
		for isHexDigit(s.cur) {
			s.advance()
		}
		if s.cur == '.' {
			isFloat = true
			s.advance()
			for isHexDigit(s.cur) {
				s.advance()
			}
		}
		if s.cur == 'p' || s.cur == 'P' {
			isFloat = true
			s.advance()
			if s.cur == '+' || s.cur == '-' {
				s.advance()
			}
			for isDigit(s.cur) {
				s.advance()
			}
		}
		lit = string(s.src[start:s.off])
		if isFloat {
			return token.FLOAT, lit
		}
		return token.INT, lit
	}

	for isDigit(s.cur) {
		s.advance()
	}
	if s.cur == '.' {
		isFloat = true
		s.advance()
		for isDigit(s.cur) {
			s.advance()
		}
	}
	if s.cur == 'e' || s.cur == 'E' {
		isFloat = true
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		for isDigit(s.cur) {
			s.advance()
		}
	}
	lit = string(s.src[start:s.off])
	if isFloat {
		return token.FLOAT, lit
	}
	return token.INT, lit
}

func parseInt(lit string) (int64, bool) {
	v, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		// huge decimal integer literals are accepted by overflowing to float
		// in some Lua dialects, but here out-of-range is a hard error.
		return 0, false
	}
	return v, true
}

func parseFloat(lit string) (float64, bool) {
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

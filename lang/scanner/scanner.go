// Much of the scanner package's structure (error handling, file/position
// bookkeeping, rune-at-a-time advance loop) is adapted from the teacher
// repository's lang/scanner/scanner.go, which itself credits the Go
// standard library's go/scanner package.
//
// Package scanner tokenizes source files for the parser to consume.
package scanner

import (
	"fmt"
	"os"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/thara/vela/lang/token"
)

// Error describes a single scanning error at a known position.
type Error struct {
	Pos token.Position
	Msg string
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// ErrorList is a sortable list of *Error.
type ErrorList []*Error

func (el *ErrorList) Add(pos token.Position, msg string) {
	*el = append(*el, &Error{Pos: pos, Msg: msg})
}

func (el ErrorList) Len() int      { return len(el) }
func (el ErrorList) Swap(i, j int) { el[i], el[j] = el[j], el[i] }
func (el ErrorList) Less(i, j int) bool {
	if el[i].Pos.Filename != el[j].Pos.Filename {
		return el[i].Pos.Filename < el[j].Pos.Filename
	}
	if el[i].Pos.Line != el[j].Pos.Line {
		return el[i].Pos.Line < el[j].Pos.Line
	}
	return el[i].Pos.Col < el[j].Pos.Col
}

func (el *ErrorList) Sort() { sort.Sort(*el) }

func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", el[0], len(el)-1)
}

// Unwrap lets errors.Is/As traverse the individual errors in the list.
func (el ErrorList) Unwrap() []error {
	errs := make([]error, len(el))
	for i, e := range el {
		errs[i] = e
	}
	return errs
}

func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// PrintError writes each error in err (an ErrorList or a plain error) to w,
// one per line.
func PrintError(w *os.File, err error) {
	if el, ok := err.(ErrorList); ok {
		for _, e := range el {
			fmt.Fprintln(w, e)
		}
		return
	}
	fmt.Fprintln(w, err)
}

// TokenAndValue combines the token type with the token value type.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
}

// ScanFiles tokenizes the given source files and returns the tokens grouped
// by file, along with any scanning errors encountered (best-effort: a file
// that fails to scan still contributes whatever tokens were produced before
// the error).
func ScanFiles(files ...string) (*token.FileSet, [][]TokenAndValue, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var (
		s      Scanner
		tokVal token.Value
		el     ErrorList
	)

	fs := token.NewFileSet()
	tokensByFile := make([][]TokenAndValue, len(files))
	for i, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			el.Add(token.Position{Filename: file}, err.Error())
			continue
		}

		fsf := fs.AddFile(file, -1, len(b))
		s.Init(fsf, b, el.Add)
		for {
			tok := s.Scan(&tokVal)
			if tok == token.COMMENT {
				continue
			}
			tokensByFile[i] = append(tokensByFile[i], TokenAndValue{Token: tok, Value: tokVal})
			if tok == token.EOF {
				break
			}
		}
	}
	el.Sort()
	return fs, tokensByFile, el.Err()
}

// Scanner tokenizes a single source file.
type Scanner struct {
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	cur  rune // current character, -1 at EOF
	off  int  // byte offset of cur
	roff int  // byte offset right after cur
}

var (
	bom = [2]byte{0xEF, 0xBB} // UTF-8 BOM prefix (third byte 0xBF checked separately)
)

// Init prepares the scanner to tokenize a new file. It panics if file's
// recorded size does not match len(src).
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}
	s.file = file
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0

	if len(src) >= 3 && src[0] == bom[0] && src[1] == bom[1] && src[2] == 0xBF {
		s.roff += 3
	}
	// skip a leading shebang line
	if len(src)-s.roff >= 2 && src[s.roff] == '#' && src[s.roff+1] == '!' {
		for s.cur != '\n' && s.cur != -1 {
			s.advance()
		}
	}
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}

	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}

	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.errorf(s.off, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(match byte) bool {
	if s.cur == rune(match) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token, filling tokVal with its literal/position/
// decoded-value data.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	s.skipWhitespace()

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok = token.LookupIdent(lit)
		*tokVal = token.Value{Raw: lit, Pos: pos}

	case isDigit(cur) || (cur == '.' && isDigit(rune(s.peek()))):
		var lit string
		tok, lit = s.number()
		*tokVal = token.Value{Raw: lit, Pos: pos}
		if tok == token.INT {
			v, ok := parseInt(lit)
			if !ok {
				s.error(start, "integer literal value out of range")
			}
			tokVal.Int = v
		} else if tok == token.FLOAT {
			v, ok := parseFloat(lit)
			if !ok {
				s.error(start, "float literal value out of range")
			}
			tokVal.Float = v
		}

	default:
		s.advance() // always make progress
		switch cur {
		case '=':
			tok = token.EQ
			if s.advanceIf('=') {
				tok = token.EQEQ
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '~':
			tok = token.TILDE
			if s.advanceIf('=') {
				tok = token.NEQ
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '"', '\'':
			tok = token.STRING
			lit, val := s.shortString(byte(cur))
			*tokVal = token.Value{Raw: lit, Pos: pos, String: val}

		case '[':
			if s.cur == '=' || s.cur == '[' {
				if lit, val, ok := s.longBracket(start); ok {
					tok = token.STRING
					*tokVal = token.Value{Raw: lit, Pos: pos, String: val}
					break
				}
			}
			tok = token.LBRACK
			*tokVal = token.Value{Raw: "[", Pos: pos}

		case '(', ')', '{', '}', ']', ',', ';':
			tok = punctForByte(byte(cur))
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '+', '*', '%', '^', '&', '|':
			tok = punctForByte(byte(cur))
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '#':
			tok = token.POUND
			*tokVal = token.Value{Raw: "#", Pos: pos}

		case '-':
			tok = token.MINUS
			if s.advanceIf('-') {
				tok = token.COMMENT
				lit := s.comment()
				*tokVal = token.Value{Raw: lit, Pos: pos}
				break
			}
			*tokVal = token.Value{Raw: "-", Pos: pos}

		case '/':
			tok = token.SLASH
			if s.advanceIf('/') {
				tok = token.SLASHSLASH
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '<':
			tok = token.LT
			if s.advanceIf('=') {
				tok = token.LE
			} else if s.advanceIf('<') {
				tok = token.LTLT
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '>':
			tok = token.GT
			if s.advanceIf('=') {
				tok = token.GE
			} else if s.advanceIf('>') {
				tok = token.GTGT
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case ':':
			tok = token.COLON
			if s.advanceIf(':') {
				tok = token.COLONCOLON
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '.':
			tok = token.DOT
			if s.advanceIf('.') {
				tok = token.DOTDOT
				if s.advanceIf('.') {
					tok = token.DOTDOTDOT
				}
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case -1:
			tok = token.EOF
			*tokVal = token.Value{Raw: "", Pos: pos}

		default:
			s.errorf(start, "illegal character %#U", cur)
			tok = token.ILLEGAL
			*tokVal = token.Value{Raw: string(cur), Pos: pos}
		}
	}
	return tok
}

func punctForByte(b byte) token.Token {
	switch b {
	case '(':
		return token.LPAREN
	case ')':
		return token.RPAREN
	case '{':
		return token.LBRACE
	case '}':
		return token.RBRACE
	case ']':
		return token.RBRACK
	case ',':
		return token.COMMA
	case ';':
		return token.SEMI
	case '+':
		return token.PLUS
	case '*':
		return token.STAR
	case '%':
		return token.PERCENT
	case '^':
		return token.CIRCUMFLEX
	case '&':
		return token.AMPERSAND
	case '|':
		return token.PIPE
	}
	return token.ILLEGAL
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) skipWhitespace() {
	for isWhitespace(s.cur) {
		s.advance()
	}
}

func isWhitespace(rn rune) bool {
	return rn == ' ' || rn == '\t' || rn == '\n' || rn == '\r' || rn == '\v' || rn == '\f'
}

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' ||
		'A' <= rn && rn <= 'Z' ||
		rn == '_' ||
		rn >= utf8.RuneSelf && unicode.IsLetter(rn)
}

func isDigit(rn rune) bool {
	return '0' <= rn && rn <= '9'
}

func isHexDigit(rn rune) bool {
	return isDigit(rn) || ('a' <= rn && rn <= 'f') || ('A' <= rn && rn <= 'F')
}

// longBracketLevel reports the '=' nesting level of a long bracket opener
// starting at the current '[' (already consumed) and whether it is indeed a
// long-bracket opener (requires a second '[' after any '=' run).
func (s *Scanner) longBracketLevel() (level int, ok bool) {
	save := *s
	for s.cur == '=' {
		level++
		s.advance()
	}
	if s.cur == '[' {
		s.advance()
		return level, true
	}
	*s = save
	return 0, false
}

func bytesHasLongBracketClose(src []byte, off, level int) (int, bool) {
	if off >= len(src) || src[off] != ']' {
		return 0, false
	}
	i := off + 1
	for i < len(src) && src[i] == '=' && i-off-1 < level {
		i++
	}
	if i-off-1 == level && i < len(src) && src[i] == ']' {
		return i + 1, true
	}
	return 0, false
}

package sql

import "strings"

type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

type TokenType int

const (
	Identifier TokenType = iota
	String
	Number
	Placeholder
	Wildcard
	Comma
	Semicolon
	ParenOpen
	ParenClose
	Plus
	Minus
	Slash
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	And
	Or
	Not
	Is
	Null
	Like
	Between
	Select
	Distinct
	From
	Where
	Group
	By
	Having
	Order
	Asc
	Desc
	Limit
	Offset
	Union
	All
	As
	Create
	Table
	If
	Exists
	Drop
	Insert
	Into
	Values
	Update
	Set
	Delete
	Primary
	Default
	Show
	Describe
	EOF
	Unknown
)

func (token Token) String() string {
	switch token.Type {
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case String:
		return "String(" + token.Value + ")"
	case Number:
		return "Number(" + token.Value + ")"
	case Placeholder:
		return "Placeholder"
	case Wildcard:
		return "Wildcard(" + token.Value + ")"
	case EOF:
		return "EOF"
	case Unknown:
		return "Unknown(" + token.Value + ")"
	default:
		return token.Value
	}
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespace()

	start := lexer.position
	single := func(t TokenType) Token {
		token := Token{Type: t, Value: string(lexer.ch), Pos: start}
		lexer.readChar()
		return token
	}

	switch lexer.ch {
	case 0:
		return Token{Type: EOF, Pos: start}
	case ',':
		return single(Comma)
	case ';':
		return single(Semicolon)
	case '(':
		return single(ParenOpen)
	case ')':
		return single(ParenClose)
	case '+':
		return single(Plus)
	case '-':
		return single(Minus)
	case '/':
		return single(Slash)
	case '*':
		return single(Wildcard)
	case '?':
		return single(Placeholder)
	case '\'':
		value, ok := lexer.readString()
		if !ok {
			return Token{Type: Unknown, Value: "unterminated string", Pos: start}
		}
		return Token{Type: String, Value: value, Pos: start}
	case '`':
		value, ok := lexer.readQuotedIdentifier()
		if !ok {
			return Token{Type: Unknown, Value: "unterminated identifier", Pos: start}
		}
		return Token{Type: Identifier, Value: value, Pos: start}
	}

	switch {
	case isOperator(lexer.ch):
		operator := lexer.readOperator()
		switch operator {
		case "=", "==":
			return Token{Type: Equals, Value: "=", Pos: start}
		case "!=", "<>":
			return Token{Type: NotEquals, Value: "<>", Pos: start}
		case "<":
			return Token{Type: LessThan, Value: operator, Pos: start}
		case ">":
			return Token{Type: GreaterThan, Value: operator, Pos: start}
		case "<=":
			return Token{Type: LessThanOrEqual, Value: operator, Pos: start}
		case ">=":
			return Token{Type: GreaterThanOrEqual, Value: operator, Pos: start}
		default:
			return Token{Type: Unknown, Value: operator, Pos: start}
		}
	case isDigit(lexer.ch):
		num := lexer.readNumber()
		if lexer.ch == '.' {
			lexer.readChar()
			num += "." + lexer.readNumber()
		}
		return Token{Type: Number, Value: num, Pos: start}
	case isAlphaNumeric(lexer.ch):
		literal := lexer.readIdentifier()
		if strings.HasSuffix(literal, ".") && lexer.ch == '*' {
			lexer.readChar()
			return Token{Type: Wildcard, Value: literal + "*", Pos: start}
		}
		return Token{Type: lookupIdentifier(literal), Value: literal, Pos: start}
	default:
		return single(Unknown)
	}
}

func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

// skipWhitespace also skips "--" comments up to the end of the line.
func (lexer *Lexer) skipWhitespace() {
	for {
		switch {
		case lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r':
			lexer.readChar()
		case lexer.ch == '-' && lexer.peekChar() == '-':
			for lexer.ch != '\n' && lexer.ch != 0 {
				lexer.readChar()
			}
		default:
			return
		}
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readQuotedIdentifier() (string, bool) {
	lexer.readChar()
	position := lexer.position
	for lexer.ch != '`' {
		if lexer.ch == 0 {
			return "", false
		}
		lexer.readChar()
	}
	value := lexer.sql[position:lexer.position]
	lexer.readChar()
	return value, true
}

// readString reads a single-quoted literal. A backslash escapes the next
// character and a doubled quote stands for one quote.
func (lexer *Lexer) readString() (string, bool) {
	var b strings.Builder
	lexer.readChar()
	for {
		switch lexer.ch {
		case 0:
			return "", false
		case '\\':
			lexer.readChar()
			switch lexer.ch {
			case 0:
				return "", false
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte(lexer.ch)
			}
		case '\'':
			if lexer.peekChar() != '\'' {
				lexer.readChar()
				return b.String(), true
			}
			lexer.readChar()
			b.WriteByte('\'')
		default:
			b.WriteByte(lexer.ch)
		}
		lexer.readChar()
	}
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isAlphaNumeric(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch == '.' || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

var keywords = map[string]TokenType{
	"AND":      And,
	"OR":       Or,
	"NOT":      Not,
	"IS":       Is,
	"NULL":     Null,
	"LIKE":     Like,
	"BETWEEN":  Between,
	"SELECT":   Select,
	"DISTINCT": Distinct,
	"FROM":     From,
	"WHERE":    Where,
	"GROUP":    Group,
	"BY":       By,
	"HAVING":   Having,
	"ORDER":    Order,
	"ASC":      Asc,
	"DESC":     Desc,
	"LIMIT":    Limit,
	"OFFSET":   Offset,
	"UNION":    Union,
	"ALL":      All,
	"AS":       As,
	"CREATE":   Create,
	"TABLE":    Table,
	"IF":       If,
	"EXISTS":   Exists,
	"DROP":     Drop,
	"INSERT":   Insert,
	"INTO":     Into,
	"VALUES":   Values,
	"UPDATE":   Update,
	"SET":      Set,
	"DELETE":   Delete,
	"PRIMARY":  Primary,
	"DEFAULT":  Default,
	"SHOW":     Show,
	"DESCRIBE": Describe,
}

// lookupIdentifier matches keywords case-insensitively. Words that are only
// keywords in one position (KEY, AUTO_INCREMENT, COMMENT, TABLES) stay identifiers.
func lookupIdentifier(id string) TokenType {
	if t, ok := keywords[strings.ToUpper(id)]; ok {
		return t
	}
	return Identifier
}

// Tokenize returns every token of sql up to and including EOF.
func Tokenize(sql string) []Token {
	lexer := NewLexer(sql)
	var tokens []Token
	for {
		token := lexer.NextToken()
		tokens = append(tokens, token)
		if token.Type == EOF {
			return tokens
		}
	}
}

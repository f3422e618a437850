package sql

import (
	"strconv"
	"strings"

	"github.com/nickyhof/MemDB/core"
)

type Parser struct {
	lexer   *Lexer
	current Token
}

func NewParser(sql string) *Parser {
	parser := &Parser{lexer: NewLexer(sql)}
	parser.next()
	return parser
}

// Parse parses a single statement, optionally terminated by ';'.
func Parse(sql string) (Statement, error) {
	return NewParser(sql).Parse()
}

func (parser *Parser) next() {
	parser.current = parser.lexer.NextToken()
}

func (parser *Parser) peek() Token {
	return parser.lexer.PeekToken()
}

func (parser *Parser) errorf(format string, args ...any) error {
	args = append(args, parser.current.Pos)
	return core.ParseErrorf(format+" at position %d", args...)
}

func (parser *Parser) unexpected(expected string) error {
	if parser.current.Type == EOF {
		return parser.errorf("expected %s, got end of input", expected)
	}
	return parser.errorf("expected %s, got %q", expected, parser.current.Value)
}

func (parser *Parser) accept(t TokenType) bool {
	if parser.current.Type == t {
		parser.next()
		return true
	}
	return false
}

func (parser *Parser) expect(t TokenType, expected string) (Token, error) {
	token := parser.current
	if token.Type != t {
		return token, parser.unexpected(expected)
	}
	parser.next()
	return token, nil
}

// isWord matches identifiers that act as keywords in one position only.
func (parser *Parser) isWord(word string) bool {
	return parser.current.Type == Identifier && strings.EqualFold(parser.current.Value, word)
}

func (parser *Parser) identifier(expected string) (string, error) {
	token, err := parser.expect(Identifier, expected)
	return token.Value, err
}

func (parser *Parser) Parse() (Statement, error) {
	var statement Statement
	var err error

	switch parser.current.Type {
	case Select:
		statement, err = parser.parseQuery()
	case Insert:
		statement, err = parser.parseInsert()
	case Update:
		statement, err = parser.parseUpdate()
	case Delete:
		statement, err = parser.parseDelete()
	case Create:
		statement, err = parser.parseCreateTable()
	case Drop:
		statement, err = parser.parseDropTable()
	case Show:
		statement, err = parser.parseShow()
	case Describe:
		statement, err = parser.parseDescribe()
	default:
		return nil, parser.unexpected("statement")
	}
	if err != nil {
		return nil, err
	}

	parser.accept(Semicolon)
	if parser.current.Type != EOF {
		return nil, parser.unexpected("end of statement")
	}
	return statement, nil
}

func (parser *Parser) parseQuery() (Query, error) {
	var query Query
	query, err := parser.parseSelect()
	if err != nil {
		return nil, err
	}
	for parser.accept(Union) {
		all := parser.accept(All)
		right, err := parser.parseSelect()
		if err != nil {
			return nil, err
		}
		query = &UnionStatement{Left: query, Right: right, All: all}
	}
	return query, nil
}

func (parser *Parser) parseSelect() (*SelectStatement, error) {
	if _, err := parser.expect(Select, "SELECT"); err != nil {
		return nil, err
	}
	statement := &SelectStatement{Distinct: parser.accept(Distinct)}

	for {
		item, err := parser.parseSelectItem()
		if err != nil {
			return nil, err
		}
		statement.Columns = append(statement.Columns, item)
		if !parser.accept(Comma) {
			break
		}
	}

	if parser.accept(From) {
		for {
			ref, err := parser.parseTableRef()
			if err != nil {
				return nil, err
			}
			statement.From = append(statement.From, ref)
			if !parser.accept(Comma) {
				break
			}
		}
	}

	var err error
	if parser.accept(Where) {
		if statement.Where, err = parser.parseExpr(); err != nil {
			return nil, err
		}
	}

	if parser.accept(Group) {
		if _, err := parser.expect(By, "BY"); err != nil {
			return nil, err
		}
		if statement.GroupBy, err = parser.parseExprList(); err != nil {
			return nil, err
		}
	}

	if parser.accept(Having) {
		if statement.Having, err = parser.parseExpr(); err != nil {
			return nil, err
		}
	}

	if parser.accept(Order) {
		if _, err := parser.expect(By, "BY"); err != nil {
			return nil, err
		}
		for {
			expr, err := parser.parseExpr()
			if err != nil {
				return nil, err
			}
			item := OrderItem{Expr: expr}
			if parser.accept(Desc) {
				item.Desc = true
			} else {
				parser.accept(Asc)
			}
			statement.OrderBy = append(statement.OrderBy, item)
			if !parser.accept(Comma) {
				break
			}
		}
	}

	if parser.accept(Limit) {
		first, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		if parser.accept(Comma) {
			// LIMIT offset, count
			statement.Offset = first
			if statement.Limit, err = parser.parseExpr(); err != nil {
				return nil, err
			}
		} else {
			statement.Limit = first
		}
	}

	if parser.accept(Offset) {
		if statement.Offset, err = parser.parseExpr(); err != nil {
			return nil, err
		}
	}

	return statement, nil
}

func (parser *Parser) parseSelectItem() (SelectItem, error) {
	if parser.current.Type == Wildcard {
		table := strings.TrimSuffix(strings.TrimSuffix(parser.current.Value, "*"), ".")
		parser.next()
		return SelectItem{Expr: &Star{Table: table}}, nil
	}

	expr, err := parser.parseExpr()
	if err != nil {
		return SelectItem{}, err
	}
	alias, err := parser.parseAlias()
	return SelectItem{Expr: expr, Alias: alias}, err
}

func (parser *Parser) parseAlias() (string, error) {
	if parser.accept(As) {
		return parser.identifier("alias")
	}
	if parser.current.Type == Identifier {
		alias := parser.current.Value
		parser.next()
		return alias, nil
	}
	return "", nil
}

func (parser *Parser) parseTableRef() (TableRef, error) {
	if parser.accept(ParenOpen) {
		query, err := parser.parseQuery()
		if err != nil {
			return TableRef{}, err
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return TableRef{}, err
		}
		alias, err := parser.parseAlias()
		return TableRef{Subquery: query, Alias: alias}, err
	}

	name, err := parser.identifier("table name")
	if err != nil {
		return TableRef{}, err
	}
	alias, err := parser.parseAlias()
	return TableRef{Name: name, Alias: alias}, err
}

func (parser *Parser) parseExprList() ([]Expr, error) {
	var exprs []Expr
	for {
		expr, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if !parser.accept(Comma) {
			return exprs, nil
		}
	}
}

func (parser *Parser) parseExpr() (Expr, error) {
	return parser.parseOr()
}

func (parser *Parser) parseOr() (Expr, error) {
	left, err := parser.parseAnd()
	if err != nil {
		return nil, err
	}
	for parser.accept(Or) {
		right, err := parser.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseAnd() (Expr, error) {
	left, err := parser.parseNot()
	if err != nil {
		return nil, err
	}
	for parser.accept(And) {
		right, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseNot() (Expr, error) {
	if parser.accept(Not) {
		operand, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Operand: operand}, nil
	}
	return parser.parseComparison()
}

var comparisons = map[TokenType]string{
	Equals:             "=",
	NotEquals:          "<>",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
}

func (parser *Parser) parseComparison() (Expr, error) {
	left, err := parser.parseAdditive()
	if err != nil {
		return nil, err
	}

	if op, ok := comparisons[parser.current.Type]; ok {
		parser.next()
		right, err := parser.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Compare{Op: op, Left: left, Right: right}, nil
	}

	if parser.accept(Is) {
		not := parser.accept(Not)
		if _, err := parser.expect(Null, "NULL"); err != nil {
			return nil, err
		}
		return &IsNull{Operand: left, Not: not}, nil
	}

	not := false
	if parser.current.Type == Not {
		if t := parser.peek().Type; t == Between || t == Like {
			parser.next()
			not = true
		}
	}

	switch {
	case parser.accept(Between):
		low, err := parser.parseAdditive()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(And, "AND"); err != nil {
			return nil, err
		}
		high, err := parser.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{Operand: left, Low: low, High: high, Not: not}, nil
	case parser.accept(Like):
		pattern, err := parser.parseAdditive()
		if err != nil {
			return nil, err
		}
		var expr Expr = &Compare{Op: "LIKE", Left: left, Right: pattern}
		if not {
			expr = &NotExpr{Operand: expr}
		}
		return expr, nil
	}
	return left, nil
}

func (parser *Parser) parseAdditive() (Expr, error) {
	left, err := parser.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for parser.current.Type == Plus || parser.current.Type == Minus {
		op := parser.current.Value
		parser.next()
		right, err := parser.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseMultiplicative() (Expr, error) {
	left, err := parser.parseUnary()
	if err != nil {
		return nil, err
	}
	for (parser.current.Type == Wildcard && parser.current.Value == "*") || parser.current.Type == Slash {
		op := parser.current.Value
		parser.next()
		right, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseUnary() (Expr, error) {
	switch {
	case parser.accept(Minus):
		operand, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Negate{Operand: operand}, nil
	case parser.accept(Plus):
		return parser.parseUnary()
	}
	return parser.parsePrimary()
}

func (parser *Parser) parsePrimary() (Expr, error) {
	token := parser.current

	switch token.Type {
	case Number:
		parser.next()
		value, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, core.ParseErrorf("invalid number %q at position %d", token.Value, token.Pos)
		}
		return &Literal{Value: value}, nil
	case String:
		parser.next()
		return &Literal{Value: token.Value}, nil
	case Null:
		parser.next()
		return &Literal{Value: nil}, nil
	case Placeholder:
		parser.next()
		return &Param{Pos: token.Pos}, nil
	case ParenOpen:
		parser.next()
		var expr Expr
		if parser.current.Type == Select {
			query, err := parser.parseQuery()
			if err != nil {
				return nil, err
			}
			expr = &Subquery{Query: query}
		} else {
			var err error
			if expr, err = parser.parseExpr(); err != nil {
				return nil, err
			}
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case Identifier:
		parser.next()
		if parser.current.Type == ParenOpen {
			return parser.parseCall(token.Value)
		}
		return &ColumnRef{Name: token.Value}, nil
	default:
		return nil, parser.unexpected("expression")
	}
}

func (parser *Parser) parseCall(name string) (Expr, error) {
	parser.next()
	call := &Call{Name: strings.ToUpper(name)}

	switch {
	case parser.current.Type == Wildcard && parser.current.Value == "*":
		parser.next()
		call.Star = true
	case parser.current.Type != ParenClose:
		args, err := parser.parseExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}

	if _, err := parser.expect(ParenClose, "')'"); err != nil {
		return nil, err
	}
	return call, nil
}

func (parser *Parser) parseInsert() (Statement, error) {
	parser.next()
	if _, err := parser.expect(Into, "INTO"); err != nil {
		return nil, err
	}
	table, err := parser.identifier("table name")
	if err != nil {
		return nil, err
	}
	statement := &InsertStatement{Table: table}

	if parser.accept(ParenOpen) {
		for {
			column, err := parser.identifier("column name")
			if err != nil {
				return nil, err
			}
			statement.Columns = append(statement.Columns, column)
			if !parser.accept(Comma) {
				break
			}
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return nil, err
		}
	}

	if parser.current.Type == Select {
		statement.Select, err = parser.parseQuery()
		return statement, err
	}

	if _, err := parser.expect(Values, "VALUES or SELECT"); err != nil {
		return nil, err
	}
	for {
		if _, err := parser.expect(ParenOpen, "'('"); err != nil {
			return nil, err
		}
		row, err := parser.parseExprList()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return nil, err
		}
		statement.Rows = append(statement.Rows, row)
		if !parser.accept(Comma) {
			return statement, nil
		}
	}
}

func (parser *Parser) parseUpdate() (Statement, error) {
	parser.next()
	table, err := parser.identifier("table name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.expect(Set, "SET"); err != nil {
		return nil, err
	}
	statement := &UpdateStatement{Table: table}

	for {
		column, err := parser.identifier("column name")
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(Equals, "'='"); err != nil {
			return nil, err
		}
		value, err := parser.parseExpr()
		if err != nil {
			return nil, err
		}
		statement.Set = append(statement.Set, Assignment{Column: column, Value: value})
		if !parser.accept(Comma) {
			break
		}
	}

	if parser.accept(Where) {
		if statement.Where, err = parser.parseExpr(); err != nil {
			return nil, err
		}
	}
	return statement, nil
}

func (parser *Parser) parseDelete() (Statement, error) {
	parser.next()
	if _, err := parser.expect(From, "FROM"); err != nil {
		return nil, err
	}
	table, err := parser.identifier("table name")
	if err != nil {
		return nil, err
	}
	statement := &DeleteStatement{Table: table}
	if parser.accept(Where) {
		if statement.Where, err = parser.parseExpr(); err != nil {
			return nil, err
		}
	}
	return statement, nil
}

func (parser *Parser) parseCreateTable() (Statement, error) {
	parser.next()
	if _, err := parser.expect(Table, "TABLE"); err != nil {
		return nil, err
	}
	statement := &CreateTableStatement{}
	if parser.accept(If) {
		if _, err := parser.expect(Not, "NOT"); err != nil {
			return nil, err
		}
		if _, err := parser.expect(Exists, "EXISTS"); err != nil {
			return nil, err
		}
		statement.IfNotExists = true
	}

	var err error
	if statement.Table, err = parser.identifier("table name"); err != nil {
		return nil, err
	}
	if _, err := parser.expect(ParenOpen, "'('"); err != nil {
		return nil, err
	}

	var primary []string
	for {
		if parser.accept(Primary) {
			// table constraint: PRIMARY KEY (column)
			if err := parser.expectWord("KEY"); err != nil {
				return nil, err
			}
			if _, err := parser.expect(ParenOpen, "'('"); err != nil {
				return nil, err
			}
			column, err := parser.identifier("column name")
			if err != nil {
				return nil, err
			}
			if _, err := parser.expect(ParenClose, "')'"); err != nil {
				return nil, err
			}
			primary = append(primary, column)
		} else {
			column, err := parser.parseColumnDef()
			if err != nil {
				return nil, err
			}
			statement.Columns = append(statement.Columns, column)
		}
		if !parser.accept(Comma) {
			break
		}
	}
	if _, err := parser.expect(ParenClose, "')'"); err != nil {
		return nil, err
	}

	for _, name := range primary {
		found := false
		for i := range statement.Columns {
			if strings.EqualFold(statement.Columns[i].Name, name) {
				statement.Columns[i].Primary = true
				found = true
			}
		}
		if !found {
			return nil, core.SchemaErrorf(core.ErrUnknownIdentifier, "unknown column %s in PRIMARY KEY", name)
		}
	}
	return statement, nil
}

func (parser *Parser) expectWord(word string) error {
	if !parser.isWord(word) {
		return parser.unexpected(word)
	}
	parser.next()
	return nil
}

func (parser *Parser) parseColumnDef() (ColumnDef, error) {
	name, err := parser.identifier("column name")
	if err != nil {
		return ColumnDef{}, err
	}
	typeName, err := parser.identifier("data type")
	if err != nil {
		return ColumnDef{}, err
	}
	column := ColumnDef{Name: name, TypeName: typeName}

	// a length such as VARCHAR(255) is accepted and ignored
	if parser.accept(ParenOpen) {
		if _, err := parser.expect(Number, "length"); err != nil {
			return ColumnDef{}, err
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return ColumnDef{}, err
		}
	}

	for {
		switch {
		case parser.accept(Primary):
			if err := parser.expectWord("KEY"); err != nil {
				return ColumnDef{}, err
			}
			column.Primary = true
		case parser.accept(Default):
			if column.Default, err = parser.parseAdditive(); err != nil {
				return ColumnDef{}, err
			}
		case parser.isWord("AUTO_INCREMENT"):
			parser.next()
			column.AutoIncrement = true
		case parser.isWord("COMMENT"):
			parser.next()
			token, err := parser.expect(String, "comment string")
			if err != nil {
				return ColumnDef{}, err
			}
			column.Comment = token.Value
		default:
			return column, nil
		}
	}
}

func (parser *Parser) parseDropTable() (Statement, error) {
	parser.next()
	if _, err := parser.expect(Table, "TABLE"); err != nil {
		return nil, err
	}
	statement := &DropTableStatement{}
	if parser.accept(If) {
		if _, err := parser.expect(Exists, "EXISTS"); err != nil {
			return nil, err
		}
		statement.IfExists = true
	}
	var err error
	statement.Table, err = parser.identifier("table name")
	return statement, err
}

// parseShow rewrites SHOW TABLES into a select over the TABLES catalog.
func (parser *Parser) parseShow() (Statement, error) {
	parser.next()
	if err := parser.expectWord("TABLES"); err != nil {
		return nil, err
	}
	return &SelectStatement{
		Columns: []SelectItem{{Expr: &Star{}}},
		From:    []TableRef{{Name: "TABLES"}},
	}, nil
}

// parseDescribe rewrites DESCRIBE t into a select over the COLUMNS catalog.
func (parser *Parser) parseDescribe() (Statement, error) {
	parser.next()
	table, err := parser.identifier("table name")
	if err != nil {
		return nil, err
	}
	return &SelectStatement{
		Columns: []SelectItem{{Expr: &Star{}}},
		From:    []TableRef{{Name: "COLUMNS"}},
		Where: &Compare{
			Op:    "=",
			Left:  &Call{Name: "LOWER", Args: []Expr{&ColumnRef{Name: "TABLE_NAME"}}},
			Right: &Literal{Value: strings.ToLower(table)},
		},
	}, nil
}

package quarks

// TokenType is the type of token (identifier, operator, literal, etc.).
type TokenType string

// Definition of token types
const (
	// Identifiers + literals
	IDENT = "IDENT" // x, counter, x2
	INT   = "INT"   // 12345

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"

	// Delimiters
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"

	// Keywords
	EXIT    = "EXIT"
	DECLARE = "DECLARE"
	IF      = "IF"
	ELIF    = "ELIF"
	ELSE    = "ELSE"
)

var keywords = map[string]TokenType{
	"exit":    EXIT,
	"declare": DECLARE,
	"if":      IF,
	"elif":    ELIF,
	"else":    ELSE,
}

// Token is one lexeme. Line is diagnostic metadata and does not take part in
// equality.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
}

// Equal reports whether two tokens have the same type and literal text.
func (t Token) Equal(other Token) bool {
	return t.Type == other.Type && t.Literal == other.Literal
}

func (t Token) String() string {
	switch t.Type {
	case INT, IDENT:
		return string(t.Type) + "(" + t.Literal + ")"
	default:
		return describeTokenType(t.Type)
	}
}

// describeTokenType renders a token type the way diagnostics quote it.
func describeTokenType(tt TokenType) string {
	switch tt {
	case IDENT:
		return "identifier"
	case INT:
		return "integer literal"
	case EXIT, DECLARE, IF, ELIF, ELSE:
		for word, kw := range keywords {
			if kw == tt {
				return "`" + word + "`"
			}
		}
	}
	return "`" + string(tt) + "`"
}

// precedence returns the binding tier of a binary operator token and whether
// the token is a binary operator at all. Higher tiers bind tighter.
func precedence(tokenType TokenType) (int, bool) {
	switch tokenType {
	case PLUS, MINUS:
		return 0, true
	case ASTERISK, SLASH:
		return 1, true
	default:
		return 0, false
	}
}

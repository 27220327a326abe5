package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// CalculateHandler evaluates arithmetic expressions: + - * / % and ** for
// exponentiation, unary minus, parentheses, the constants pi and e, and the
// functions abs, round, min and max. Pure computation; no state.
type CalculateHandler struct{}

// NewCalculateHandler returns the calculator handler.
func NewCalculateHandler() *CalculateHandler { return &CalculateHandler{} }

func (h *CalculateHandler) Execute(_ context.Context, args map[string]any) (json.RawMessage, error) {
	expr, _ := args["expression"].(string)
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrExecution)
	}
	value, err := evalExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%w: expression result is not finite", ErrExecution)
	}
	return json.Marshal(map[string]any{"result": value})
}

var calcConstants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// ─── tokenizer ───────────────────────────────────────────────────────────────

type calcToken struct {
	kind  string // "num", "ident", "op", "lparen", "rparen", "comma"
	text  string
	value float64
}

func tokenize(expr string) ([]calcToken, error) {
	tokens := make([]calcToken, 0, len(expr)/2)
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", expr[i:j])
			}
			tokens = append(tokens, calcToken{kind: "num", value: v})
			i = j
		case unicode.IsLetter(rune(c)):
			j := i
			for j < len(expr) && (unicode.IsLetter(rune(expr[j])) || unicode.IsDigit(rune(expr[j])) || expr[j] == '_') {
				j++
			}
			tokens = append(tokens, calcToken{kind: "ident", text: expr[i:j]})
			i = j
		case c == '*':
			if i+1 < len(expr) && expr[i+1] == '*' {
				tokens = append(tokens, calcToken{kind: "op", text: "**"})
				i += 2
			} else {
				tokens = append(tokens, calcToken{kind: "op", text: "*"})
				i++
			}
		case c == '+' || c == '-' || c == '/' || c == '%':
			tokens = append(tokens, calcToken{kind: "op", text: string(c)})
			i++
		case c == '(':
			tokens = append(tokens, calcToken{kind: "lparen"})
			i++
		case c == ')':
			tokens = append(tokens, calcToken{kind: "rparen"})
			i++
		case c == ',':
			tokens = append(tokens, calcToken{kind: "comma"})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}
	return tokens, nil
}

// ─── recursive-descent parser ───────────────────────────────────────────────

type calcParser struct {
	tokens []calcToken
	pos    int
}

func evalExpression(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	p := &calcParser{tokens: tokens}
	v, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("unexpected trailing input")
	}
	return v, nil
}

func (p *calcParser) peek() (calcToken, bool) {
	if p.pos >= len(p.tokens) {
		return calcToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *calcParser) parseSum() (float64, error) {
	left, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		tk, ok := p.peek()
		if !ok || tk.kind != "op" || (tk.text != "+" && tk.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return 0, err
		}
		if tk.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *calcParser) parseProduct() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		tk, ok := p.peek()
		if !ok || tk.kind != "op" || (tk.text != "*" && tk.text != "/" && tk.text != "%") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch tk.text {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		}
	}
}

func (p *calcParser) parseUnary() (float64, error) {
	if tk, ok := p.peek(); ok && tk.kind == "op" && tk.text == "-" {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePower()
}

func (p *calcParser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	tk, ok := p.peek()
	if !ok || tk.kind != "op" || tk.text != "**" {
		return base, nil
	}
	p.pos++
	// Right-associative: 2 ** 3 ** 2 == 2 ** (3 ** 2).
	exp, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *calcParser) parsePrimary() (float64, error) {
	tk, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	switch tk.kind {
	case "num":
		p.pos++
		return tk.value, nil
	case "ident":
		p.pos++
		if next, ok := p.peek(); ok && next.kind == "lparen" {
			return p.parseCall(tk.text)
		}
		if v, ok := calcConstants[tk.text]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("unknown variable %q", tk.text)
	case "lparen":
		p.pos++
		v, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		if err := p.expect("rparen"); err != nil {
			return 0, err
		}
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected token")
	}
}

func (p *calcParser) parseCall(name string) (float64, error) {
	if err := p.expect("lparen"); err != nil {
		return 0, err
	}
	args := make([]float64, 0, 2)
	if tk, ok := p.peek(); ok && tk.kind != "rparen" {
		for {
			v, err := p.parseSum()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			tk, ok := p.peek()
			if ok && tk.kind == "comma" {
				p.pos++
				continue
			}
			break
		}
	}
	if err := p.expect("rparen"); err != nil {
		return 0, err
	}
	return applyFunction(name, args)
}

func (p *calcParser) expect(kind string) error {
	tk, ok := p.peek()
	if !ok || tk.kind != kind {
		return fmt.Errorf("expected %s", kind)
	}
	p.pos++
	return nil
}

func applyFunction(name string, args []float64) (float64, error) {
	switch name {
	case "abs":
		if len(args) != 1 {
			return 0, fmt.Errorf("abs takes one argument")
		}
		return math.Abs(args[0]), nil
	case "round":
		if len(args) != 1 {
			return 0, fmt.Errorf("round takes one argument")
		}
		return math.Round(args[0]), nil
	case "min":
		if len(args) == 0 {
			return 0, fmt.Errorf("min takes at least one argument")
		}
		v := args[0]
		for _, a := range args[1:] {
			v = math.Min(v, a)
		}
		return v, nil
	case "max":
		if len(args) == 0 {
			return 0, fmt.Errorf("max takes at least one argument")
		}
		v := args[0]
		for _, a := range args[1:] {
			v = math.Max(v, a)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("unknown function %q", name)
	}
}

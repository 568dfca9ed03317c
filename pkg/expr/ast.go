package expr

// Node is an expression tree node.
type Node interface {
	pos() int
}

type (
	// Literal is a constant value: number, string, bool or nil.
	Literal struct {
		At    int
		Value any
	}

	// Ident is a free identifier resolved against Bindings.
	Ident struct {
		At   int
		Name string
	}

	// This is the receiver of a bound function.
	This struct{ At int }

	// ArrayLit is [a, b, ...rest].
	ArrayLit struct {
		At    int
		Elems []Node
	}

	// ObjectLit is {a: 1, b, [k]: v, ...rest}.
	ObjectLit struct {
		At    int
		Props []Property
	}

	// Spread is ...x inside an array, object or call.
	Spread struct {
		At int
		X  Node
	}

	// Template is a backquoted string with ${} parts.
	// len(Strings) == len(Exprs)+1.
	Template struct {
		At      int
		Strings []string
		Exprs   []Node
	}

	// Unary is a prefix operator: ! - + typeof.
	Unary struct {
		At int
		Op TokenType
		X  Node
	}

	// Binary is an arithmetic, comparison or logical operator.
	Binary struct {
		At   int
		Op   TokenType
		L, R Node
	}

	// Conditional is test ? then : otherwise.
	Conditional struct {
		At               int
		Test, Then, Else Node
	}

	// Assign is target = value and the compound forms.
	Assign struct {
		At     int
		Op     TokenType
		Target Node
		Value  Node
	}

	// Update is ++x, x++, --x or x--.
	Update struct {
		At     int
		Op     TokenType
		Prefix bool
		Target Node
	}

	// Member is x.name or x?.name.
	Member struct {
		At       int
		X        Node
		Name     string
		Optional bool // link follows a ?. in the same chain
	}

	// Index is x[i] or x?.[i].
	Index struct {
		At       int
		X        Node
		Index    Node
		Optional bool
	}

	// CallExpr is fn(args) or fn?.(args).
	CallExpr struct {
		At       int
		Fn       Node
		Args     []Node
		Optional bool
	}

	// Arrow is (a, b) => body. Block bodies are sequences that may return.
	Arrow struct {
		At     int
		Params []string
		Rest   string
		Body   Node
		Block  bool
	}

	// Sequence is a list of statements; its value is the last one's.
	Sequence struct {
		At    int
		Stmts []Node
	}

	// Return exits the enclosing function body.
	Return struct {
		At int
		X  Node
	}
)

// Property is one entry of an object literal.
type Property struct {
	Key      string
	Computed Node // non-nil for [expr]: value
	Value    Node
	Spread   bool
}

func (n *Literal) pos() int     { return n.At }
func (n *Ident) pos() int       { return n.At }
func (n *This) pos() int        { return n.At }
func (n *ArrayLit) pos() int    { return n.At }
func (n *ObjectLit) pos() int   { return n.At }
func (n *Spread) pos() int      { return n.At }
func (n *Template) pos() int    { return n.At }
func (n *Unary) pos() int       { return n.At }
func (n *Binary) pos() int      { return n.At }
func (n *Conditional) pos() int { return n.At }
func (n *Assign) pos() int      { return n.At }
func (n *Update) pos() int      { return n.At }
func (n *Member) pos() int      { return n.At }
func (n *Index) pos() int       { return n.At }
func (n *CallExpr) pos() int    { return n.At }
func (n *Arrow) pos() int       { return n.At }
func (n *Sequence) pos() int    { return n.At }
func (n *Return) pos() int      { return n.At }

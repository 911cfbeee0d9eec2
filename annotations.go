package hooks

// AttributeBag exposes one annotation instance's attributes as loosely typed
// values. Host-runtime adapters build bags from whatever reflection facility
// their engine provides; the core only ever consumes this shape.
type AttributeBag map[string]any

// Has reports whether name is present, regardless of its value.
func (b AttributeBag) Has(name string) bool {
	_, ok := b[name]
	return ok
}

// String returns the attribute as a string, or "" when absent or mistyped.
func (b AttributeBag) String(name string) string {
	value, _ := b[name].(string)
	return value
}

// Strings returns the attribute as a string slice. Scalar strings are
// promoted to a one-element slice so annotations can declare either form.
func (b AttributeBag) Strings(name string) []string {
	switch value := b[name].(type) {
	case nil:
		return nil
	case string:
		return []string{value}
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Int returns the attribute as an int and whether it was present as a number.
func (b AttributeBag) Int(name string) (int, bool) {
	switch value := b[name].(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	case float64:
		return int(value), true
	default:
		return 0, false
	}
}

// Float returns the attribute as a float64 and whether it was present.
func (b AttributeBag) Float(name string) (float64, bool) {
	switch value := b[name].(type) {
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case float32:
		return float64(value), true
	case float64:
		return value, true
	default:
		return 0, false
	}
}

// Bool returns the attribute as a bool, defaulting to false.
func (b AttributeBag) Bool(name string) bool {
	value, _ := b[name].(bool)
	return value
}

// AnnotationSource exposes the annotation instances directly present at one
// declaration scope. Repeatable annotations arrive pre-flattened: the source
// returns one bag per instance and the core never sees container wrappers.
type AnnotationSource interface {
	InstancesOf(kind string) []AttributeBag
}

// Annotations is a literal AnnotationSource keyed by annotation kind, handy
// for adapters and tests.
type Annotations map[string][]AttributeBag

func (a Annotations) InstancesOf(kind string) []AttributeBag {
	return a[kind]
}

// ScopeNode is one lexical declaration level (test method, its class, an
// enclosing class) together with the annotations directly present there.
type ScopeNode struct {
	name   string
	source AnnotationSource
}

// NewScopeNode pairs a scope name with its annotation source.
func NewScopeNode(name string, source AnnotationSource) ScopeNode {
	return ScopeNode{name: name, source: source}
}

func (n ScopeNode) Name() string {
	return n.name
}

// InstancesOf returns the annotations of kind directly present at this scope.
func (n ScopeNode) InstancesOf(kind string) []AttributeBag {
	if n.source == nil {
		return nil
	}
	return n.source.InstancesOf(kind)
}

// Chain is the read-only resolution context for one test unit: its enclosing
// declaration scopes ordered innermost first (index 0 = method). The core
// never mutates it; host adapters construct it once per unit.
type Chain struct {
	nodes []ScopeNode
}

// NewChain builds a chain from scopes ordered innermost first.
func NewChain(nodes ...ScopeNode) Chain {
	out := make([]ScopeNode, len(nodes))
	copy(out, nodes)
	return Chain{nodes: out}
}

// Len returns the number of scopes in the chain.
func (c Chain) Len() int {
	return len(c.nodes)
}

// Ordered returns the scopes innermost first as a defensive copy.
func (c Chain) Ordered() []ScopeNode {
	out := make([]ScopeNode, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Innermost returns the method-level scope (zero node if the chain is empty).
func (c Chain) Innermost() ScopeNode {
	if len(c.nodes) == 0 {
		return ScopeNode{}
	}
	return c.nodes[0]
}

// Outermost returns the outermost enclosing scope (zero node if empty).
func (c Chain) Outermost() ScopeNode {
	if len(c.nodes) == 0 {
		return ScopeNode{}
	}
	return c.nodes[len(c.nodes)-1]
}

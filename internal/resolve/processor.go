package resolve

// Step is a processor's verdict after seeing one declaration.
type Step uint8

const (
	// Continue asks the walk for more candidates.
	Continue Step = iota
	// Stop ends the walk; the processor has what it needs.
	Stop
)

func (s Step) String() string {
	if s == Stop {
		return "stop"
	}
	return "continue"
}

// Processor receives candidate declarations, nearest scope first.
type Processor interface {
	Execute(d Declaration, state State) Step
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(d Declaration, state State) Step

func (f ProcessorFunc) Execute(d Declaration, state State) Step { return f(d, state) }

// NameProcessor looks for the nearest declaration of Name. Accept, when
// set, restricts which kinds count as a match.
type NameProcessor struct {
	Name   string
	Accept func(DeclKind) bool

	result Declaration
}

func (p *NameProcessor) Execute(d Declaration, _ State) Step {
	if d.Name != p.Name || (p.Accept != nil && !p.Accept(d.Kind)) {
		return Continue
	}
	p.result = d
	return Stop
}

// Result returns the match, if any.
func (p *NameProcessor) Result() (Declaration, bool) {
	return p.result, p.result.Valid()
}

// CollectProcessor gathers every visible declaration. A name already seen
// in a nearer scope shadows later ones in the same namespace.
type CollectProcessor struct {
	seen map[collectKey]struct{}
	out  []Declaration
}

type collectKey struct {
	name string
	ns   int
}

func (p *CollectProcessor) Execute(d Declaration, _ State) Step {
	if p.seen == nil {
		p.seen = make(map[collectKey]struct{})
	}
	k := collectKey{name: d.Name, ns: d.namespace()}
	if _, dup := p.seen[k]; dup {
		return Continue
	}
	p.seen[k] = struct{}{}
	p.out = append(p.out, d)
	return Continue
}

// Declarations returns what was collected, nearest first.
func (p *CollectProcessor) Declarations() []Declaration { return p.out }

// Counting wraps a processor and records how many candidates it was shown.
// A nil Inner continues after every candidate.
type Counting struct {
	Inner Processor
	Seen  int
}

func (c *Counting) Execute(d Declaration, state State) Step {
	c.Seen++
	if c.Inner == nil {
		return Continue
	}
	return c.Inner.Execute(d, state)
}

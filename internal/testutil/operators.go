package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/registry"
)

// Token is a unique artifact used to check object identity across calls.
type Token struct {
	Operator string
	Serial   int64
}

// Counter is a stub operator factory that records how often it was invoked.
//
// Its operators return, in order of preference: the artifact bound to input
// "in", the value of parameter "value", or a fresh *Token.
type Counter struct {
	Name string

	creates atomic.Int64
	outputs atomic.Int64

	mu     sync.Mutex
	inputs map[string][]string
}

// NewCounter creates a counting factory reported under name.
func NewCounter(name string) *Counter {
	return &Counter{Name: name, inputs: make(map[string][]string)}
}

// Creates returns the number of operator instantiations.
func (c *Counter) Creates() int { return int(c.creates.Load()) }

// Outputs returns the number of Output calls.
func (c *Counter) Outputs() int { return int(c.outputs.Load()) }

// BoundInputs returns the input names bound on the n-th created operator, in
// binding order.
func (c *Counter) BoundInputs(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.inputs[fmt.Sprint(n)]...)
}

// Create implements registry.Factory.
func (c *Counter) Create(_ context.Context, params node.Params) (registry.Operator, error) {
	serial := c.creates.Add(1)
	return &countingOperator{factory: c, serial: serial, params: params, bound: make(map[string]node.Artifact)}, nil
}

type countingOperator struct {
	factory *Counter
	serial  int64
	params  node.Params
	bound   map[string]node.Artifact
}

func (o *countingOperator) SetInput(name string, artifact node.Artifact) error {
	o.bound[name] = artifact
	o.factory.mu.Lock()
	key := fmt.Sprint(o.serial)
	o.factory.inputs[key] = append(o.factory.inputs[key], name)
	o.factory.mu.Unlock()
	return nil
}

func (o *countingOperator) Output(context.Context) (node.Artifact, error) {
	o.factory.outputs.Add(1)
	if in, ok := o.bound["in"]; ok {
		return in, nil
	}
	if v, ok := o.params.Get("value"); ok {
		return v, nil
	}
	return &Token{Operator: o.factory.Name, Serial: o.serial}, nil
}

// Failure selects where a Failing operator breaks.
type Failure int

const (
	FailCreate Failure = iota
	FailSetInput
	FailOutput
	PanicCreate
	PanicOutput
)

// ErrInjected is the cause reported by Failing operators.
var ErrInjected = errors.New("injected failure")

// Failing is a factory whose operators fail at the configured stage. Calls
// counts every Create.
type Failing struct {
	At    Failure
	calls atomic.Int64
}

// Calls returns the number of Create calls.
func (f *Failing) Calls() int { return int(f.calls.Load()) }

// Create implements registry.Factory.
func (f *Failing) Create(context.Context, node.Params) (registry.Operator, error) {
	f.calls.Add(1)
	switch f.At {
	case FailCreate:
		return nil, ErrInjected
	case PanicCreate:
		panic("constructor exploded")
	}
	return &failingOperator{at: f.At}, nil
}

type failingOperator struct{ at Failure }

func (o *failingOperator) SetInput(string, node.Artifact) error {
	if o.at == FailSetInput {
		return ErrInjected
	}
	return nil
}

func (o *failingOperator) Output(context.Context) (node.Artifact, error) {
	switch o.at {
	case FailOutput:
		return nil, ErrInjected
	case PanicOutput:
		panic("output exploded")
	}
	return "unreachable", nil
}

// Collect is a factory whose operators return their bound inputs as a
// map[string]node.Artifact.
var Collect = registry.FactoryFunc(func(context.Context, node.Params) (registry.Operator, error) {
	return &collectOperator{bound: make(map[string]node.Artifact)}, nil
})

type collectOperator struct {
	bound map[string]node.Artifact
}

func (o *collectOperator) SetInput(name string, artifact node.Artifact) error {
	o.bound[name] = artifact
	return nil
}

func (o *collectOperator) Output(context.Context) (node.Artifact, error) {
	return o.bound, nil
}

// SortedKeys returns the keys of an artifact map in lexical order.
func SortedKeys(m map[string]node.Artifact) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StubModule registers fixed factories, for use with registry.New.
type StubModule map[string]registry.Factory

// Register implements registry.Module.
func (m StubModule) Register(r *registry.Registry) {
	for name, f := range m {
		r.Register(name, f)
	}
}

// Package dag executes directed acyclic graphs of dependent computations on
// top of the future package: every node resolves a promise, independent
// nodes run concurrently on a pluggable executor, and the whole run is
// itself a future.
//
// Usage:
//
//  1. Build: NewDAG() with an entry node ID, then AddNode()/AddSubGraph().
//  2. Freeze(): validates completeness and acyclicity.
//  3. Instantiate(): binds an input and an executor to a runnable instance.
//  4. Run() or RunAsync().
//
// Node functions receive the results of their dependencies by node ID.
// A node returning ErrNodeSkipped is omitted from the result map without
// failing the run. Interceptors (WithNodeFuncInterceptor) wrap node
// execution for logging or metrics.
package dag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/saltfishpr/futures/future"
	"github.com/saltfishpr/futures/future/executors"
	"github.com/saltfishpr/futures/result"
	"github.com/saltfishpr/futures/routine"
)

var (
	ErrDAGNodeExists = errors.New("DAG node already exists")
	ErrDAGFrozen     = errors.New("DAG is frozen")
	ErrDAGNotFrozen  = errors.New("DAG is not frozen")
	ErrDAGIncomplete = errors.New("DAG is incomplete")
	ErrDAGCyclic     = errors.New("DAG has cycle")
	// ErrNodeSkipped marks a node whose execution was skipped.
	ErrNodeSkipped = errors.New("DAG node is skipped")
)

type NodeID string

type NodeFunc func(ctx context.Context, deps map[NodeID]any) (any, error)

type NodeFuncInterceptor func(next NodeFunc) NodeFunc

type Node interface {
	ID() NodeID
	Deps() []NodeID
}

type BaseNode struct {
	id   NodeID
	deps []NodeID
}

func (n *BaseNode) ID() NodeID { return n.id }

func (n *BaseNode) Deps() []NodeID { return n.deps }

type EntryNode struct {
	BaseNode
}

type SimpleNode struct {
	BaseNode
	run NodeFunc
}

type SubDAGNode struct {
	BaseNode
	subDag        *DAG
	inputMapping  func(map[NodeID]any) any
	outputMapping func(map[NodeID]any) any
}

type DAG struct {
	entry  NodeID
	nodes  map[NodeID]Node
	frozen bool
}

func NewDAG(entry NodeID) *DAG {
	dag := &DAG{
		nodes: make(map[NodeID]Node),
	}
	dag.entry = entry
	dag.nodes[entry] = &EntryNode{
		BaseNode: BaseNode{
			id: entry,
		},
	}
	return dag
}

func (d *DAG) AddNode(id NodeID, deps []NodeID, fn NodeFunc) error {
	if d.frozen {
		return ErrDAGFrozen
	}
	if _, exists := d.nodes[id]; exists {
		return ErrDAGNodeExists
	}
	d.nodes[id] = &SimpleNode{
		BaseNode: BaseNode{
			id:   id,
			deps: deps,
		},
		run: fn,
	}
	return nil
}

func (d *DAG) AddSubGraph(
	id NodeID, deps []NodeID, subDag *DAG,
	inputMapping func(map[NodeID]any) any,
	outputMapping func(map[NodeID]any) any,
) error {
	if d.frozen {
		return ErrDAGFrozen
	}
	if _, exists := d.nodes[id]; exists {
		return ErrDAGNodeExists
	}
	d.nodes[id] = &SubDAGNode{
		BaseNode: BaseNode{
			id:   id,
			deps: deps,
		},
		subDag:        subDag,
		inputMapping:  inputMapping,
		outputMapping: outputMapping,
	}
	return nil
}

func (d *DAG) Freeze() error {
	if d.frozen {
		return ErrDAGFrozen
	}
	if err := d.checkComplete(); err != nil {
		return err
	}
	if err := d.checkCycle(); err != nil {
		return err
	}
	d.frozen = true
	for _, node := range d.nodes {
		if subDagNode, ok := node.(*SubDAGNode); ok {
			if err := subDagNode.subDag.Freeze(); err != nil {
				return fmt.Errorf("freeze node %s failed: %w", subDagNode.ID(), err)
			}
		}
	}
	return nil
}

func (d *DAG) checkComplete() error {
	for id, node := range d.nodes {
		for _, dep := range node.Deps() {
			if _, ok := d.nodes[dep]; !ok {
				return fmt.Errorf("dependency %s of node %s is not present: %w", dep, id, ErrDAGIncomplete)
			}
		}
	}
	return nil
}

func (d *DAG) checkCycle() error {
	inDegree := make(map[NodeID]int)
	queue := make([]NodeID, 0)
	visited := 0

	for id, node := range d.nodes {
		inDegree[id] = len(node.Deps())
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	children := make(map[NodeID][]NodeID)
	for id, node := range d.nodes {
		for _, dep := range node.Deps() {
			children[dep] = append(children[dep], id)
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		visited++
		for _, v := range children[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if visited != len(d.nodes) {
		return ErrDAGCyclic
	}
	return nil
}

func (d *DAG) ToMermaid() string {
	if !d.frozen {
		return ""
	}

	var b strings.Builder
	b.WriteString("graph LR\n")
	d.toMermaid(&b, "", "\t")
	return b.String()
}

func (d *DAG) toMermaid(b *strings.Builder, prefix string, indent string) {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		node := d.nodes[NodeID(id)]
		label := prefix + id

		switch n := node.(type) {
		case *EntryNode:
			_, _ = fmt.Fprintf(b, "%s%s[%q]\n", indent, label, label)
		case *SimpleNode:
			_, _ = fmt.Fprintf(b, "%s%s((%q))\n", indent, label, label)
		case *SubDAGNode:
			_, _ = fmt.Fprintf(b, "%ssubgraph %s [Subgraph %s]\n", indent, label, label)
			n.subDag.toMermaid(b, label+".", indent+"\t")
			_, _ = fmt.Fprintf(b, "%send\n", indent)
		}
	}

	for _, id := range ids {
		node := d.nodes[NodeID(id)]
		srcLabel := prefix + id
		for _, dep := range node.Deps() {
			dstLabel := prefix + string(dep)
			_, _ = fmt.Fprintf(b, "%s%s --> %s\n", indent, dstLabel, srcLabel)
		}
	}
}

type instantiateOptions struct {
	// executor runs the node functions of the instance
	executor future.Executor
	// interceptors wrap every node function, outermost first
	interceptors []NodeFuncInterceptor
	// nodeResults presets results for specific nodes, short-circuiting them
	nodeResults map[NodeID]any
}

type InstantiateOption func(*instantiateOptions)

func WithExecutor(executor future.Executor) InstantiateOption {
	return func(opts *instantiateOptions) {
		opts.executor = executor
	}
}

func WithNodeFuncInterceptor(interceptor NodeFuncInterceptor) InstantiateOption {
	return func(opts *instantiateOptions) {
		opts.interceptors = append(opts.interceptors, interceptor)
	}
}

func WithNodeResults(results map[NodeID]any) InstantiateOption {
	return func(opts *instantiateOptions) {
		opts.nodeResults = results
	}
}

// Instantiate binds the frozen DAG to an input value and returns a runnable
// instance. Each instance carries its own promises and may be run once.
func (d *DAG) Instantiate(input any, opts ...InstantiateOption) (*DAGInstance, error) {
	if !d.frozen {
		return nil, ErrDAGNotFrozen
	}

	options := &instantiateOptions{
		executor: executors.GoExecutor{},
	}
	for _, opt := range opts {
		opt(options)
	}

	results := make(map[NodeID]any)
	results[d.entry] = input
	for id, preset := range options.nodeResults {
		results[id] = preset
	}

	nodes := make(map[NodeID]*NodeInstance)
	children := make(map[NodeID][]NodeID)
	for id, spec := range d.nodes {
		spec := spec

		promise := future.NewPromise[any]()
		node := &NodeInstance{
			spec:    spec,
			pending: &atomic.Int32{},
			promise: promise,
			done:    promise.Future(),
		}
		node.pending.Store(int32(len(spec.Deps())))

		run := d.createNodeRunFunc(spec, results, opts)
		for i := len(options.interceptors) - 1; i >= 0; i-- {
			run = options.interceptors[i](run)
		}
		node.run = run

		nodes[id] = node
		for _, dep := range spec.Deps() {
			children[dep] = append(children[dep], id)
		}
	}

	for id, node := range nodes {
		node.children = children[id]
	}

	return &DAGInstance{
		spec:     d,
		nodes:    nodes,
		executor: options.executor,
	}, nil
}

func (d *DAG) createNodeRunFunc(spec Node, results map[NodeID]any, opts []InstantiateOption) NodeFunc {
	preset, ok := results[spec.ID()]
	if ok {
		// preset result, nothing to compute
		return func(_ context.Context, _ map[NodeID]any) (any, error) { return preset, nil }
	}

	switch n := spec.(type) {
	case *EntryNode:
		return func(_ context.Context, _ map[NodeID]any) (any, error) { return results[n.ID()], nil }
	case *SimpleNode:
		return n.run
	case *SubDAGNode:
		return func(ctx context.Context, deps map[NodeID]any) (any, error) {
			var input any = deps
			if n.inputMapping != nil {
				input = n.inputMapping(deps)
			}
			instance, err := n.subDag.Instantiate(input, opts...)
			if err != nil {
				return nil, fmt.Errorf("instantiate sub DAG failed: %w", err)
			}
			results, err := instance.Run(ctx)
			if err != nil {
				return nil, fmt.Errorf("run sub DAG failed: %w", err)
			}
			var output any = results
			if n.outputMapping != nil {
				output = n.outputMapping(results)
			}
			return output, nil
		}
	default:
		panic("should not happen")
	}
}

// NodeInstance is the per-run state of one node. res is written before the
// children's pending counters are decremented, so a child task always
// observes its dependencies' results.
type NodeInstance struct {
	spec Node

	children []NodeID
	pending  *atomic.Int32
	run      NodeFunc
	promise  *future.Promise[any]
	done     *future.Future[any]
	res      result.Result[any]
}

type DAGInstance struct {
	spec  *DAG
	nodes map[NodeID]*NodeInstance

	executor future.Executor
}

// Run executes the instance and blocks for the result map. Skipped nodes are
// omitted; the first node failure fails the run.
func (d *DAGInstance) Run(ctx context.Context) (map[NodeID]any, error) {
	return d.RunAsync(ctx).Get()
}

// RunAsync starts the instance and returns the future of its result map.
// The per-node futures are consumed here; RunAsync must be called at most
// once per instance.
func (d *DAGInstance) RunAsync(ctx context.Context) *future.Future[map[NodeID]any] {
	d.runNode(ctx, d.spec.entry)
	completions := make([]*future.Future[result.Void], 0, len(d.nodes))
	for _, node := range d.nodes {
		completions = append(completions, future.Finally(node.done, func(any, error) {}))
	}
	// the completion futures never fail, so AllOf resolves only after every
	// node finished and all res slots are in place
	agg := future.Then(future.AllOf(completions...),
		func(_ []result.Void, _ error) (map[NodeID]any, error) {
			results := make(map[NodeID]any)
			for id, node := range d.nodes {
				val, err := node.res.Get()
				if err != nil {
					if errors.Is(err, ErrNodeSkipped) {
						continue
					}
					return nil, fmt.Errorf("node %s failed: %w", id, err)
				}
				results[id] = val
			}
			return results, nil
		},
	)
	return future.WithContext(ctx, agg)
}

func (d *DAGInstance) runNode(ctx context.Context, id NodeID) {
	node := d.nodes[id]
	d.executor.Submit(func() {
		var val any
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = routine.NewRecovered(2, r).AsError()
			}
			node.res = result.Of(val, err)
			node.promise.Set(val, err)
			for _, childID := range node.children {
				if d.nodes[childID].pending.Add(-1) == 0 {
					d.runNode(ctx, childID)
				}
			}
		}()

		deps := make(map[NodeID]any)
		for _, depid := range node.spec.Deps() {
			v, derr := d.nodes[depid].res.Get()
			if derr != nil {
				if errors.Is(derr, ErrNodeSkipped) {
					err = ErrNodeSkipped
					return
				}
				err = fmt.Errorf("dep %s failed: %w", depid, derr)
				return
			}
			deps[depid] = v
		}
		val, err = node.run(ctx, deps)
	})
}

// ToMermaid renders the instance's graph as a Mermaid diagram.
func (d *DAGInstance) ToMermaid() string {
	return d.spec.ToMermaid()
}

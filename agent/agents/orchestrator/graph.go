package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/auracx/agent/nodes"
)

const (
	nodeValidateRequest    = "validate_request"
	nodeRedact             = "redact"
	nodeClassify           = "classify"
	nodeRouteDeterministic = "route_deterministic"
	nodeRouteFallback      = "route_fallback"
	nodeAggregate          = "aggregate"
	nodeGenerate           = "generate"
	nodeDone               = "done"
	nodeEscalate           = "escalate"
)

var stateNodes = map[string]string{
	nodex.StateRouteDeterministic: nodeRouteDeterministic,
	nodex.StateRouteFallback:      nodeRouteFallback,
	nodex.StateDone:               nodeDone,
	nodex.StateEscalate:           nodeEscalate,
}

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateRequest, err)
	}

	if err := graph.AddLambdaNode(nodeRedact,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Redact(ctx, in, o.redactor, o.audit)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRedact, err)
	}

	if err := graph.AddLambdaNode(nodeClassify,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Classify(ctx, in, o.classifier, o.registry, o.policy)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeClassify, err)
	}

	if err := graph.AddLambdaNode(nodeRouteDeterministic,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteDeterministic(ctx, in, o.registry, o.agentTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRouteDeterministic, err)
	}

	if err := graph.AddLambdaNode(nodeRouteFallback,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.RouteFallback(ctx, in, o.fallback)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRouteFallback, err)
	}

	if err := graph.AddLambdaNode(nodeAggregate,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Aggregate(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeAggregate, err)
	}

	if err := graph.AddLambdaNode(nodeGenerate,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Generate(ctx, in, o.generator)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeGenerate, err)
	}

	if err := graph.AddLambdaNode(nodeDone,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Done(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeDone, err)
	}

	if err := graph.AddLambdaNode(nodeEscalate,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Escalate(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeEscalate, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateRequest},
		{nodeValidateRequest, nodeRedact},
		{nodeRedact, nodeClassify},
		{nodeRouteDeterministic, nodeAggregate},
		{nodeAggregate, nodeGenerate},
		{nodeRouteFallback, compose.END},
		{nodeDone, compose.END},
		{nodeEscalate, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	branches := []struct {
		from    string
		targets map[string]bool
	}{
		{nodeClassify, map[string]bool{nodeRouteDeterministic: true, nodeRouteFallback: true, nodeEscalate: true}},
		{nodeGenerate, map[string]bool{nodeDone: true, nodeEscalate: true}},
	}
	for _, b := range branches {
		branch := compose.NewGraphBranch(nextNode, b.targets)
		if err := graph.AddBranch(b.from, branch); err != nil {
			return nil, fmt.Errorf("add branch %s: %w", b.from, err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}

func nextNode(_ context.Context, in *nodex.GraphState) (string, error) {
	node, ok := stateNodes[in.Next]
	if !ok {
		return "", fmt.Errorf("no node for router state %q", in.Next)
	}
	return node, nil
}

package service

import (
	"context"
	"strings"

	"github.com/Strob0t/DeskForge/internal/domain/plan"
)

// Executor turns a routed task into an operation plan for its domain. Builders
// validate domain rules and resolve identifiers but never write to the store;
// all mutation goes through the execution engine.
type Executor interface {
	Domain() string
	Build(ctx context.Context, res *RoutingResult) (*plan.Plan, error)
}

// paramString reads a string parameter, trimming whitespace.
func paramString(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return strings.TrimSpace(v)
}

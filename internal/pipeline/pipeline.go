// Package pipeline loads user-defined tasks from an HCL pipeline file. Task
// blocks declare a command to run, fetch blocks declare an artifact download,
// and both may name the tasks that must run first:
//
//	task "docs" {
//	  command    = ["make", "docs"]
//	  dir        = "${project_root}/docs"
//	  depends_on = ["clean"]
//	}
//
//	fetch "schema" {
//	  url  = "https://example.com/schema.json"
//	  dest = "schema/schema.json"
//	}
//
// The project_root and container_root variables from the shared run context
// are available to every expression in the file.
package pipeline

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/taskrig/internal/ctxlog"
	"github.com/vk/taskrig/internal/task"
	"github.com/vk/taskrig/internal/tasks"
)

// fileRoot decodes the top-level blocks of a pipeline file.
type fileRoot struct {
	Tasks   []*taskBlock  `hcl:"task,block"`
	Fetches []*fetchBlock `hcl:"fetch,block"`
	Remain  hcl.Body      `hcl:",remain"`
}

type taskBlock struct {
	Name      string            `hcl:"name,label"`
	Command   []string          `hcl:"command"`
	Dir       string            `hcl:"dir,optional"`
	Env       map[string]string `hcl:"env,optional"`
	DependsOn []string          `hcl:"depends_on,optional"`
}

type fetchBlock struct {
	Name      string   `hcl:"name,label"`
	URL       string   `hcl:"url"`
	Dest      string   `hcl:"dest"`
	DependsOn []string `hcl:"depends_on,optional"`
}

// Load parses a pipeline file and returns its tasks in declaration order,
// ready to register. depends_on may reference other pipeline tasks or any of
// the provided built-in tasks; anything else is a load-time error.
func Load(ctx context.Context, path string, rc *task.RunContext, builtins map[string]task.Task) ([]task.Task, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Pipeline loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", path, diags)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"project_root":   cty.StringVal(rc.ProjectRoot),
			"container_root": cty.StringVal(rc.ContainerRoot),
		},
	}
	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalCtx, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode pipeline file %s: %w", path, diags)
	}

	// First pass: one task per block, rejecting name collisions.
	byName := make(map[string]task.Task)
	var loaded []task.Task
	record := func(name string, t task.Task) error {
		if _, exists := byName[name]; exists {
			return fmt.Errorf("duplicate task '%s' in %s", name, path)
		}
		if _, exists := builtins[name]; exists {
			return fmt.Errorf("task '%s' in %s shadows a built-in task", name, path)
		}
		byName[name] = t
		loaded = append(loaded, t)
		return nil
	}
	for _, block := range root.Tasks {
		if len(block.Command) == 0 {
			return nil, fmt.Errorf("task '%s' in %s has an empty command", block.Name, path)
		}
		cmd := &tasks.Command{
			Name: block.Name,
			Argv: block.Command,
			Dir:  block.Dir,
			Env:  block.Env,
		}
		if err := record(block.Name, cmd); err != nil {
			return nil, err
		}
	}
	for _, block := range root.Fetches {
		f := &tasks.Fetch{
			Name: block.Name,
			URL:  block.URL,
			Dest: block.Dest,
		}
		if err := record(block.Name, f); err != nil {
			return nil, err
		}
	}

	// Second pass: resolve depends_on now that every name is known.
	resolve := func(owner string, deps []string) ([]task.Task, error) {
		required := make([]task.Task, 0, len(deps))
		for _, dep := range deps {
			if t, ok := byName[dep]; ok {
				required = append(required, t)
			} else if builtin, ok := builtins[dep]; ok {
				required = append(required, builtin)
			} else {
				return nil, fmt.Errorf("task '%s' depends on unknown task '%s'", owner, dep)
			}
		}
		return required, nil
	}
	for _, block := range root.Tasks {
		required, err := resolve(block.Name, block.DependsOn)
		if err != nil {
			return nil, err
		}
		byName[block.Name].(*tasks.Command).Requires = required
	}
	for _, block := range root.Fetches {
		required, err := resolve(block.Name, block.DependsOn)
		if err != nil {
			return nil, err
		}
		byName[block.Name].(*tasks.Fetch).Requires = required
	}

	logger.Debug("Pipeline loading complete.", "task_count", len(loaded))
	return loaded, nil
}

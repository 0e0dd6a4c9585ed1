package workflow

import (
	"fmt"
	"maps"
	"slices"
)

// Definition is what a pipeline hands to a Compiler.
type Definition struct {
	Name   string
	Labels map[string]string
	Steps  []Step
}

// Step is one op of a pipeline, with everything its container needs.
type Step struct {
	Name         string
	Dependencies []string
	Container    Container
	Volumes      []Volume
}

// Compiler turns a pipeline definition into a workflow document.
type Compiler interface {
	Compile(def Definition) (*Workflow, error)
}

// ArgoCompiler emits Argo Workflow documents.
type ArgoCompiler struct{}

// NewCompiler returns the default compiler.
func NewCompiler() *ArgoCompiler {
	return &ArgoCompiler{}
}

// Compile emits one container template per step followed by the DAG
// template, which is the entrypoint. The DAG template is named
// "<pipeline>-dag", numbered when a step already uses that name. Step order
// is kept.
// Dependencies are copied as declared; checking them is left to the caller.
func (c *ArgoCompiler) Compile(def Definition) (*Workflow, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("workflow: definition name is required")
	}

	seen := make(map[string]bool, len(def.Steps))
	templates := make([]Template, 0, len(def.Steps)+1)
	tasks := make([]DAGTask, 0, len(def.Steps))
	var volumes []Volume
	volumeNames := make(map[string]bool)

	for _, step := range def.Steps {
		if step.Name == "" {
			return nil, fmt.Errorf("workflow: step name is required in %s", def.Name)
		}
		if seen[step.Name] {
			return nil, fmt.Errorf("workflow: duplicate step %q in %s", step.Name, def.Name)
		}
		seen[step.Name] = true

		container := step.Container
		templates = append(templates, Template{Name: step.Name, Container: &container})
		tasks = append(tasks, DAGTask{
			Name:         step.Name,
			Template:     step.Name,
			Dependencies: slices.Clone(step.Dependencies),
		})

		for _, v := range step.Volumes {
			if volumeNames[v.Name] {
				continue
			}
			volumeNames[v.Name] = true
			volumes = append(volumes, v)
		}
	}

	entrypoint := dagTemplateName(def.Name, seen)
	templates = append(templates, Template{Name: entrypoint, DAG: &DAG{Tasks: tasks}})

	labels := map[string]string{LabelPipeline: def.Name}
	maps.Copy(labels, def.Labels)

	return &Workflow{
		APIVersion: APIVersion,
		Kind:       Kind,
		Metadata: Metadata{
			GenerateName: def.Name + "-",
			Labels:       labels,
		},
		Spec: Spec{
			Entrypoint: entrypoint,
			Templates:  templates,
			Volumes:    volumes,
		},
	}, nil
}

func dagTemplateName(pipeline string, taken map[string]bool) string {
	name := pipeline + "-dag"
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("%s-dag-%d", pipeline, i)
	}
	return name
}

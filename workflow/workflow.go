package workflow

import "slices"

const (
	APIVersion = "argoproj.io/v1alpha1"
	Kind       = "Workflow"

	// LabelPipeline carries the name of the pipeline a workflow was compiled from.
	LabelPipeline = "hypermodel.io/pipeline"
	// LabelExperiment groups deployed workflows by experiment.
	LabelExperiment = "hypermodel.io/experiment"

	AnnotationCron       = "hypermodel.io/cron"
	AnnotationExperiment = "hypermodel.io/experiment"
)

// Workflow is the compiled, engine-facing description of a pipeline.
type Workflow struct {
	APIVersion string   `json:"apiVersion" yaml:"apiVersion"`
	Kind       string   `json:"kind" yaml:"kind"`
	Metadata   Metadata `json:"metadata" yaml:"metadata"`
	Spec       Spec     `json:"spec" yaml:"spec"`
}

// Metadata identifies a workflow.
type Metadata struct {
	GenerateName string            `json:"generateName" yaml:"generateName"`
	Labels       map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Spec lists the templates and names the one to start from.
type Spec struct {
	Entrypoint string     `json:"entrypoint" yaml:"entrypoint"`
	Templates  []Template `json:"templates" yaml:"templates"`
	Volumes    []Volume   `json:"volumes,omitempty" yaml:"volumes,omitempty"`
}

// Template is either a container template (one task body) or a DAG template.
type Template struct {
	Name      string     `json:"name" yaml:"name"`
	Container *Container `json:"container,omitempty" yaml:"container,omitempty"`
	DAG       *DAG       `json:"dag,omitempty" yaml:"dag,omitempty"`
}

// Container describes the process a task runs.
type Container struct {
	Image        string        `json:"image,omitempty" yaml:"image,omitempty"`
	Command      []string      `json:"command,omitempty" yaml:"command,omitempty"`
	Args         []string      `json:"args,omitempty" yaml:"args,omitempty"`
	Env          []EnvVar      `json:"env,omitempty" yaml:"env,omitempty"`
	VolumeMounts []VolumeMount `json:"volumeMounts,omitempty" yaml:"volumeMounts,omitempty"`
}

// EnvVar is one environment variable of a container.
type EnvVar struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// VolumeMount mounts a named volume into a container.
type VolumeMount struct {
	Name      string `json:"name" yaml:"name"`
	MountPath string `json:"mountPath" yaml:"mountPath"`
}

// Volume is a workflow-level volume: an empty dir or a secret.
type Volume struct {
	Name     string        `json:"name" yaml:"name"`
	EmptyDir *EmptyDir     `json:"emptyDir,omitempty" yaml:"emptyDir,omitempty"`
	Secret   *SecretSource `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// EmptyDir is a scratch volume living as long as the task pod.
type EmptyDir struct{}

// SecretSource mounts a secret as a volume.
type SecretSource struct {
	SecretName string `json:"secretName" yaml:"secretName"`
}

// DAG is the task graph of a workflow.
type DAG struct {
	Tasks []DAGTask `json:"tasks" yaml:"tasks"`
}

// DAGTask is one node of the DAG template.
type DAGTask struct {
	Name         string   `json:"name" yaml:"name"`
	Template     string   `json:"template" yaml:"template"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Task is the executor's view of a DAG task: a name and what it waits for.
type Task struct {
	Name         string
	Dependencies []string
}

// DAG returns the first DAG template of the workflow, or nil.
func (w *Workflow) DAG() *DAG {
	for i := range w.Spec.Templates {
		if w.Spec.Templates[i].DAG != nil {
			return w.Spec.Templates[i].DAG
		}
	}
	return nil
}

// Tasks extracts {name, dependencies} pairs from the DAG template in
// document order. A workflow without a DAG template has no tasks.
func (w *Workflow) Tasks() []Task {
	d := w.DAG()
	if d == nil {
		return nil
	}
	tasks := make([]Task, 0, len(d.Tasks))
	for _, t := range d.Tasks {
		tasks = append(tasks, Task{Name: t.Name, Dependencies: slices.Clone(t.Dependencies)})
	}
	return tasks
}

// Template returns the template with the given name.
func (w *Workflow) Template(name string) (*Template, bool) {
	for i := range w.Spec.Templates {
		if w.Spec.Templates[i].Name == name {
			return &w.Spec.Templates[i], true
		}
	}
	return nil, false
}

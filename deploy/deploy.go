package deploy

import (
	"context"
	"time"

	"github.com/kbukum/hypermodel/config"
	"github.com/kbukum/hypermodel/validation"
	"github.com/kbukum/hypermodel/workflow"
)

// Environment selects how a workflow is deployed.
type Environment string

const (
	// EnvDev submits the workflow to run once.
	EnvDev Environment = "dev"
	// EnvProd submits the workflow on its cron schedule when it has one.
	EnvProd Environment = "prod"
)

// Target is the engine endpoint a workflow is deployed to.
type Target struct {
	Host      string `validate:"required,url"`
	ClientID  string
	Namespace string
}

// TargetFromConfig builds a Target from the deploy section of the config.
func TargetFromConfig(cfg config.DeployConfig) Target {
	return Target{Host: cfg.Host, ClientID: cfg.ClientID, Namespace: cfg.Namespace}
}

// Request is one deployment.
type Request struct {
	Pipeline    string             `validate:"required"`
	Workflow    *workflow.Workflow `validate:"required"`
	Environment Environment        `validate:"oneof=dev prod"`
	Target      Target
	// Cron overrides the schedule the workflow was compiled with.
	Cron string
	// Experiment overrides the experiment the workflow was compiled with.
	Experiment string
}

// Validate fills the default namespace and checks the request.
func (r *Request) Validate() error {
	if r.Target.Namespace == "" {
		r.Target.Namespace = config.DefaultNamespace
	}
	if verr := validation.New().Cron("cron", r.Cron).Validate(); verr != nil {
		return verr
	}
	return validation.Validate(r)
}

// Schedule returns the cron schedule of the request, falling back to the
// one the workflow was compiled with.
func (r *Request) Schedule() string {
	if r.Cron != "" || r.Workflow == nil {
		return r.Cron
	}
	return r.Workflow.Metadata.Annotations[workflow.AnnotationCron]
}

// ExperimentName returns the experiment of the request, falling back to the
// one the workflow was compiled with.
func (r *Request) ExperimentName() string {
	if r.Experiment != "" || r.Workflow == nil {
		return r.Experiment
	}
	return r.Workflow.Metadata.Annotations[workflow.AnnotationExperiment]
}

// Submission is the engine's receipt for a deployed workflow.
type Submission struct {
	ID          string
	Name        string
	Pipeline    string
	Environment Environment
	Namespace   string
	Schedule    string
	SubmittedAt time.Time
}

// Deployer submits compiled workflows.
type Deployer interface {
	Deploy(ctx context.Context, req Request) (*Submission, error)
}

// Func adapts a function to the Deployer interface.
type Func func(ctx context.Context, req Request) (*Submission, error)

// Deploy calls f.
func (f Func) Deploy(ctx context.Context, req Request) (*Submission, error) {
	return f(ctx, req)
}

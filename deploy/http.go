package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/hypermodel/errors"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/observability"
	"github.com/kbukum/hypermodel/resilience"
	"github.com/kbukum/hypermodel/workflow"
)

// HeaderClientID carries the client identifier of the deploy target.
const HeaderClientID = "X-Client-Id"

// HTTPDeployer submits workflows to the REST API of an Argo server.
type HTTPDeployer struct {
	client *http.Client
	retry  resilience.RetryConfig
	log    *logger.Logger
	now    func() time.Time
}

// Option configures an HTTPDeployer.
type Option func(*HTTPDeployer)

// WithHTTPClient replaces the HTTP client. A nil client keeps the default.
func WithHTTPClient(c *http.Client) Option {
	return func(d *HTTPDeployer) {
		if c != nil {
			d.client = c
		}
	}
}

// WithTimeout bounds every request to the engine. The client is copied so a
// caller-supplied client is left untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(d *HTTPDeployer) {
		if timeout <= 0 {
			return
		}
		c := http.Client{}
		if d.client != nil {
			c = *d.client
		}
		c.Timeout = timeout
		d.client = &c
	}
}

// WithRetry replaces the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(d *HTTPDeployer) { d.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *HTTPDeployer) { d.log = l }
}

// NewHTTPDeployer creates a deployer with the default retry policy.
func NewHTTPDeployer(opts ...Option) *HTTPDeployer {
	d := &HTTPDeployer{
		client: &http.Client{Timeout: 30 * time.Second},
		retry:  resilience.DefaultRetryConfig(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get("deploy")
	}
	return d
}

type workflowEnvelope struct {
	Namespace string             `json:"namespace"`
	Workflow  *workflow.Workflow `json:"workflow"`
}

type cronEnvelope struct {
	Namespace    string       `json:"namespace"`
	CronWorkflow cronWorkflow `json:"cronWorkflow"`
}

type cronWorkflow struct {
	APIVersion string            `json:"apiVersion"`
	Kind       string            `json:"kind"`
	Metadata   workflow.Metadata `json:"metadata"`
	Spec       cronSpec          `json:"spec"`
}

type cronSpec struct {
	Schedule     string        `json:"schedule"`
	WorkflowSpec workflow.Spec `json:"workflowSpec"`
}

type receipt struct {
	Metadata struct {
		Name string `json:"name"`
		UID  string `json:"uid"`
	} `json:"metadata"`
}

// Deploy validates req and submits its workflow. Production requests with a
// schedule are submitted as cron workflows.
func (d *HTTPDeployer) Deploy(ctx context.Context, req Request) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanDeploy)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrPipeline, req.Pipeline),
		attribute.String("deploy.environment", string(req.Environment)),
		attribute.String("deploy.namespace", req.Target.Namespace),
	)

	schedule := ""
	if req.Environment == EnvProd {
		schedule = req.Schedule()
	}
	url, body, err := d.encode(req, schedule)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}

	log := d.log.WithContext(ctx).WithFields(logger.Fields(
		logger.FieldPipeline, req.Pipeline,
		"environment", string(req.Environment),
		"namespace", req.Target.Namespace,
	))

	cfg := d.retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("deploy attempt failed, retrying", logger.Fields("attempt", attempt, logger.FieldError, err.Error(), "backoff_ms", wait.Milliseconds()))
	}
	rec, err := resilience.Retry(ctx, cfg, func() (*receipt, error) {
		return d.post(ctx, url, req.Target.ClientID, body)
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Error("deploy failed", logger.Fields(logger.FieldError, err.Error()))
		return nil, err
	}

	sub := &Submission{
		ID:          rec.Metadata.UID,
		Name:        rec.Metadata.Name,
		Pipeline:    req.Pipeline,
		Environment: req.Environment,
		Namespace:   req.Target.Namespace,
		Schedule:    schedule,
		SubmittedAt: d.now(),
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("deploy.submission_id", sub.ID))
	log.Info("workflow deployed", logger.Fields("submission_id", sub.ID, "name", sub.Name, "schedule", schedule))
	return sub, nil
}

// encode builds the endpoint and body for req. The workflow is copied so
// that the caller's document keeps its labels.
func (d *HTTPDeployer) encode(req Request, schedule string) (string, []byte, error) {
	wf := *req.Workflow
	wf.Metadata.Labels = maps.Clone(wf.Metadata.Labels)
	if wf.Metadata.Labels == nil {
		wf.Metadata.Labels = make(map[string]string)
	}
	if exp := req.ExperimentName(); exp != "" {
		wf.Metadata.Labels[workflow.LabelExperiment] = exp
	}

	base := strings.TrimRight(req.Target.Host, "/")
	ns := req.Target.Namespace

	var (
		url     string
		payload any
	)
	if schedule != "" {
		url = fmt.Sprintf("%s/api/v1/cron-workflows/%s", base, ns)
		payload = cronEnvelope{Namespace: ns, CronWorkflow: cronWorkflow{
			APIVersion: wf.APIVersion,
			Kind:       "CronWorkflow",
			Metadata:   wf.Metadata,
			Spec:       cronSpec{Schedule: schedule, WorkflowSpec: wf.Spec},
		}}
	} else {
		url = fmt.Sprintf("%s/api/v1/workflows/%s", base, ns)
		payload = workflowEnvelope{Namespace: ns, Workflow: &wf}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, errors.Internal(err)
	}
	return url, body, nil
}

func (d *HTTPDeployer) post(ctx context.Context, url, clientID string, body []byte) (*receipt, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.InvalidInput("host", err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if clientID != "" {
		httpReq.Header.Set(HeaderClientID, clientID)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.ConnectionFailed("workflow engine").WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ConnectionFailed("workflow engine").WithCause(err)
	}
	if appErr := classifyStatus(resp.StatusCode, respBody); appErr != nil {
		return nil, appErr
	}

	var rec receipt
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &rec); err != nil {
			d.log.Warn("unreadable deploy receipt", logger.Fields(logger.FieldError, err.Error()))
		}
	}
	return &rec, nil
}

// classifyStatus maps an engine response status onto an AppError.
// 429 and 5xx answers are retryable, other 4xx answers are not.
func classifyStatus(status int, body []byte) *errors.AppError {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	cause := fmt.Errorf("workflow engine answered HTTP %d: %s", status, msg)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		appErr := errors.ExternalServiceError("workflow engine", cause).WithDetail("status", status)
		appErr.Retryable = false
		appErr.HTTPStatus = status
		return appErr
	case status == http.StatusNotFound:
		return errors.NotFound("namespace", "").WithCause(cause).WithDetail("status", status)
	case status == http.StatusTooManyRequests || status >= 500:
		return errors.ExternalServiceError("workflow engine", cause).WithDetail("status", status)
	default:
		appErr := errors.InvalidInput("workflow", cause.Error()).WithCause(cause).WithDetail("status", status)
		return appErr
	}
}

// Package deploy hands compiled workflows to a remote orchestration engine.
//
// A Deployer submits a workflow and returns once the engine accepted it;
// scheduling and status tracking stay with the engine. HTTPDeployer talks
// to an Argo server: development deployments are submitted as one-off
// workflows, production deployments with a cron schedule become cron
// workflows.
//
//	d := deploy.NewHTTPDeployer(deploy.WithTimeout(cfg.Deploy.Timeout))
//	sub, err := d.Deploy(ctx, deploy.Request{
//	    Pipeline:    p.Name(),
//	    Workflow:    p.Workflow(),
//	    Environment: deploy.EnvProd,
//	    Target:      deploy.TargetFromConfig(cfg.Deploy),
//	    Cron:        p.Cron(),
//	})
package deploy

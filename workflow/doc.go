// Package workflow holds the compiled form of a pipeline: an Argo-style
// Workflow document with one container template per task and one DAG
// template wiring the tasks together.
//
//	wf, err := workflow.NewCompiler().Compile(workflow.Definition{
//	    Name: "titanic",
//	    Steps: []workflow.Step{
//	        {Name: "create-training", Container: c},
//	        {Name: "train-model", Dependencies: []string{"create-training"}, Container: c},
//	    },
//	})
//	tasks := wf.Tasks() // [{create-training []} {train-model [create-training]}]
//	err = workflow.WriteFile("titanic.yaml", wf)
package workflow

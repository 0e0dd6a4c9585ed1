// Package dag models named tasks and the dependencies between them.
//
// A Graph keeps insertion order, so levels, topological orders and cycle
// witnesses are deterministic for the same sequence of Add calls.
//
//	g := dag.New()
//	_ = g.Add("create-training")
//	_ = g.Add("create-test")
//	_ = g.Add("train-model", "create-training", "create-test")
//	levels, err := dag.BuildLevels(g) // [[create-training create-test] [train-model]]
//
// The Engine runs a graph of Nodes level by level, with the nodes of one
// level running concurrently.
package dag

// Package stategraph runs small agent workflows as typed state graphs.
//
// A workflow is a set of named nodes over one state struct. Each node returns
// a partial update that is merged into the state, and edges, fixed or routed
// on the merged state, pick the next node until a route reaches END.
//
// # Packages
//
//   - graph: the builder, the executor, tracing and diagram export
//   - prebuilt: the research, writer and supervisor article workflow
//   - llm: text generation over langchaingo (ollama) and go-openai
//   - store: the step journal with memory, redis, sqlite and postgres backends
//   - metrics: Prometheus metrics fed from trace spans
//   - config: YAML and environment settings for the stategraph command
//   - log: the logger interface and its golog implementation
//
// # Quick Start
//
//	generator, _ := llm.NewOllama("llama3.1:8b", "")
//
//	workflow, err := prebuilt.CreateArticleWorkflow(prebuilt.ArticleConfig{
//		Generator: generator,
//	})
//	if err != nil {
//		return err
//	}
//
//	state, err := workflow.Invoke(ctx, prebuilt.NewArticleState("Games using AI for NPC behavior"))
//	if err != nil {
//		return err
//	}
//	fmt.Println(state.Document, state.RevisionCount)
//
// The stategraph command wraps the same workflow:
//
//	stategraph run "Games using AI for NPC behavior"
//	stategraph graph --output architecture.md
//	stategraph serve --journal sqlite
package stategraph

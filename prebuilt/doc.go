// Package prebuilt provides ready-to-use workflows built on the graph package.
//
// CreateArticleWorkflow wires three agents around an ArticleState. The
// research agent turns a topic into notes, the writer drafts an article from
// the notes, and the supervisor sends the draft back to the writer until it
// reaches the word threshold:
//
//	workflow, err := prebuilt.CreateArticleWorkflow(prebuilt.ArticleConfig{
//		Generator:     generator,
//		WordThreshold: 200,
//	})
//	if err != nil {
//		return err
//	}
//	final, err := workflow.Invoke(ctx, prebuilt.NewArticleState("Procedural level design"))
//
// Generation failures abort the run as a graph.NodeError wrapping the
// llm.GenerationError. Set ArticleConfig.Retry to retry them inside the node.
package prebuilt

/*
Package intake runs multi-turn, guided health-intake dialogues.

A conversation is a directed graph of question nodes. Each turn, the engine
runs the node's optional controller hooks to extract structured data from
the answer, analyzes the accumulated context with a deterministic reasoning
engine that scores symptoms and detects red flags, generates (or overrides)
the response text, logs the step, and routes to the next node. High-severity
red flags escalate the conversation onto urgent paths and are recorded in
the subject's health record.

Basic usage:

	eng, err := intake.New("graphs/intake.yaml",
		intake.WithStore(redisstore),
		intake.WithGenerator(openaigen),
	)
	if err != nil {
		log.Fatal(err)
	}

	start, err := eng.StartSession(ctx, "subject-42")
	// show start.Prompt, then for each user message:
	result, err := eng.ProcessTurn(ctx, start.SessionID, userInput)

See pkg/ports for the collaborator interfaces and pkg/adapters for the
bundled Redis, OpenAI, HTTP, and MCP implementations.
*/
package intake

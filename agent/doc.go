// Package agent implements the perpetual agent loop: a single-threaded
// controller that fulfills a natural-language request one tool call at a
// time.
//
// Each step runs through the same stages:
//
//	Planning -> Selecting -> [Synthesizing] -> Extracting -> Confirming -> Executing -> Naturalizing -> Appending
//
// The Planner proposes one imperative action. The loop asks the tool
// registry for the nearest installed tool; below the similarity threshold
// the Synthesizer has the model write a new one, which is installed only
// after it ran successfully. The Extractor forces the model to call the
// tool and validates the arguments against the tool's schema, the approver
// confirms the call, and the Naturalizer turns the raw result into the
// sentence the history keeps. The session ends when the planner replies
// with Fulfilled or the finalize tool succeeds.
//
// # Basic Usage
//
//	client := llm.New(llm.Config{Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small", APIKeys: keys})
//	registry, err := tool.Open(ctx, "tools", client)
//	if err != nil {
//	    return err
//	}
//	defer registry.Close()
//
//	term := agent.NewTerminal(os.Stdin, os.Stdout)
//	loop := agent.New(client, registry,
//	    agent.WithApprover(term.Approver()),
//	    agent.WithStepMemory(100),
//	)
//	result, err := loop.Run(ctx, "What is 2 + 3 * 4?")
//	if err != nil {
//	    return err // the operator abandoned a failing model call
//	}
//	fmt.Println(result.Response)
//
// # History
//
// The history holds one user message (the step) and one assistant message
// (its result) per step and keeps the most recent step memory of them.
// Failed steps are recorded like any other, with a result starting with
// "Failed:", so the planner can react to them.
//
// # Events
//
// WithOnEvent receives events synchronously and in loop order, which lets a
// terminal front-end print each stage as it happens.
package agent

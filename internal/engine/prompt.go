/*
PURPOSE:
  Builds chatml-style prompts for the two-turn replay protocol.

REQUIREMENTS:
  User-specified:
  - Turn 1: the first user utterance wrapped in role markers, ending with an
    open assistant marker for the server to continue.
  - Turn 2: reconstructed full context: raw question 1, the turn-1 generated
    answer, raw question 2, each role-tagged, ending with an open assistant
    marker.
  - The reconstruction must always carry forward the ORIGINAL raw user text
    for both turns. An earlier revision reused an already-formatted turn-1
    prompt string here and double-wrapped it; keep the raw utterances as the
    single source of truth.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go

ERROR HANDLING:
  - None (pure string building).

IMPLEMENTATION RULES:
  - The marker layout matches what llama.cpp's chatml template emits; the
    stop sequences in client.go depend on it.

USAGE:
  p1 := engine.FirstTurnPrompt(q1)
  p2 := engine.SecondTurnPrompt(q1, answer1, q2)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/client.go

MAINTENANCE:
  - A non-chatml template family would need its own marker set here.
*/

package engine

import "fmt"

// FirstTurnPrompt wraps the opening user utterance in chatml role markers,
// leaving the assistant turn open.
func FirstTurnPrompt(question string) string {
	return fmt.Sprintf("<|im_start|>user\n%s<|im_end|>\n<|im_start|>assistant\n", question)
}

// SecondTurnPrompt rebuilds the full two-turn context from the raw source
// utterances and the turn-1 answer.
func SecondTurnPrompt(question1, answer1, question2 string) string {
	return fmt.Sprintf(
		"<|im_start|>user\n%s<|im_end|>\n<|im_start|>assistant\n%s<|im_end|>\n<|im_start|>user\n%s<|im_end|>\n<|im_start|>assistant\n",
		question1, answer1, question2,
	)
}

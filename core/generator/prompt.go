package generator

import "fmt"

// The structured-output instruction is fixed; every attempt in a run uses the
// same prompt so rows differ only by model sampling.
const instruction = `You produce synthetic training data. Given the source text below,
invent ONE synthetic question-and-answer record inspired by it. The record must not
reproduce the source text verbatim. Respond with a single JSON object and nothing
else, using exactly these keys:
  "question": a question a researcher could ask about this kind of content
  "answer": a plausible synthetic answer
  "category": a one-or-two-word topic label`

func buildPrompt(inputText string) string {
	return fmt.Sprintf("%s\n\nSource text:\n%s", instruction, inputText)
}

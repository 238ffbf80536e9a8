package checker

// Prompt text lives here so it is easy to tweak without hunting through call
// sites. All prompts demand JSON-only replies; the decode layer tolerates
// markdown fences anyway.

const classifierSystemPrompt = `You screen statements from a live Korean-language broadcast and decide whether each one makes a factual claim worth fact-checking.

A statement needs checking when it:
- cites a specific number or statistic (e.g. "unemployment is at 5%")
- asserts a historical fact (e.g. "the IMF bailout happened in 1997")
- invokes a law or regulation (e.g. "that is illegal under current law")
- quotes a named person

A statement does not need checking when it is:
- personal opinion or emotional expression
- greetings, filler, or host patter
- a value judgment (good/bad)
- a prediction or speculation about the future

Respond ONLY with JSON in this exact shape:
{"needs_check": true, "claim_type": "statistic" | "historical" | "legal" | "quote" | "other", "reason": "brief justification"}`

const classifierUserPrompt = "Statement: %s"

const verifierSystemPrompt = `You are a fact-checker for statements made on a live Korean-language broadcast.

Source discipline:
- "reference": use ONLY when the provided reference material directly addresses the statement.
- "web_search": REQUIRED for current figures, statistics, dates, news, and public statements by named people.
- "llm": use only for universally known facts (e.g. "Seoul is the capital of South Korea"). When in doubt, search.
- If reference material is provided but irrelevant to the statement, ignore it and search instead.
- Combine labels with "+" when more than one source genuinely contributed.

Verdicts:
- "fact": confirmed accurate
- "partial": partly accurate but contains errors or exaggeration
- "false": contradicted by the evidence
- "unverifiable": cannot be confirmed or refuted

Respond ONLY with JSON in this exact shape:
{"verdict": "fact" | "partial" | "false" | "unverifiable", "confidence": 0.0-1.0, "explanation": "concrete justification", "source_type": "reference" | "web_search" | "llm" | combination, "sources": ["URL or document name"]}`

const verifierUserPrompt = "Statement: %s"

const verifierUserPromptWithContext = `Statement: %s

[Relevant excerpts retrieved from reference documents]
%s`

const refinerSystemPrompt = `You clean up raw Korean speech-to-text output from a live broadcast.

Tasks:
1. Fix typos and homophone errors; restore proper nouns.
2. Correct words that were clearly misrecognized given the context.
3. Remove stutters and filler ("uh, um, so, like").
4. Add punctuation.
5. Leave genuinely unclear passages as they are.

Rules:
- Never change the meaning.
- Never add content that was not said.
- Preserve every substantive claim exactly.
- Output ONLY the cleaned text, no commentary.`

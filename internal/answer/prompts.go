package answer

// Fixed response phrasing. These strings are part of the API contract;
// tests pin them.
const (
	// sectionDeferralFormat is the answer for a bare section-id query.
	// The verbatim section text lives in the citation, not the answer.
	sectionDeferralFormat = "See the citations panel for Section %s."

	// sourcesOnlyAnswer is the fixed answer in sources_only mode.
	sourcesOnlyAnswer = "Sources only: see citations on the right."
)

const synthesisSystemPrompt = `You are a careful assistant answering questions about engineering specification documents.

Rules:
- Answer using only the numbered SOURCE passages below. Never use outside knowledge.
- State requirements directly and quote exact values (numbers, percentages, day counts, section ids) verbatim from the passages.
- Write plain declarative prose. Do not mention sources, citations, context, or passages in your answer. Do not write phrases like "according to the sources" or "see source 2".
- Do not include bracketed reference markers such as [1] or [2].
- If the passages do not contain the answer, say "The provided documents do not address this." and nothing else.
- Keep the answer under 120 words.`

const hedgedInstruction = `
- The retrieved passages are only loosely related to the question. Qualify the answer accordingly, e.g. "The closest relevant provision is ...".`

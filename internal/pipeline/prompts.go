package pipeline

// NoContextMarker is the canonical context rendered when retrieval was
// bypassed or found nothing, so the generation prompt keeps a fixed shape.
const NoContextMarker = "No relevant context was found in the ingested documents."

const preprocessPromptTemplate = `Given the user's query and the chat history, perform two tasks:

1. Rephrase the user's latest query into a concise, self-contained question
   optimized for semantic search over a document corpus. Resolve pronouns and
   references using the chat history. If the query mentions a table by name or
   number (e.g. "Table A.1"), include that exact identifier in the rephrased
   query.
2. Decide whether answering requires searching the ingested documents at all.
   Greetings, small talk and questions about this assistant itself do not.

Chat history:
%s

User's latest query: %s

Respond with a JSON object only, no prose:
{"retrieval_query": "...", "requires_documents": true}`

const answerFromDocsPromptTemplate = `You are a helpful assistant answering questions about a corpus of ingested documents.
Answer the user's query based ONLY on the provided context. If the information
is not in the context, clearly say that the documents do not contain it. Do not
use outside knowledge.

For every piece of information taken from the context, cite it inline as:
[Source: <document>, Page: <page>]

User query: %s

Chat history (for reference):
%s

Context from documents:
---BEGIN DOCUMENT CONTEXT---
%s
---END DOCUMENT CONTEXT---

Answer:`

const generalAnswerPromptTemplate = `You are a helpful assistant for a document question-answering system.
The user's message does not require document lookup. Reply conversationally.

Chat history (for reference):
%s

User message: %s

Reply:`

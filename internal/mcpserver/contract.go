package mcpserver

// SuggestionTaxonomy describes the organization suggestions Ordna surfaces
// and what accepting each one does. Exposed as an MCP resource so LLM
// consumers can explain a suggestion to the user before responding to it.
const SuggestionTaxonomy = `# Ordna Suggestion Taxonomy

Ordna surfaces at most one organization suggestion per conversation at a
time. A surfaced suggestion expires on its own after a short window; an
expired suggestion counts as an implicit dismissal and does not affect
learned preferences.

## Types

| Type | When it appears | On accept |
|------|-----------------|-----------|
| create_project | A conversation shows sustained project-level complexity and matches no existing project | A new project is created and the conversation moves into it |
| add_to_existing_project | A conversation's topic overlaps an existing project's title or description | The conversation moves into that project |
| graduate_to_project | A conversation is developing toward project complexity | The conversation becomes a project |
| split_conversation | The recent messages shifted to a different topic than the rest | The trailing messages are split into a fresh conversation |
| tag_conversation | A lightweight topic label is worth recording | The label is kept; nothing moves |

Knowledge items can also graduate. A chat-scoped item that is referenced
from enough conversations with high relevance becomes eligible, and Ordna
surfaces an ambient graduate_to_project suggestion for it. Promotion to
project level only happens on explicit confirmation.

## Responding

Use the respond_suggestion tool with the conversation ID and the active
suggestion's ID. Accepting applies the action above; dismissing records
the dismissal so similar suggestions are offered less eagerly.
`

package gemini

// defaultPromptTemplate is the built-in extraction prompt. It can be
// overridden with LLMConfig.PromptTemplatePath.
//
// The template receives a promptData value. The response contract is JSON
// so the parser never has to guess at list markers.
const defaultPromptTemplate = `You are an assistant analyzing a conversation between a development studio and its clients.
Your job: read all client messages in the batch below and extract concrete, actionable tasks or development requests.

Rules:
1. Analyze the whole conversation context, not each message in isolation.
2. Extract only clear tasks and technical requirements.
3. Ignore greetings, thanks, and general chatter.
4. Merge related requests into one task when they concern the same feature.
5. Phrase each task briefly and clearly.
6. If there are no tasks, return an empty task list.

Each message line is prefixed with its numeric message id in square brackets.
For every task, list the ids of the messages that contributed to it.

Respond with JSON only, no code fences, in exactly this shape:
{"tasks": [{"text": "...", "source_message_ids": [1, 2]}]}

Client messages:
{{.MessagesContext}}
`

// promptData is the data passed to the prompt template.
type promptData struct {
	MessagesContext string
}

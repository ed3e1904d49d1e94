// Package prompt builds the system and user messages for every model call the
// pipeline makes.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/bshr/internal/domain"
)

// NoContent stands in for an absent condensation or hypothesis.
const NoContent = "(no content)"

const (
	brainstormSystem = "You are a search engine optimization expert. " +
		"Produce exactly <number> web search queries for the given topic, one per line. " +
		"Cover the topic broadly and include counterfactual angles. " +
		"Write only the queries."

	hypothesizeSystem = "Using the supplied search material, state a hypothesis that answers the main question."

	condenseSystem = "You distill information for downstream language models. " +
		"Reduce the content to short factual statements that keep its core ideas."

	yesNoSystem = "You are a binary validator. Answer with 'yes' or 'no' only."

	refineSystem = "You refine information for downstream language models. " +
		"Merge the two hypotheses into a single answer that is more complete and more accurate than either."

	respondSystem = "You are a knowledgeable assistant. " +
		"Write an informative, substantial answer from the context and the proposed answer cues."
)

// Render returns t's value, or NoContent when t is absent.
func Render(t domain.Text) string {
	return t.OrElse(NoContent)
}

// Brainstorm asks for n search queries about topic.
func Brainstorm(topic string, n int) domain.CompletionRequest {
	return domain.CompletionRequest{
		System: strings.ReplaceAll(brainstormSystem, "<number>", strconv.Itoa(n)),
		User:   fmt.Sprintf("Brainstorm %d search queries for the topic: %s.", n, topic),
	}
}

// Condense asks for a distilled version of content in light of topic.
func Condense(content domain.Text, topic string) domain.CompletionRequest {
	return domain.CompletionRequest{
		System: condenseSystem,
		User:   fmt.Sprintf("TOPIC: %s\nCONTENT: %s\nCONDENSED:", topic, Render(content)),
	}
}

// Relevance asks whether content is relevant to query within topic.
func Relevance(content domain.Text, query, topic string) domain.CompletionRequest {
	return domain.CompletionRequest{
		System: yesNoSystem,
		User: fmt.Sprintf("Is the content below relevant to the query '%s' of topic '%s'?\n'%s'",
			query, topic, Render(content)),
	}
}

// Hypothesize asks for a hypothesis answering topic from content.
func Hypothesize(content domain.Text, topic string) domain.CompletionRequest {
	return domain.CompletionRequest{
		System: hypothesizeSystem,
		User: fmt.Sprintf("Formulate a hypothesis that answers '%s' from these search results:\n%s",
			topic, Render(content)),
	}
}

// Refine asks to merge two hypotheses into a stronger one.
func Refine(a, b domain.Text, topic string) domain.CompletionRequest {
	return domain.CompletionRequest{
		System: refineSystem,
		User: fmt.Sprintf("The current inquiry is '%s'. Refine and merge the following hypotheses "+
			"into a superior hypothesis:\n1. %s\n2. %s", topic, Render(a), Render(b)),
	}
}

// QuestionContext is the context handed to the responder for topic.
func QuestionContext(topic string) string {
	return "Question: " + topic
}

// Respond asks for the final answer given the question context and the winning hypothesis.
func Respond(context string, winner domain.Text) domain.CompletionRequest {
	return domain.CompletionRequest{
		System: respondSystem,
		User: fmt.Sprintf("%s\n\nAnswer cues: %s\n\nGive an elaborate answer. Use the answer cues "+
			"to write an information-rich, comprehensive response for the end user.", context, Render(winner)),
	}
}

package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"tempus/internal/model"
)

// GenerationError means the model produced nothing usable. Publish pipelines
// treat it as a failed attempt, not a crash.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// tonePrompts sets the generated voice. Keys follow model.Tone.
var tonePrompts = map[model.Tone]string{
	model.ToneProfessional: "You write polished, credible posts for a professional audience. No hashtag spam, no exclamation marks, no emoji.",
	model.ToneCasual:       "You write relaxed, conversational posts like a friend sharing something interesting. Contractions are fine, light humor is fine.",
	model.ToneViral:        "You write punchy, attention-grabbing posts built to be shared. Strong hooks, short sentences, one idea per post.",
	model.ToneThoughtLeadership: "You write insightful posts that stake out a clear point of view and invite discussion. Back claims with reasoning, not hype.",
}

// angles rotate across a campaign so consecutive posts on one topic do not
// read the same.
var angles = []string{
	"a practical tip or piece of actionable advice",
	"a common misconception and why it is wrong",
	"an interesting fact, statistic, or data point",
	"a question that sparks discussion",
	"a prediction or emerging trend",
	"a lesson learned the hard way",
}

// openingBans rotate alongside angles to break repeated sentence shapes.
var openingBans = []string{
	"Do not start with a question.",
	"Do not start with 'Most people'.",
	"Do not start with a number.",
	"Do not start with 'I'.",
}

// Generator produces post and reply text through an OpenAI-compatible chat
// endpoint.
type Generator interface {
	GenerateTweet(ctx context.Context, req TweetRequest) (string, error)
	DraftReply(ctx context.Context, req ReplyRequest) (string, error)
}

type Client struct {
	api   *openai.Client
	model string
}

// New builds a client for any OpenAI-compatible endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: modelName}
}

// TweetRequest describes one post to generate.
type TweetRequest struct {
	Topic        string
	Tone         model.Tone
	Research     string
	Previous     []string
	Instructions string
	CharLimit    int
	// Sequence picks the angle and opening rotation slot, usually the post's
	// position within its campaign.
	Sequence int
}

// GenerateTweet produces one post within the character limit.
func (c *Client) GenerateTweet(ctx context.Context, req TweetRequest) (string, error) {
	limit := req.CharLimit
	if limit <= 0 {
		limit = 280
	}
	system, ok := tonePrompts[req.Tone]
	if !ok {
		system = tonePrompts[model.ToneCasual]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write a single post about: %s\n", req.Topic)
	fmt.Fprintf(&b, "Focus on %s. %s\n", angles[req.Sequence%len(angles)], openingBans[req.Sequence%len(openingBans)])
	fmt.Fprintf(&b, "Hard limit: %d characters. Output only the post text, no quotes, no preamble.\n", limit)
	if req.Research != "" {
		fmt.Fprintf(&b, "\nRecent context you may draw on:\n%s\n", req.Research)
	}
	if len(req.Previous) > 0 {
		b.WriteString("\nAlready posted in this series, do not repeat these:\n")
		for _, p := range req.Previous {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if req.Instructions != "" {
		fmt.Fprintf(&b, "\nAdditional instructions: %s\n", req.Instructions)
	}
	text, err := c.chat(ctx, system, b.String())
	if err != nil {
		return "", &GenerationError{Stage: "tweet", Err: err}
	}
	text = Clean(text)
	if text == "" {
		return "", &GenerationError{Stage: "tweet", Err: fmt.Errorf("empty completion")}
	}
	return Truncate(text, limit), nil
}

// ReplyRequest describes one reply to draft against a discovered tweet.
type ReplyRequest struct {
	TweetContent string
	TweetAuthor  string
	Keywords     []string
	Guidelines   []string
	CustomPrompt string
	CharLimit    int
}

// DraftReply produces a reply that adds to the conversation rather than
// advertising.
func (c *Client) DraftReply(ctx context.Context, req ReplyRequest) (string, error) {
	limit := req.CharLimit
	if limit <= 0 {
		limit = 280
	}
	system := "You write brief, genuine replies on social media. Add value to the conversation. Never sound like a bot, never pitch anything."
	if req.CustomPrompt != "" {
		system = req.CustomPrompt
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Reply to this post by @%s:\n%s\n", req.TweetAuthor, req.TweetContent)
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "\nOur niche: %s\n", strings.Join(req.Keywords, ", "))
	}
	if len(req.Guidelines) > 0 {
		b.WriteString("\nGuidelines:\n")
		for _, g := range req.Guidelines {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	}
	fmt.Fprintf(&b, "\nHard limit: %d characters. Output only the reply text.\n", limit)
	text, err := c.chat(ctx, system, b.String())
	if err != nil {
		return "", &GenerationError{Stage: "reply", Err: err}
	}
	text = Clean(text)
	if text == "" {
		return "", &GenerationError{Stage: "reply", Err: fmt.Errorf("empty completion")}
	}
	return Truncate(text, limit), nil
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Clean strips the wrapping junk chat models like to add: code fences,
// surrounding quotes, leading labels.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 && !strings.Contains(s[:i], " ") {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// Truncate cuts s to limit runes, ending with an ellipsis at a word boundary
// when possible.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	if limit <= 3 {
		// No room for an ellipsis.
		return string(r[:limit])
	}
	cut := string(r[:limit-3])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return cut + "..."
}

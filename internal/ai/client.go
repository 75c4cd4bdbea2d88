// Package ai asks an OpenAI compatible chat model the questions the development backend needs answered.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/sashabaranov/go-openai"
)

const MaxTokens = 1024

// Client wraps the chat completion API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a client for apiKey. An empty baseURL uses the OpenAI API.
func NewClient(apiKey string, baseURL string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  openai.GPT3Dot5Turbo,
	}
}

// Answer is a model's reply to a search query together with the domains it drew from.
type Answer struct {
	Text    string
	Sources []string
}

// SyncCompletion returns the content of the first choice.
func (c *Client) SyncCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     c.model,
			MaxTokens: MaxTokens,
			Messages:  messages,
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("model", c.model))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion without choices", slog.String("model", c.model))
	}
	return completion.Choices[0].Message.Content, nil
}

func system(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content}
}

func user(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}
}

// GenerateQueries proposes questions a shopper might ask an AI assistant when looking for what brand sells.
func (c *Client) GenerateQueries(ctx context.Context, brand models.BrandInput, count int) ([]string, error) {
	prompt := fmt.Sprintf(
		"Write %d questions a shopper could ask an AI assistant when looking for products related to: %s. "+
			"Do not mention any brand. Answer with one question per line and nothing else.",
		count, strings.Join(brand.KeywordList(), ", "))
	content, err := c.SyncCompletion(ctx, []openai.ChatCompletionMessage{
		system("You help e-commerce brands understand how shoppers search."),
		user(prompt),
	})
	if err != nil {
		return nil, errors.Wrap(err, "generate queries")
	}
	queries := listItems(content)
	if len(queries) > count {
		queries = queries[:count]
	}
	return queries, nil
}

const sourcesPrefix = "sources:"

// Answer replies to query the way a shopping assistant would, ranking concrete brands and naming sources.
func (c *Client) Answer(ctx context.Context, query string) (Answer, error) {
	content, err := c.SyncCompletion(ctx, []openai.ChatCompletionMessage{
		system("You are a shopping assistant. Recommend concrete brands as a numbered list, best first. " +
			"Finish with a line starting with 'Sources:' followed by the comma-separated domains you relied on."),
		user(query),
	})
	if err != nil {
		return Answer{}, errors.Wrap(err, "answer query")
	}
	return parseAnswer(content), nil
}

// Recommendations suggests how brand could appear in answers to query.
func (c *Client) Recommendations(ctx context.Context, brand models.BrandInput, query string) ([]string, error) {
	prompt := fmt.Sprintf(
		"The brand %q (%s) wants AI assistants to recommend it when shoppers ask %q. "+
			"Give three short, concrete recommendations, one per line and nothing else.",
		brand.Name, models.BareDomain(brand.Domain), query)
	content, err := c.SyncCompletion(ctx, []openai.ChatCompletionMessage{
		system("You are a marketing consultant specialising in generative engine optimisation."),
		user(prompt),
	})
	if err != nil {
		return nil, errors.Wrap(err, "generate recommendations")
	}
	return listItems(content), nil
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// listItems returns the non-blank lines of content without list markers.
func listItems(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func parseAnswer(content string) Answer {
	var (
		text    []string
		sources []string
	)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), sourcesPrefix) {
			for _, s := range strings.Split(trimmed[len(sourcesPrefix):], ",") {
				if s = strings.TrimSpace(s); s != "" {
					sources = append(sources, s)
				}
			}
			continue
		}
		text = append(text, line)
	}
	return Answer{Text: strings.TrimSpace(strings.Join(text, "\n")), Sources: sources}
}

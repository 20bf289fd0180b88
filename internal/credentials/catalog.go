package credentials

import (
	"fmt"
	"strings"
)

type Provider string

const (
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
	Google    Provider = "google"
	Cohere    Provider = "cohere"
)

// Providers lists every provider the credential store accepts, in display order.
var Providers = []Provider{OpenAI, Anthropic, Google, Cohere}

func (p Provider) String() string {
	return string(p)
}

// Label returns a human readable provider name.
func (p Provider) Label() string {
	switch p {
	case OpenAI:
		return "OpenAI"
	case Anthropic:
		return "Anthropic"
	case Google:
		return "Google"
	case Cohere:
		return "Cohere"
	}
	return string(p)
}

func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Model is an AI model identifier as understood by the optimization backend.
type Model string

const (
	GPT4          Model = "gpt-4"
	GPT35Turbo    Model = "gpt-3.5-turbo"
	Claude3Opus   Model = "claude-3-opus"
	Claude3Sonnet Model = "claude-3-sonnet"
	Gemini25Pro   Model = "gemini-2.5-pro"
	Gemini25Flash Model = "gemini-2.5-flash"
	CommandRPlus  Model = "command-r-plus"

	DefaultModel = GPT4
)

type ModelInfo struct {
	Model    Model
	Label    string
	Provider Provider
}

// models is the closed table of supported models. A new model needs a new row;
// the provider is never guessed from the identifier.
var models = []ModelInfo{
	{Model: GPT4, Label: "GPT-4 (OpenAI)", Provider: OpenAI},
	{Model: GPT35Turbo, Label: "GPT-3.5 Turbo (OpenAI)", Provider: OpenAI},
	{Model: Claude3Opus, Label: "Claude 3 Opus (Anthropic)", Provider: Anthropic},
	{Model: Claude3Sonnet, Label: "Claude 3 Sonnet (Anthropic)", Provider: Anthropic},
	{Model: Gemini25Pro, Label: "Gemini 2.5 Pro (Google)", Provider: Google},
	{Model: Gemini25Flash, Label: "Gemini 2.5 Flash (Google)", Provider: Google},
	{Model: CommandRPlus, Label: "Command R+ (Cohere)", Provider: Cohere},
}

// Models returns a copy of the model table in display order.
func Models() []ModelInfo {
	out := make([]ModelInfo, len(models))
	copy(out, models)
	return out
}

func Lookup(m Model) (ModelInfo, bool) {
	for _, info := range models {
		if info.Model == m {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// ProviderFor returns the provider required by the model.
func ProviderFor(m Model) (Provider, bool) {
	info, ok := Lookup(m)
	if !ok {
		return "", false
	}
	return info.Provider, true
}

// ValidateSecret applies the format hints of the key form before a secret is
// sent to the credential store. The store stays the authority.
func ValidateSecret(p Provider, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return fmt.Errorf("%s api key is empty", p)
	}

	switch p {
	case OpenAI:
		if !strings.HasPrefix(secret, "sk-") {
			return fmt.Errorf("openai api key must start with %q", "sk-")
		}
	case Anthropic:
		if !strings.HasPrefix(secret, "sk-ant-") {
			return fmt.Errorf("anthropic api key must start with %q", "sk-ant-")
		}
	default:
		if len(secret) <= 10 {
			return fmt.Errorf("%s api key is too short", p)
		}
	}

	return nil
}

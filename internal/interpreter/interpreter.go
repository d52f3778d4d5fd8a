// Package interpreter converts natural-language requests into shell
// commands via internal/llm, with system-prompt construction,
// semantic-cache integration, dangerous-command filtering, and robust
// JSON extraction from free-form model output.
package interpreter

import (
	"context"
	"fmt"
	"strings"

	"cortex/internal/cache"
	"cortex/internal/llm"
	"cortex/internal/logging"
)

const systemPrompt = `You are a Linux system command expert. Convert natural language requests into safe, validated bash commands.

Rules:
1. Return ONLY a JSON array of commands
2. Each command must be a safe, executable bash command
3. Commands should be atomic and sequential
4. Avoid destructive operations without explicit user confirmation
5. Use package managers appropriate for Debian/Ubuntu systems (apt)
6. Include necessary privilege escalation (sudo) when required
7. Validate command syntax before returning

Format:
{"commands": ["command1", "command2", ...]}

Example request: "install docker with nvidia support"
Example response: {"commands": ["sudo apt update", "sudo apt install -y docker.io", "sudo apt install -y nvidia-docker2", "sudo systemctl restart docker"]}`

// dangerousPatterns is the denylist applied when validate=true.
var dangerousPatterns = []string{
	"rm -rf /",
	"dd if=",
	"mkfs.",
	"> /dev/sda",
	"fork bomb",
	":(){ :|:& };:",
}

// Interpreter parses natural language into shell commands using a
// Router for live completions and an optional Cache for reuse.
type Interpreter struct {
	router       *llm.Router
	cache        *cache.Cache
	offline      bool
	taskType     llm.TaskType
	fakeCommands []string
}

// Option configures an Interpreter at construction.
type Option func(*Interpreter)

// WithCache attaches a semantic command cache.
func WithCache(c *cache.Cache) Option {
	return func(i *Interpreter) { i.cache = c }
}

// WithOffline restricts parsing to cached responses only.
func WithOffline(offline bool) Option {
	return func(i *Interpreter) { i.offline = offline }
}

// WithFakeCommands short-circuits Parse with a fixed command list,
// backing the CORTEX_FAKE_COMMANDS debug affordance. The dangerous-
// command filter still applies when validate is set.
func WithFakeCommands(commands []string) Option {
	return func(i *Interpreter) { i.fakeCommands = commands }
}

// New builds an Interpreter routing completions through router.
func New(router *llm.Router, opts ...Option) *Interpreter {
	i := &Interpreter{router: router, taskType: llm.TaskRequirementParsing}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// cacheSystemPrompt folds the validate flag into the prompt used for the
// cache key: a validated and an unvalidated parse of the
// same input must not collide in the cache.
func cacheSystemPrompt(validate bool) string {
	return fmt.Sprintf("%s\n\n[cortex-cache-validate=%t]", systemPrompt, validate)
}

// ErrEmptyInput is returned for blank user input.
var ErrEmptyInput = fmt.Errorf("interpreter: user input cannot be empty")

// ErrOfflineNoCache is returned in offline mode with no cache hit.
var ErrOfflineNoCache = fmt.Errorf("interpreter: offline mode: no cached response available for this request")

// Parse converts userInput into a list of shell commands, checking the
// cache first, then calling the LLM router, then optionally filtering
// dangerous commands before caching and returning the result.
func (i *Interpreter) Parse(ctx context.Context, userInput string, validate bool) ([]string, error) {
	log := logging.Get(logging.CategoryInterpreter)

	if strings.TrimSpace(userInput) == "" {
		return nil, ErrEmptyInput
	}

	if len(i.fakeCommands) > 0 {
		commands := i.fakeCommands
		if validate {
			commands = FilterDangerous(commands)
		}
		if len(commands) == 0 {
			return nil, fmt.Errorf("interpreter: no commands generated")
		}
		return commands, nil
	}

	sysPrompt := cacheSystemPrompt(validate)

	provider, model := "", ""
	if p, err := i.router.Resolve(ctx, i.taskType); err == nil {
		provider, model = string(p.Name()), p.Model()
	}

	if i.cache != nil && provider != "" {
		if cmds, ok := i.cache.GetCommands(ctx, userInput, provider, model, sysPrompt); ok {
			log.Debug("interpreter: cache hit for input")
			return cmds, nil
		}
	}

	if i.offline {
		return nil, ErrOfflineNoCache
	}

	resp, err := i.router.Complete(ctx, i.taskType, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userInput},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, fmt.Errorf("interpreter: llm call failed: %w", err)
	}

	commands, err := ParseCommands(resp.Content)
	if err != nil {
		return nil, err
	}

	if validate {
		commands = FilterDangerous(commands)
	}

	if len(commands) == 0 {
		return nil, fmt.Errorf("interpreter: no commands generated")
	}

	// Store under the same resolved provider/model pair the lookup above
	// used; keying on resp.Provider would miss forever after a fallback.
	if i.cache != nil && provider != "" {
		i.cache.PutCommands(ctx, userInput, provider, model, sysPrompt, commands)
	}

	return commands, nil
}

// ParseWithContext appends a JSON system-context blob to userInput
// before parsing.
func (i *Interpreter) ParseWithContext(ctx context.Context, userInput string, systemInfo map[string]interface{}, validate bool) ([]string, error) {
	enriched := userInput
	if len(systemInfo) > 0 {
		b, err := marshalContext(systemInfo)
		if err == nil {
			enriched = userInput + "\n\nSystem context: " + b
		}
	}
	return i.Parse(ctx, enriched, validate)
}

// FilterDangerous drops any command containing a denylisted substring
// (case-insensitive). If filtering empties the plan, the caller reports
// "no commands generated" rather than executing nothing silently.
func FilterDangerous(commands []string) []string {
	out := make([]string, 0, len(commands))
	for _, cmd := range commands {
		lower := strings.ToLower(cmd)
		rejected := false
		for _, pattern := range dangerousPatterns {
			if strings.Contains(lower, pattern) {
				rejected = true
				break
			}
		}
		if !rejected {
			out = append(out, cmd)
		}
	}
	return out
}

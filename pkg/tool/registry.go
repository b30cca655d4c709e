package tool

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

var ErrToolNotFound = goerr.New("tool not found")

// Registry manages available tools for the LLM
type Registry struct {
	allTools []Tool
	enabled  []Tool
	tools    map[string]Tool
}

// New creates a new tool registry with the given tools. All tools are
// enabled until Init is called.
func New(tools ...Tool) *Registry {
	r := &Registry{allTools: tools}
	r.enable(tools)
	return r
}

func (r *Registry) enable(tools []Tool) {
	r.enabled = tools
	r.tools = make(map[string]Tool)
	for _, t := range tools {
		spec := t.Spec()
		if spec == nil {
			continue
		}
		for _, fd := range spec.FunctionDeclarations {
			r.tools[fd.Name] = t
		}
	}
}

// Init initializes tools implementing Initializer and keeps only the enabled ones
func (r *Registry) Init(ctx context.Context, client *Client) error {
	var enabled []Tool
	for _, t := range r.allTools {
		if initializer, ok := t.(Initializer); ok {
			enable, err := initializer.Init(ctx, client)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize tool")
			}
			if !enable {
				continue
			}
		}
		enabled = append(enabled, t)
	}
	r.enable(enabled)
	return nil
}

// Specs returns the enabled tool specifications in registration order
func (r *Registry) Specs() []*genai.Tool {
	specs := make([]*genai.Tool, 0, len(r.enabled))
	for _, t := range r.enabled {
		if spec := t.Spec(); spec != nil && len(spec.FunctionDeclarations) > 0 {
			specs = append(specs, spec)
		}
	}
	return specs
}

// Names returns the names of all callable functions
func (r *Registry) Names() []string {
	var names []string
	for _, spec := range r.Specs() {
		for _, fd := range spec.FunctionDeclarations {
			names = append(names, fd.Name)
		}
	}
	return names
}

// Prompts returns all tool prompts concatenated
func (r *Registry) Prompts(ctx context.Context) string {
	var prompts []string
	for _, t := range r.enabled {
		if prompt := t.Prompt(ctx); prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	return strings.Join(prompts, "\n\n")
}

// Flags returns all tool flags combined
func (r *Registry) Flags() []cli.Flag {
	var flags []cli.Flag
	for _, t := range r.allTools {
		if toolFlags := t.Flags(); toolFlags != nil {
			flags = append(flags, toolFlags...)
		}
	}
	return flags
}

// Execute runs the tool with the given function call
func (r *Registry) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	tool, ok := r.tools[fc.Name]
	if !ok {
		return nil, goerr.Wrap(ErrToolNotFound, "no tool for function", goerr.V("name", fc.Name))
	}

	return tool.Execute(ctx, fc)
}

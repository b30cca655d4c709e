package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/usecase/agents"
	"github.com/m-mizutani/orgintel/pkg/usecase/chief"
	"github.com/m-mizutani/orgintel/pkg/usecase/graph"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "orgintel"
	serverVersion = "0.1.0"
)

// Server exposes the organization analytics and agents as MCP tools. Calls
// are serialized; the analytics engine and knowledge memory are not safe
// for concurrent use.
type Server struct {
	mu     sync.Mutex
	engine *analytics.Engine
	agents *agents.Runner
	chief  *chief.UseCase
	graph  *graph.UseCase
	server *mcp.Server
}

// Option is a functional option for Server
type Option func(*Server)

// WithChief adds the query and analyze_person tools
func WithChief(uc *chief.UseCase) Option {
	return func(s *Server) {
		s.chief = uc
	}
}

// WithGraph adds the top_relationships tool
func WithGraph(uc *graph.UseCase) Option {
	return func(s *Server) {
		s.graph = uc
	}
}

// New creates a Server and registers its tools
func New(engine *analytics.Engine, runner *agents.Runner, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		agents: runner,
		server: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.register()
	return s
}

// Run serves requests on transport until the client disconnects or ctx is
// canceled
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	logging.From(ctx).Info("mcp server started", "name", serverName)
	if err := s.server.Run(ctx, transport); err != nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

// Connect starts a session on transport without blocking
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, transport, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect mcp session")
	}
	return session, nil
}

// Handler serves the tools over streamable HTTP
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(goerr.Wrap(err, "failed to marshal result"))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(err error) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}, nil, nil
}

type topNInput struct {
	N int `json:"n,omitempty" jsonschema:"Number of people to return (default 10)"`
}

type personInput struct {
	Email string `json:"email" jsonschema:"Email address of the person"`
}

type clusterInput struct {
	MinEmails int `json:"min_emails,omitempty" jsonschema:"Minimum cluster size (default 5)"`
}

type changesInput struct {
	Days int `json:"days,omitempty" jsonschema:"Look back period in days (default 1)"`
}

type stakeholderInput struct {
	Topic  string `json:"topic,omitempty" jsonschema:"Topic keyword; returns relevance buckets"`
	Person string `json:"person,omitempty" jsonschema:"Email address; returns the person's correspondents"`
}

type queryInput struct {
	Question      string `json:"question" jsonschema:"Question about the organization"`
	IncludeEmails *bool  `json:"include_emails,omitempty" jsonschema:"Add matching emails to the prompt (default true)"`
}

type limitInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Number of relationships (default 20)"`
}

type topicCluster struct {
	Token string `json:"token"`
	Size  int    `json:"size"`
}

func (s *Server) register() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_insights",
		Description: "Totals, date range and top communicators of the whole email set",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return jsonResult(s.engine.OrganizationalInsights())
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_people",
		Description: "Every sender and receiver address, sorted",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		people, err := s.engine.Store().People(ctx)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]any{"people": people, "count": len(people)})
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_top_communicators",
		Description: "People ranked by number of emails sent plus received",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in topNInput) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		n := in.N
		if n == 0 {
			n = analytics.DefaultTopN
		}
		return jsonResult(s.engine.TopCommunicators(n))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_communication_patterns",
		Description: "Sent and received counts, top correspondents and timestamps of one person",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in personInput) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return jsonResult(s.engine.CommunicationPatterns(in.Email))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_topic_clusters",
		Description: "Subject words shared by many emails, with the number of emails per word",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in clusterInput) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		minEmails := in.MinEmails
		if minEmails == 0 {
			minEmails = analytics.DefaultMinClusterSize
		}
		clusters := s.engine.TopicClusters(minEmails)
		result := make([]topicCluster, 0, len(clusters))
		for _, c := range clusters {
			result = append(result, topicCluster{Token: c.Token, Size: len(c.Records)})
		}
		return jsonResult(result)
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_knowledge",
		Description: "Take a new knowledge snapshot and persist it",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		result, err := s.agents.Memory(ctx)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(result)
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "what_changed",
		Description: "Differences between the two latest knowledge snapshots",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in changesInput) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		days := in.Days
		if days == 0 {
			days = 1
		}
		return jsonResult(s.agents.WhatChanged(ctx, days))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "detect_conflicts",
		Description: "Duplicated topics and topic concentration, with topic cluster summary",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		result, err := s.agents.Critic(ctx)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(result)
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_stakeholders",
		Description: "Stakeholders of a topic (relevance buckets), of a person, or of the whole organization",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in stakeholderInput) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return jsonResult(s.agents.Coordinator(ctx, in.Topic, in.Person))
	})

	if s.chief != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "query",
			Description: "Answer a free text question about the organization with the LLM",
		}, func(ctx context.Context, req *mcp.CallToolRequest, in queryInput) (*mcp.CallToolResult, any, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if in.Question == "" {
				return errorResult(goerr.New("question is required"))
			}
			include := in.IncludeEmails == nil || *in.IncludeEmails
			answer, err := s.chief.Query(ctx, in.Question, include)
			if err != nil {
				return errorResult(err)
			}
			return jsonResult(answer)
		})

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "analyze_person",
			Description: "Communication patterns of a person with an LLM analysis of their role",
		}, func(ctx context.Context, req *mcp.CallToolRequest, in personInput) (*mcp.CallToolResult, any, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if in.Email == "" {
				return errorResult(goerr.New("email is required"))
			}
			analysis, err := s.chief.AnalyzePerson(ctx, in.Email)
			if err != nil {
				return errorResult(err)
			}
			return jsonResult(analysis)
		})
	}

	if s.graph != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_top_relationships",
			Description: "Strongest sender to receiver relationships stored in the graph",
		}, func(ctx context.Context, req *mcp.CallToolRequest, in limitInput) (*mcp.CallToolResult, any, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			edges, err := s.graph.TopRelationships(ctx, in.Limit)
			if err != nil {
				return errorResult(err)
			}
			if edges == nil {
				edges = []*model.CommunicationEdge{}
			}
			return jsonResult(map[string]any{"relationships": edges})
		})
	}
}

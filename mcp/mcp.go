// Package mcp exposes a live game client over the Model Context
// Protocol, so agent tooling can inspect and drive a session during
// development.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/afriverse/gameclient/channel"
	"github.com/afriverse/gameclient/proto"
	"github.com/afriverse/gameclient/router"
)

// Server is a stdio MCP server bridging tools onto one game session.
type Server struct {
	// Timeout bounds how long a request tool waits for the server's
	// reply before giving up.
	Timeout time.Duration

	mcpServer *server.MCPServer
	channel   *channel.Channel
	router    *router.Router
}

func New(ch *channel.Channel, r *router.Router) *Server {
	s := &Server{
		Timeout:   5 * time.Second,
		mcpServer: server.NewMCPServer("Afriverse Debug", "1.0.0"),
		channel:   ch,
		router:    r,
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the peer disconnects.
func (s *Server) Run() error {
	slog.Info("Started stdio MCP server")
	defer slog.Info("Shut down stdio MCP server")
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	statusTool := mcp.NewTool("connection_status",
		mcp.WithDescription("Report the channel's lifecycle state, epoch and readiness"),
	)
	s.mcpServer.AddTool(statusTool, s.handleConnectionStatus)

	profileTool := mcp.NewTool("get_profile",
		mcp.WithDescription("Request the player's profile from the game server"),
	)
	s.mcpServer.AddTool(profileTool, s.handleGetProfile)

	playersTool := mcp.NewTool("list_players",
		mcp.WithDescription("List the other players connected to the game server"),
	)
	s.mcpServer.AddTool(playersTool, s.handleListPlayers)

	purchaseTool := mcp.NewTool("purchase",
		mcp.WithDescription("Purchase a marketplace item"),
		mcp.WithString("item_id",
			mcp.Required(),
			mcp.Description("Marketplace item id"),
		),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Marketplace category, e.g. Buildings or Islands"),
		),
	)
	s.mcpServer.AddTool(purchaseTool, s.handlePurchase)

	challengeTool := mcp.NewTool("challenge",
		mcp.WithDescription("Challenge another player to a battle"),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Target player id"),
		),
		mcp.WithBoolean("stake",
			mcp.Description("Stake tokens on the outcome"),
		),
	)
	s.mcpServer.AddTool(challengeTool, s.handleChallenge)
}

// request publishes req and waits for the next message of replyType.
// Correlation is by type only, so concurrent identical requests can
// steal each other's replies; this is a debug surface, not a client API.
func (s *Server) request(req any, replyType string) (proto.Message, error) {
	replyCh := make(chan proto.Message, 1)
	sub := s.router.Subscribe(replyType, func(m proto.Message) {
		select {
		case replyCh <- m:
		default:
		}
	})
	defer s.router.Unsubscribe(sub)

	if err := s.router.Publish(req); err != nil {
		return proto.Message{}, err
	}

	select {
	case m := <-replyCh:
		return m, nil
	case <-time.After(s.Timeout):
		return proto.Message{}, fmt.Errorf("timeout waiting for %s", replyType)
	}
}

func (s *Server) handleConnectionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := map[string]any{
		"state": s.channel.State().String(),
		"epoch": s.channel.Epoch(),
		"ready": s.channel.Ready(),
	}
	data, err := json.Marshal(status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reply, err := s.request(proto.GetProfile(), proto.TypeProfile)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(reply.Raw)), nil
}

func (s *Server) handleListPlayers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reply, err := s.request(proto.ListPlayers(), proto.TypePlayerList)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(reply.Raw)), nil
}

func (s *Server) handlePurchase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID := request.GetString("item_id", "")
	category := request.GetString("category", "")
	if itemID == "" || category == "" {
		return mcp.NewToolResultError("item_id and category are required"), nil
	}

	reply, err := s.request(proto.Purchase(itemID, category), proto.TypePurchaseAck)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(reply.Raw)), nil
}

func (s *Server) handleChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := request.GetString("target", "")
	if target == "" {
		return mcp.NewToolResultError("target is required"), nil
	}
	stake := request.GetBool("stake", false)

	reply, err := s.request(proto.Challenge(target, stake), proto.TypeChallengeResponse)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(reply.Raw)), nil
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/afriverse/gameclient/channel"
	"github.com/afriverse/gameclient/mcp"
	"github.com/afriverse/gameclient/proto"
	"github.com/afriverse/gameclient/router"
	"github.com/afriverse/gameclient/transport"
	"github.com/afriverse/gameclient/views"
)

func watchCmd() *cobra.Command {
	var url string
	var retry time.Duration
	var withMCP bool
	var discover bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect a client session and log every update",
		RunE: func(cmd *cobra.Command, args []string) error {
			if discover {
				srv, err := transport.DiscoverServer(5 * time.Second)
				if err != nil {
					return err
				}
				url = srv.URL()
			}

			ch := channel.New(channel.Config{URL: url, RetryDelay: retry})
			r := router.New(ch.Send, nil)
			ch.OnFrame(r.HandleFrame)

			profile := views.NewProfileView()
			world := views.NewWorldView()
			market := views.NewMarketView()
			arena := views.NewArenaView()

			inboundTypes := []string{
				proto.TypeProfile,
				proto.TypeWorldUpdate,
				proto.TypePlayerList,
				proto.TypePurchaseAck,
				proto.TypeChallengeRequest,
				proto.TypeChallengeResponse,
				proto.TypeBattleUpdate,
			}
			for _, msgType := range inboundTypes {
				r.Subscribe(msgType, func(m proto.Message) {
					slog.Info("Update", "type", m.Type, "payload", string(m.Raw))
				})
			}

			// The views' mount-time requests are lost until the channel
			// opens; re-issue them on every new epoch.
			ch.OnStateChange(func(s channel.State) {
				slog.Info("Channel state changed", "state", s.String(), "epoch", ch.Epoch())
				if s == channel.StateOpen {
					if err := r.Publish(proto.GetProfile()); err != nil {
						slog.Warn("Failed to request profile", "error", err)
					}
					if err := r.Publish(proto.ListPlayers()); err != nil {
						slog.Warn("Failed to request player list", "error", err)
					}
				}
			})

			profile.Attach(r)
			world.Attach(r)
			market.Attach(r)
			arena.Attach(r)
			ch.Start()

			if withMCP {
				go func() {
					if err := mcp.New(ch, r).Run(); err != nil {
						slog.Error("MCP server failed", "error", err)
					}
				}()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			slog.Info("Shutting down session")
			arena.Detach()
			market.Detach()
			world.Detach()
			profile.Detach()
			ch.Shutdown()
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", channel.DefaultURL, "Game server endpoint")
	cmd.Flags().DurationVar(&retry, "retry", channel.DefaultRetryDelay, "Delay between reconnection attempts")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Expose debugging tools over stdio MCP")
	cmd.Flags().BoolVar(&discover, "discover", false, "Find the game server via mDNS instead of --url")
	return cmd
}

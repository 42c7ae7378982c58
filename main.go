package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	assistantx "github.com/tanpawarit/vehicle-order-agent/agent/agents/assistant"
	orchestratorx "github.com/tanpawarit/vehicle-order-agent/agent/agents/orchestrator"
	llmx "github.com/tanpawarit/vehicle-order-agent/agent/llm"
	orderx "github.com/tanpawarit/vehicle-order-agent/agent/order"
	statex "github.com/tanpawarit/vehicle-order-agent/agent/state"
	toolx "github.com/tanpawarit/vehicle-order-agent/agent/tool"
	configx "github.com/tanpawarit/vehicle-order-agent/pkg/config"
	fipex "github.com/tanpawarit/vehicle-order-agent/pkg/fipe"
	logx "github.com/tanpawarit/vehicle-order-agent/pkg/logger"
	_ "github.com/tanpawarit/vehicle-order-agent/pkg/logger/autoload"
	metricsx "github.com/tanpawarit/vehicle-order-agent/pkg/metrics"
	openrouterx "github.com/tanpawarit/vehicle-order-agent/pkg/openrouter"
)

type AppConfig struct {
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("vehicle order agent stopped")
	}
}

func run(ctx context.Context) error {
	appCfg := configx.MustNew[AppConfig]("")
	// LOG_* may come from the env file, which is only exported by configx.
	// Logs go to stderr so they do not interleave with the conversation.
	logx.InitWriter(os.Stderr, *configx.MustNew[logx.Config]("LOG"))

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	agentCfg := configx.MustNew[orchestratorx.Config]("AGENT")
	fipeCfg := configx.MustNew[fipex.Config]("FIPE")
	storeCfg := configx.MustNew[statex.Config]("ORDERS_DB")

	if err := llmCfg.Validate(); err != nil {
		return err
	}
	if llmCfg.VerifyModel {
		client := openrouterx.NewClient(llmCfg.OpenRouter())
		if err := openrouterx.Preflight(ctx, client, llmCfg.Model); err != nil {
			return err
		}
		log.Info().Str("model", llmCfg.Model).Msg("model verified")
	}

	store, err := statex.Open(ctx, *storeCfg)
	if err != nil {
		return fmt.Errorf("open order store: %w", err)
	}
	defer store.Close()

	orders, err := orderx.NewService(store)
	if err != nil {
		return err
	}

	registry, err := toolx.New(fipex.MustNew(*fipeCfg), orders)
	if err != nil {
		return fmt.Errorf("build tools: %w", err)
	}

	decider, err := assistantx.New(ctx, *llmCfg, registry.Infos())
	if err != nil {
		return fmt.Errorf("build assistant: %w", err)
	}

	agent, err := orchestratorx.New(decider, registry,
		statex.NewConversationBuffer(statex.WithMaxMessages(agentCfg.MaxHistoryMessages)),
		*agentCfg,
	)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	if addr := strings.TrimSpace(appCfg.MetricsAddr); addr != "" {
		shutdown, err := serveMetrics(addr)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	log.Info().
		Str("model", llmCfg.Model).
		Str("orders_db", storeCfg.Driver).
		Int("tools", len(registry.Specs())).
		Msg("vehicle order agent ready")

	return repl(ctx, os.Stdin, os.Stdout, agent, orders)
}

func serveMetrics(addr string) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := metricsx.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsx.Handler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

type turnHandler interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (string, error)
	Reset(ctx context.Context, sessionID string) error
}

type orderLister interface {
	ListOrders(ctx context.Context) ([]statex.OrderRecord, error)
}

// repl reads one user message per line until EOF or cancellation.
func repl(ctx context.Context, in io.Reader, out io.Writer, agent turnHandler, orders orderLister) error {
	sessionID := uuid.NewString()
	log.Info().Str("session_id", sessionID).Msg("conversation started")

	fmt.Fprintln(out, "Vehicle order assistant. Commands: /orders, /reset, /quit")

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := agent.Reset(ctx, sessionID); err != nil {
				return err
			}
			sessionID = uuid.NewString()
			log.Info().Str("session_id", sessionID).Msg("conversation reset")
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		case "/orders":
			if err := printOrders(ctx, out, orders); err != nil {
				fmt.Fprintf(out, "Could not load orders: %v\n", err)
			}
			continue
		}

		reply, err := agent.HandleMessage(ctx, sessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
			fmt.Fprintln(out, "Sorry, something went wrong. Please try again.")
			continue
		}
		fmt.Fprintln(out, reply)
	}
}

func printOrders(ctx context.Context, out io.Writer, orders orderLister) error {
	records, err := orders.ListOrders(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, toolx.NoOrdersMessage)
		return nil
	}

	for _, rec := range records {
		v := toolx.NewOrderView(rec)
		fmt.Fprintf(out, "#%d %s  %s brand=%s model=%s year=%s  ordered %s  delivery %s\n",
			v.ID, v.CustomerName, v.VehicleType, v.BrandCode, v.ModelCode, v.YearCode, v.OrderDate, v.DeliveryDate)
	}
	return nil
}

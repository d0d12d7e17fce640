// Command cgraphd is the resident daemon: it serves the C7 query surface for
// one repository over a Unix socket, loading the graph file per request with
// responses memoized by the C10 cache, polls the repository tree for changes
// via the C14 watcher, and evicts idle tiers.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/codegraph/internal/cache"
	"github.com/rohankatakam/codegraph/internal/config"
	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/harness"
	"github.com/rohankatakam/codegraph/internal/ipc"
	"github.com/rohankatakam/codegraph/internal/logging"
	"github.com/rohankatakam/codegraph/internal/storage"
	"github.com/rohankatakam/codegraph/internal/tenant"
	"github.com/rohankatakam/codegraph/internal/tier"
	"github.com/rohankatakam/codegraph/internal/watch"
)

var (
	Version    = "dev"
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cgraphd",
	Short:   "Resident query daemon for the code graph engine",
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config YAML (optional)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logging.Initialize(logging.DefaultConfig(false)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	registry := tenant.NewRegistry()
	repo, err := registry.Register(cfg.RepoPath)
	if err != nil {
		return fmt.Errorf("register repo: %w", err)
	}
	logging.Info("registered repo", "id", repo.ID, "path", repo.Path, "hash", repo.Hash)

	tm := tier.NewManager(cfg.Tier.HotCapacity, cfg.Tier.WarmCapacity, cfg.Tier.PromoteThreshold, cfg.Tier.DemoteIdleMs)
	tm.RegisterCold(repo.ID, cfg.Paths.GraphFile)

	storeLogger := logrus.New()

	warmStorePath := filepath.Join(filepath.Dir(cfg.Paths.SocketFile), "warm.db")
	warmStore, err := storage.NewSQLiteStore(warmStorePath, storeLogger)
	if err != nil {
		return fmt.Errorf("open warm metadata store: %w", err)
	}
	defer warmStore.Close()
	tm.SetStore(warmStore, storeLogger)

	registryStore, err := storage.Open(cfg.Registry.Backend, cfg.Registry.DSN, filepath.Join(filepath.Dir(cfg.Paths.SocketFile), "registry.db"), storeLogger)
	if err != nil {
		return fmt.Errorf("open registry store: %w", err)
	}
	defer registryStore.Close()
	if err := registryStore.SaveRepo(context.Background(), &storage.RepoRecord{
		ID:           repo.ID,
		Path:         repo.Path,
		Hash:         repo.Hash,
		RegisteredAt: time.Now(),
		LastSyncedAt: time.Now(),
	}); err != nil {
		logging.Warn("failed to persist repo registration", "error", err)
	}

	if cfg.Registry.Backend == "postgres" {
		listener, err := storage.NewRegistryListener(cfg.Registry.DSN, storeLogger)
		if err != nil {
			logging.Warn("failed to start registry listener", "error", err)
		} else {
			defer listener.Close()
			go func() {
				for n := range listener.Changes() {
					if n == nil {
						continue
					}
					logging.Debug("registry change notification", "repo_id", n.Extra)
				}
			}()
		}
	}

	cacheMgr := cache.NewManager(storeLogger)
	if cfg.Cache.RedisAddr != "" {
		host, portStr, err := net.SplitHostPort(cfg.Cache.RedisAddr)
		if err != nil {
			logging.Warn("invalid redis_addr, continuing local-only", "error", err)
		} else if port, err := strconv.Atoi(portStr); err != nil {
			logging.Warn("invalid redis_addr port, continuing local-only", "error", err)
		} else if redisClient, err := cache.NewClient(context.Background(), host, port, ""); err != nil {
			logging.Warn("failed to connect shared cache, continuing local-only", "error", err)
		} else {
			cacheMgr.SetShared(redisClient)
		}
	}

	w := watch.NewWatcher(cfg.Watch.DebounceMs)
	if err := w.Watch(cfg.RepoPath); err != nil {
		logging.Warn("failed to watch repo root", "error", err)
	}

	h := harness.New(cfg.Paths.GraphFile, "")
	h.SetCache(cacheMgr)

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.SocketFile), 0755); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	os.Remove(cfg.Paths.SocketFile)

	listener, err := net.Listen("unix", cfg.Paths.SocketFile)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}
	defer listener.Close()
	logging.Info("daemon listening", "socket", cfg.Paths.SocketFile)

	ctx, cancel := context.WithCancel(cmd.Context())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { pollLoop(gctx, w, tm, repo.ID, h); return nil })
	g.Go(func() error { acceptLoop(gctx, listener, h, cancel); return nil })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logging.Info("shutting down")
	case <-ctx.Done():
		logging.Info("shutdown requested over ipc")
	}
	cancel()
	listener.Close()
	return g.Wait()
}

// pollLoop drives the watcher and idle-tier eviction on a fixed cadence;
// a production host might instead let an editor's file-save hook trigger
// polling, but a ticker keeps the daemon self-sufficient.
func pollLoop(ctx context.Context, w *watch.Watcher, tm *tier.Manager, repoID uint32, h *harness.Harness) {
	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			nowMs := t.UnixMilli()
			events := w.Poll(nowMs)
			for _, ev := range events {
				logging.Debug("watch event", "path", ev.Path, "kind", ev.Kind.String())
			}
			if len(events) > 0 {
				h.InvalidateCache()
			}
			tm.EvictIdle(tm.DemoteIdleMs, nowMs)
		}
	}
}

// acceptLoop accepts connections and serves length-prefixed JSON frames
// until ctx is canceled. cancel is invoked when a connection dispatches a
// shutdown request, so the whole daemon — not just that connection — exits.
func acceptLoop(ctx context.Context, listener net.Listener, h *harness.Harness, cancel context.CancelFunc) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logging.Warn("accept failed", "error", err)
				continue
			}
		}
		go serveConn(conn, h, cancel)
	}
}

// requestsPerSecond caps how fast one connection can issue method calls, so
// a misbehaving client can't monopolize the daemon's per-request graph
// loads.
const requestsPerSecond = 50

func serveConn(conn net.Conn, h *harness.Harness, cancel context.CancelFunc) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	for {
		payload, err := ipc.ReadFrame(r)
		if err != nil {
			return
		}
		if err := limiter.Wait(context.Background()); err != nil {
			return
		}
		if req, err := ipc.ParseRequest(payload); err == nil {
			logging.Debug("handling request", "id", req.ID, "method", req.Method)
		}

		resp, dispatchErr := h.Dispatch(payload)
		// The shutdown reply is still written before the daemon exits:
		// ErrShutdownRequested arrives alongside a valid response body, not
		// in place of one.
		if resp != nil {
			if err := ipc.WriteFrame(conn, resp); err != nil {
				return
			}
		}
		if errors.Is(dispatchErr, cgerrors.ErrShutdownRequested) {
			logging.Info("shutdown requested", "remote", conn.RemoteAddr())
			cancel()
			return
		}
		if dispatchErr != nil {
			return
		}
	}
}

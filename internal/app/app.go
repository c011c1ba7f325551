package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/abrezinsky/zoolo/internal/auth"
	"github.com/abrezinsky/zoolo/internal/config"
	"github.com/abrezinsky/zoolo/internal/handlers"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/metrics"
	"github.com/abrezinsky/zoolo/internal/notify"
	"github.com/abrezinsky/zoolo/internal/repository"
	"github.com/abrezinsky/zoolo/internal/schedule"
	"github.com/abrezinsky/zoolo/internal/serial"
	"github.com/abrezinsky/zoolo/internal/services"
	"github.com/abrezinsky/zoolo/internal/websocket"
)

// slotTick is how often terminals are told about newly closed draws
const slotTick = time.Minute

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      *config.Config
	repo     *repository.Repository
	policy   *schedule.Policy
	agencies *services.AgencyService
	handlers *handlers.Handlers
	metrics  *metrics.Metrics
	telegram *notify.Telegram
	cancel   context.CancelFunc
}

// New opens the store and wires every service, the websocket hub and the
// notifier. Background loops stop on Close.
func New(log logger.Logger, cfg *config.Config) (*App, error) {
	rate, err := cfg.DefaultCommission()
	if err != nil {
		return nil, err
	}
	gen, err := serial.New(cfg.NodeID)
	if err != nil {
		return nil, err
	}

	repo, err := repository.New(cfg.DB)
	if err != nil {
		return nil, err
	}

	policy := schedule.NewPolicy(
		schedule.LoadLocation(cfg.Timezone),
		schedule.WithBlackout(cfg.Blackout()),
		schedule.WithVoidGrace(cfg.VoidGrace()),
	)

	a := &App{
		log:     log,
		cfg:     cfg,
		repo:    repo,
		policy:  policy,
		metrics: metrics.New(),
	}

	var notifier services.Notifier = notify.NewLog(log)
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(log, cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
		}
		a.telegram = tg
		notifier = tg
	}

	// Initialize WebSocket hub
	hub := websocket.New(log, policy)
	hub.Start()

	// Initialize services
	a.agencies = services.NewAgencyService(log, repo)
	a.agencies.SetDefaultCommission(rate)

	tickets := services.NewTicketService(log, repo, policy, gen)
	tickets.SetStrictPayout(cfg.StrictPayout)
	tickets.SetBrand(cfg.Brand)
	tickets.SetBroadcaster(hub)
	tickets.SetNotifier(notifier)
	tickets.SetRecorder(a.metrics)

	results := services.NewResultService(log, repo, policy)
	results.SetBroadcaster(hub)
	results.SetNotifier(notifier)
	results.SetRecorder(a.metrics)

	a.handlers = handlers.New(
		a.agencies,
		tickets,
		results,
		services.NewCashService(log, repo, policy),
		services.NewRiskService(log, repo, policy),
		policy,
		auth.New(),
		log,
	)
	a.handlers.SetHub(hub)
	a.handlers.SetMetrics(a.metrics)
	a.handlers.SetHealthCheck(repo.Ping)

	// Start background loops with context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go hub.StartSlotTicker(ctx, slotTick)
	if a.telegram != nil {
		go a.telegram.Run(ctx)
	}

	return a, nil
}

// Bootstrap creates the operator account on first start. When no password
// is configured one is generated and returned so it can be shown once.
func (a *App) Bootstrap(ctx context.Context) (password string, created bool, err error) {
	password = a.cfg.AdminPassword
	if password == "" {
		password = auth.GeneratePassword()
	}
	created, err = a.agencies.EnsureAdmin(ctx, a.cfg.AdminUser, password)
	if err != nil {
		return "", false, err
	}
	return password, created, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close stops background loops and closes the store
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.repo != nil {
		a.repo.Close()
		a.repo = nil
	}
}

// Run serves HTTP on addr until ctx is cancelled, then drains in-flight
// requests.
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	host := lanAddress(realNetworkProvider{})
	a.log.Info("Server starting",
		"url", fmt.Sprintf("http://%s%s", host, addr),
		"timezone", a.policy.Location.String(),
		"slots", len(a.policy.Slots))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags           { return r.iface.Flags }
func (r realInterface) Addrs() ([]net.Addr, error) { return r.iface.Addrs() }

// networkProvider lists network interfaces
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// lanAddress picks the IPv4 address terminals on the shop network should
// use. Private addresses win over public ones; localhost is the fallback.
func lanAddress(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var fallback string
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ip := addrIP(addr)
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if isPrivateV4(ip) {
				return ip.String()
			}
			if fallback == "" {
				fallback = ip.String()
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "localhost"
}

// addrIP returns the IPv4 address of addr, or nil
func addrIP(addr net.Addr) net.IP {
	var ip net.IP
	switch v := addr.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	}
	if ip == nil {
		return nil
	}
	return ip.To4()
}

// isPrivateV4 reports whether ip is a private IPv4 address
func isPrivateV4(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	s := ip4.String()
	if strings.HasPrefix(s, "192.168.") || strings.HasPrefix(s, "10.") {
		return true
	}
	return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
}

package restserver

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/canalwatch/icewatch/internal/log"
	"github.com/canalwatch/icewatch/internal/query"
	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Controller represents the REST server controller
type Controller struct {
	ctx          context.Context
	wg           *sync.WaitGroup
	serverConfig config.ServerData
	storeConfig  config.StoreData
	dashboard    config.DashboardData
	Server       http.Server
	FS           fs.FS
	service      *query.Service
	health       *storage.HealthMonitor
	indexView    *htmltemplate.Template
	debugLimiter *rate.Limiter
	handlers     *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, svc *query.Service, health *storage.HealthMonitor) (*Controller, error) {
	ctrl := &Controller{
		ctx:          ctx,
		wg:           wg,
		serverConfig: cfg.Server,
		storeConfig:  cfg.Store,
		dashboard:    cfg.Dashboard,
		service:      svc,
		health:       health,
		debugLimiter: rate.NewLimiter(rate.Limit(cfg.Server.DebugRateLimit), cfg.Server.DebugRateBurst),
	}

	ctrl.FS = GetAssets()

	view, err := htmltemplate.ParseFS(ctrl.FS, "index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("error parsing dashboard template: %v", err)
	}
	ctrl.indexView = view

	// Create handlers
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", cfg.Server.ListenAddr, cfg.Server.Port)
	ctrl.Server.Handler = ctrl.wrap(ctrl.setupRouter())
	ctrl.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	ctrl.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.serverConfig.TLSCertPath != "" && c.serverConfig.TLSKeyPath != "" {
			if err := c.Server.ListenAndServeTLS(c.serverConfig.TLSCertPath, c.serverConfig.TLSKeyPath); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/latest", c.handlers.GetLatest).Methods(http.MethodGet)
	api.HandleFunc("/history/{location}", c.handlers.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/status", c.handlers.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/locations", c.handlers.GetLocations).Methods(http.MethodGet)
	api.HandleFunc("/trend/{location}", c.handlers.GetTrend).Methods(http.MethodGet)

	// The full dump is diagnostic only
	if c.serverConfig.DisableDebugEndpoints {
		api.HandleFunc("/all", c.handlers.NotFound)
	} else {
		api.Handle("/all", c.rateLimited(http.HandlerFunc(c.handlers.GetAll))).Methods(http.MethodGet)
	}
	api.NotFoundHandler = http.HandlerFunc(c.handlers.NotFound)

	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/", c.handlers.ServeIndex).Methods(http.MethodGet)

	// Only the script and stylesheet trees are public; the page template
	// is rendered by ServeIndex
	static := noDirListing(http.FileServer(http.FS(c.FS)))
	router.PathPrefix("/js/").Handler(static).Methods(http.MethodGet, http.MethodHead)
	router.PathPrefix("/css/").Handler(static).Methods(http.MethodGet, http.MethodHead)
	router.NotFoundHandler = http.HandlerFunc(c.handlers.NotFound)

	return router
}

// noDirListing answers 404 for directory paths instead of an index page
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// wrap applies the middleware chain, outermost first: request id, access
// log, optional gzip, panic recovery, CORS.
func (c *Controller) wrap(router http.Handler) http.Handler {
	h := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	)(router)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(log.GetZapLogger())),
		handlers.PrintRecoveryStack(true),
	)(h)
	if c.serverConfig.GzipResponses {
		h = handlers.CompressHandler(h)
	}
	h = log.AccessLogMiddleware(h)
	return log.RequestIDMiddleware(h)
}

// rateLimited rejects requests beyond the debug endpoint's budget
func (c *Controller) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !c.debugLimiter.Allow() {
			c.handlers.writeError(w, req, http.StatusTooManyRequests, errRateLimited, nil)
			return
		}
		next.ServeHTTP(w, req)
	})
}

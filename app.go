// @title           Net tester API
// @version         1.0
// @description     Echoes what the server sees of a request: client and server addresses, reverse DNS, registry data and HTTP details.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"

	"github.com/vit0-9/netecho/config"
	_ "github.com/vit0-9/netecho/docs"
	"github.com/vit0-9/netecho/handlers"
	"github.com/vit0-9/netecho/pkg/introspect"
	"github.com/vit0-9/netecho/pkg/utils"
	"github.com/vit0-9/netecho/pkg/utils/domain"
	"github.com/vit0-9/netecho/views"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// App encapsulates all the components of the application
type App struct {
	Config        *config.Config
	Router        *gin.Engine
	EchoHandlers  *handlers.EchoHandlers
	HealthHandler *handlers.HealthHandler

	geo      *utils.GeoLookup
	registry domain.Registry
	server   *http.Server
}

// NewApp creates and initializes a new application instance
func NewApp(cfg *config.Config) (*App, error) {
	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}

	var resolver utils.Resolver
	if cfg.DNSServer != "" {
		upstream := utils.NewUpstreamResolver(cfg.DNSServer, cfg.DNSTimeout)
		log.Info().Str("server", upstream.Server()).Msg("using upstream DNS resolver")
		resolver = upstream
	}

	geo := utils.OpenGeoLookup(cfg.MMDBCityPath, cfg.MMDBASNPath)

	assembler := introspect.NewAssembler(introspect.Dependencies{
		Overrides: utils.NewOverrideResolver(utils.OverrideHeaders{
			ClientPort:        cfg.ClientPortHeader,
			HTTPVersion:       cfg.HTTPVersionHeader,
			TransportProtocol: cfg.TransportProtocolHeader,
			RequestTime:       cfg.RequestTimeHeader,
		}, cfg.Location),
		Resolver: utils.NewAddressResolver(resolver, cfg.DNSTimeout),
		RDNS:     utils.NewRDNSLookup(resolver, cfg.DNSTimeout),
		Registry: domain.NewEnricher(registry,
			rate.NewLimiter(rate.Limit(cfg.RegistryRate), cfg.RegistryBurst),
			cfg.RegistryTimeout),
		Geo:      geo,
		FunFacts: utils.NewFunFactGenerator(utils.GlobalRand),
	})

	tmpl, err := views.Templates()
	if err != nil {
		geo.Close()
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		geo.Close()
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.Use(gin.Recovery(), handlers.RequestLogger())

	app := &App{
		Config:        cfg,
		Router:        router,
		EchoHandlers:  handlers.NewEchoHandlers(assembler, cfg.MaxBodyBytes, cfg.AppVersion),
		HealthHandler: handlers.NewHealthHandler(cfg.AppVersion),
		geo:           geo,
		registry:      registry,
	}
	app.setupRoutes()

	app.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	if cfg.TLSEnabled() {
		keyPair, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			geo.Close()
			return nil, fmt.Errorf("error loading keypair: %w", err)
		}
		app.server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{keyPair},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return app, nil
}

// newRegistry builds the configured registry backend, or nil when registry
// enrichment is disabled.
func newRegistry(cfg *config.Config) (domain.Registry, error) {
	switch cfg.RegistryBackend {
	case config.RegistryRDAP:
		httpClient := utils.NewOutboundHTTPClient(cfg.RegistryTimeout, utils.DefaultUserAgent+"/"+cfg.AppVersion)
		registry, err := domain.NewRDAPRegistry(httpClient, cfg.RegistryServer)
		if err != nil {
			return nil, err
		}
		return registry, nil
	case config.RegistryWhois:
		return domain.NewWhoisRegistry(cfg.RegistryServer), nil
	default:
		log.Info().Msg("registry enrichment disabled")
		return nil, nil
	}
}

// warmRegistry fetches the RDAP bootstrap files ahead of the first lookup.
// Failures are logged; lookups download them again on demand.
func (app *App) warmRegistry(ctx context.Context) {
	rdapRegistry, ok := app.registry.(*domain.RDAPRegistry)
	if !ok {
		return
	}
	if err := rdapRegistry.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("RDAP bootstrap preload failed")
		return
	}
	log.Debug().Msg("RDAP bootstrap preloaded")
}

// setupRoutes defines all the application routes
func (app *App) setupRoutes() {
	r := app.Router

	r.Any("/", app.EchoHandlers.PageHandler)
	r.Any("/plain", app.EchoHandlers.PlainHandler)
	r.Any("/api/v1", app.EchoHandlers.RequestInfoHandler)
	r.Any("/api/v1/", app.EchoHandlers.RequestInfoHandler)
	r.Any("/favicon.ico", app.EchoHandlers.FaviconHandler)

	r.Any("/health", app.HealthHandler.HealthCheckHandler)
	r.Any("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
}

// Handler returns the router wrapped in response compression.
func (app *App) Handler() http.Handler {
	return gzhttp.GzipHandler(app.Router)
}

// Start serves until Shutdown is called. It returns nil after a graceful
// shutdown.
func (app *App) Start() error {
	log.Info().
		Str("addr", app.server.Addr).
		Bool("tls", app.server.TLSConfig != nil).
		Msg("server starting")

	var err error
	if app.server.TLSConfig != nil {
		// the key pair is already in TLSConfig
		err = app.server.ListenAndServeTLS("", "")
	} else {
		err = app.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error listening or serving: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires and releases the GeoIP databases.
func (app *App) Shutdown(ctx context.Context) error {
	defer app.geo.Close()
	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

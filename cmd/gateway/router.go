package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"suspension-gateway/middleware/ratelimit"

	"github.com/charmbracelet/log"
)

// serviceDescriptor é um microserviço conhecido no startup: nada é carregado
// dinamicamente, a lista vem de microservices.json.
type serviceDescriptor struct {
	Name     string
	Upstream *url.URL
}

var serviceNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func parseServices(raw map[string]string) ([]serviceDescriptor, error) {
	out := make([]serviceDescriptor, 0, len(raw))
	for name, upstream := range raw {
		if !serviceNameRe.MatchString(name) {
			return nil, fmt.Errorf("microservice %q: invalid name", name)
		}
		u, err := url.Parse(strings.TrimSpace(upstream))
		if err != nil {
			return nil, fmt.Errorf("microservice %q: invalid upstream: %w", name, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("microservice %q: upstream %q must be an absolute URL", name, upstream)
		}
		out = append(out, serviceDescriptor{Name: name, Upstream: u})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// pattern é a rota no ServeMux: /{client}/microservices/<nome>/...
func (s serviceDescriptor) pattern() string {
	return "/{client}/microservices/" + s.Name + "/"
}

// proxy remove o prefixo /<client>/microservices/<nome> e repassa o nome do
// cliente no header X-Client-Name.
func (s serviceDescriptor) proxy(logger *log.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			client := pr.In.PathValue("client")
			prefix := "/" + client + "/microservices/" + s.Name

			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, prefix)
			pr.Out.URL.RawPath = ""
			pr.SetURL(s.Upstream)
			pr.SetXForwarded()
			pr.Out.Header.Set("X-Client-Name", client)
		},
		ErrorHandler: proxyErrorHandler(logger, s.Name),
	}
}

func proxyErrorHandler(logger *log.Logger, service string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error", "service", service, "path", r.URL.Path, "err", err)
		ratelimit.WriteDetail(w, http.StatusBadGateway, ratelimit.MsgBadGateway)
	}
}

type healthReport struct {
	Status        string `json:"status"`
	Suspended     int    `json:"suspended"`
	PendingExpiry int    `json:"pending_expiry"`
	InFlight      int    `json:"in_flight"`
	Services      int    `json:"services"`
}

// gatewayState é o que o /healthz consegue observar do processo.
type gatewayState interface {
	health() healthReport
}

type routerDeps struct {
	services    []serviceDescriptor
	upstream    *url.URL
	state       gatewayState
	metrics     http.Handler
	metricsPath string
	logger      *log.Logger
}

func newRouter(d routerDeps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		rep := healthReport{Status: "ok"}
		if d.state != nil {
			rep = d.state.health()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rep)
	})

	if d.metrics != nil {
		mux.Handle("GET "+d.metricsPath, d.metrics)
	}

	for _, svc := range d.services {
		mux.Handle(svc.pattern(), svc.proxy(d.logger))
		d.logger.Info("microservice mounted", "name", svc.Name, "prefix", "/{client}/microservices/"+svc.Name, "upstream", svc.Upstream.String())
	}

	if d.upstream != nil {
		proxy := httputil.NewSingleHostReverseProxy(d.upstream)
		proxy.ErrorHandler = proxyErrorHandler(d.logger, "default")
		mux.Handle("/", proxy)
	}
	return mux
}

// Package geoip resolves visitor addresses against the free ip-api.com
// service. Lookups are best effort: any failure yields the Unknown block.
package geoip

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mhkarimi/portfolio-backend/internal/model"
	"github.com/mhkarimi/portfolio-backend/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	defaultBaseURL = "http://ip-api.com"
	lookupTimeout  = 5 * time.Second
	maxCacheSize   = 100
	fieldsParam    = "status,country,countryCode,regionName,city,isp,org,as,query"
)

type lookupResponse struct {
	Status      string `json:"status"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	RegionName  string `json:"regionName"`
	City        string `json:"city"`
	ISP         string `json:"isp"`
	Org         string `json:"org"`
	AS          string `json:"as"`
	Query       string `json:"query"`
}

type Resolver struct {
	baseURL string
	client  *fasthttp.Client

	mu    sync.Mutex
	cache map[string]*model.IPInfo
}

func NewResolver(baseURL string) *Resolver {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Resolver{
		baseURL: baseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost: 4,
			ReadTimeout:     lookupTimeout,
			WriteTimeout:    lookupTimeout,
		},
		cache: make(map[string]*model.IPInfo),
	}
}

// Lookup resolves country, city and ISP information for an address.
// Results are cached; private and malformed addresses short-circuit to
// the Unknown block since the public API cannot resolve them.
func (r *Resolver) Lookup(ip string) *model.IPInfo {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return model.UnknownIPInfo(ip)
	}

	r.mu.Lock()
	if info, ok := r.cache[ip]; ok {
		r.mu.Unlock()
		return info
	}
	r.mu.Unlock()

	info := r.fetch(ip)

	r.mu.Lock()
	if len(r.cache) >= maxCacheSize {
		// coarse eviction; lookup volume on a portfolio site is tiny
		for k := range r.cache {
			delete(r.cache, k)
			break
		}
	}
	r.cache[ip] = info
	r.mu.Unlock()

	return info
}

func (r *Resolver) fetch(ip string) *model.IPInfo {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/json/%s?fields=%s", r.baseURL, ip, fieldsParam))
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := r.client.DoDeadline(req, resp, time.Now().Add(lookupTimeout)); err != nil {
		logger.Warn("ip lookup failed", "ip", ip, "error", err)
		return model.UnknownIPInfo(ip)
	}

	var data lookupResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil || data.Status != "success" {
		logger.Warn("ip lookup rejected", "ip", ip, "status", data.Status)
		return model.UnknownIPInfo(ip)
	}

	info := &model.IPInfo{
		IP:          data.Query,
		Country:     data.Country,
		CountryCode: data.CountryCode,
		Region:      data.RegionName,
		City:        data.City,
		ISP:         data.ISP,
		Org:         data.Org,
		AS:          data.AS,
	}
	if info.IP == "" {
		info.IP = ip
	}
	return info
}

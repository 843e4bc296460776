package dispatcher

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

type HTTPPool struct {
	clients []*fasthttp.Client
	next    uint32
}

// NewHTTPPool builds size keep-alive clients used round robin. Requests are
// never retried; the caller decides.
func NewHTTPPool(size int, timeout time.Duration) *HTTPPool {
	if size <= 0 {
		size = 1
	}
	clients := make([]*fasthttp.Client, size)

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	}

	for i := 0; i < size; i++ {
		clients[i] = &fasthttp.Client{
			Name:                "voicemaster (go-voicemaster, 1.0)",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxConnWaitTimeout:  timeout,
			MaxResponseBodySize: 1024 * 1024,

			MaxIdemponentCallAttempts: 1,
			DialDualStack:             true,
			TLSConfig:                 tlsConfig,
		}
	}

	return &HTTPPool{clients: clients}
}

// newPoolWith wraps preconfigured clients.
func newPoolWith(clients ...*fasthttp.Client) *HTTPPool {
	return &HTTPPool{clients: clients}
}

func (hp *HTTPPool) GetClient() *fasthttp.Client {
	n := atomic.AddUint32(&hp.next, 1)
	return hp.clients[int(n-1)%len(hp.clients)]
}

func (hp *HTTPPool) Size() int {
	return len(hp.clients)
}

// Warmup opens a connection per client so the first member action does not
// pay for the TLS handshake. It reports how many clients succeeded.
func (hp *HTTPPool) Warmup(baseURL string) int {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	ok := 0
	for _, c := range hp.clients {
		req.SetRequestURI(baseURL + "/gateway")
		req.Header.SetMethod(fasthttp.MethodGet)
		if err := c.DoTimeout(req, resp, 2*time.Second); err == nil && resp.StatusCode() == fasthttp.StatusOK {
			ok++
		}
		resp.Reset()
	}
	return ok
}

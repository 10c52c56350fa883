package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 回應壓縮設定，由 svrcfg 注入。
//
// Skip 內的路徑不壓縮（/metrics 由 promhttp 自行協商 gzip）；等級為 0 時使用預設值。
type CompressConfig struct {
	Disabled  bool
	Skip      []string
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

// DefaultCompressConfig zstd 取最快、gzip 取預設等級，不排除任何路徑
func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		GzipLevel: gzip.DefaultCompression,
		ZstdLevel: zstd.SpeedFastest,
	}
}

// Compression 依 Accept-Encoding 以 zstd（優先）或 gzip 壓縮回應。
// 模擬報表與世代索引都是重複度高的 JSON，壓縮比很好。
func Compression(cfg CompressConfig) func(http.Handler) http.Handler {
	if cfg.Disabled {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.ZstdLevel == 0 {
		cfg.ZstdLevel = zstd.SpeedFastest
	}
	if cfg.GzipLevel == 0 {
		cfg.GzipLevel = gzip.DefaultCompression
	}
	c := &compressor{
		cfg:  cfg,
		skip: make(map[string]struct{}, len(cfg.Skip)),
	}
	for _, p := range cfg.Skip {
		c.skip[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.serve(next, w, r)
		})
	}
}

// compressor 每個 middleware 實例各自持有 encoder pool，等級跟著設定走
type compressor struct {
	cfg  CompressConfig
	skip map[string]struct{}
	gz   sync.Pool
	zs   sync.Pool
}

// encoder 統一 gzip.Writer 與 zstd.Encoder 的操作
type encoder interface {
	io.Writer
	Flush() error
	Close() error
	Reset(w io.Writer)
}

func (c *compressor) pick(accept string) (string, *sync.Pool) {
	switch {
	case strings.Contains(accept, "zstd"):
		return "zstd", &c.zs
	case strings.Contains(accept, "gzip"):
		return "gzip", &c.gz
	}
	return "", nil
}

func (c *compressor) get(name string, pool *sync.Pool, w io.Writer) (encoder, error) {
	if v := pool.Get(); v != nil {
		e := v.(encoder)
		e.Reset(w)
		return e, nil
	}
	if name == "zstd" {
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(c.cfg.ZstdLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, err
		}
		return zw, nil
	}
	gw, err := gzip.NewWriterLevel(w, c.cfg.GzipLevel)
	if err != nil {
		return nil, err
	}
	return gw, nil
}

func (c *compressor) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	if _, ok := c.skip[r.URL.Path]; ok || r.Method == http.MethodHead ||
		r.Header.Get("Upgrade") != "" || w.Header().Get("Content-Encoding") != "" {
		next.ServeHTTP(w, r)
		return
	}
	name, pool := c.pick(r.Header.Get("Accept-Encoding"))
	if pool == nil {
		next.ServeHTTP(w, r)
		return
	}
	enc, err := c.get(name, pool, w)
	if err != nil {
		next.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Encoding", name)
	w.Header().Add("Vary", "Accept-Encoding")

	cw := &compressWriter{ResponseWriter: w, enc: enc}
	defer func() {
		// 無 body 的狀態碼不能帶壓縮結尾
		if cw.bypass {
			enc.Reset(io.Discard)
		}
		_ = enc.Close()
		pool.Put(enc)
	}()
	next.ServeHTTP(cw, r)
}

type compressWriter struct {
	http.ResponseWriter
	enc    encoder
	bypass bool
}

func (cw *compressWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if code < 200 || code == http.StatusNoContent || code == http.StatusNotModified {
		cw.bypass = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if cw.bypass {
		return cw.ResponseWriter.Write(b)
	}
	h := cw.Header()
	h.Del("Content-Length")
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", http.DetectContentType(b))
	}
	return cw.enc.Write(b)
}

func (cw *compressWriter) Flush() {
	if !cw.bypass {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := cw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("compress: response writer does not support hijack")
}

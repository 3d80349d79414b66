// Package imgembed resolves image references into embeddable payloads.
//
// A Resolver is created once per conversion run and shared by every
// renderer, so all output formats of that run make identical embed
// decisions and each distinct reference is fetched and decoded at most
// once. Failures are cached like successes; whether a cached failure
// degrades to a warning or aborts the run is decided at the single
// Resolve call site, by the Strict option.
package imgembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-md2clip/internal/fileutil"
)

// Sentinel errors for image resolution.
var (
	ErrImageFetch       = errors.New("image fetch failed")
	ErrImageRead        = errors.New("image read failed")
	ErrImageDecode      = errors.New("image decode failed")
	ErrNotAnImage       = errors.New("reference is not an image")
	ErrUnknownPolicy    = errors.New("unknown embed policy")
	ErrResponseTooLarge = errors.New("image response exceeds size limit")
)

// maxImageBytes caps fetched/read image payloads (32MB).
const maxImageBytes = 32 << 20

// Policy decides which image references are embedded.
type Policy int

const (
	PolicyNone Policy = iota
	PolicyLocal
	PolicyRemote
	PolicyAll
)

// ParsePolicy parses a policy name: "all", "local", "remote", or "none".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "none":
		return PolicyNone, nil
	case "local":
		return PolicyLocal, nil
	case "remote":
		return PolicyRemote, nil
	case "all":
		return PolicyAll, nil
	}
	return PolicyNone, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

func (p Policy) String() string {
	switch p {
	case PolicyLocal:
		return "local"
	case PolicyRemote:
		return "remote"
	case PolicyAll:
		return "all"
	default:
		return "none"
	}
}

// EmbedsLocal reports whether local file references are embedded.
// "all" is exactly local ∪ remote.
func (p Policy) EmbedsLocal() bool { return p == PolicyLocal || p == PolicyAll }

// EmbedsRemote reports whether remote URL references are embedded.
func (p Policy) EmbedsRemote() bool { return p == PolicyRemote || p == PolicyAll }

// Optimization bounds embedded image size. Applies only to images that are
// actually embedded.
type Optimization struct {
	Enabled      bool
	MaxDimension int // longest allowed edge in pixels
	Quality      int // JPEG quality 1-100
}

// Defaults for optimization parameters.
const (
	DefaultMaxDimension = 1200
	DefaultQuality      = 80
	DefaultFetchTimeout = 10 * time.Second
	DefaultFetchLimit   = 4
)

// Options configures a Resolver.
type Options struct {
	Policy       Policy
	BaseDir      string // root for relative local references
	Strict       bool   // failures abort instead of degrading
	Optimize     Optimization
	FetchTimeout time.Duration // per-request bound, 0 = DefaultFetchTimeout
	FetchLimit   int           // concurrent remote fetches, 0 = DefaultFetchLimit
	Client       *http.Client  // nil = http.DefaultClient
}

// result is a cached resolution outcome. img == nil with err == nil means
// the reference stays unembedded (policy skip or non-strict degradation).
type result struct {
	img *Image
	err error
}

// Resolver resolves and caches image references for one conversion run.
type Resolver struct {
	opts   Options
	client *http.Client

	mu       sync.Mutex
	cache    map[string]result
	warnings []string
}

// NewResolver creates a Resolver, filling in option defaults.
func NewResolver(opts Options) *Resolver {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = DefaultFetchLimit
	}
	if opts.Optimize.MaxDimension <= 0 {
		opts.Optimize.MaxDimension = DefaultMaxDimension
	}
	if opts.Optimize.Quality <= 0 || opts.Optimize.Quality > 100 {
		opts.Optimize.Quality = DefaultQuality
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		opts:   opts,
		client: client,
		cache:  map[string]result{},
	}
}

// Resolve returns the embeddable payload for ref, or nil if the reference
// should stay as-is. In strict mode any resolution failure is returned as
// an error; otherwise it is recorded as a warning and the reference
// degrades to nil (unembedded).
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Image, error) {
	res := r.resolve(ctx, ref)
	if res.err != nil && r.opts.Strict {
		return nil, res.err
	}
	return res.img, nil
}

func (r *Resolver) resolve(ctx context.Context, ref string) result {
	key := strings.TrimSpace(ref)

	r.mu.Lock()
	if res, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return res
	}
	r.mu.Unlock()

	res := r.load(ctx, key)
	if res.err == nil && res.img != nil && r.opts.Optimize.Enabled {
		optimized, err := optimize(res.img, r.opts.Optimize)
		if err != nil {
			// Keep the original bytes: a broken optimizer must not
			// lose an image we already have.
			r.warnf("optimizing %q: %v (keeping original)", key, err)
		} else {
			res.img = optimized
		}
	}

	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		// Lost a race with a concurrent prefetch of the same ref.
		r.mu.Unlock()
		return cached
	}
	r.cache[key] = res
	if res.err != nil {
		r.warnings = append(r.warnings, res.err.Error())
	}
	r.mu.Unlock()
	return res
}

// load performs the uncached part of resolution.
func (r *Resolver) load(ctx context.Context, ref string) result {
	if r.opts.Policy == PolicyNone || fileutil.IsDataURL(ref) {
		return result{}
	}
	if fileutil.IsRemoteURL(ref) {
		if !r.opts.Policy.EmbedsRemote() {
			return result{}
		}
		img, err := r.fetch(ctx, ref)
		return result{img: img, err: err}
	}
	if !r.opts.Policy.EmbedsLocal() {
		return result{}
	}
	img, err := r.read(ref)
	return result{img: img, err: err}
}

// read loads a local reference relative to BaseDir.
func (r *Resolver) read(ref string) (*Image, error) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.opts.BaseDir, ref)
	}
	data, err := readFileCapped(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrImageRead, path, err)
	}
	return imageFromBytes(ref, data)
}

// readFileCapped reads a file, enforcing the same size cap as fetches.
func readFileCapped(path string) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the user's document
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

// fetch downloads a remote reference, bounded by FetchTimeout.
func (r *Resolver) fetch(ctx context.Context, ref string) (*Image, error) {
	url := ref
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrImageFetch, ref, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrImageFetch, ref, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %q: HTTP %d", ErrImageFetch, ref, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrImageFetch, ref, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: %q", ErrResponseTooLarge, ref)
	}
	return imageFromBytes(ref, data)
}

// imageFromBytes sniffs the MIME type from content and rejects non-images.
func imageFromBytes(ref string, data []byte) (*Image, error) {
	mime := mimetype.Detect(data).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: %q detected as %s", ErrNotAnImage, ref, mime)
	}
	return &Image{Data: data, MIME: mime}, nil
}

// Prefetch resolves remote references concurrently, bounded by FetchLimit.
// Results land in the cache; callers then Resolve in document order, so the
// output never depends on fetch completion order. In strict mode the first
// failure cancels the remaining fetches and is returned.
func (r *Resolver) Prefetch(ctx context.Context, refs []string) error {
	if !r.opts.Policy.EmbedsRemote() {
		return nil
	}

	seen := map[string]bool{}
	var remote []string
	for _, ref := range refs {
		key := strings.TrimSpace(ref)
		if seen[key] || !fileutil.IsRemoteURL(key) {
			continue
		}
		seen[key] = true
		remote = append(remote, key)
	}
	if len(remote) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.FetchLimit)
	for _, ref := range remote {
		g.Go(func() error {
			_, err := r.Resolve(gctx, ref)
			return err // nil unless strict
		})
	}
	return g.Wait()
}

// Warnings returns the degradations recorded so far, in resolution order.
func (r *Resolver) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

func (r *Resolver) warnf(format string, args ...any) {
	r.mu.Lock()
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// optimize downscales and re-encodes an embedded image. Only PNG and JPEG
// are touched; other formats pass through unchanged.
func optimize(img *Image, opt Optimization) (*Image, error) {
	var format imaging.Format
	switch img.MIME {
	case "image/png":
		format = imaging.PNG
	case "image/jpeg":
		format = imaging.JPEG
	default:
		return img, nil
	}

	src, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	bounds := src.Bounds()
	if bounds.Dx() <= opt.MaxDimension && bounds.Dy() <= opt.MaxDimension {
		return img, nil
	}

	dst := imaging.Fit(src, opt.MaxDimension, opt.MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if format == imaging.JPEG {
		err = imaging.Encode(&buf, dst, format, imaging.JPEGQuality(opt.Quality))
	} else {
		err = imaging.Encode(&buf, dst, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: re-encoding: %v", ErrImageDecode, err)
	}
	return &Image{Data: buf.Bytes(), MIME: img.MIME}, nil
}

package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/pkg/locator"
)

// Options configures a chromedp-backed browser session.
type Options struct {
	Headless          bool
	IgnoreTLSErrors   bool
	UserAgent         string
	WindowWidth       int
	WindowHeight      int
	NavigationTimeout time.Duration
}

// DefaultOptions returns the settings used when no configuration is supplied.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		WindowWidth:       1440,
		WindowHeight:      900,
		NavigationTimeout: 30 * time.Second,
	}
}

// Session owns one browser instance and implements Driver against it.
// Sessions are independent of each other; distinct sessions may run in
// parallel, but a single Session is not meant for concurrent use.
type Session struct {
	id     string
	opts   Options
	logger *zap.Logger

	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	// ctx is the chromedp session context all actions are dispatched on.
	ctx context.Context
}

// NewSession launches a browser and returns a Session bound to it.
func NewSession(parent context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.IgnoreTLSErrors {
		allocOpts = append(allocOpts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	sessionCtx, ctxCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          uuid.NewString(),
		opts:        opts,
		logger:      logger.Named("session"),
		allocCancel: allocCancel,
		ctxCancel:   ctxCancel,
		ctx:         sessionCtx,
	}

	// Starts the browser process eagerly so a broken environment fails here,
	// not on the first locate.
	if err := chromedp.Run(sessionCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("driver: launching browser: %w", err)
	}
	s.logger.Debug("browser session started", zap.String("session_id", s.id))
	return s, nil
}

// ID returns the unique identifier of this session.
func (s *Session) ID() string { return s.id }

// Navigate loads url and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()
	return s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Close tears the browser down. Safe to call more than once.
func (s *Session) Close() error {
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return nil
}

// run dispatches actions on the session context. The session context carries
// the chromedp executor; the caller's context only contributes cancellation
// and deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, stop := mergedContext(s.ctx, ctx)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// mergedContext derives a context from base that additionally observes the
// caller's deadline and cancellation. Values and the executor still come from
// base. The returned stop func releases the bridge and must always be called.
func mergedContext(base, caller context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(base)
	unregister := context.AfterFunc(caller, cancel)
	if deadline, ok := caller.Deadline(); ok {
		var dcancel context.CancelFunc
		merged, dcancel = context.WithDeadline(merged, deadline)
		return merged, func() { unregister(); dcancel(); cancel() }
	}
	return merged, func() { unregister(); cancel() }
}

// LocateOne implements Driver.
func (s *Session) LocateOne(ctx context.Context, scope Handle, loc locator.Spec) (Handle, error) {
	nodes, err := s.locate(ctx, scope, loc)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return &cdpHandle{s: s, node: nodes[0]}, nil
}

// LocateAll implements Driver.
func (s *Session) LocateAll(ctx context.Context, scope Handle, loc locator.Spec) ([]Handle, error) {
	nodes, err := s.locate(ctx, scope, loc)
	if err != nil {
		return nil, err
	}
	handles := make([]Handle, len(nodes))
	for i, n := range nodes {
		handles[i] = &cdpHandle{s: s, node: n}
	}
	return handles, nil
}

func (s *Session) locate(ctx context.Context, scope Handle, loc locator.Spec) ([]*cdp.Node, error) {
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	switch loc.Dialect {
	case locator.PathQuery:
		// CDP's search API resolves document paths but has no subtree scope;
		// path queries always search the whole document.
		opts = append(opts, chromedp.BySearch)
	default:
		opts = append(opts, chromedp.ByQueryAll)
		if scope != nil {
			sh, ok := scope.(*cdpHandle)
			if !ok {
				return nil, fmt.Errorf("driver: scope handle is not a session handle")
			}
			opts = append(opts, chromedp.FromNode(sh.node))
		}
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(loc.Expression, &nodes, opts...)); err != nil {
		return nil, classify(err)
	}
	return nodes, nil
}

// CallOn implements Driver.
func (s *Session) CallOn(ctx context.Context, target Handle, fnDecl string, jsonArgs ...string) (string, error) {
	h, ok := target.(*cdpHandle)
	if !ok {
		return "", fmt.Errorf("driver: target handle is not a session handle")
	}
	var res json.RawMessage
	if err := h.callOn(ctx, fnDecl, &res, jsonArgs...); err != nil {
		return "", err
	}
	return string(res), nil
}

// Gesture implements Driver.
func (s *Session) Gesture() Gesture {
	return &cdpGesture{s: s}
}

// staleIndicators are CDP error fragments that mean a node reference points
// at nothing attached to the current document.
var staleIndicators = []string{
	"no node with given id",
	"node with given id does not belong to the document",
	"could not find node with given id",
	"object id doesn't reference a node",
	"cannot find context with specified id",
	"node is detached from document",
	"argument node does not belong to the document",
}

// classify maps raw CDP failures onto the driver error taxonomy, leaving
// everything it does not recognize untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, ind := range staleIndicators {
		if strings.Contains(msg, ind) {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
	}
	return err
}

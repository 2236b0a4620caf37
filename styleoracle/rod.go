// Package styleoracle computes the rendered style of slide containers with a
// headless Chromium driven through go-rod.
package styleoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	pptxhtml "github.com/VantageDataChat/GoPPTHTML"
)

const computeScript = `() => {
	const out = [];
	for (const el of document.querySelectorAll('.sli-slide')) {
		if (el.parentElement && el.parentElement.closest('.sli-slide')) continue;
		const cs = window.getComputedStyle(el);
		out.push({background: cs.background, backgroundColor: cs.backgroundColor});
	}
	return out;
}`

// Rod implements pptxhtml.StyleOracle. The browser is started lazily on the
// first request and shared by later ones; each request gets its own page.
type Rod struct {
	controlURL string

	mu       sync.Mutex
	browser  *rod.Browser
	launched *launcher.Launcher
}

var _ pptxhtml.StyleOracle = (*Rod)(nil)

// NewRod returns an oracle connected to the DevTools endpoint at controlURL.
// An empty controlURL launches a local headless browser on first use.
func NewRod(controlURL string) *Rod {
	return &Rod{controlURL: controlURL}
}

func (r *Rod) connect(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.controlURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		r.launched = l
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("control_url", controlURL).Msg("style oracle connected")
	r.browser = browser
	return browser, nil
}

// ComputeStyles renders markup and reads the computed background of every
// top-level slide container in document order.
func (r *Rod) ComputeStyles(ctx context.Context, markup string) ([]pptxhtml.ComputedStyle, error) {
	browser, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(markup); err != nil {
		return nil, fmt.Errorf("load markup: %w", err)
	}
	res, err := page.Evaluate(&rod.EvalOptions{
		JS:      computeScript,
		ByValue: true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate computed styles: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var styles []pptxhtml.ComputedStyle
	if err := json.Unmarshal(raw, &styles); err != nil {
		return nil, fmt.Errorf("decode computed styles: %w", err)
	}
	return styles, nil
}

// Close disconnects from the browser and stops it when it was launched here.
func (r *Rod) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launched != nil {
		r.launched.Kill()
		r.launched = nil
	}
	return err
}

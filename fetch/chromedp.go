package fetch

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// ChromedpDriver is a BrowserDriver backed by chromedp's headless-Chrome
// protocol client.
type ChromedpDriver struct {
	allocOpts []chromedp.ExecAllocatorOption
}

// NewChromedpDriver creates a ChromedpDriver. opts, if non-nil, override the
// default headless allocator options.
func NewChromedpDriver(opts ...chromedp.ExecAllocatorOption) *ChromedpDriver {
	if len(opts) == 0 {
		opts = chromedp.DefaultExecAllocatorOptions[:]
	}
	return &ChromedpDriver{allocOpts: opts}
}

// NewContext implements BrowserDriver.
func (d *ChromedpDriver) NewContext(ctx context.Context) (Context, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, d.allocOpts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		taskCancel()
		allocCancel()
	}

	return &chromedpContext{ctx: taskCtx, cancel: cancel}, nil
}

type chromedpContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *chromedpContext) NewPage(ctx context.Context) (Page, error) {
	return &chromedpPage{ctx: c.ctx}, nil
}

func (c *chromedpContext) Close(ctx context.Context) error {
	c.cancel()
	return nil
}

type chromedpPage struct {
	ctx context.Context
}

func (p *chromedpPage) Goto(ctx context.Context, url string) error {
	if err := chromedp.Run(p.ctx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("navigate %q: %w", url, err)
	}
	return nil
}

func (p *chromedpPage) Eval(ctx context.Context, expr string, out interface{}) error {
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("eval %q: %w", expr, err)
	}
	return nil
}

func (p *chromedpPage) Close(ctx context.Context) error {
	return nil
}

var _ BrowserDriver = (*ChromedpDriver)(nil)

package driver

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// position is the pointer location threaded through a gesture's steps.
type position struct {
	x, y float64
}

type gestureStep func(ctx context.Context, pos *position) error

// cdpGesture records pointer steps and replays them as raw input events when
// Perform is called. Target centers are resolved at perform time, not at
// record time, so a gesture built against handles observes the layout in
// effect when it runs.
type cdpGesture struct {
	s     *Session
	steps []gestureStep
}

func (g *cdpGesture) MoveTo(target Handle) Gesture {
	g.steps = append(g.steps, func(ctx context.Context, pos *position) error {
		h, ok := target.(*cdpHandle)
		if !ok {
			return fmt.Errorf("driver: gesture target is not a session handle")
		}
		x, y, err := nodeCenter(ctx, h.node)
		if err != nil {
			return err
		}
		pos.x, pos.y = x, y
		return chromedp.MouseEvent(input.MouseMoved, pos.x, pos.y).Do(ctx)
	})
	return g
}

func (g *cdpGesture) MoveBy(dx, dy float64) Gesture {
	g.steps = append(g.steps, func(ctx context.Context, pos *position) error {
		pos.x += dx
		pos.y += dy
		return chromedp.MouseEvent(input.MouseMoved, pos.x, pos.y).Do(ctx)
	})
	return g
}

func (g *cdpGesture) Press(button Button) Gesture {
	g.steps = append(g.steps, func(ctx context.Context, pos *position) error {
		return chromedp.MouseEvent(input.MousePressed, pos.x, pos.y,
			chromedp.Button(string(button)), chromedp.ClickCount(1)).Do(ctx)
	})
	return g
}

func (g *cdpGesture) Release(button Button) Gesture {
	g.steps = append(g.steps, func(ctx context.Context, pos *position) error {
		return chromedp.MouseEvent(input.MouseReleased, pos.x, pos.y,
			chromedp.Button(string(button)), chromedp.ClickCount(1)).Do(ctx)
	})
	return g
}

func (g *cdpGesture) Click(count int) Gesture {
	g.steps = append(g.steps, func(ctx context.Context, pos *position) error {
		// Browsers report consecutive clicks with an increasing count on
		// each press/release pair.
		for i := 1; i <= count; i++ {
			if err := chromedp.MouseEvent(input.MousePressed, pos.x, pos.y,
				chromedp.Button("left"), chromedp.ClickCount(i)).Do(ctx); err != nil {
				return err
			}
			if err := chromedp.MouseEvent(input.MouseReleased, pos.x, pos.y,
				chromedp.Button("left"), chromedp.ClickCount(i)).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	return g
}

func (g *cdpGesture) ContextClick() Gesture {
	return g.Press(ButtonRight).Release(ButtonRight)
}

func (g *cdpGesture) Perform(ctx context.Context) error {
	err := g.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var pos position
		for _, step := range g.steps {
			if err := step(ctx, &pos); err != nil {
				return err
			}
		}
		return nil
	}))
	g.steps = nil
	return classify(err)
}

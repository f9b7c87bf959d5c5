package bake

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Verify walks the whole hierarchy, decoding every header table and every
// sample block, and returns the first structural error found.
//
// Objects are verified in parallel; ctx cancels the walk. A nil return
// means every block in the archive decompresses and decodes cleanly.
func (a *Archive) Verify(ctx context.Context) error {
	if _, err := a.Metadata(); err != nil {
		return err
	}
	if _, err := a.NumTimeSamplings(); err != nil {
		return err
	}
	root, err := a.Root()
	if err != nil {
		return err
	}

	// Gather the hierarchy first: header tables are small and cheap, and a
	// flat object list lets the sample verification fan out freely.
	var objects []*Object
	queue := []*Object{root}
	for len(queue) > 0 {
		o := queue[0]
		queue = queue[1:]
		objects = append(objects, o)
		children, err := o.Children()
		if err != nil {
			return fmt.Errorf("verify %s: %w", o.FullName(), err)
		}
		queue = append(queue, children...)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, o := range objects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			props, err := o.Properties()
			if err != nil {
				return fmt.Errorf("verify %s: %w", o.FullName(), err)
			}
			return a.verifyCompound(ctx, o, props)
		})
	}
	return g.Wait()
}

func (a *Archive) verifyCompound(ctx context.Context, o *Object, c *Compound) error {
	for i := range c.Len() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := c.PropertyAt(i)
		if err != nil {
			return fmt.Errorf("verify %s: %w", o.FullName(), err)
		}
		switch p := p.(type) {
		case *CompoundProperty:
			sub, err := p.Properties()
			if err != nil {
				return fmt.Errorf("verify %s.%s: %w", o.FullName(), p.Name(), err)
			}
			if err := a.verifyCompound(ctx, o, sub); err != nil {
				return err
			}
		case *ScalarProperty:
			if err := a.verifySamples(&p.propertyReader); err != nil {
				return fmt.Errorf("verify %s.%s: %w", o.FullName(), p.Name(), err)
			}
		case *ArrayProperty:
			if err := a.verifySamples(&p.propertyReader); err != nil {
				return fmt.Errorf("verify %s.%s: %w", o.FullName(), p.Name(), err)
			}
		}
	}
	return nil
}

func (a *Archive) verifySamples(p *propertyReader) error {
	n, err := p.SampleCount()
	if err != nil {
		return err
	}
	if _, err := p.TimeSampling(); err != nil {
		return err
	}
	for i := range n {
		if _, err := p.Sample(i); err != nil {
			return err
		}
	}
	return nil
}

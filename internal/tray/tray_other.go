//go:build !windows

package tray

import "context"

// Run drains events headlessly until ctx ends.
func Run(ctx context.Context, opts Options) {
	drain(ctx, opts, nil)
	if opts.OnQuit != nil {
		opts.OnQuit()
	}
}

// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package supervisor

import (
	"context"
)

// RunFunc adapts a blocking Run(ctx) function into a suture.Service.
type RunFunc struct {
	Name string
	Run  func(ctx context.Context) error
}

func (s RunFunc) Serve(ctx context.Context) error {
	return s.Run(ctx)
}

func (s RunFunc) String() string {
	return s.Name
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface is the presentation boundary of the preview loop.
//
// A Surface reports its size, queues input and window events and presents
// finished frames. Two implementations are provided:
//
//   - ImageSurface: headless, keeps the last frame in memory and replays
//     scripted events. Used by tests and the CLI preview command.
//   - Window: adapter over a host window described by
//     gpucontext.WindowProvider and gpucontext.EventSource.
//
// # Events
//
// Events are close, key press, key release and resize. Keys use
// gpucontext.Key. The preview loop stops on a close event or on the
// release of gpucontext.KeyEscape (see Event.Quits).
//
// # Registry
//
// Backends register a Factory under a name:
//
//	s, err := surface.NewByName("image", 800, 600)
package surface

// Package gpucore defines the backend-neutral device contract used by the
// dali stipple pipeline.
//
// The pipeline in the root package never talks to a graphics API directly.
// It drives a [Device] through opaque resource IDs, the same way the
// rendering algorithms of a shared core talk to thin backend adapters:
//
//	               +-----------------+
//	               |  dali.Pipeline  |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               | gpucore.Device  |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  internal/gpu   |          |    software     |
//	|  (wgpu HAL)     |          |  (pure Go CPU)  |
//	+-----------------+          +-----------------+
//
// # Resource lifecycle
//
// Resources are created through Create* methods and released with the
// matching Destroy* method. IDs are never reused after destruction. Using a
// destroyed ID returns [ErrUnknownResource].
//
// # Instance records
//
// Per-instance attributes travel as [Instance] values. Backends that upload
// them to GPU memory use [Instance.AppendBytes], which writes the packed
// little-endian layout described by [InstanceStride].
package gpucore

// Command libmeshstream builds as a C shared library (-buildmode=c-shared)
// exposing the sender half of the mesh streaming transport to non-Go
// processes. Every exported function follows the integer status convention
// from internal/ffi; borrowed buffers are copied before any call returns, so
// no foreign pointer is retained past its call.
package main

/*
#include <stdint.h>
#include <stddef.h>
#include <string.h>

typedef struct {
	uint32_t format;             // 0 = binary, 1 = json
	uint64_t max_message_size;   // bytes, 0 = default (100 MiB)
	uint8_t  tcp_nodelay;        // nonzero enables TCP_NODELAY
	uint64_t send_buffer_size;   // bytes, 0 = system default
	uint64_t connect_timeout_ms; // 0 = no timeout
	uint64_t write_timeout_ms;   // 0 = no timeout
} meshstream_sender_config_t;

typedef struct {
	const char*     simulation_id; // null-terminated UTF-8
	uint32_t        frame_number;
	uint64_t        timestamp_ns;
	double          bounds_min[3];
	double          bounds_max[3];
	const float*    vertices;      // x,y,z triplets
	size_t          vertex_floats; // number of floats, multiple of 3
	const float*    normals;       // NULL when absent
	size_t          normal_floats;
	const uint32_t* indices;       // NULL when absent
	size_t          index_count;
} meshstream_mesh_frame_t;
*/
import "C"

import (
	"net"
	"strconv"
	"unsafe"

	"github.com/danmuck/meshstream/internal/ffi"
	"github.com/danmuck/meshstream/internal/logging"
	"github.com/danmuck/meshstream/internal/sender"
)

var (
	registry   = ffi.NewRegistry()
	versionStr = C.CString(ffi.LibraryVersion)
)

//export meshstream_default_config
func meshstream_default_config() C.meshstream_sender_config_t {
	cfg := sender.DefaultConfig()
	var out C.meshstream_sender_config_t
	out.format = C.uint32_t(cfg.Format)
	out.max_message_size = C.uint64_t(cfg.MaxMessageSize)
	if cfg.NoDelay {
		out.tcp_nodelay = 1
	}
	out.send_buffer_size = C.uint64_t(cfg.SendBufferSize)
	out.connect_timeout_ms = C.uint64_t(cfg.ConnectTimeout.Milliseconds())
	out.write_timeout_ms = C.uint64_t(cfg.WriteTimeout.Milliseconds())
	return out
}

//export meshstream_create_sender
func meshstream_create_sender(host *C.char, port C.uint16_t) C.uint64_t {
	if host == nil {
		return 0
	}
	return connectSender(C.GoString(host), uint16(port), sender.DefaultConfig())
}

//export meshstream_create_sender_with_config
func meshstream_create_sender_with_config(host *C.char, port C.uint16_t,
	cfg *C.meshstream_sender_config_t) C.uint64_t {

	if host == nil || cfg == nil {
		return 0
	}
	goCfg, ok := ffi.SenderConfigFromABI(
		uint32(cfg.format),
		uint64(cfg.max_message_size),
		cfg.tcp_nodelay != 0,
		uint64(cfg.send_buffer_size),
		uint64(cfg.connect_timeout_ms),
		uint64(cfg.write_timeout_ms),
	)
	if !ok {
		return 0
	}
	return connectSender(C.GoString(host), uint16(port), goCfg)
}

func connectSender(host string, port uint16, cfg sender.Config) C.uint64_t {
	logging.ConfigureRuntime()
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	s, err := sender.Connect(addr, cfg)
	if err != nil {
		return 0
	}
	return C.uint64_t(registry.Put(s))
}

//export meshstream_send_mesh
func meshstream_send_mesh(handle C.uint64_t, frame *C.meshstream_mesh_frame_t) C.int32_t {
	s, ok := registry.Get(uint64(handle))
	if !ok || frame == nil {
		return C.int32_t(ffi.StatusInvalidArg)
	}
	if frame.simulation_id == nil || frame.vertices == nil {
		return C.int32_t(ffi.StatusInvalidArg)
	}

	in := ffi.FrameInput{
		SimulationID: C.GoBytes(unsafe.Pointer(frame.simulation_id),
			C.int(C.strlen(frame.simulation_id))),
		FrameNumber: uint32(frame.frame_number),
		Timestamp:   uint64(frame.timestamp_ns),
		Vertices: unsafe.Slice((*float32)(unsafe.Pointer(frame.vertices)),
			int(frame.vertex_floats)),
	}
	for i := 0; i < 3; i++ {
		in.BoundsMin[i] = float64(frame.bounds_min[i])
		in.BoundsMax[i] = float64(frame.bounds_max[i])
	}
	if frame.normals != nil {
		in.Normals = unsafe.Slice((*float32)(unsafe.Pointer(frame.normals)),
			int(frame.normal_floats))
	}
	if frame.indices != nil {
		in.Indices = unsafe.Slice((*uint32)(unsafe.Pointer(frame.indices)),
			int(frame.index_count))
	}

	// BuildFrame copies every borrowed buffer; nothing above survives the
	// return.
	goFrame, status := ffi.BuildFrame(in)
	if status != ffi.StatusOK {
		return C.int32_t(status)
	}
	if err := s.SendMesh(goFrame); err != nil {
		return C.int32_t(ffi.StatusFailure)
	}
	return C.int32_t(ffi.StatusOK)
}

//export meshstream_send_heartbeat
func meshstream_send_heartbeat(handle C.uint64_t) C.int32_t {
	s, ok := registry.Get(uint64(handle))
	if !ok {
		return C.int32_t(ffi.StatusInvalidArg)
	}
	if err := s.SendHeartbeat(); err != nil {
		return C.int32_t(ffi.StatusFailure)
	}
	return C.int32_t(ffi.StatusOK)
}

//export meshstream_flush
func meshstream_flush(handle C.uint64_t) C.int32_t {
	s, ok := registry.Get(uint64(handle))
	if !ok {
		return C.int32_t(ffi.StatusInvalidArg)
	}
	if err := s.Flush(); err != nil {
		return C.int32_t(ffi.StatusFailure)
	}
	return C.int32_t(ffi.StatusOK)
}

//export meshstream_get_stats
func meshstream_get_stats(handle C.uint64_t, framesOut *C.uint64_t, bytesOut *C.uint64_t) C.int32_t {
	s, ok := registry.Get(uint64(handle))
	if !ok || framesOut == nil || bytesOut == nil {
		return C.int32_t(ffi.StatusInvalidArg)
	}
	stats := s.Stats()
	*framesOut = C.uint64_t(stats.FramesSent)
	*bytesOut = C.uint64_t(stats.BytesSent)
	return C.int32_t(ffi.StatusOK)
}

//export meshstream_destroy_sender
func meshstream_destroy_sender(handle C.uint64_t) {
	s, ok := registry.Remove(uint64(handle))
	if !ok {
		return
	}
	_ = s.Shutdown()
}

//export meshstream_last_error
func meshstream_last_error() *C.char {
	// No thread-local error storage; detail goes to process-wide logging.
	return nil
}

//export meshstream_version
func meshstream_version() *C.char {
	return versionStr
}

func main() {}

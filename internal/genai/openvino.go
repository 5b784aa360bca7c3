//go:build openvino && cgo

package genai

/*
#cgo LDFLAGS: -lopenvino_genai_c -lopenvino_genai -lopenvino_c -lopenvino
#include <stdint.h>
#include <stdlib.h>
#include "openvino/c/ov_common.h"
#include "openvino/genai/c/llm_pipeline.h"

extern int ovchatOnToken(char* str, uintptr_t handle);

static ov_genai_streamming_status_e ovchat_trampoline(const char* str, void* args) {
	return (ov_genai_streamming_status_e)ovchatOnToken((char*)str, (uintptr_t)args);
}

static ov_status_e ovchat_pipeline_create(const char* path, const char* device, ov_genai_llm_pipeline** pipe) {
	return ov_genai_llm_pipeline_create(path, device, 0, pipe);
}

static ov_status_e ovchat_generate_stream(ov_genai_llm_pipeline* pipe, const char* input,
		const ov_genai_generation_config* cfg, uintptr_t handle, ov_genai_decoded_results** results) {
	streamer_callback cb;
	cb.callback_func = ovchat_trampoline;
	cb.args = (void*)handle;
	return ov_genai_llm_pipeline_generate(pipe, input, cfg, &cb, results);
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"runtime/cgo"
	"sync"
	"unsafe"
)

func init() {
	Register("openvino", func() Runtime { return &OpenVINO{} })
}

const (
	streamRunning = 0
	streamStop    = 1
)

// OpenVINO drives an ov::genai::LLMPipeline through the GenAI C API. The
// pipeline runs in chat mode between Initialize and Cleanup, so the model
// keeps its own conversation state across turns.
type OpenVINO struct {
	mu     sync.Mutex
	pipe   *C.ov_genai_llm_pipeline
	genCfg *C.ov_genai_generation_config
	cfg    Config
}

func (o *OpenVINO) Initialize(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pipe != nil {
		return errors.New("openvino: pipeline already initialized")
	}

	cPath := C.CString(cfg.ModelPath)
	defer C.free(unsafe.Pointer(cPath))
	cDevice := C.CString(cfg.Device)
	defer C.free(unsafe.Pointer(cDevice))

	var pipe *C.ov_genai_llm_pipeline
	if st := C.ovchat_pipeline_create(cPath, cDevice, &pipe); st != C.OK {
		return statusError("create pipeline", st)
	}

	var genCfg *C.ov_genai_generation_config
	if st := C.ov_genai_generation_config_create(&genCfg); st != C.OK {
		C.ov_genai_llm_pipeline_free(pipe)
		return statusError("create generation config", st)
	}
	if st := C.ov_genai_generation_config_set_max_new_tokens(genCfg, C.size_t(cfg.MaxNewTokens)); st != C.OK {
		C.ov_genai_generation_config_free(genCfg)
		C.ov_genai_llm_pipeline_free(pipe)
		return statusError("set max_new_tokens", st)
	}
	if st := C.ov_genai_llm_pipeline_start_chat(pipe); st != C.OK {
		C.ov_genai_generation_config_free(genCfg)
		C.ov_genai_llm_pipeline_free(pipe)
		return statusError("start chat", st)
	}

	o.pipe = pipe
	o.genCfg = genCfg
	o.cfg = cfg
	return nil
}

func (o *OpenVINO) Generate(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pipe == nil {
		return "", ErrNotInitialized
	}

	cInput := C.CString(message)
	defer C.free(unsafe.Pointer(cInput))

	var results *C.ov_genai_decoded_results
	if st := C.ov_genai_llm_pipeline_generate(o.pipe, cInput, o.genCfg, nil, &results); st != C.OK {
		return "", statusError("generate", st)
	}
	defer C.ov_genai_decoded_results_free(results)
	return decodedString(results)
}

type streamState struct {
	ctx    context.Context
	fn     StreamFunc
	panicV any
}

func (o *OpenVINO) GenerateStream(ctx context.Context, message string, stream StreamFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pipe == nil {
		return ErrNotInitialized
	}

	cInput := C.CString(message)
	defer C.free(unsafe.Pointer(cInput))

	state := &streamState{ctx: ctx, fn: stream}
	h := cgo.NewHandle(state)
	defer h.Delete()

	var results *C.ov_genai_decoded_results
	st := C.ovchat_generate_stream(o.pipe, cInput, o.genCfg, C.uintptr_t(h), &results)
	if results != nil {
		C.ov_genai_decoded_results_free(results)
	}
	if state.panicV != nil {
		return fmt.Errorf("panic in stream callback: %v", state.panicV)
	}
	if st != C.OK {
		return statusError("generate stream", st)
	}
	return ctx.Err()
}

func (o *OpenVINO) Cleanup() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pipe == nil {
		return nil
	}
	var err error
	if st := C.ov_genai_llm_pipeline_finish_chat(o.pipe); st != C.OK {
		err = statusError("finish chat", st)
	}
	C.ov_genai_generation_config_free(o.genCfg)
	C.ov_genai_llm_pipeline_free(o.pipe)
	o.genCfg = nil
	o.pipe = nil
	return err
}

func decodedString(results *C.ov_genai_decoded_results) (string, error) {
	var size C.size_t
	if st := C.ov_genai_decoded_results_get_string(results, nil, &size); st != C.OK {
		return "", statusError("read result size", st)
	}
	if size == 0 {
		return "", nil
	}
	buf := (*C.char)(C.malloc(size))
	defer C.free(unsafe.Pointer(buf))
	if st := C.ov_genai_decoded_results_get_string(results, buf, &size); st != C.OK {
		return "", statusError("read result", st)
	}
	return C.GoString(buf), nil
}

func statusError(op string, st C.ov_status_e) error {
	msg := C.GoString(C.ov_get_error_info(st))
	return fmt.Errorf("openvino: %s: %s (status %d)", op, msg, int(st))
}

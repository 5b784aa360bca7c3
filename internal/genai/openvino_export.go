//go:build openvino && cgo

package genai

/*
#include <stdint.h>
*/
import "C"

import "runtime/cgo"

//export ovchatOnToken
func ovchatOnToken(str *C.char, handle C.uintptr_t) (status C.int) {
	state, ok := cgo.Handle(handle).Value().(*streamState)
	if !ok {
		return streamStop
	}
	defer func() {
		if rec := recover(); rec != nil {
			state.panicV = rec
			status = streamStop
		}
	}()
	if state.ctx.Err() != nil {
		return streamStop
	}
	if state.fn != nil {
		state.fn(C.GoString(str))
	}
	return streamRunning
}

// Package unsafer reinterprets memory between slice types without going
// through an encoding step.
package unsafer

import (
	"unsafe"
)

// SliceToBytes interprets an arbitrary input slice as a byte slice.
//
// Note that the returned slice points to the same underlying data in memory. It
// does not make a copy.
func SliceToBytes[T any](input []T) []byte {
	if len(input) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(input[0])) * len(input)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(input))), size)
}

// BytesToWords copies data into a new slice of native-endian 32 bit words, as
// expected by vk.ShaderModuleCreateInfo. Trailing bytes which do not fill a
// whole word are dropped.
//
// Unlike SliceToBytes the result does not alias data, so it is always
// correctly aligned.
func BytesToWords(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	copy(SliceToBytes(words), data)
	return words
}

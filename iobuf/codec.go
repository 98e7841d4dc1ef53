package iobuf

import "encoding/binary"

// Int32Codec is the reference Codec for the int32 element type used
// throughout this module's tests and its CLI.
var Int32Codec = Codec[int32]{
	Size: 4,
	Encode: func(v int32, dst []byte) {
		binary.BigEndian.PutUint32(dst, uint32(v))
	},
	Decode: func(src []byte) int32 {
		return int32(binary.BigEndian.Uint32(src))
	},
}

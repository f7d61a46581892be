package decode

import "unsafe"

// ptrOf returns v's address as the unsafe.Pointer request.AddControl
// expects for a compound control payload.
func ptrOf[T any](v *T) unsafe.Pointer { return unsafe.Pointer(v) }

// ptrSize returns the wire size of a compound control payload struct.
func ptrSize[T any](v T) uintptr { return unsafe.Sizeof(v) }

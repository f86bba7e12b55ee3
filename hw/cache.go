// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

// Cache performs data-cache maintenance for non-coherent DMA.  Flush
// writes dirty lines back to the point of coherency before the device
// reads; Invalidate discards stale lines before the CPU reads what the
// device wrote.  Ranges are physical [addr, addr+n).
type Cache interface {
	Flush(addr uint64, n uint)
	Invalidate(addr uint64, n uint)
}

// Coherent is the maintenance policy for platforms where DMA snoops the
// CPU caches: nothing to do.
type Coherent struct{}

func (Coherent) Flush(addr uint64, n uint)      {}
func (Coherent) Invalidate(addr uint64, n uint) {}

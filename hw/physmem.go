// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"fmt"
	"os"
	"syscall"
)

// DmaBuf is a buffer visible to both CPU and device: Data is the CPU
// mapping, PhysAddress what the device DMAs to/from.
type DmaBuf struct {
	Data        []byte
	PhysAddress uint64
}

// Pool hands out coherent buffers.  Drivers allocate at bring-up only.
type Pool interface {
	AllocAligned(n, log2Align uint) (DmaBuf, error)
}

// DmaHeap is a bump allocator over one contiguous DMA-capable region
// (reserved-memory carveout, hugepage, or test array).
type DmaHeap struct {
	data   []byte
	phys   uint64
	offset uint
}

func DmaInit(b []byte, phys uint64) *DmaHeap { return &DmaHeap{data: b, phys: phys} }

// MapDmaCarveout maps a physically contiguous reserved-memory region
// through /dev/mem and wraps it in a heap.  The region must be page
// aligned; descriptor rings and packet buffers come out of it.
func MapDmaCarveout(phys uint64, size uint) (*DmaHeap, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := syscall.Mmap(int(f.Fd()), int64(phys), int(size),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap dma carveout 0x%x: %s", phys, err)
	}
	return DmaInit(b, phys), nil
}

func (h *DmaHeap) AllocAligned(n, log2Align uint) (b DmaBuf, err error) {
	a := uint(1)<<log2Align - 1
	o := (h.offset + a) &^ a
	if o+n > uint(len(h.data)) {
		err = fmt.Errorf("dma heap: out of memory (%d of %d bytes left, want %d)",
			uint(len(h.data))-h.offset, len(h.data), n)
		return
	}
	h.offset = o + n
	b.Data = h.data[o : o+n : o+n]
	b.PhysAddress = h.phys + uint64(o)
	return
}

func (h *DmaHeap) Usage() string {
	return fmt.Sprintf("%d/%d bytes", h.offset, len(h.data))
}

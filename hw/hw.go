// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Memory mapped register read/write.
package hw

import (
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
	"unsafe"
)

// Bus is a window of device registers.  Offsets are in bytes from the
// device base address.
type Bus interface {
	R32(offset uint) uint32
	W32(offset uint, v uint32)
}

// Mmio maps a physical register region through /dev/mem.
type Mmio struct {
	b    []byte
	phys uintptr
}

func MapMmio(phys uintptr, size uint) (*Mmio, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pageSize := uintptr(syscall.Getpagesize())
	pageOffset := phys & (pageSize - 1)
	b, err := syscall.Mmap(int(f.Fd()), int64(phys-pageOffset),
		int(uintptr(size)+pageOffset),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap 0x%x: %s", phys, err)
	}
	return &Mmio{b: b[pageOffset:], phys: phys}, nil
}

func (m *Mmio) Unmap() error { return syscall.Munmap(m.b[:cap(m.b)]) }

// Atomic access keeps loads/stores whole and ordered; the compiler may
// otherwise tear or elide accesses to memory it believes is ordinary.
func (m *Mmio) R32(o uint) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m.b[o])))
}

func (m *Mmio) W32(o uint, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m.b[o])), v)
}

var memoryBarrierData uint32

// MemoryBarrier orders descriptor memory writes before the register write
// that makes them visible to the device.
func MemoryBarrier() { atomic.AddUint32(&memoryBarrierData, 0) }

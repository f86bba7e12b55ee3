// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

import (
	"unsafe"

	"github.com/platinasystems/macb/hw"
)

// Hardware descriptor: buffer address word and control/status word.
// With 64-bit addressing the controller fetches a second 8-byte pair per
// descriptor (address high word + padding), so a logical descriptor
// occupies two ring slots.  Rings are always sized for the wide layout.
const dma_desc_size = 16

// RX descriptor address word bits.  The ownership and wrap markers live
// in the low bits of the (64-byte aligned) buffer address.
const (
	rx_addr_used = 1 << 0 // set by hardware when a buffer has been filled
	rx_addr_wrap = 1 << 1 // last descriptor: hardware restarts at index 0
)

// RX descriptor control/status word.
const (
	rx_ctrl_frmlen_mask = 0x00000fff
	rx_ctrl_sof         = 1 << 14
	rx_ctrl_eof         = 1 << 15
)

// TX descriptor control/status word.
const (
	tx_ctrl_frmlen_mask   = 0x000007ff
	tx_ctrl_last          = 1 << 15
	tx_ctrl_buf_exhausted = 1 << 27 // buffers exhausted in mid frame
	tx_ctrl_underrun      = 1 << 28
	tx_ctrl_wrap          = 1 << 30
	tx_ctrl_used          = 1 << 31 // set by hardware when frame processed
)

func encode_tx_ctrl(length uint, is_last, is_wrap bool) (v uint32) {
	v = uint32(length) & tx_ctrl_frmlen_mask
	if is_last {
		v |= tx_ctrl_last
	}
	if is_wrap {
		v |= tx_ctrl_wrap
	}
	return
}

func rx_frame_len(ctrl uint32) uint { return uint(ctrl & rx_ctrl_frmlen_mask) }

// desc_ring is a view of ring descriptor memory shared with the device.
// Logical descriptor index i lives at word (i << shift) * 2; shift is 1
// when 64-bit addressing widens every descriptor to two slots.
type desc_ring struct {
	words []uint32
	phys  uint64
	len   uint // logical descriptors
	shift uint
}

func new_desc_ring(b hw.DmaBuf, n uint, cap64 bool) (r desc_ring) {
	r.words = unsafe.Slice((*uint32)(unsafe.Pointer(&b.Data[0])), len(b.Data)/4)
	r.phys = b.PhysAddress
	r.len = n
	if cap64 {
		r.shift = 1
	}
	return
}

func (r *desc_ring) word(i uint) uint { return (i << r.shift) * 2 }

func (r *desc_ring) addr(i uint) uint32            { return r.words[r.word(i)] }
func (r *desc_ring) set_raw_addr(i uint, v uint32) { r.words[r.word(i)] = v }
func (r *desc_ring) ctrl(i uint) uint32            { return r.words[r.word(i)+1] }
func (r *desc_ring) set_ctrl(i uint, v uint32)     { r.words[r.word(i)+1] = v }

// set_addr splits a device address across the primary word and, for the
// wide layout, the extension pair immediately after it.  Low bits of v
// may carry the RX used/wrap markers; buffer alignment keeps them free.
func (r *desc_ring) set_addr(i uint, v uint64) {
	w := r.word(i)
	if r.shift != 0 {
		r.words[w+2] = uint32(v >> 32)
		r.words[w+3] = 0
	}
	r.words[w] = uint32(v)
}

// size is the ring's footprint in bytes as the device sees it.
func (r *desc_ring) size() uint { return r.len * dma_desc_size }

// Descriptors sharing one cache line must be released together; see
// reclaim_rx_buffer.
func (d *Device) descs_per_cache_line() uint {
	if d.cfg.HwDmaCap64 {
		return d.cfg.DmaMinAlign / dma_desc_size
	}
	return d.cfg.DmaMinAlign / (dma_desc_size / 2)
}

// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

import (
	"math/bits"
)

// GEM internal packet buffer segments, split across two allocation
// registers: queues 0..7 in the lower, 8..15 in the upper, one 4-bit
// log2 segment-count nibble each.
const (
	gem_segments         = 16
	gem_lower_seg_queues = 8
)

func ilog2(x uint32) uint32 { return uint32(bits.Len32(x) - 1) }

// configure_dma programs the GEM DMA configuration: receive buffer size
// in 64-byte units, burst length, packet buffer sizes, descriptor
// endianness and the 64-bit addressing switch.
func (d *Device) configure_dma() {
	v := gem_dmacfg.get(d) &^ gem_dmacfg_rx_bufsize_msk
	v |= uint32(d.rx_buffer_size/rx_buffer_multiple) << gem_dmacfg_rx_bufsize_sh

	if d.cfg.DmaBurstLength != 0 {
		v = v&^gem_dmacfg_burst_mask | d.cfg.DmaBurstLength&gem_dmacfg_burst_mask
	}

	v |= gem_dmacfg_tx_pbuf_full | gem_dmacfg_rx_pbuf_mask
	v &^= gem_dmacfg_endia_pkt

	if d.big_endian {
		v |= gem_dmacfg_endia_desc
	} else {
		v &^= gem_dmacfg_endia_desc
	}

	v &^= gem_dmacfg_addr64
	if d.cfg.HwDmaCap64 {
		v |= gem_dmacfg_addr64
	}
	gem_dmacfg.set(d, v)
}

// active_queue_mask reads the design configuration capability bits,
// narrows them by the board's allow mask, and forces queue 0 on (its
// capability bit is never set but the queue always exists).
func (d *Device) active_queue_mask() uint32 {
	m := gem_dcfg6.get(d) & gem_dcfg6_queue_mask
	if d.cfg.QueueMask != 0 {
		m &= d.cfg.QueueMask
	}
	return m | 1
}

// init_multi_queues parks every absent optional queue on a dummy
// descriptor that is permanently software-owned, so hardware gives up
// scanning it immediately, and divides the packet buffer segments
// across the queues that remain.
func (d *Device) init_multi_queues() {
	if d.cfg.DisableQueuesAtInit {
		for i := uint(1); i < max_queues; i++ {
			gem_tbqp_queue(i-1).set(d, 1)
			gem_rbqp_queue(i-1).set(d, 1)
		}
	}

	queue_mask := d.active_queue_mask()
	num_queues := uint32(0)
	for i := uint(0); i < max_queues; i++ {
		if queue_mask&(1<<i) != 0 {
			num_queues++
		}
	}

	d.dummy_desc.set_ctrl(0, tx_ctrl_used)
	d.dummy_desc.set_raw_addr(0, 0)
	d.cache.Flush(d.dummy_desc.phys, d.align_dma(dma_desc_size))
	paddr := d.dummy_desc.phys

	// Round down so the segment count cannot overflow its nibble.
	seg_per_queue := ilog2(gem_segments / num_queues)

	lower := seg_per_queue // queue 0 nibble
	upper := uint32(0)
	for i := uint(1); i < max_queues; i++ {
		if queue_mask&(1<<i) == 0 {
			gem_tbqp_queue(i-1).set(d, uint32(paddr))
			gem_rbqp_queue(i-1).set(d, uint32(paddr))
			if d.cfg.HwDmaCap64 {
				gem_tbqph.set(d, uint32(paddr>>32))
				gem_rbqph.set(d, uint32(paddr>>32))
			}
			continue
		}
		if i < gem_lower_seg_queues {
			lower |= seg_per_queue << (i * 4)
		} else {
			upper |= seg_per_queue << ((i - gem_lower_seg_queues) * 4)
		}
	}

	if d.cfg.AllocateSegmentsEqually {
		gem_seg_alloc_lower.set(d, lower)
		gem_seg_alloc_upper.set(d, upper)
	}
}

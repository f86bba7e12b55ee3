// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

// Cache maintenance around descriptor and buffer memory.  Hardware and
// software share cache lines, so every range is rounded up to the DMA
// alignment before flush/invalidate; a narrower range could clobber a
// neighbouring descriptor mid-update.

func (d *Device) align_dma(n uint) uint {
	a := d.cfg.DmaMinAlign
	return (n + a - 1) &^ (a - 1)
}

func (d *Device) flush_ring(r *desc_ring) {
	d.cache.Flush(r.phys, d.align_dma(r.size()))
}

func (d *Device) invalidate_ring(r *desc_ring) {
	d.cache.Invalidate(r.phys, d.align_dma(r.size()))
}

// flush_line writes back the single cache line covering descriptor i.
func (d *Device) flush_line(r *desc_ring, i uint) {
	a := uint64(d.cfg.DmaMinAlign)
	p := r.phys + uint64(i<<r.shift)*(dma_desc_size/2)
	d.cache.Flush(p&^(a-1), d.cfg.DmaMinAlign)
}

func (d *Device) flush_rx_buffer() {
	d.cache.Flush(d.rx_buffer.PhysAddress,
		d.align_dma(d.rx_buffer_size*rx_ring_size))
}

func (d *Device) invalidate_rx_buffer() {
	d.cache.Invalidate(d.rx_buffer.PhysAddress,
		d.align_dma(d.rx_buffer_size*rx_ring_size))
}

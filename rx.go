// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

import (
	"github.com/platinasystems/macb/hw"
)

// RX ring engine.  Hardware fills fixed 128/2048 byte slots and sets the
// ownership bit; a frame spans one or more consecutive slots.  Two
// cursors track the ring: rx_tail is where the current frame's first
// slot sits (and where reclaim resumes), next_rx_tail scans ahead
// looking for the end-of-frame marker.

// Recv polls for one received frame.  The returned slice aliases the
// receive buffer pool (or the scratch buffer when the frame wrapped past
// the pool's end) and stays valid until Release.  Returns ErrNoPacket
// when hardware has not filled the next slot yet.
func (d *Device) Recv() ([]byte, error) {
	d.next_rx_tail = d.rx_tail
	d.wrapped = false
	return d.recv()
}

func (d *Device) recv() ([]byte, error) {
	i := d.next_rx_tail
	for {
		d.invalidate_ring(&d.rx_ring)

		if d.rx_ring.addr(i)&rx_addr_used == 0 {
			return nil, ErrNoPacket
		}

		status := d.rx_ring.ctrl(i)
		if status&rx_ctrl_sof != 0 {
			// A fresh frame start: anything between the reclaim
			// tail and here was consumed or abandoned earlier.
			if i != d.rx_tail {
				d.reclaim_rx_buffers(i)
			}
			d.wrapped = false
		}

		if status&rx_ctrl_eof != 0 {
			length := rx_frame_len(status)
			// The 12-bit length field can claim more bytes than
			// the scratch buffer or pool hold.
			if length > max_frame_bytes {
				length = max_frame_bytes
			}
			d.invalidate_rx_buffer()

			// The frame's first slot is at the reclaim tail,
			// not the scan cursor.
			off := d.rx_buffer_size * d.rx_tail
			var pkt []byte
			if d.wrapped {
				// Frame bytes run off the end of the pool
				// and continue at slot 0; join the halves.
				headlen := d.rx_buffer_size * (rx_ring_size - d.rx_tail)
				if headlen > length {
					headlen = length
				}
				copy(d.rx_scratch, d.rx_buffer.Data[off:off+headlen])
				copy(d.rx_scratch[headlen:], d.rx_buffer.Data[:length-headlen])
				pkt = d.rx_scratch[:length]
			} else {
				if max := d.rx_buffer_size*rx_ring_size - off; length > max {
					length = max
				}
				pkt = d.rx_buffer.Data[off : off+length]
			}

			if i++; i >= rx_ring_size {
				i = 0
			}
			d.next_rx_tail = i
			d.wrapped = false
			return pkt, nil
		}

		// Middle of a multi-slot frame, or the end marker has not
		// landed yet; keep scanning.
		if i++; i >= rx_ring_size {
			d.wrapped = true
			i = 0
		}
		d.next_rx_tail = i
	}
}

// Release returns the last received frame's descriptors to hardware.
// Must be called once per successful Recv, after the frame's bytes have
// been consumed (they live in the slots being released).
func (d *Device) Release() {
	d.reclaim_rx_buffers(d.next_rx_tail)
}

// reclaim_rx_buffers releases descriptors from the reclaim tail up to
// but not including new_tail, in ring order.
func (d *Device) reclaim_rx_buffers(new_tail uint) {
	i := d.rx_tail

	d.invalidate_ring(&d.rx_ring)
	for i > new_tail {
		d.reclaim_rx_buffer(i)
		if i++; i >= rx_ring_size {
			i = 0
		}
	}
	for i < new_tail {
		d.reclaim_rx_buffer(i)
		i++
	}

	hw.MemoryBarrier()
	d.rx_tail = new_tail
}

// reclaim_rx_buffer clears ownership for descriptor idx, deferred by
// cache line: several descriptors share a line, and flushing a line with
// a sibling the controller is mid-update on would clobber it.  So the
// bits are cleared, and the line written back, only when idx is the last
// descriptor of its line; that releases the whole line at once.
func (d *Device) reclaim_rx_buffer(idx uint) {
	mask := d.descs_per_cache_line() - 1

	if idx&mask != mask {
		return
	}
	for i := idx &^ mask; i <= idx; i++ {
		d.rx_ring.set_raw_addr(i, d.rx_ring.addr(i)&^rx_addr_used)
	}
	d.flush_line(&d.rx_ring, idx&^mask)
}

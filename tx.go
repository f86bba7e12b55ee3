// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

import (
	"fmt"
	"time"

	"github.com/platinasystems/log"
	"github.com/platinasystems/macb/hw"
)

// TX ring engine: one descriptor per frame, submit then poll for
// completion.  The network core reuses the caller's buffer as soon as we
// return, hence the synchronous wait.

func (d *Device) Send(packet []byte) error {
	length := uint(len(packet))
	if length > max_frame_bytes {
		return fmt.Errorf("%s: frame too long (%d bytes)", d.Name, length)
	}

	paddr := d.map_tx(packet)

	i := d.tx_head
	ctrl := encode_tx_ctrl(length, true, i == tx_ring_size-1)
	if i == tx_ring_size-1 {
		d.tx_head = 0
	} else {
		d.tx_head++
	}

	d.tx_ring.set_ctrl(i, ctrl)
	d.tx_ring.set_addr(i, paddr)

	hw.MemoryBarrier()
	d.flush_ring(&d.tx_ring)
	ncr.set(d, ncr_tx_enable|ncr_rx_enable|ncr_tx_start)

	var status uint32
	done := false
	for n := 0; n <= tx_timeout_us; n++ {
		hw.MemoryBarrier()
		d.invalidate_ring(&d.tx_ring)
		status = d.tx_ring.ctrl(i)
		if status&tx_ctrl_used != 0 {
			done = true
			break
		}
		time.Sleep(time.Microsecond)
	}

	d.unmap_tx()

	if !done {
		log.Print("warning: ", d.Name, ": TX timeout")
		return ErrTxTimeout
	}
	// Hardware already put the frame on the wire (or tried to); these
	// are diagnostics, not failures.
	if status&tx_ctrl_underrun != 0 {
		log.Print("warning: ", d.Name, ": TX underrun")
	}
	if status&tx_ctrl_buf_exhausted != 0 {
		log.Print("warning: ", d.Name, ": TX buffers exhausted in mid frame")
	}
	return nil
}

// map_tx makes the frame visible to the device: copy into the bounce
// slot (Go heap memory has no stable device address) and write the
// bytes back to the point of coherency.
func (d *Device) map_tx(packet []byte) uint64 {
	copy(d.tx_bounce.Data, packet)
	d.cache.Flush(d.tx_bounce.PhysAddress, d.align_dma(uint(len(packet))))
	d.tx_mapped = true
	return d.tx_bounce.PhysAddress
}

func (d *Device) unmap_tx() {
	d.tx_mapped = false
}

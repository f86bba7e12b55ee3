// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

import (
	"bytes"
	"testing"
)

var fixed_gbe = &FixedLink{SpeedMbps: 1000, FullDuplex: true}

func TestRecvNoPacket(t *testing.T) {
	r := new_macb_rig(t, fixed_gbe)
	if err := r.d.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.d.Recv(); err != ErrNoPacket {
		t.Errorf("got %v, want ErrNoPacket", err)
	}
}

func TestRecvSingleSlot(t *testing.T) {
	r := new_macb_rig(t, fixed_gbe)
	if err := r.d.Init(); err != nil {
		t.Fatal(err)
	}

	want := pattern(100, 1)
	r.fill_rx(0, rx_ctrl_sof|rx_ctrl_eof|100, want)

	got, err := r.d.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("frame data mismatch")
	}
	if r.d.next_rx_tail != 1 {
		t.Errorf("next_rx_tail = %d, want 1", r.d.next_rx_tail)
	}

	r.d.Release()
	if r.d.rx_tail != 1 {
		t.Errorf("rx_tail = %d, want 1", r.d.rx_tail)
	}
	// Ownership stays with software until the whole cache line of
	// descriptors is done.
	if r.d.rx_ring.addr(0)&rx_addr_used == 0 {
		t.Error("descriptor 0 released early")
	}

	if _, err = r.d.Recv(); err != ErrNoPacket {
		t.Errorf("second recv: got %v, want ErrNoPacket", err)
	}
}

func TestRecvMultiSlot(t *testing.T) {
	r := new_macb_rig(t, fixed_gbe)
	if err := r.d.Init(); err != nil {
		t.Fatal(err)
	}

	// 300 bytes spans three 128 byte slots; buffer slots are
	// contiguous so the frame needs no copy.
	want := pattern(300, 5)
	copy(r.d.rx_buffer.Data, want)
	r.fill_rx(0, rx_ctrl_sof, nil)
	r.fill_rx(1, 0, nil)
	r.fill_rx(2, rx_ctrl_eof|300, nil)

	got, err := r.d.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("frame data mismatch")
	}
	if r.d.next_rx_tail != 3 {
		t.Errorf("next_rx_tail = %d, want 3", r.d.next_rx_tail)
	}
	r.d.Release()
	if r.d.rx_tail != 3 {
		t.Errorf("rx_tail = %d, want 3", r.d.rx_tail)
	}
}

func TestRecvWrapped(t *testing.T) {
	r := new_macb_rig(t, fixed_gbe)
	if err := r.d.Init(); err != nil {
		t.Fatal(err)
	}

	// Frame occupies the last two slots and the first: the byte run
	// breaks at the pool boundary and must be rejoined.
	r.d.rx_tail = 30
	r.d.next_rx_tail = 30

	want := pattern(300, 9)
	headlen := int(r.d.rx_buffer_size) * 2
	copy(r.d.rx_buffer.Data[r.d.rx_buffer_size*30:], want[:headlen])
	copy(r.d.rx_buffer.Data, want[headlen:])
	r.fill_rx(30, rx_ctrl_sof, nil)
	r.fill_rx(31, 0, nil)
	r.fill_rx(0, rx_ctrl_eof|300, nil)

	got, err := r.d.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("wrapped frame data mismatch")
	}
	if r.d.next_rx_tail != 1 {
		t.Errorf("next_rx_tail = %d, want 1", r.d.next_rx_tail)
	}
	if r.d.wrapped {
		t.Error("wrapped flag not cleared after delivery")
	}
	r.d.Release()
	if r.d.rx_tail != 1 {
		t.Errorf("rx_tail = %d, want 1", r.d.rx_tail)
	}
}

func TestRecvSkipsStaleSlots(t *testing.T) {
	r := new_macb_rig(t, fixed_gbe)
	if err := r.d.Init(); err != nil {
		t.Fatal(err)
	}

	// Slot 0 was abandoned mid-frame (no start marker); a complete
	// frame follows in slot 1.  The stale slot is reclaimed when the
	// new start of frame is found.
	r.fill_rx(0, 0, nil)
	want := pattern(64, 2)
	r.fill_rx(1, rx_ctrl_sof|rx_ctrl_eof|64, want)

	got, err := r.d.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("frame data mismatch")
	}
	if r.d.rx_tail != 1 {
		t.Errorf("rx_tail = %d, want 1 after stale reclaim", r.d.rx_tail)
	}
}

// Hardware error status in the control word does not gate delivery:
// only the ownership bit and the frame markers matter.  Upper layers
// (or the FCS already checked in hardware) deal with bad frames.
func TestRecvDeliversErroredFrames(t *testing.T) {
	r := new_macb_rig(t, fixed_gbe)
	if err := r.d.Init(); err != nil {
		t.Fatal(err)
	}

	want := pattern(64, 6)
	status := uint32(rx_ctrl_sof | rx_ctrl_eof | 64)
	status |= 3 << 16 // receive status bits a checker might reject
	r.fill_rx(0, status, want)

	got, err := r.d.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("frame data mismatch")
	}
}

// A status word may claim more bytes than any frame we accept; the
// delivered slice must stay inside the scratch buffer and the pool.
func TestRecvClampsBogusFrameLen(t *testing.T) {
	r := new_macb_rig(t, fixed_gbe)
	if err := r.d.Init(); err != nil {
		t.Fatal(err)
	}

	r.fill_rx(0, rx_ctrl_sof|rx_ctrl_eof|0xfff, pattern(100, 7))
	got, err := r.d.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != max_frame_bytes {
		t.Errorf("got %d bytes, want %d", len(got), max_frame_bytes)
	}
	r.d.Release()

	// Near the end of the pool the clamp tightens to what is left.
	r.d.rx_tail = 30
	r.d.next_rx_tail = 30
	r.fill_rx(30, rx_ctrl_sof|rx_ctrl_eof|0xfff, pattern(100, 8))
	got, err = r.d.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if want := int(macb_rx_buffer_size * (rx_ring_size - 30)); len(got) != want {
		t.Errorf("got %d bytes, want %d", len(got), want)
	}
}

// One full lap of single-slot frames: ownership must be handed back in
// cache-line batches, with exactly one write-back per line.
func TestDeferredReclaim(t *testing.T) {
	// 8 narrow descriptors per 64 byte line.
	run_deferred_reclaim(t, new_macb_rig(t, fixed_gbe))
}

func TestDeferredReclaimWide(t *testing.T) {
	// 64-bit addressing doubles the descriptor footprint: 4 per line.
	cfg := &Config{HwDmaCap64: true, Usrio: &default_usrio}
	run_deferred_reclaim(t, new_gem_rig(t, cfg, fixed_gbe))
}

func run_deferred_reclaim(t *testing.T, r *test_rig) {
	t.Helper()
	if err := r.d.Init(); err != nil {
		t.Fatal(err)
	}
	line := r.d.cfg.DmaMinAlign
	per_line := r.d.descs_per_cache_line()
	r.cache.flushes = nil

	for i := uint(0); i < rx_ring_size; i++ {
		r.fill_rx(i, rx_ctrl_sof|rx_ctrl_eof|60, pattern(60, byte(i)))
		if _, err := r.d.Recv(); err != nil {
			t.Fatalf("slot %d: %v", i, err)
		}
		r.d.Release()

		want_flushes := int((i + 1) / per_line)
		if got := len(line_flushes(r, line)); got != want_flushes {
			t.Fatalf("slot %d: %d line flushes, want %d",
				i, got, want_flushes)
		}
	}

	for n, op := range line_flushes(r, line) {
		want := r.d.rx_ring.phys + uint64(n)*uint64(line)
		if op.addr != want {
			t.Errorf("flush %d at %#x, want %#x", n, op.addr, want)
		}
	}
	for i := uint(0); i < rx_ring_size; i++ {
		if r.d.rx_ring.addr(i)&rx_addr_used != 0 {
			t.Errorf("descriptor %d still owned by software", i)
		}
	}
}

// line_flushes filters cache write-backs down to single descriptor
// lines inside the RX ring.
func line_flushes(r *test_rig, line uint) (ops []cache_op) {
	ring := r.d.rx_ring.phys
	end := ring + uint64(r.d.rx_ring.size())
	for _, op := range r.cache.flushes {
		if op.n == line && op.addr >= ring && op.addr < end {
			ops = append(ops, op)
		}
	}
	return
}
